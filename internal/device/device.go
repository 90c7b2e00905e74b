package device

import (
	"errors"
	"math"
	"runtime"
	"sync/atomic"

	"github.com/TheMatrixLab/caffe/internal/metrics"
)

var (
	// ErrNoAccelerator signals a device-side access on a buffer whose
	// owner was built without an accelerator context.
	ErrNoAccelerator = errors.New("no accelerator context")

	// ErrUnsupportedKind signals a primitive invoked on an element kind
	// it is not defined for.
	ErrUnsupportedKind = errors.New("unsupported element kind")

	// ErrKindMismatch signals two pointers of different element kinds
	// passed to one primitive.
	ErrKindMismatch = errors.New("element kind mismatch")
)

var allocatedBytes int64

func traceAlloc(delta int64) {
	newVal := atomic.AddInt64(&allocatedBytes, delta)
	metrics.RecordDeviceMemory(newVal)
}

// AllocatedBytes returns the bytes currently resident on the device.
func AllocatedBytes() int64 {
	return atomic.LoadInt64(&allocatedBytes)
}

// Context is the accelerator runtime. This build carries the in-process
// reference backend: device buffers live in ordinary memory and the
// primitives run on the host, but callers observe the same allocation,
// transfer and dispatch behaviour as with a real accelerator.
type Context struct {
	device     int
	numThreads int
}

func NewContext() *Context {
	return &Context{
		device:     0,
		numThreads: runtime.NumCPU(),
	}
}

func (c *Context) Device() int {
	return c.device
}

func (c *Context) SetNumThreads(n int) {
	c.numThreads = n
}

func (c *Context) NumThreads() int {
	return c.numThreads
}

// Buffer is one device-side allocation.
type Buffer struct {
	ctx  *Context
	data []byte
}

// Malloc allocates n zeroed bytes on the device.
func (c *Context) Malloc(n int) *Buffer {
	traceAlloc(int64(n))
	return &Buffer{ctx: c, data: make([]byte, n)}
}

func (b *Buffer) Release() {
	if b.data != nil {
		traceAlloc(-int64(len(b.data)))
		b.data = nil
	}
}

func (b *Buffer) ByteSize() int {
	return len(b.data)
}

// Bytes exposes the raw device storage. Only the coherence layer and the
// quantizer device paths should touch it.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Ptr returns a typed device pointer to the start of the buffer.
func (b *Buffer) Ptr(kind Kind) Ptr {
	return Ptr{buf: b, kind: kind}
}

// Ptr is a device pointer: a buffer, a byte offset into it, and the element
// kind it is viewed as. The same pointer value works against any backend.
type Ptr struct {
	buf  *Buffer
	off  int
	kind Kind
}

func (p Ptr) Kind() Kind {
	return p.kind
}

func (p Ptr) IsNil() bool {
	return p.buf == nil
}

// Offset advances the pointer by elems elements.
func (p Ptr) Offset(elems int) Ptr {
	p.off += elems * p.kind.Size()
	return p
}

// Bytes returns an n-byte window of device storage at the pointer.
func (p Ptr) Bytes(n int) []byte {
	return p.buf.data[p.off : p.off+n]
}

func (p Ptr) f64(n int) []float64 { return Float64s(p.Bytes(n*8), n) }
func (p Ptr) f32(n int) []float32 { return Float32s(p.Bytes(n*4), n) }
func (p Ptr) f16(n int) []Half    { return Halfs(p.Bytes(n*2), n) }

// Axpy computes y = alpha*x + y over n elements.
func (c *Context) Axpy(n int, alpha float64, x, y Ptr) error {
	if x.kind != y.kind {
		return ErrKindMismatch
	}
	switch x.kind {
	case KindFloat64:
		xs, ys := x.f64(n), y.f64(n)
		for i := 0; i < n; i++ {
			ys[i] += alpha * xs[i]
		}
	case KindFloat32:
		xs, ys := x.f32(n), y.f32(n)
		a := float32(alpha)
		for i := 0; i < n; i++ {
			ys[i] += a * xs[i]
		}
	case KindHalf:
		xs, ys := x.f16(n), y.f16(n)
		a := float32(alpha)
		for i := 0; i < n; i++ {
			ys[i] = HalfFromFloat32(ys[i].Float32() + a*xs[i].Float32())
		}
	default:
		return ErrUnsupportedKind
	}
	return nil
}

// Dot computes the inner product of x and y over n elements.
func (c *Context) Dot(n int, x, y Ptr) (float64, error) {
	if x.kind != y.kind {
		return 0, ErrKindMismatch
	}
	var sum float64
	switch x.kind {
	case KindFloat64:
		xs, ys := x.f64(n), y.f64(n)
		for i := 0; i < n; i++ {
			sum += xs[i] * ys[i]
		}
	case KindFloat32:
		xs, ys := x.f32(n), y.f32(n)
		for i := 0; i < n; i++ {
			sum += float64(xs[i]) * float64(ys[i])
		}
	case KindHalf:
		xs, ys := x.f16(n), y.f16(n)
		for i := 0; i < n; i++ {
			sum += float64(xs[i].Float32()) * float64(ys[i].Float32())
		}
	default:
		return 0, ErrUnsupportedKind
	}
	return sum, nil
}

// Asum computes the sum of element magnitudes over n elements.
func (c *Context) Asum(n int, x Ptr) (float64, error) {
	var sum float64
	switch x.kind {
	case KindFloat64:
		for _, v := range x.f64(n) {
			sum += math.Abs(v)
		}
	case KindFloat32:
		for _, v := range x.f32(n) {
			sum += math.Abs(float64(v))
		}
	case KindHalf:
		for _, v := range x.f16(n) {
			sum += math.Abs(float64(v.Float32()))
		}
	default:
		return 0, ErrUnsupportedKind
	}
	return sum, nil
}

// Scal scales n elements of x by alpha in place.
func (c *Context) Scal(n int, alpha float64, x Ptr) error {
	switch x.kind {
	case KindFloat64:
		xs := x.f64(n)
		for i := range xs {
			xs[i] *= alpha
		}
	case KindFloat32:
		xs := x.f32(n)
		a := float32(alpha)
		for i := range xs {
			xs[i] *= a
		}
	case KindHalf:
		xs := x.f16(n)
		a := float32(alpha)
		for i := range xs {
			xs[i] = HalfFromFloat32(xs[i].Float32() * a)
		}
	default:
		return ErrUnsupportedKind
	}
	return nil
}

// Set assigns v to n elements of x. A zero value is defined for every kind;
// non-zero values only for the arithmetic kinds.
func (c *Context) Set(n int, v float64, x Ptr) error {
	if v == 0 {
		b := x.Bytes(n * x.kind.Size())
		for i := range b {
			b[i] = 0
		}
		return nil
	}
	switch x.kind {
	case KindFloat64:
		xs := x.f64(n)
		for i := range xs {
			xs[i] = v
		}
	case KindFloat32:
		xs := x.f32(n)
		f := float32(v)
		for i := range xs {
			xs[i] = f
		}
	case KindHalf:
		xs := x.f16(n)
		h := HalfFromFloat32(float32(v))
		for i := range xs {
			xs[i] = h
		}
	default:
		return ErrUnsupportedKind
	}
	return nil
}

// Copy moves n elements from src to dst. Defined for every kind.
func (c *Context) Copy(n int, src, dst Ptr) error {
	if src.kind != dst.kind {
		return ErrKindMismatch
	}
	nb := n * src.kind.Size()
	copy(dst.Bytes(nb), src.Bytes(nb))
	return nil
}
