// Package blob implements the device-aware tensor buffer: an
// N-dimensional container pairing value storage ("data") with gradient
// storage ("diff"), both held in coherent host/device cells that
// synchronize lazily on access.
package blob

import (
	"math"
	"unsafe"

	"github.com/TheMatrixLab/caffe/internal/device"
	"github.com/TheMatrixLab/caffe/internal/mem"
	"github.com/TheMatrixLab/caffe/internal/quant"
)

// MaxAxes bounds the number of shape extents.
const MaxAxes = 32

// Element is the set of storable element types.
type Element interface {
	~float32 | ~float64 | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint8 | ~uint16 | ~uint32 | ~uint64 | ~bool
}

// Mode selects the execution side for operations that are not driven by
// coherence state, such as CopyFrom and Clear. It is threaded in
// explicitly by the owning execution context.
type Mode int

const (
	ModeHost Mode = iota
	ModeDevice
)

// Blob is one tensor buffer. Instances are single-writer; sharing a cell
// between blobs requires the callers to serialize mutation themselves.
type Blob[T Element] struct {
	data      *mem.Cell
	diff      *mem.Cell
	shapeData *mem.Cell

	shape       []int64
	shapeStride []int64
	count       int64
	capacity    int64

	kind  device.Kind
	ctx   *device.Context
	codec quant.Codec
}

func kindOf[T Element]() device.Kind {
	var z T
	switch any(z).(type) {
	case float64:
		return device.KindFloat64
	case float32:
		return device.KindFloat32
	case device.Half:
		return device.KindHalf
	case int8:
		return device.KindInt8
	case int16:
		return device.KindInt16
	case int32:
		return device.KindInt32
	case int64:
		return device.KindInt64
	case uint8:
		return device.KindUint8
	case uint16:
		return device.KindUint16
	case uint32:
		return device.KindUint32
	case uint64:
		return device.KindUint64
	case bool:
		return device.KindBool
	default:
		fatal(ErrNotImplemented, "unmapped element type")
		return 0
	}
}

// New creates an empty buffer with capacity 0 bound to the given device
// context. A nil context makes every device-side access fatal.
func New[T Element](ctx *device.Context) *Blob[T] {
	return &Blob[T]{kind: kindOf[T](), ctx: ctx}
}

// NewWithShape creates a buffer and reshapes it immediately.
func NewWithShape[T Element](ctx *device.Context, extents ...int64) *Blob[T] {
	b := New[T](ctx)
	b.Reshape(extents...)
	return b
}

// New4 creates a buffer from the legacy 4-axis shape.
func New4[T Element](ctx *device.Context, num, channels, height, width int64) *Blob[T] {
	b := New[T](ctx)
	b.Reshape4(num, channels, height, width)
	return b
}

func (b *Blob[T]) Kind() device.Kind {
	return b.kind
}

func (b *Blob[T]) Context() *device.Context {
	return b.ctx
}

// Shape returns the current extents. Callers must treat the slice as
// read-only.
func (b *Blob[T]) Shape() []int64 {
	return b.shape
}

func (b *Blob[T]) ShapeStride() []int64 {
	return b.shapeStride
}

func (b *Blob[T]) Axes() int {
	return len(b.shape)
}

func (b *Blob[T]) Count() int64 {
	return b.count
}

func (b *Blob[T]) Capacity() int64 {
	return b.capacity
}

func (b *Blob[T]) ByteCount() int64 {
	return b.count * int64(b.kind.Size())
}

// Reshape resizes the buffer to the given extents, with the stride shape
// defaulting to the primary shape. It returns true when the storage cells
// were reallocated, invalidating previously held views.
func (b *Blob[T]) Reshape(extents ...int64) bool {
	return b.ReshapeStride(extents, extents)
}

// Reshape4 resizes from the legacy (num, channels, height, width) tuple.
func (b *Blob[T]) Reshape4(num, channels, height, width int64) bool {
	return b.Reshape(num, channels, height, width)
}

// ReshapeLike resizes to match another buffer's shape.
func (b *Blob[T]) ReshapeLike(other *Blob[T]) bool {
	return b.Reshape(other.shape...)
}

// ReshapeStride resizes the buffer with an explicit stride shape. Both
// cells are replaced only when the new element count exceeds the largest
// allocation made so far; a logical shrink keeps the existing storage.
func (b *Blob[T]) ReshapeStride(extents, strides []int64) bool {
	if len(extents) > MaxAxes {
		fatal(ErrTooManyAxes, "reshape with too many axes", "axes", len(extents), "max", MaxAxes)
	}
	if len(strides) != len(extents) {
		fatal(ErrShapeMismatch, "stride shape length differs from shape", "shape", len(extents), "stride", len(strides))
	}

	// Grow the device-mirrored shape only when the axis count no longer
	// fits the current mirror.
	need := len(extents) * 8
	if b.shapeData == nil || b.shapeData.ByteSize() < need {
		b.shapeData = mem.NewCell(need, b.ctx)
	}
	mirror := device.Int64s(b.shapeData.MutableHostBytes(), len(extents))

	count := int64(1)
	b.shape = make([]int64, len(extents))
	b.shapeStride = make([]int64, len(extents))
	for i, d := range extents {
		if d < 0 {
			fatal(ErrNegativeExtent, "reshape with negative extent", "axis", i, "extent", d)
		}
		if strides[i] < 0 {
			fatal(ErrNegativeExtent, "reshape with negative stride extent", "axis", i, "extent", strides[i])
		}
		if count != 0 && d > math.MaxInt64/count {
			fatal(ErrOverflow, "blob size exceeds index range", "axis", i, "extent", d)
		}
		count *= d
		b.shape[i] = d
		b.shapeStride[i] = strides[i]
		mirror[i] = d
	}
	b.count = count

	if count > b.capacity {
		b.capacity = count
		nb := int(count) * b.kind.Size()
		b.data = mem.NewCell(nb, b.ctx)
		b.diff = mem.NewCell(nb, b.ctx)
		return true
	}
	return false
}

func (b *Blob[T]) requireCell(c *mem.Cell, which string) *mem.Cell {
	if c == nil {
		fatal(ErrNilCell, "access to unallocated cell", "cell", which)
	}
	return c
}

// HostData returns a read view of the values in host memory.
func (b *Blob[T]) HostData() []T {
	c := b.requireCell(b.data, "data")
	return view[T](c.HostBytes(), b.count)
}

// MutableHostData returns a writable view of the values in host memory
// and marks the host copy authoritative.
func (b *Blob[T]) MutableHostData() []T {
	c := b.requireCell(b.data, "data")
	return view[T](c.MutableHostBytes(), b.count)
}

// HostDiff returns a read view of the gradients in host memory.
func (b *Blob[T]) HostDiff() []T {
	c := b.requireCell(b.diff, "diff")
	return view[T](c.HostBytes(), b.count)
}

// MutableHostDiff returns a writable view of the gradients in host memory
// and marks the host copy authoritative.
func (b *Blob[T]) MutableHostDiff() []T {
	c := b.requireCell(b.diff, "diff")
	return view[T](c.MutableHostBytes(), b.count)
}

// DeviceData returns a device pointer to the values.
func (b *Blob[T]) DeviceData() device.Ptr {
	c := b.requireCell(b.data, "data")
	return c.DeviceBuffer().Ptr(b.kind)
}

// MutableDeviceData returns a device pointer to the values and marks the
// device copy authoritative.
func (b *Blob[T]) MutableDeviceData() device.Ptr {
	c := b.requireCell(b.data, "data")
	return c.MutableDeviceBuffer().Ptr(b.kind)
}

// DeviceDiff returns a device pointer to the gradients.
func (b *Blob[T]) DeviceDiff() device.Ptr {
	c := b.requireCell(b.diff, "diff")
	return c.DeviceBuffer().Ptr(b.kind)
}

// MutableDeviceDiff returns a device pointer to the gradients and marks
// the device copy authoritative.
func (b *Blob[T]) MutableDeviceDiff() device.Ptr {
	c := b.requireCell(b.diff, "diff")
	return c.MutableDeviceBuffer().Ptr(b.kind)
}

// DeviceShape returns a device pointer to the mirrored extents for
// kernels that need shape metadata on-device.
func (b *Blob[T]) DeviceShape() device.Ptr {
	c := b.requireCell(b.shapeData, "shape")
	return c.DeviceBuffer().Ptr(device.KindInt64)
}

// SetHostData adopts external host storage as the value storage. Both
// cells are replaced first if their allocated size differs from the
// buffer's byte count, keeping data and diff in lock-step.
func (b *Blob[T]) SetHostData(p []T) {
	c := b.requireCell(b.data, "data")
	size := b.ByteCount()
	if int64(c.ByteSize()) != size {
		b.data = mem.NewCell(int(size), b.ctx)
		b.diff = mem.NewCell(int(size), b.ctx)
	}
	b.data.SetHostBytes(asBytes(p))
}

// SetDeviceData adopts an existing device allocation as the value storage,
// replacing both cells first if the allocated size differs.
func (b *Blob[T]) SetDeviceData(buf *device.Buffer) {
	c := b.requireCell(b.data, "data")
	size := b.ByteCount()
	if int64(c.ByteSize()) != size {
		b.data = mem.NewCell(int(size), b.ctx)
		b.diff = mem.NewCell(int(size), b.ctx)
	}
	b.data.SetDeviceBuffer(buf)
}

// ShareData aliases the other buffer's value cell instead of owning one.
// Mutations through either buffer are visible through both; callers must
// keep at most one concurrent mutator across all sharers.
func (b *Blob[T]) ShareData(other *Blob[T]) {
	if b.count != other.count {
		fatal(ErrCountMismatch, "share data between different counts", "count", b.count, "other", other.count)
	}
	b.data = other.data
}

// ShareDiff aliases the other buffer's gradient cell.
func (b *Blob[T]) ShareDiff(other *Blob[T]) {
	if b.count != other.count {
		fatal(ErrCountMismatch, "share diff between different counts", "count", b.count, "other", other.count)
	}
	b.diff = other.diff
}

// SharesDataWith reports whether both buffers alias the same value cell.
func (b *Blob[T]) SharesDataWith(other *Blob[T]) bool {
	return b.data != nil && b.data == other.data
}

// SharesDiffWith reports whether both buffers alias the same gradient cell.
func (b *Blob[T]) SharesDiffWith(other *Blob[T]) bool {
	return b.diff != nil && b.diff == other.diff
}

// DataCell exposes the value cell for coherence inspection.
func (b *Blob[T]) DataCell() *mem.Cell {
	return b.data
}

// DiffCell exposes the gradient cell for coherence inspection.
func (b *Blob[T]) DiffCell() *mem.Cell {
	return b.diff
}

func view[T Element](b []byte, n int64) []T {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(b))), int(n))
}

func asBytes[T Element](p []T) []byte {
	if len(p) == 0 {
		return nil
	}
	var z T
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(p))), len(p)*int(unsafe.Sizeof(z)))
}
