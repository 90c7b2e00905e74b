// Package mem implements the coherent storage cell: one host allocation
// and one device allocation for the same byte size, with lazy copies
// between the two sides on first cross-side access.
package mem

import (
	"fmt"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/TheMatrixLab/caffe/internal/device"
	"github.com/TheMatrixLab/caffe/internal/logger"
	"github.com/TheMatrixLab/caffe/internal/metrics"
)

// State tracks which side of a cell holds the authoritative copy.
type State int

const (
	Uninitialized State = iota
	ValidOnHost
	ValidOnDevice
	ValidOnBoth
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case ValidOnHost:
		return "valid-on-host"
	case ValidOnDevice:
		return "valid-on-device"
	case ValidOnBoth:
		return "valid-on-both"
	default:
		return fmt.Sprintf("unknown-state-%d", int(s))
	}
}

var hostAllocated int64

func traceHostAlloc(delta int64) {
	newVal := atomic.AddInt64(&hostAllocated, delta)
	metrics.RecordHostMemory(newVal)
}

// HostAllocatedBytes returns the bytes currently held by cell host buffers.
func HostAllocatedBytes() int64 {
	return atomic.LoadInt64(&hostAllocated)
}

// Cell is one dual host/device allocation. Both sides are allocated
// lazily on first access; the state field records which side is
// authoritative. A nil device context marks a host-only build, and any
// device-side access is fatal.
type Cell struct {
	host    *memory.Buffer
	dev     *device.Buffer
	ctx     *device.Context
	size    int
	state   State
	ownHost bool
}

var log = logger.Log.Component("mem")

// NewCell prepares a cell of byteSize bytes bound to the given device
// context. No storage is allocated until a side is first touched.
func NewCell(byteSize int, ctx *device.Context) *Cell {
	metrics.RecordCellAllocation(byteSize)
	return &Cell{ctx: ctx, size: byteSize}
}

func (c *Cell) ByteSize() int {
	return c.size
}

func (c *Cell) State() State {
	return c.state
}

func (c *Cell) Context() *device.Context {
	return c.ctx
}

func (c *Cell) ensureHost() {
	if c.host != nil {
		return
	}
	buf := memory.NewResizableBuffer(memory.DefaultAllocator)
	buf.Resize(c.size)
	c.host = buf
	c.ownHost = true
	traceHostAlloc(int64(c.size))
}

func (c *Cell) ensureDevice() {
	if c.ctx == nil {
		log.Error("device access without accelerator context", "bytes", c.size)
		panic(fmt.Errorf("%w: cell of %d bytes", device.ErrNoAccelerator, c.size))
	}
	if c.dev == nil {
		c.dev = c.ctx.Malloc(c.size)
	}
}

func (c *Cell) toHost() {
	switch c.state {
	case Uninitialized:
		c.ensureHost()
		c.state = ValidOnHost
	case ValidOnDevice:
		c.ensureHost()
		copy(c.host.Bytes(), c.dev.Bytes())
		metrics.RecordTransfer(false, c.size)
		c.state = ValidOnBoth
	}
}

func (c *Cell) toDevice() {
	switch c.state {
	case Uninitialized:
		c.ensureDevice()
		c.state = ValidOnDevice
	case ValidOnHost:
		c.ensureDevice()
		copy(c.dev.Bytes(), c.host.Bytes())
		metrics.RecordTransfer(true, c.size)
		c.state = ValidOnBoth
	}
}

// HostBytes returns a read view of the host side, synchronizing from the
// device first when the device holds the only valid copy.
func (c *Cell) HostBytes() []byte {
	c.toHost()
	return c.host.Bytes()
}

// MutableHostBytes returns a writable view of the host side and marks the
// host as the sole valid side.
func (c *Cell) MutableHostBytes() []byte {
	c.toHost()
	c.state = ValidOnHost
	return c.host.Bytes()
}

// DeviceBuffer returns the device side for reading, synchronizing from the
// host first when the host holds the only valid copy.
func (c *Cell) DeviceBuffer() *device.Buffer {
	c.toDevice()
	return c.dev
}

// MutableDeviceBuffer returns the device side for writing and marks the
// device as the sole valid side.
func (c *Cell) MutableDeviceBuffer() *device.Buffer {
	c.toDevice()
	c.state = ValidOnDevice
	return c.dev
}

// SetHostBytes adopts external host storage as the cell's host side. The
// supplied slice must match the cell's byte size exactly.
func (c *Cell) SetHostBytes(b []byte) {
	if len(b) != c.size {
		log.Error("host storage size mismatch", "got", len(b), "want", c.size)
		panic(fmt.Errorf("host storage of %d bytes adopted into cell of %d bytes", len(b), c.size))
	}
	if c.host != nil && c.ownHost {
		traceHostAlloc(-int64(c.size))
		c.host.Release()
	}
	c.host = memory.NewBufferBytes(b)
	c.ownHost = false
	c.state = ValidOnHost
}

// SetDeviceBuffer adopts an existing device allocation as the cell's
// device side.
func (c *Cell) SetDeviceBuffer(b *device.Buffer) {
	if b.ByteSize() != c.size {
		log.Error("device storage size mismatch", "got", b.ByteSize(), "want", c.size)
		panic(fmt.Errorf("device storage of %d bytes adopted into cell of %d bytes", b.ByteSize(), c.size))
	}
	if c.dev != nil {
		c.dev.Release()
	}
	c.dev = b
	c.state = ValidOnDevice
}

// Release frees both sides. Callers that share a cell between buffers must
// only release through the last holder; replaced cells dropped by a
// reshape are left to the garbage collector instead.
func (c *Cell) Release() {
	if c.host != nil {
		if c.ownHost {
			traceHostAlloc(-int64(c.size))
		}
		c.host.Release()
		c.host = nil
	}
	if c.dev != nil {
		c.dev.Release()
		c.dev = nil
	}
	c.state = Uninitialized
}
