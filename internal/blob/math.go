package blob

import (
	"github.com/TheMatrixLab/caffe/internal/cpu"
	"github.com/TheMatrixLab/caffe/internal/device"
	"github.com/TheMatrixLab/caffe/internal/mem"
)

// Reductions, scaling and the update rule dispatch on whichever side
// currently holds the valid copy of the relevant cell. They are defined
// only for the floating-point kinds; integer buffers are never trainable
// parameters and invoking these on one is fatal.

func (b *Blob[T]) requireArithmetic(op string) {
	if !b.kind.Arithmetic() {
		fatal(ErrNotImplemented, op, "kind", b.kind.String())
	}
}

func (b *Blob[T]) devctx(op string) *device.Context {
	if b.ctx == nil {
		fatal(device.ErrNoAccelerator, op, "kind", b.kind.String())
	}
	return b.ctx
}

func (b *Blob[T]) check(err error, op string) {
	if err != nil {
		fatal(err, op, "kind", b.kind.String())
	}
}

// AsumData returns the sum of value magnitudes.
func (b *Blob[T]) AsumData() float64 {
	return b.asum(b.data, "asum_data")
}

// AsumDiff returns the sum of gradient magnitudes.
func (b *Blob[T]) AsumDiff() float64 {
	return b.asum(b.diff, "asum_diff")
}

func (b *Blob[T]) asum(c *mem.Cell, op string) float64 {
	b.requireArithmetic(op)
	if c == nil {
		return 0
	}
	switch c.State() {
	case mem.ValidOnHost:
		v, err := cpu.Asum(b.kind, int(b.count), c.HostBytes())
		b.check(err, op)
		return v
	case mem.ValidOnDevice, mem.ValidOnBoth:
		v, err := b.devctx(op).Asum(int(b.count), c.DeviceBuffer().Ptr(b.kind))
		b.check(err, op)
		return v
	case mem.Uninitialized:
		return 0
	default:
		fatal(ErrUnknownState, op, "state", c.State().String())
		return 0
	}
}

// SumSqData returns the sum of squared values.
func (b *Blob[T]) SumSqData() float64 {
	return b.sumsq(b.data, "sumsq_data")
}

// SumSqDiff returns the sum of squared gradients.
func (b *Blob[T]) SumSqDiff() float64 {
	return b.sumsq(b.diff, "sumsq_diff")
}

func (b *Blob[T]) sumsq(c *mem.Cell, op string) float64 {
	b.requireArithmetic(op)
	if c == nil {
		return 0
	}
	switch c.State() {
	case mem.ValidOnHost:
		hb := c.HostBytes()
		v, err := cpu.Dot(b.kind, int(b.count), hb, hb)
		b.check(err, op)
		return v
	case mem.ValidOnDevice, mem.ValidOnBoth:
		p := c.DeviceBuffer().Ptr(b.kind)
		v, err := b.devctx(op).Dot(int(b.count), p, p)
		b.check(err, op)
		return v
	case mem.Uninitialized:
		return 0
	default:
		fatal(ErrUnknownState, op, "state", c.State().String())
		return 0
	}
}

// ScaleData multiplies every value by factor in place.
func (b *Blob[T]) ScaleData(factor float64) {
	b.scale(b.data, factor, "scale_data")
}

// ScaleDiff multiplies every gradient by factor in place.
func (b *Blob[T]) ScaleDiff(factor float64) {
	b.scale(b.diff, factor, "scale_diff")
}

func (b *Blob[T]) scale(c *mem.Cell, factor float64, op string) {
	b.requireArithmetic(op)
	if c == nil {
		return
	}
	switch c.State() {
	case mem.ValidOnHost:
		b.check(cpu.Scal(b.kind, int(b.count), factor, c.MutableHostBytes()), op)
	case mem.ValidOnDevice, mem.ValidOnBoth:
		b.check(b.devctx(op).Scal(int(b.count), factor, c.MutableDeviceBuffer().Ptr(b.kind)), op)
	case mem.Uninitialized:
	default:
		fatal(ErrUnknownState, op, "state", c.State().String())
	}
}

// Update applies one step of gradient descent: data <- data + (-1) * diff.
func (b *Blob[T]) Update() {
	b.requireArithmetic("update")
	data := b.requireCell(b.data, "data")
	diff := b.requireCell(b.diff, "diff")
	switch data.State() {
	case mem.ValidOnHost:
		b.check(cpu.Axpy(b.kind, int(b.count), -1, diff.HostBytes(), data.MutableHostBytes()), "update")
	case mem.ValidOnDevice, mem.ValidOnBoth:
		ctx := b.devctx("update")
		b.check(ctx.Axpy(int(b.count), -1, diff.DeviceBuffer().Ptr(b.kind), data.MutableDeviceBuffer().Ptr(b.kind)), "update")
	case mem.Uninitialized:
	default:
		fatal(ErrUnknownState, "update", "state", data.State().String())
	}
}

// CopyFrom copies the source buffer's data (or diff) into this buffer on
// the side selected by mode. Shapes must match unless reshape permits
// adopting the source shape.
func (b *Blob[T]) CopyFrom(source *Blob[T], copyDiff, reshape bool, mode Mode) {
	if source.count != b.count || !equalShape(source.shape, b.shape) {
		if reshape {
			b.ReshapeLike(source)
		} else {
			fatal(ErrShapeMismatch, "copy between blobs of different sizes", "count", b.count, "source", source.count)
		}
	}
	n := int(b.count)
	switch mode {
	case ModeDevice:
		ctx := b.devctx("copy_from")
		if copyDiff {
			dst := b.requireCell(b.diff, "diff")
			b.check(ctx.Copy(n, source.DeviceDiff(), dst.MutableDeviceBuffer().Ptr(b.kind)), "copy_from")
		} else {
			dst := b.requireCell(b.data, "data")
			b.check(ctx.Copy(n, source.DeviceData(), dst.MutableDeviceBuffer().Ptr(b.kind)), "copy_from")
		}
	case ModeHost:
		if copyDiff {
			dst := b.requireCell(b.diff, "diff")
			b.check(cpu.Copy(b.kind, n, asBytes(source.HostDiff()), dst.MutableHostBytes()), "copy_from")
		} else {
			dst := b.requireCell(b.data, "data")
			b.check(cpu.Copy(b.kind, n, asBytes(source.HostData()), dst.MutableHostBytes()), "copy_from")
		}
	default:
		fatal(ErrUnknownState, "copy_from with unknown execution mode", "mode", int(mode))
	}
}

// Clear zeroes the gradient cell, resetting accumulated gradients between
// optimization steps. The data cell is untouched.
func (b *Blob[T]) Clear(mode Mode) {
	diff := b.requireCell(b.diff, "diff")
	n := int(b.count)
	switch mode {
	case ModeHost:
		b.check(cpu.Set(b.kind, n, 0, diff.MutableHostBytes()), "clear")
	case ModeDevice:
		b.check(b.devctx("clear").Set(n, 0, diff.MutableDeviceBuffer().Ptr(b.kind)), "clear")
	default:
		fatal(ErrUnknownState, "clear with unknown execution mode", "mode", int(mode))
	}
}

func equalShape(a, b []int64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
