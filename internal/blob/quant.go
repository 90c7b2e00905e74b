package blob

import (
	"github.com/TheMatrixLab/caffe/internal/device"
	"github.com/TheMatrixLab/caffe/internal/quant"
)

// Quantizer hook points. When a codec is bound, encoded writes pass
// through its forward transform into native storage and encoded reads
// pass through its backward transform; the plain accessors remain the
// internal path for reductions and the update rule. One codec instance
// may be shared by any number of buffers.

// SetQuantizer binds a codec. The codec's native kind must match the
// buffer's element kind.
func (b *Blob[T]) SetQuantizer(c quant.Codec) {
	if c != nil && c.NativeKind() != b.kind {
		fatal(quant.ErrKindMismatch, "bind quantizer", "codec", c.Name(), "native", c.NativeKind().String(), "kind", b.kind.String())
	}
	b.codec = c
}

// Quantizer returns the bound codec, or nil.
func (b *Blob[T]) Quantizer() quant.Codec {
	return b.codec
}

func (b *Blob[T]) requireCodec(op string) quant.Codec {
	if b.codec == nil {
		fatal(ErrNotImplemented, op+" without a bound quantizer", "kind", b.kind.String())
	}
	return b.codec
}

// SetHostDataEncoded decodes externally-encoded values into native host
// storage through the quantizer.
func (b *Blob[T]) SetHostDataEncoded(in []byte) {
	q := b.requireCodec("set_host_data_encoded")
	c := b.requireCell(b.data, "data")
	b.check(q.Forward(int(b.count), in, c.MutableHostBytes()), "set_host_data_encoded")
}

// HostDataEncoded encodes native host values into out through the
// quantizer.
func (b *Blob[T]) HostDataEncoded(out []byte) {
	q := b.requireCodec("host_data_encoded")
	c := b.requireCell(b.data, "data")
	b.check(q.Backward(int(b.count), c.HostBytes(), out), "host_data_encoded")
}

// SetHostDiffEncoded decodes externally-encoded gradients into native
// host storage through the quantizer.
func (b *Blob[T]) SetHostDiffEncoded(in []byte) {
	q := b.requireCodec("set_host_diff_encoded")
	c := b.requireCell(b.diff, "diff")
	b.check(q.Forward(int(b.count), in, c.MutableHostBytes()), "set_host_diff_encoded")
}

// HostDiffEncoded encodes native host gradients into out through the
// quantizer.
func (b *Blob[T]) HostDiffEncoded(out []byte) {
	q := b.requireCodec("host_diff_encoded")
	c := b.requireCell(b.diff, "diff")
	b.check(q.Backward(int(b.count), c.HostBytes(), out), "host_diff_encoded")
}

// SetDeviceDataEncoded decodes encoded values held on-device into native
// device storage. The scratch buffer carries externally-encoded bytes, so
// it is viewed as raw bytes rather than as the native kind.
func (b *Blob[T]) SetDeviceDataEncoded(in []byte) {
	q := b.requireCodec("set_device_data_encoded")
	c := b.requireCell(b.data, "data")
	ctx := b.devctx("set_device_data_encoded")
	ext := ctx.Malloc(len(in))
	defer ext.Release()
	copy(ext.Bytes(), in)
	b.check(q.ForwardDevice(ctx, int(b.count), ext.Ptr(device.KindUint8), c.MutableDeviceBuffer().Ptr(b.kind)), "set_device_data_encoded")
}

// DeviceDataEncoded encodes native device values into out through the
// quantizer's device path.
func (b *Blob[T]) DeviceDataEncoded(out []byte) {
	q := b.requireCodec("device_data_encoded")
	c := b.requireCell(b.data, "data")
	ctx := b.devctx("device_data_encoded")
	ext := ctx.Malloc(len(out))
	defer ext.Release()
	b.check(q.BackwardDevice(ctx, int(b.count), c.DeviceBuffer().Ptr(b.kind), ext.Ptr(device.KindUint8)), "device_data_encoded")
	copy(out, ext.Bytes())
}

// SetDeviceDiffEncoded decodes encoded gradients into native device
// storage.
func (b *Blob[T]) SetDeviceDiffEncoded(in []byte) {
	q := b.requireCodec("set_device_diff_encoded")
	c := b.requireCell(b.diff, "diff")
	ctx := b.devctx("set_device_diff_encoded")
	ext := ctx.Malloc(len(in))
	defer ext.Release()
	copy(ext.Bytes(), in)
	b.check(q.ForwardDevice(ctx, int(b.count), ext.Ptr(device.KindUint8), c.MutableDeviceBuffer().Ptr(b.kind)), "set_device_diff_encoded")
}

// DeviceDiffEncoded encodes native device gradients into out through the
// quantizer's device path.
func (b *Blob[T]) DeviceDiffEncoded(out []byte) {
	q := b.requireCodec("device_diff_encoded")
	c := b.requireCell(b.diff, "diff")
	ctx := b.devctx("device_diff_encoded")
	ext := ctx.Malloc(len(out))
	defer ext.Release()
	b.check(q.BackwardDevice(ctx, int(b.count), c.DeviceBuffer().Ptr(b.kind), ext.Ptr(device.KindUint8)), "device_diff_encoded")
	copy(out, ext.Bytes())
}

// AsumDataInto writes the sum of value magnitudes as one encoded element.
func (b *Blob[T]) AsumDataInto(out []byte) {
	b.encodeScalar(b.AsumData(), out, "asum_data")
}

// AsumDiffInto writes the sum of gradient magnitudes as one encoded
// element.
func (b *Blob[T]) AsumDiffInto(out []byte) {
	b.encodeScalar(b.AsumDiff(), out, "asum_diff")
}

// SumSqDataInto writes the sum of squared values as one encoded element.
func (b *Blob[T]) SumSqDataInto(out []byte) {
	b.encodeScalar(b.SumSqData(), out, "sumsq_data")
}

// SumSqDiffInto writes the sum of squared gradients as one encoded
// element.
func (b *Blob[T]) SumSqDiffInto(out []byte) {
	b.encodeScalar(b.SumSqDiff(), out, "sumsq_diff")
}

func (b *Blob[T]) encodeScalar(v float64, out []byte, op string) {
	q := b.requireCodec(op)
	native := make([]byte, b.kind.Size())
	b.check(fillFromFloat64s(b.kind, native, []float64{v}), op)
	b.check(q.Backward(1, native, out), op)
}
