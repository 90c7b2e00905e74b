package quant

import "github.com/TheMatrixLab/caffe/internal/device"

// HalfCodec stores fp16 externally and float32 natively. It is the usual
// binding for reduced-precision parameter exchange: writes widen fp16 into
// the native float32 cell, reads narrow back to fp16.
type HalfCodec struct{}

func (HalfCodec) Name() string {
	return "f16<->f32"
}

func (HalfCodec) NativeKind() device.Kind {
	return device.KindFloat32
}

func (HalfCodec) ExternalSize(n int) int {
	return n * 2
}

func (HalfCodec) Forward(n int, external []byte, native []byte) error {
	src := device.Halfs(external, n)
	dst := device.Float32s(native, n)
	device.HalfsToFloat32(src, dst)
	return nil
}

func (HalfCodec) Backward(n int, native []byte, external []byte) error {
	src := device.Float32s(native, n)
	dst := device.Halfs(external, n)
	device.Float32sToHalf(src, dst)
	return nil
}

func (h HalfCodec) ForwardDevice(ctx *device.Context, n int, external, native device.Ptr) error {
	if ctx == nil {
		return device.ErrNoAccelerator
	}
	return h.Forward(n, external.Bytes(h.ExternalSize(n)), native.Bytes(n*4))
}

func (h HalfCodec) BackwardDevice(ctx *device.Context, n int, native, external device.Ptr) error {
	if ctx == nil {
		return device.ErrNoAccelerator
	}
	return h.Backward(n, native.Bytes(n*4), external.Bytes(h.ExternalSize(n)))
}
