package quant

import (
	"fmt"
	"math"

	"github.com/TheMatrixLab/caffe/internal/device"
)

// AffineCodec stores int8 externally and float32 natively using a single
// scale and zero point: value = scale * (q - zero).
type AffineCodec struct {
	Scale float32
	Zero  int8
}

// NewAffineCodec derives scale and zero point from the representable value
// range, symmetric around zero when min = -max.
func NewAffineCodec(min, max float32) AffineCodec {
	if max <= min {
		max = min + 1
	}
	scale := (max - min) / 255.0
	zero := int8(math.Round(float64(-min/scale) - 128))
	return AffineCodec{Scale: scale, Zero: zero}
}

func (c AffineCodec) Name() string {
	return fmt.Sprintf("i8-affine(scale=%g,zero=%d)", c.Scale, c.Zero)
}

func (AffineCodec) NativeKind() device.Kind {
	return device.KindFloat32
}

func (AffineCodec) ExternalSize(n int) int {
	return n
}

func (c AffineCodec) Forward(n int, external []byte, native []byte) error {
	dst := device.Float32s(native, n)
	for i := 0; i < n; i++ {
		q := int8(external[i])
		dst[i] = c.Scale * float32(int32(q)-int32(c.Zero))
	}
	return nil
}

func (c AffineCodec) Backward(n int, native []byte, external []byte) error {
	src := device.Float32s(native, n)
	for i := 0; i < n; i++ {
		q := math.Round(float64(src[i]/c.Scale)) + float64(c.Zero)
		if q > 127 {
			q = 127
		} else if q < -128 {
			q = -128
		}
		external[i] = byte(int8(q))
	}
	return nil
}

func (c AffineCodec) ForwardDevice(ctx *device.Context, n int, external, native device.Ptr) error {
	if ctx == nil {
		return device.ErrNoAccelerator
	}
	return c.Forward(n, external.Bytes(n), native.Bytes(n*4))
}

func (c AffineCodec) BackwardDevice(ctx *device.Context, n int, native, external device.Ptr) error {
	if ctx == nil {
		return device.ErrNoAccelerator
	}
	return c.Backward(n, native.Bytes(n*4), external.Bytes(n))
}
