package quant

import (
	"errors"
	"math"
	"testing"

	"github.com/TheMatrixLab/caffe/internal/device"
)

func TestHalfCodecRoundTrip(t *testing.T) {
	c := HalfCodec{}
	if c.NativeKind() != device.KindFloat32 {
		t.Fatalf("native kind = %s, want F32", c.NativeKind())
	}

	vals := []float32{0, 1, -1, 0.5, 1024, -0.25}
	n := len(vals)
	external := make([]byte, c.ExternalSize(n))
	device.Float32sToHalf(vals, device.Halfs(external, n))

	native := make([]byte, n*4)
	if err := c.Forward(n, external, native); err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	for i, v := range device.Float32s(native, n) {
		if v != vals[i] {
			t.Errorf("native[%d] = %v, want %v", i, v, vals[i])
		}
	}

	back := make([]byte, c.ExternalSize(n))
	if err := c.Backward(n, native, back); err != nil {
		t.Fatalf("backward failed: %v", err)
	}
	for i := range back {
		if back[i] != external[i] {
			t.Fatalf("encoded byte %d differs after roundtrip", i)
		}
	}
}

func TestHalfCodecDevicePaths(t *testing.T) {
	c := HalfCodec{}
	ctx := device.NewContext()

	vals := []float32{2, 4, 8}
	n := len(vals)
	ext := ctx.Malloc(c.ExternalSize(n))
	device.Float32sToHalf(vals, device.Halfs(ext.Bytes(), n))
	nat := ctx.Malloc(n * 4)

	if err := c.ForwardDevice(ctx, n, ext.Ptr(device.KindHalf), nat.Ptr(device.KindFloat32)); err != nil {
		t.Fatalf("forward device failed: %v", err)
	}
	for i, v := range device.Float32s(nat.Bytes(), n) {
		if v != vals[i] {
			t.Errorf("native[%d] = %v, want %v", i, v, vals[i])
		}
	}

	t.Run("nil context rejected", func(t *testing.T) {
		err := c.ForwardDevice(nil, n, ext.Ptr(device.KindHalf), nat.Ptr(device.KindFloat32))
		if !errors.Is(err, device.ErrNoAccelerator) {
			t.Errorf("expected ErrNoAccelerator, got %v", err)
		}
	})
}

func TestAffineCodec(t *testing.T) {
	c := NewAffineCodec(-1, 1)

	vals := []float32{-1, -0.5, 0, 0.5, 1}
	n := len(vals)
	native := make([]byte, n*4)
	copy(device.Float32s(native, n), vals)

	external := make([]byte, c.ExternalSize(n))
	if err := c.Backward(n, native, external); err != nil {
		t.Fatalf("backward failed: %v", err)
	}

	decoded := make([]byte, n*4)
	if err := c.Forward(n, external, decoded); err != nil {
		t.Fatalf("forward failed: %v", err)
	}
	for i, v := range device.Float32s(decoded, n) {
		if math.Abs(float64(v-vals[i])) > float64(c.Scale) {
			t.Errorf("decoded[%d] = %v, want %v within one step (%v)", i, v, vals[i], c.Scale)
		}
	}
}

func TestAffineCodecClamps(t *testing.T) {
	c := NewAffineCodec(-1, 1)
	native := make([]byte, 8)
	copy(device.Float32s(native, 2), []float32{100, -100})

	external := make([]byte, 2)
	if err := c.Backward(2, native, external); err != nil {
		t.Fatalf("backward failed: %v", err)
	}
	if int8(external[0]) != 127 {
		t.Errorf("positive overflow clamped to %d, want 127", int8(external[0]))
	}
	if int8(external[1]) != -128 {
		t.Errorf("negative overflow clamped to %d, want -128", int8(external[1]))
	}
}

func TestAffineCodecDegenerateRange(t *testing.T) {
	c := NewAffineCodec(3, 3)
	if c.Scale <= 0 {
		t.Errorf("degenerate range must still produce a positive scale, got %v", c.Scale)
	}
}
