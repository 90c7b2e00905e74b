package cpu

import (
	"errors"
	"testing"

	"github.com/TheMatrixLab/caffe/internal/device"
)

func f64bytes(vals []float64) []byte {
	b := make([]byte, len(vals)*8)
	copy(device.Float64s(b, len(vals)), vals)
	return b
}

func f32bytes(vals []float32) []byte {
	b := make([]byte, len(vals)*4)
	copy(device.Float32s(b, len(vals)), vals)
	return b
}

func halfBytes(vals []float32) []byte {
	b := make([]byte, len(vals)*2)
	device.Float32sToHalf(vals, device.Halfs(b, len(vals)))
	return b
}

func TestAxpy(t *testing.T) {
	t.Run("float64", func(t *testing.T) {
		x := f64bytes([]float64{1, 2, 3})
		y := f64bytes([]float64{10, 20, 30})
		if err := Axpy(device.KindFloat64, 3, -1, x, y); err != nil {
			t.Fatalf("axpy failed: %v", err)
		}
		want := []float64{9, 18, 27}
		for i, v := range device.Float64s(y, 3) {
			if v != want[i] {
				t.Errorf("y[%d] = %v, want %v", i, v, want[i])
			}
		}
	})

	t.Run("half widens per element", func(t *testing.T) {
		x := halfBytes([]float32{1, 2})
		y := halfBytes([]float32{0.5, 0.5})
		if err := Axpy(device.KindHalf, 2, 2, x, y); err != nil {
			t.Fatalf("axpy failed: %v", err)
		}
		want := []float32{2.5, 4.5}
		for i, h := range device.Halfs(y, 2) {
			if h.Float32() != want[i] {
				t.Errorf("y[%d] = %v, want %v", i, h.Float32(), want[i])
			}
		}
	})

	t.Run("integer kind unsupported", func(t *testing.T) {
		if err := Axpy(device.KindInt8, 2, 1, make([]byte, 2), make([]byte, 2)); !errors.Is(err, device.ErrUnsupportedKind) {
			t.Errorf("expected ErrUnsupportedKind, got %v", err)
		}
	})
}

func TestAsum(t *testing.T) {
	x := f32bytes([]float32{-1.5, 2.5, -3})
	got, err := Asum(device.KindFloat32, 3, x)
	if err != nil {
		t.Fatalf("asum failed: %v", err)
	}
	if got != 7 {
		t.Errorf("asum = %v, want 7", got)
	}
}

func TestDot(t *testing.T) {
	x := f64bytes([]float64{1, 2, 3})
	got, err := Dot(device.KindFloat64, 3, x, x)
	if err != nil {
		t.Fatalf("dot failed: %v", err)
	}
	if got != 14 {
		t.Errorf("dot = %v, want 14", got)
	}
}

func TestScal(t *testing.T) {
	x := f32bytes([]float32{1, -2, 4})
	if err := Scal(device.KindFloat32, 3, 0.5, x); err != nil {
		t.Fatalf("scal failed: %v", err)
	}
	want := []float32{0.5, -1, 2}
	for i, v := range device.Float32s(x, 3) {
		if v != want[i] {
			t.Errorf("x[%d] = %v, want %v", i, v, want[i])
		}
	}
}

func TestSet(t *testing.T) {
	t.Run("zero clears any kind", func(t *testing.T) {
		x := make([]byte, 8)
		for i := range x {
			x[i] = 0xFF
		}
		if err := Set(device.KindUint16, 4, 0, x); err != nil {
			t.Fatalf("set zero failed: %v", err)
		}
		for i, v := range x {
			if v != 0 {
				t.Errorf("byte %d not cleared: %d", i, v)
			}
		}
	})

	t.Run("non-zero on integer kind unsupported", func(t *testing.T) {
		if err := Set(device.KindUint16, 4, 1, make([]byte, 8)); !errors.Is(err, device.ErrUnsupportedKind) {
			t.Errorf("expected ErrUnsupportedKind, got %v", err)
		}
	})
}

func TestCopy(t *testing.T) {
	src := f64bytes([]float64{1, 2, 3})
	dst := make([]byte, 24)
	if err := Copy(device.KindFloat64, 3, src, dst); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	for i, v := range device.Float64s(dst, 3) {
		if v != float64(i+1) {
			t.Errorf("dst[%d] = %v, want %d", i, v, i+1)
		}
	}
}
