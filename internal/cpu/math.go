// Package cpu holds the host-side math routines the tensor buffer
// dispatches to when the authoritative copy of a cell lives in host
// memory. They mirror the device runtime primitives one for one, but
// operate on raw host bytes.
package cpu

import (
	"math"

	"github.com/TheMatrixLab/caffe/internal/device"
)

// Axpy computes y = alpha*x + y over n elements of host storage.
func Axpy(kind device.Kind, n int, alpha float64, x, y []byte) error {
	switch kind {
	case device.KindFloat64:
		xs, ys := device.Float64s(x, n), device.Float64s(y, n)
		for i := 0; i < n; i++ {
			ys[i] += alpha * xs[i]
		}
	case device.KindFloat32:
		xs, ys := device.Float32s(x, n), device.Float32s(y, n)
		a := float32(alpha)
		for i := 0; i < n; i++ {
			ys[i] += a * xs[i]
		}
	case device.KindHalf:
		xs, ys := device.Halfs(x, n), device.Halfs(y, n)
		a := float32(alpha)
		for i := 0; i < n; i++ {
			ys[i] = device.HalfFromFloat32(ys[i].Float32() + a*xs[i].Float32())
		}
	default:
		return device.ErrUnsupportedKind
	}
	return nil
}

// Asum computes the sum of element magnitudes.
func Asum(kind device.Kind, n int, x []byte) (float64, error) {
	var sum float64
	switch kind {
	case device.KindFloat64:
		for _, v := range device.Float64s(x, n) {
			sum += math.Abs(v)
		}
	case device.KindFloat32:
		for _, v := range device.Float32s(x, n) {
			sum += math.Abs(float64(v))
		}
	case device.KindHalf:
		for _, v := range device.Halfs(x, n) {
			sum += math.Abs(float64(v.Float32()))
		}
	default:
		return 0, device.ErrUnsupportedKind
	}
	return sum, nil
}

// Dot computes the inner product of x and y.
func Dot(kind device.Kind, n int, x, y []byte) (float64, error) {
	var sum float64
	switch kind {
	case device.KindFloat64:
		xs, ys := device.Float64s(x, n), device.Float64s(y, n)
		for i := 0; i < n; i++ {
			sum += xs[i] * ys[i]
		}
	case device.KindFloat32:
		xs, ys := device.Float32s(x, n), device.Float32s(y, n)
		for i := 0; i < n; i++ {
			sum += float64(xs[i]) * float64(ys[i])
		}
	case device.KindHalf:
		xs, ys := device.Halfs(x, n), device.Halfs(y, n)
		for i := 0; i < n; i++ {
			sum += float64(xs[i].Float32()) * float64(ys[i].Float32())
		}
	default:
		return 0, device.ErrUnsupportedKind
	}
	return sum, nil
}

// Scal scales n elements of x by alpha in place.
func Scal(kind device.Kind, n int, alpha float64, x []byte) error {
	switch kind {
	case device.KindFloat64:
		xs := device.Float64s(x, n)
		for i := range xs {
			xs[i] *= alpha
		}
	case device.KindFloat32:
		xs := device.Float32s(x, n)
		a := float32(alpha)
		for i := range xs {
			xs[i] *= a
		}
	case device.KindHalf:
		xs := device.Halfs(x, n)
		a := float32(alpha)
		for i := range xs {
			xs[i] = device.HalfFromFloat32(xs[i].Float32() * a)
		}
	default:
		return device.ErrUnsupportedKind
	}
	return nil
}

// Set assigns v to n elements of x. A zero value is defined for every
// kind; non-zero values only for the arithmetic kinds.
func Set(kind device.Kind, n int, v float64, x []byte) error {
	if v == 0 {
		nb := n * kind.Size()
		clear(x[:nb])
		return nil
	}
	switch kind {
	case device.KindFloat64:
		xs := device.Float64s(x, n)
		for i := range xs {
			xs[i] = v
		}
	case device.KindFloat32:
		xs := device.Float32s(x, n)
		f := float32(v)
		for i := range xs {
			xs[i] = f
		}
	case device.KindHalf:
		xs := device.Halfs(x, n)
		h := device.HalfFromFloat32(float32(v))
		for i := range xs {
			xs[i] = h
		}
	default:
		return device.ErrUnsupportedKind
	}
	return nil
}

// Copy moves n elements from src to dst. Defined for every kind.
func Copy(kind device.Kind, n int, src, dst []byte) error {
	nb := n * kind.Size()
	copy(dst[:nb], src[:nb])
	return nil
}
