package device

import (
	"fmt"
	"unsafe"
)

// Kind identifies the element type stored in a buffer. The device runtime
// primitives and the host math routines dispatch on it.
type Kind uint32

const (
	KindFloat64 Kind = iota
	KindFloat32
	KindHalf
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindBool
)

// Size returns the storage width of one element in bytes.
func (k Kind) Size() int {
	switch k {
	case KindFloat64, KindInt64, KindUint64:
		return 8
	case KindFloat32, KindInt32, KindUint32:
		return 4
	case KindHalf, KindInt16, KindUint16:
		return 2
	case KindInt8, KindUint8, KindBool:
		return 1
	default:
		return 0
	}
}

// Arithmetic reports whether reductions, scaling and the update rule are
// defined for this kind. Only the floating-point kinds qualify; integer
// buffers are never used as trainable parameters.
func (k Kind) Arithmetic() bool {
	switch k {
	case KindFloat64, KindFloat32, KindHalf:
		return true
	default:
		return false
	}
}

func (k Kind) String() string {
	switch k {
	case KindFloat64:
		return "F64"
	case KindFloat32:
		return "F32"
	case KindHalf:
		return "F16"
	case KindInt8:
		return "I8"
	case KindInt16:
		return "I16"
	case KindInt32:
		return "I32"
	case KindInt64:
		return "I64"
	case KindUint8:
		return "U8"
	case KindUint16:
		return "U16"
	case KindUint32:
		return "U32"
	case KindUint64:
		return "U64"
	case KindBool:
		return "BOOL"
	default:
		return fmt.Sprintf("UNKNOWN_KIND_%d", uint32(k))
	}
}

// Raw byte views. The cell hands storage around as bytes; these reinterpret
// a prefix of a byte buffer as a typed slice without copying.

func Float64s(b []byte, n int) []float64 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*float64)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

func Float32s(b []byte, n int) []float32 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

func Halfs(b []byte, n int) []Half {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*Half)(unsafe.Pointer(unsafe.SliceData(b))), n)
}

func Int64s(b []byte, n int) []int64 {
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*int64)(unsafe.Pointer(unsafe.SliceData(b))), n)
}
