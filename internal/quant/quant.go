// Package quant defines the numeric-precision converter a tensor buffer
// may be bound to. A codec translates between an externally-encoded
// representation and the buffer's native element storage during accessor
// calls; the buffer itself never inspects the encoding.
package quant

import (
	"errors"

	"github.com/TheMatrixLab/caffe/internal/device"
)

var (
	ErrCountMismatch = errors.New("encoded payload element count mismatch")
	ErrKindMismatch  = errors.New("codec bound to incompatible element kind")
)

// Codec converts between external encoded values and native storage.
// Forward decodes external input into native storage (a write through the
// quantizer); Backward encodes native storage into external output (a read
// through the quantizer). The device variants operate on device pointers.
type Codec interface {
	Name() string

	// NativeKind is the element kind the codec writes into and reads from.
	NativeKind() device.Kind

	// ExternalSize returns the encoded byte size of n elements.
	ExternalSize(n int) int

	Forward(n int, external []byte, native []byte) error
	Backward(n int, native []byte, external []byte) error

	ForwardDevice(ctx *device.Context, n int, external, native device.Ptr) error
	BackwardDevice(ctx *device.Context, n int, native, external device.Ptr) error
}
