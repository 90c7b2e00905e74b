package blob

import (
	"errors"
	"fmt"

	"github.com/TheMatrixLab/caffe/internal/logger"
)

var (
	// ErrNotImplemented signals an arithmetic operation invoked on an
	// element kind it is not defined for.
	ErrNotImplemented = errors.New("not implemented for element kind")

	// ErrShapeMismatch signals incompatible shapes without permission
	// to reshape.
	ErrShapeMismatch = errors.New("shape mismatch")

	// ErrCountMismatch signals an element-count disagreement between a
	// buffer and a payload or a shared peer.
	ErrCountMismatch = errors.New("element count mismatch")

	// ErrUnknownState signals a storage cell reporting a coherence state
	// outside the defined set. This is an internal-consistency failure.
	ErrUnknownState = errors.New("unknown storage cell state")

	// ErrNilCell signals an accessor on a buffer whose cell was never
	// allocated.
	ErrNilCell = errors.New("storage cell not allocated")

	// ErrOverflow signals an element count exceeding the signed index
	// range.
	ErrOverflow = errors.New("element count exceeds index range")

	// ErrTooManyAxes signals a shape with more than MaxAxes extents.
	ErrTooManyAxes = errors.New("axis count exceeds maximum")

	// ErrNegativeExtent signals a negative shape extent.
	ErrNegativeExtent = errors.New("negative extent")
)

var log = logger.Log.Component("blob")

// fatal logs the violation and unwinds. Every failure in this layer is a
// caller contract violation or an internal bug; there is no local
// recovery, and any retry or fallback policy belongs to the caller.
func fatal(err error, msg string, fields ...interface{}) {
	log.Error(msg, fields...)
	panic(fmt.Errorf("%s: %w", msg, err))
}
