// Package record defines the persisted tensor record: a self-describing
// container for one buffer's shape, element kind and payload, plus a
// little-endian binary codec for it.
package record

import (
	"fmt"

	"github.com/TheMatrixLab/caffe/internal/device"
)

const (
	Magic   = 0x43455254 // "TREC"
	Version = 1
)

// TensorRecord is the wire form of one tensor buffer. Legacy 4-axis fields
// and the generic shape are both supported; every field is independently
// present-or-absent. Payloads: 64-bit floats element-wise, 32-bit floats
// element-wise, or one packed raw-byte dump for every other kind. The
// packed form is a bit-exact reinterpretation of storage and only valid
// between instances sharing a binary layout.
type TensorRecord struct {
	Num      *int64
	Channels *int64
	Height   *int64
	Width    *int64

	Shape       []int64
	ShapeStride []int64

	Kind device.Kind

	DoubleData []float64
	FloatData  []float32
	PackedData []byte

	DoubleDiff []float64
	FloatDiff  []float32
	PackedDiff []byte
}

// HasLegacyShape reports whether any of the deprecated 4-axis fields is set.
func (r *TensorRecord) HasLegacyShape() bool {
	return r.Num != nil || r.Channels != nil || r.Height != nil || r.Width != nil
}

// HasDiff reports whether any diff payload is present.
func (r *TensorRecord) HasDiff() bool {
	return len(r.DoubleDiff) > 0 || len(r.FloatDiff) > 0 || len(r.PackedDiff) > 0
}

// Legacy returns the deprecated 4-axis fields, with absent fields as zero.
func (r *TensorRecord) Legacy() (num, channels, height, width int64) {
	return legacyDim(r.Num), legacyDim(r.Channels), legacyDim(r.Height), legacyDim(r.Width)
}

// ElementCount returns the element count implied by the shape fields.
func (r *TensorRecord) ElementCount() int64 {
	if r.HasLegacyShape() {
		return legacyDim(r.Num) * legacyDim(r.Channels) * legacyDim(r.Height) * legacyDim(r.Width)
	}
	count := int64(1)
	for _, d := range r.Shape {
		count *= d
	}
	return count
}

func legacyDim(p *int64) int64 {
	if p == nil {
		return 0
	}
	return *p
}

// Error types
type ErrInvalidMagic struct{ Magic uint32 }

func (e ErrInvalidMagic) Error() string {
	return fmt.Sprintf("invalid record magic: %x", e.Magic)
}

type ErrUnsupportedVersion struct{ Version uint32 }

func (e ErrUnsupportedVersion) Error() string {
	return fmt.Sprintf("unsupported record version: %d", e.Version)
}

type ErrTruncated struct{ Field string }

func (e ErrTruncated) Error() string {
	return fmt.Sprintf("truncated record while reading %s", e.Field)
}
