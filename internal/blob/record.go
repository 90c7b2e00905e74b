package blob

import (
	"github.com/TheMatrixLab/caffe/internal/device"
	"github.com/TheMatrixLab/caffe/internal/record"
)

// LegacyShape indexes the shape as the deprecated 4-axis layout, right
// aligned: index -1 is the last axis, and axes beyond the actual shape
// read as 1. Only defined for buffers of at most 4 axes.
func (b *Blob[T]) LegacyShape(index int64) int64 {
	axes := int64(len(b.shape))
	if axes > 4 {
		fatal(ErrTooManyAxes, "legacy axis index on a shape with more than 4 axes", "axes", axes)
	}
	if index >= axes || index < -axes {
		// Legacy blobs are padded with leading 1s up to 4 axes.
		return 1
	}
	if index < 0 {
		index += axes
	}
	return b.shape[index]
}

// ShapeEquals compares this buffer's shape against a record. Legacy
// 4-field records compare right-aligned against the last four axes, so a
// historical bias blob stored as (1, 1, 1, n) matches a 1-axis (n) shape;
// generic records compare extent sequences exactly.
func (b *Blob[T]) ShapeEquals(r *record.TensorRecord) bool {
	if r.HasLegacyShape() {
		num, channels, height, width := r.Legacy()
		return len(b.shape) <= 4 &&
			b.LegacyShape(-4) == num &&
			b.LegacyShape(-3) == channels &&
			b.LegacyShape(-2) == height &&
			b.LegacyShape(-1) == width
	}
	return equalShape(b.shape, r.Shape)
}

// ToRecord serializes the buffer into a persisted record. The generic
// shape and stride shape are always emitted. 64-bit and 32-bit float
// buffers emit element-wise payloads; every other kind emits one packed
// raw-byte dump of storage, bit-exact and only portable between instances
// sharing a binary layout. Bool buffers cannot be persisted.
func (b *Blob[T]) ToRecord(writeDiff bool) *record.TensorRecord {
	if b.kind == device.KindBool {
		fatal(ErrNotImplemented, "to_record", "kind", b.kind.String())
	}
	r := &record.TensorRecord{
		Kind:        b.kind,
		Shape:       append([]int64(nil), b.shape...),
		ShapeStride: append([]int64(nil), b.shapeStride...),
	}

	data := b.requireCell(b.data, "data")
	r.DoubleData, r.FloatData, r.PackedData = b.payload(data.HostBytes())
	if writeDiff {
		diff := b.requireCell(b.diff, "diff")
		r.DoubleDiff, r.FloatDiff, r.PackedDiff = b.payload(diff.HostBytes())
	}
	return r
}

func (b *Blob[T]) payload(host []byte) ([]float64, []float32, []byte) {
	n := int(b.count)
	switch b.kind {
	case device.KindFloat64:
		return append([]float64(nil), device.Float64s(host, n)...), nil, nil
	case device.KindFloat32:
		return nil, append([]float32(nil), device.Float32s(host, n)...), nil
	default:
		return nil, nil, append([]byte(nil), host[:b.ByteCount()]...)
	}
}

// FromRecord populates the buffer from a persisted record. With reshape
// permission the target shape comes from the legacy fields when any is
// present, else from the generic shape; without it the record's shape
// must already match. Double payloads take precedence over single ones.
func (b *Blob[T]) FromRecord(r *record.TensorRecord, reshape bool) {
	if reshape {
		if r.HasLegacyShape() {
			num, channels, height, width := r.Legacy()
			b.Reshape4(num, channels, height, width)
		} else {
			b.Reshape(r.Shape...)
		}
	} else if !b.ShapeEquals(r) {
		fatal(ErrShapeMismatch, "record shape mismatch (reshape not set)", "shape", b.shape)
	}

	data := b.requireCell(b.data, "data")
	switch {
	case len(r.DoubleData) > 0:
		b.requireCount(int64(len(r.DoubleData)), "double_data")
		b.check(fillFromFloat64s(b.kind, data.MutableHostBytes(), r.DoubleData), "from_record")
	case len(r.FloatData) > 0:
		b.requireCount(int64(len(r.FloatData)), "float_data")
		b.check(fillFromFloat32s(b.kind, data.MutableHostBytes(), r.FloatData), "from_record")
	case len(r.PackedData) > 0:
		b.requirePackedCount(int64(len(r.PackedData)), "packed_data")
		copy(data.MutableHostBytes(), r.PackedData)
	default:
		b.requireCount(0, "data")
	}

	// An absent diff payload leaves the diff cell untouched.
	switch {
	case len(r.DoubleDiff) > 0:
		diff := b.requireCell(b.diff, "diff")
		b.requireCount(int64(len(r.DoubleDiff)), "double_diff")
		b.check(fillFromFloat64s(b.kind, diff.MutableHostBytes(), r.DoubleDiff), "from_record")
	case len(r.FloatDiff) > 0:
		diff := b.requireCell(b.diff, "diff")
		b.requireCount(int64(len(r.FloatDiff)), "float_diff")
		b.check(fillFromFloat32s(b.kind, diff.MutableHostBytes(), r.FloatDiff), "from_record")
	case len(r.PackedDiff) > 0:
		diff := b.requireCell(b.diff, "diff")
		b.requirePackedCount(int64(len(r.PackedDiff)), "packed_diff")
		copy(diff.MutableHostBytes(), r.PackedDiff)
	}
}

func (b *Blob[T]) requireCount(n int64, field string) {
	if n != b.count {
		fatal(ErrCountMismatch, "record payload count mismatch", "field", field, "payload", n, "count", b.count)
	}
}

func (b *Blob[T]) requirePackedCount(bytes int64, field string) {
	if bytes != b.ByteCount() {
		fatal(ErrCountMismatch, "record packed payload size mismatch", "field", field, "payload_bytes", bytes, "byte_count", b.ByteCount())
	}
}

type integer interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64
}

func fillInts[E integer, S float64 | float32](dst []byte, vals []S) {
	out := view[E](dst, int64(len(vals)))
	for i, v := range vals {
		out[i] = E(v)
	}
}

func fillFromFloat64s(kind device.Kind, dst []byte, vals []float64) error {
	n := len(vals)
	switch kind {
	case device.KindFloat64:
		copy(device.Float64s(dst, n), vals)
	case device.KindFloat32:
		out := device.Float32s(dst, n)
		for i, v := range vals {
			out[i] = float32(v)
		}
	case device.KindHalf:
		out := device.Halfs(dst, n)
		for i, v := range vals {
			out[i] = device.HalfFromFloat32(float32(v))
		}
	case device.KindInt8:
		fillInts[int8](dst, vals)
	case device.KindInt16:
		fillInts[int16](dst, vals)
	case device.KindInt32:
		fillInts[int32](dst, vals)
	case device.KindInt64:
		fillInts[int64](dst, vals)
	case device.KindUint8:
		fillInts[uint8](dst, vals)
	case device.KindUint16:
		fillInts[uint16](dst, vals)
	case device.KindUint32:
		fillInts[uint32](dst, vals)
	case device.KindUint64:
		fillInts[uint64](dst, vals)
	default:
		return device.ErrUnsupportedKind
	}
	return nil
}

func fillFromFloat32s(kind device.Kind, dst []byte, vals []float32) error {
	n := len(vals)
	switch kind {
	case device.KindFloat64:
		out := device.Float64s(dst, n)
		for i, v := range vals {
			out[i] = float64(v)
		}
	case device.KindFloat32:
		copy(device.Float32s(dst, n), vals)
	case device.KindHalf:
		out := device.Halfs(dst, n)
		for i, v := range vals {
			out[i] = device.HalfFromFloat32(v)
		}
	case device.KindInt8:
		fillInts[int8](dst, vals)
	case device.KindInt16:
		fillInts[int16](dst, vals)
	case device.KindInt32:
		fillInts[int32](dst, vals)
	case device.KindInt64:
		fillInts[int64](dst, vals)
	case device.KindUint8:
		fillInts[uint8](dst, vals)
	case device.KindUint16:
		fillInts[uint16](dst, vals)
	case device.KindUint32:
		fillInts[uint32](dst, vals)
	case device.KindUint64:
		fillInts[uint64](dst, vals)
	default:
		return device.ErrUnsupportedKind
	}
	return nil
}
