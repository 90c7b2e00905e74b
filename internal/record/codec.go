package record

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/TheMatrixLab/caffe/internal/device"
	"github.com/TheMatrixLab/caffe/internal/metrics"
)

// Presence flags. One bit per optional field, in encoding order.
const (
	flagNum = 1 << iota
	flagChannels
	flagHeight
	flagWidth
	flagShape
	flagShapeStride
	flagDoubleData
	flagFloatData
	flagPackedData
	flagDoubleDiff
	flagFloatDiff
	flagPackedDiff
)

// Encode serializes a record into its little-endian wire form.
func Encode(r *TensorRecord) []byte {
	var flags uint32
	if r.Num != nil {
		flags |= flagNum
	}
	if r.Channels != nil {
		flags |= flagChannels
	}
	if r.Height != nil {
		flags |= flagHeight
	}
	if r.Width != nil {
		flags |= flagWidth
	}
	if r.Shape != nil {
		flags |= flagShape
	}
	if r.ShapeStride != nil {
		flags |= flagShapeStride
	}
	if len(r.DoubleData) > 0 {
		flags |= flagDoubleData
	}
	if len(r.FloatData) > 0 {
		flags |= flagFloatData
	}
	if len(r.PackedData) > 0 {
		flags |= flagPackedData
	}
	if len(r.DoubleDiff) > 0 {
		flags |= flagDoubleDiff
	}
	if len(r.FloatDiff) > 0 {
		flags |= flagFloatDiff
	}
	if len(r.PackedDiff) > 0 {
		flags |= flagPackedDiff
	}

	var buf bytes.Buffer
	writeU32(&buf, Magic)
	writeU32(&buf, Version)
	writeU32(&buf, uint32(r.Kind))
	writeU32(&buf, flags)

	for _, p := range []*int64{r.Num, r.Channels, r.Height, r.Width} {
		if p != nil {
			writeI64(&buf, *p)
		}
	}
	if r.Shape != nil {
		writeDims(&buf, r.Shape)
	}
	if r.ShapeStride != nil {
		writeDims(&buf, r.ShapeStride)
	}
	writeF64s(&buf, r.DoubleData)
	writeF32s(&buf, r.FloatData)
	writeBytes(&buf, r.PackedData)
	writeF64s(&buf, r.DoubleDiff)
	writeF32s(&buf, r.FloatDiff)
	writeBytes(&buf, r.PackedDiff)

	out := buf.Bytes()
	metrics.RecordEncoded(len(out))
	return out
}

// Decode parses a little-endian wire form back into a record.
func Decode(data []byte) (*TensorRecord, error) {
	d := &decoder{data: data}

	magic, err := d.u32("magic")
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, ErrInvalidMagic{Magic: magic}
	}
	version, err := d.u32("version")
	if err != nil {
		return nil, err
	}
	if version != Version {
		return nil, ErrUnsupportedVersion{Version: version}
	}

	kind, err := d.u32("kind")
	if err != nil {
		return nil, err
	}
	flags, err := d.u32("flags")
	if err != nil {
		return nil, err
	}

	r := &TensorRecord{Kind: device.Kind(kind)}

	for _, f := range []struct {
		flag uint32
		dst  **int64
		name string
	}{
		{flagNum, &r.Num, "num"},
		{flagChannels, &r.Channels, "channels"},
		{flagHeight, &r.Height, "height"},
		{flagWidth, &r.Width, "width"},
	} {
		if flags&f.flag != 0 {
			v, err := d.i64(f.name)
			if err != nil {
				return nil, err
			}
			*f.dst = &v
		}
	}

	if flags&flagShape != 0 {
		if r.Shape, err = d.dims("shape"); err != nil {
			return nil, err
		}
	}
	if flags&flagShapeStride != 0 {
		if r.ShapeStride, err = d.dims("shape_stride"); err != nil {
			return nil, err
		}
	}
	if flags&flagDoubleData != 0 {
		if r.DoubleData, err = d.f64s("double_data"); err != nil {
			return nil, err
		}
	}
	if flags&flagFloatData != 0 {
		if r.FloatData, err = d.f32s("float_data"); err != nil {
			return nil, err
		}
	}
	if flags&flagPackedData != 0 {
		if r.PackedData, err = d.bytes("packed_data"); err != nil {
			return nil, err
		}
	}
	if flags&flagDoubleDiff != 0 {
		if r.DoubleDiff, err = d.f64s("double_diff"); err != nil {
			return nil, err
		}
	}
	if flags&flagFloatDiff != 0 {
		if r.FloatDiff, err = d.f32s("float_diff"); err != nil {
			return nil, err
		}
	}
	if flags&flagPackedDiff != 0 {
		if r.PackedDiff, err = d.bytes("packed_diff"); err != nil {
			return nil, err
		}
	}

	metrics.RecordDecoded()
	return r, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func writeU64(buf *bytes.Buffer, v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	buf.Write(b[:])
}

func writeI64(buf *bytes.Buffer, v int64) {
	writeU64(buf, uint64(v))
}

func writeDims(buf *bytes.Buffer, dims []int64) {
	writeU32(buf, uint32(len(dims)))
	for _, d := range dims {
		writeI64(buf, d)
	}
}

func writeF64s(buf *bytes.Buffer, vals []float64) {
	if len(vals) == 0 {
		return
	}
	writeU64(buf, uint64(len(vals)))
	for _, v := range vals {
		writeU64(buf, math.Float64bits(v))
	}
}

func writeF32s(buf *bytes.Buffer, vals []float32) {
	if len(vals) == 0 {
		return
	}
	writeU64(buf, uint64(len(vals)))
	for _, v := range vals {
		writeU32(buf, math.Float32bits(v))
	}
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	if len(b) == 0 {
		return
	}
	writeU64(buf, uint64(len(b)))
	buf.Write(b)
}

type decoder struct {
	data []byte
	off  int
}

func (d *decoder) take(n int, field string) ([]byte, error) {
	if d.off+n > len(d.data) {
		return nil, ErrTruncated{Field: field}
	}
	b := d.data[d.off : d.off+n]
	d.off += n
	return b, nil
}

func (d *decoder) u32(field string) (uint32, error) {
	b, err := d.take(4, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (d *decoder) u64(field string) (uint64, error) {
	b, err := d.take(8, field)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (d *decoder) i64(field string) (int64, error) {
	v, err := d.u64(field)
	return int64(v), err
}

// remaining returns the unread byte count, for validating wire length
// prefixes before any allocation.
func (d *decoder) remaining() uint64 {
	return uint64(len(d.data) - d.off)
}

func (d *decoder) dims(field string) ([]int64, error) {
	n, err := d.u32(field)
	if err != nil {
		return nil, err
	}
	if uint64(n)*8 > d.remaining() {
		return nil, ErrTruncated{Field: field}
	}
	dims := make([]int64, n)
	for i := range dims {
		if dims[i], err = d.i64(field); err != nil {
			return nil, err
		}
	}
	return dims, nil
}

func (d *decoder) f64s(field string) ([]float64, error) {
	n, err := d.u64(field)
	if err != nil {
		return nil, err
	}
	if n > d.remaining()/8 {
		return nil, ErrTruncated{Field: field}
	}
	vals := make([]float64, n)
	for i := range vals {
		bits, err := d.u64(field)
		if err != nil {
			return nil, err
		}
		vals[i] = math.Float64frombits(bits)
	}
	return vals, nil
}

func (d *decoder) f32s(field string) ([]float32, error) {
	n, err := d.u64(field)
	if err != nil {
		return nil, err
	}
	if n > d.remaining()/4 {
		return nil, ErrTruncated{Field: field}
	}
	vals := make([]float32, n)
	for i := range vals {
		bits, err := d.u32(field)
		if err != nil {
			return nil, err
		}
		vals[i] = math.Float32frombits(bits)
	}
	return vals, nil
}

func (d *decoder) bytes(field string) ([]byte, error) {
	n, err := d.u64(field)
	if err != nil {
		return nil, err
	}
	if n > d.remaining() {
		return nil, ErrTruncated{Field: field}
	}
	b, err := d.take(int(n), field)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, b)
	return out, nil
}
