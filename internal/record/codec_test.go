package record

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/TheMatrixLab/caffe/internal/device"
)

func i64p(v int64) *int64 { return &v }

func TestEncodeDecodeGeneric(t *testing.T) {
	r := &TensorRecord{
		Kind:        device.KindFloat32,
		Shape:       []int64{2, 3},
		ShapeStride: []int64{2, 3},
		FloatData:   []float32{1, 2, 3, 4, 5, 6},
		FloatDiff:   []float32{0.1, 0.2, 0.3, 0.4, 0.5, 0.6},
	}

	got, err := Decode(Encode(r))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if got.Kind != device.KindFloat32 {
		t.Errorf("kind = %s, want F32", got.Kind)
	}
	if got.HasLegacyShape() {
		t.Error("generic record must not report a legacy shape")
	}
	if len(got.Shape) != 2 || got.Shape[0] != 2 || got.Shape[1] != 3 {
		t.Errorf("shape = %v, want [2 3]", got.Shape)
	}
	if got.ElementCount() != 6 {
		t.Errorf("element count = %d, want 6", got.ElementCount())
	}
	if !got.HasDiff() {
		t.Error("expected diff payload")
	}
	for i, v := range got.FloatData {
		if v != r.FloatData[i] {
			t.Errorf("float_data[%d] = %v, want %v", i, v, r.FloatData[i])
		}
	}
	for i, v := range got.FloatDiff {
		if v != r.FloatDiff[i] {
			t.Errorf("float_diff[%d] = %v, want %v", i, v, r.FloatDiff[i])
		}
	}
}

func TestEncodeDecodeLegacy(t *testing.T) {
	r := &TensorRecord{
		Kind:       device.KindFloat64,
		Num:        i64p(1),
		Channels:   i64p(2),
		Height:     i64p(3),
		Width:      i64p(4),
		DoubleData: make([]float64, 24),
	}
	for i := range r.DoubleData {
		r.DoubleData[i] = float64(i)
	}

	got, err := Decode(Encode(r))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	if !got.HasLegacyShape() {
		t.Fatal("expected legacy shape")
	}
	num, channels, height, width := got.Legacy()
	if num != 1 || channels != 2 || height != 3 || width != 4 {
		t.Errorf("legacy = (%d,%d,%d,%d), want (1,2,3,4)", num, channels, height, width)
	}
	if got.ElementCount() != 24 {
		t.Errorf("element count = %d, want 24", got.ElementCount())
	}
	for i, v := range got.DoubleData {
		if v != float64(i) {
			t.Errorf("double_data[%d] = %v, want %d", i, v, i)
		}
	}
}

func TestEncodeDecodePacked(t *testing.T) {
	r := &TensorRecord{
		Kind:       device.KindInt8,
		Shape:      []int64{4},
		PackedData: []byte{0x01, 0xFF, 0x7F, 0x80},
		PackedDiff: []byte{0, 0, 0, 0},
	}

	got, err := Decode(Encode(r))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if got.Kind != device.KindInt8 {
		t.Errorf("kind = %s, want I8", got.Kind)
	}
	for i, v := range got.PackedData {
		if v != r.PackedData[i] {
			t.Errorf("packed_data[%d] = %#x, want %#x", i, v, r.PackedData[i])
		}
	}
	if !got.HasDiff() {
		t.Error("expected packed diff payload")
	}
}

func TestDecodeInvalidMagic(t *testing.T) {
	data := Encode(&TensorRecord{Kind: device.KindFloat32, Shape: []int64{1}})
	data[0] ^= 0xFF

	_, err := Decode(data)
	var bad ErrInvalidMagic
	if !errors.As(err, &bad) {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestDecodeUnsupportedVersion(t *testing.T) {
	data := Encode(&TensorRecord{Kind: device.KindFloat32, Shape: []int64{1}})
	data[4] = 99

	_, err := Decode(data)
	var bad ErrUnsupportedVersion
	if !errors.As(err, &bad) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
	if bad.Version != 99 {
		t.Errorf("reported version = %d, want 99", bad.Version)
	}
}

func TestDecodeTruncated(t *testing.T) {
	full := Encode(&TensorRecord{
		Kind:      device.KindFloat32,
		Shape:     []int64{2},
		FloatData: []float32{1, 2},
	})

	for cut := 0; cut < len(full); cut++ {
		_, err := Decode(full[:cut])
		var bad ErrTruncated
		if !errors.As(err, &bad) {
			t.Fatalf("cut at %d: expected ErrTruncated, got %v", cut, err)
		}
	}
}

func malformed(flags uint32, prefix []byte) []byte {
	data := make([]byte, 16)
	binary.LittleEndian.PutUint32(data[0:], Magic)
	binary.LittleEndian.PutUint32(data[4:], Version)
	binary.LittleEndian.PutUint32(data[8:], uint32(device.KindFloat32))
	binary.LittleEndian.PutUint32(data[12:], flags)
	return append(data, prefix...)
}

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func TestDecodeRejectsOversizedLengthPrefixes(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"huge double count", malformed(flagDoubleData, u64le(1<<60))},
		{"huge float count", malformed(flagFloatData, u64le(1<<40))},
		{"huge packed size", malformed(flagPackedData, u64le(1<<40))},
		{"sign-flipping packed size", malformed(flagPackedData, u64le(1<<63))},
		{"sign-flipping double count", malformed(flagDoubleData, u64le(^uint64(0)))},
		{"huge dim count", malformed(flagShape, []byte{0xFF, 0xFF, 0xFF, 0xFF})},
		{"plausible count beyond input", malformed(flagFloatData, u64le(3))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.data)
			var bad ErrTruncated
			if !errors.As(err, &bad) {
				t.Fatalf("expected ErrTruncated, got %v", err)
			}
		})
	}
}

func TestLegacyFieldsIndependentlyOptional(t *testing.T) {
	r := &TensorRecord{
		Kind:  device.KindFloat32,
		Width: i64p(10),
	}
	got, err := Decode(Encode(r))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if !got.HasLegacyShape() {
		t.Fatal("single legacy field must mark the record legacy")
	}
	if got.Num != nil || got.Channels != nil || got.Height != nil {
		t.Error("absent legacy fields must stay absent")
	}
	if got.Width == nil || *got.Width != 10 {
		t.Errorf("width = %v, want 10", got.Width)
	}
}
