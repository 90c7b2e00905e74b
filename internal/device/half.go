package device

import "math"

// Half is an IEEE 754 binary16 value in its raw bit representation.
type Half uint16

// Float32 widens the half to float32, handling subnormals, infinities and
// NaN payloads.
func (h Half) Float32() float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1F
	mant := uint32(h) & 0x3FF
	var f32 uint32
	if exp == 0 {
		if mant == 0 {
			f32 = sign << 31
		} else {
			shift := uint32(0)
			m := mant
			for m < 0x400 {
				m <<= 1
				shift++
			}
			m = (m & 0x3FF) << 13
			e := uint32(127 - 14 - shift)
			f32 = (sign << 31) | (e << 23) | m
		}
	} else if exp == 31 {
		if mant == 0 {
			f32 = (sign << 31) | 0x7F800000
		} else {
			f32 = (sign << 31) | 0x7F800000 | (mant << 13)
		}
	} else {
		newExp := exp - 15 + 127
		f32 = (sign << 31) | (newExp << 23) | (mant << 13)
	}
	return math.Float32frombits(f32)
}

// HalfFromFloat32 narrows a float32 to half, flushing overflow to infinity
// and shifting subnormals into the half subnormal range.
func HalfFromFloat32(f float32) Half {
	bits := math.Float32bits(f)
	sign := bits >> 31
	exp := (bits >> 23) & 0xFF
	mant := bits & 0x7FFFFF
	var h uint16
	if exp == 0 {
		h = 0
	} else if exp == 255 {
		h = uint16(sign<<15) | 0x7C00 | uint16(mant>>9)
	} else {
		newExp := int(exp) - 127 + 15
		if newExp >= 31 {
			h = uint16(sign<<15) | 0x7C00
		} else if newExp <= 0 {
			shift := uint32(1 - newExp)
			m := mant | 0x800000
			h = uint16(sign<<15) | uint16(m>>(9+shift))
		} else {
			h = uint16(sign<<15) | uint16(newExp<<10) | uint16(mant>>13)
		}
	}
	return Half(h)
}

// HalfsToFloat32 widens src into dst. Lengths must match.
func HalfsToFloat32(src []Half, dst []float32) {
	if len(src) != len(dst) {
		return
	}
	for i, h := range src {
		dst[i] = h.Float32()
	}
}

// Float32sToHalf narrows src into dst. Lengths must match.
func Float32sToHalf(src []float32, dst []Half) {
	if len(src) != len(dst) {
		return
	}
	for i, f := range src {
		dst[i] = HalfFromFloat32(f)
	}
}
