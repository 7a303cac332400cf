package blockfmt

import "math"

// F16ToF32 decodes a little-endian IEEE 754 half-precision value.
func F16ToF32(b []byte) float32 {
	if len(b) < 2 {
		return float32(math.NaN())
	}
	return f16BitsToF32(uint16(b[0]) | uint16(b[1])<<8)
}

// PutF16 encodes v as little-endian half precision into b[0:2],
// rounding to nearest even.
func PutF16(b []byte, v float32) {
	h := f32ToF16Bits(v)
	b[0] = byte(h)
	b[1] = byte(h >> 8)
}

// F16Round returns v after a round trip through half precision. Encode
// paths use it so that stored exact values and reported errors agree.
func F16Round(v float32) float32 {
	return f16BitsToF32(f32ToF16Bits(v))
}

func f16BitsToF32(h uint16) float32 {
	sign := uint32(h>>15) & 0x1
	exp := uint32(h>>10) & 0x1F
	frac := uint32(h & 0x3FF)
	var f uint32
	switch exp {
	case 0:
		if frac == 0 {
			f = sign << 31
		} else {
			e := uint32(127 - 15 + 1)
			for (frac & 0x400) == 0 {
				frac <<= 1
				e--
			}
			frac &= 0x3FF
			f = (sign << 31) | (e << 23) | (frac << 13)
		}
	case 0x1F:
		f = (sign << 31) | 0x7F800000 | (frac << 13)
	default:
		e := exp + (127 - 15)
		f = (sign << 31) | (e << 23) | (frac << 13)
	}
	return math.Float32frombits(f)
}

func f32ToF16Bits(v float32) uint16 {
	f := math.Float32bits(v)
	sign := uint16(f>>16) & 0x8000
	exp := int32(f>>23&0xFF) - 127 + 15
	frac := f & 0x7FFFFF

	switch {
	case f&0x7FFFFFFF == 0:
		return sign
	case f&0x7F800000 == 0x7F800000:
		if frac != 0 {
			return sign | 0x7E00 // quiet NaN
		}
		return sign | 0x7C00 // infinity
	case exp >= 0x1F:
		return sign | 0x7C00 // overflow to infinity
	case exp <= 0:
		// Subnormal half or underflow to zero.
		if exp < -10 {
			return sign
		}
		frac |= 0x800000
		shift := uint32(14 - exp)
		half := uint16(frac >> shift)
		// Round to nearest even on the dropped bits.
		rem := frac & (1<<shift - 1)
		mid := uint32(1) << (shift - 1)
		if rem > mid || (rem == mid && half&1 == 1) {
			half++
		}
		return sign | half
	default:
		half := sign | uint16(exp)<<10 | uint16(frac>>13)
		rem := frac & 0x1FFF
		if rem > 0x1000 || (rem == 0x1000 && half&1 == 1) {
			half++ // carries into the exponent correctly
		}
		return half
	}
}
