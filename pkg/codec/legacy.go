package codec

import (
	"math"

	"github.com/strataml/strata/pkg/blockfmt"
)

// Legacy scale-based families over 32-element blocks. Symmetric
// families derive the scale from the extreme value keeping its sign,
// so the most negative representable code lands exactly on it;
// asymmetric families fit (scale, min) to the block's value range.

// Byte offsets within each block; validated against the blockfmt
// layout tables in codec_test.go.
const (
	q40ScaleOff = 0
	q40CodesOff = 2

	q41ScaleOff = 0
	q41MinOff   = 2
	q41CodesOff = 4

	q50ScaleOff = 0
	q50HighOff  = 2
	q50CodesOff = 6

	q51ScaleOff = 0
	q51MinOff   = 2
	q51HighOff  = 4
	q51CodesOff = 8

	q80ScaleOff = 0
	q80CodesOff = 2
)

func encodeBlockQ4_0(src []float32, dst []byte, _ Options) int {
	d := signedMaxScale(src, blockfmt.BiasQ4)
	blockfmt.PutF16(dst[q40ScaleOff:], d)
	d = blockfmt.F16Round(d)
	id := invScale(d)
	for j := 0; j < blockfmt.QK/2; j++ {
		lo := clampCode(src[j]*id+float32(blockfmt.BiasQ4)+0.5, 15)
		hi := clampCode(src[j+blockfmt.QK/2]*id+float32(blockfmt.BiasQ4)+0.5, 15)
		dst[q40CodesOff+j] = lo | hi<<4
	}
	return 0
}

func decodePairQ4_0(block []byte, idx int) (float32, float32, error) {
	if err := checkPair(blockfmt.TypeQ4_0, block, idx); err != nil {
		return 0, 0, err
	}
	d := blockfmt.F16ToF32(block[q40ScaleOff:])
	c0 := nibbleAt(block[q40CodesOff:], idx)
	c1 := nibbleAt(block[q40CodesOff:], idx+1)
	return float32(int(c0)-blockfmt.BiasQ4) * d, float32(int(c1)-blockfmt.BiasQ4) * d, nil
}

func encodeBlockQ4_1(src []float32, dst []byte, _ Options) int {
	d, m := rangeScale(src, 15)
	blockfmt.PutF16(dst[q41ScaleOff:], d)
	blockfmt.PutF16(dst[q41MinOff:], m)
	d = blockfmt.F16Round(d)
	m = blockfmt.F16Round(m)
	id := invScale(d)
	for j := 0; j < blockfmt.QK/2; j++ {
		lo := clampCode((src[j]-m)*id+0.5, 15)
		hi := clampCode((src[j+blockfmt.QK/2]-m)*id+0.5, 15)
		dst[q41CodesOff+j] = lo | hi<<4
	}
	return 0
}

func decodePairQ4_1(block []byte, idx int) (float32, float32, error) {
	if err := checkPair(blockfmt.TypeQ4_1, block, idx); err != nil {
		return 0, 0, err
	}
	d := blockfmt.F16ToF32(block[q41ScaleOff:])
	m := blockfmt.F16ToF32(block[q41MinOff:])
	c0 := nibbleAt(block[q41CodesOff:], idx)
	c1 := nibbleAt(block[q41CodesOff:], idx+1)
	return float32(c0)*d + m, float32(c1)*d + m, nil
}

func encodeBlockQ5_0(src []float32, dst []byte, _ Options) int {
	d := signedMaxScale(src, blockfmt.BiasQ5)
	blockfmt.PutF16(dst[q50ScaleOff:], d)
	d = blockfmt.F16Round(d)
	id := invScale(d)
	var qh uint32
	for j := 0; j < blockfmt.QK/2; j++ {
		c0 := clampCode(src[j]*id+float32(blockfmt.BiasQ5)+0.5, 31)
		c1 := clampCode(src[j+blockfmt.QK/2]*id+float32(blockfmt.BiasQ5)+0.5, 31)
		dst[q50CodesOff+j] = c0&0x0F | c1&0x0F<<4
		qh |= uint32(c0>>4) << j
		qh |= uint32(c1>>4) << (j + blockfmt.QK/2)
	}
	putU32(dst[q50HighOff:], qh)
	return 0
}

func decodePairQ5_0(block []byte, idx int) (float32, float32, error) {
	if err := checkPair(blockfmt.TypeQ5_0, block, idx); err != nil {
		return 0, 0, err
	}
	d := blockfmt.F16ToF32(block[q50ScaleOff:])
	qh := getU32(block[q50HighOff:])
	c0 := nibbleAt(block[q50CodesOff:], idx) | byte(qh>>idx&1)<<4
	c1 := nibbleAt(block[q50CodesOff:], idx+1) | byte(qh>>(idx+1)&1)<<4
	return float32(int(c0)-blockfmt.BiasQ5) * d, float32(int(c1)-blockfmt.BiasQ5) * d, nil
}

func encodeBlockQ5_1(src []float32, dst []byte, _ Options) int {
	d, m := rangeScale(src, 31)
	blockfmt.PutF16(dst[q51ScaleOff:], d)
	blockfmt.PutF16(dst[q51MinOff:], m)
	d = blockfmt.F16Round(d)
	m = blockfmt.F16Round(m)
	id := invScale(d)
	var qh uint32
	for j := 0; j < blockfmt.QK/2; j++ {
		c0 := clampCode((src[j]-m)*id+0.5, 31)
		c1 := clampCode((src[j+blockfmt.QK/2]-m)*id+0.5, 31)
		dst[q51CodesOff+j] = c0&0x0F | c1&0x0F<<4
		qh |= uint32(c0>>4) << j
		qh |= uint32(c1>>4) << (j + blockfmt.QK/2)
	}
	putU32(dst[q51HighOff:], qh)
	return 0
}

func decodePairQ5_1(block []byte, idx int) (float32, float32, error) {
	if err := checkPair(blockfmt.TypeQ5_1, block, idx); err != nil {
		return 0, 0, err
	}
	d := blockfmt.F16ToF32(block[q51ScaleOff:])
	m := blockfmt.F16ToF32(block[q51MinOff:])
	qh := getU32(block[q51HighOff:])
	c0 := nibbleAt(block[q51CodesOff:], idx) | byte(qh>>idx&1)<<4
	c1 := nibbleAt(block[q51CodesOff:], idx+1) | byte(qh>>(idx+1)&1)<<4
	return float32(c0)*d + m, float32(c1)*d + m, nil
}

func encodeBlockQ8_0(src []float32, dst []byte, _ Options) int {
	var amax float32
	for _, v := range src {
		if a := abs32(v); a > amax {
			amax = a
		}
	}
	d := amax / 127
	blockfmt.PutF16(dst[q80ScaleOff:], d)
	d = blockfmt.F16Round(d)
	id := invScale(d)
	for j, v := range src {
		q := math.RoundToEven(float64(v * id))
		if q > 127 {
			q = 127
		} else if q < -128 {
			q = -128
		}
		dst[q80CodesOff+j] = byte(int8(q))
	}
	return 0
}

func decodePairQ8_0(block []byte, idx int) (float32, float32, error) {
	if err := checkPair(blockfmt.TypeQ8_0, block, idx); err != nil {
		return 0, 0, err
	}
	d := blockfmt.F16ToF32(block[q80ScaleOff:])
	c0 := int8(block[q80CodesOff+idx])
	c1 := int8(block[q80CodesOff+idx+1])
	return float32(c0) * d, float32(c1) * d, nil
}

// checkPair validates the shared pair-decode preconditions. Decode
// never fails on well-formed input; these guard against truncated or
// mis-addressed blocks arriving from untrusted storage.
func checkPair(t blockfmt.Type, block []byte, idx int) error {
	if len(block) != t.BlockBytes() {
		return &CorruptBlockError{Type: t, Detail: "wrong block size"}
	}
	if idx < 0 || idx%2 != 0 || idx+1 >= t.BlockLen() {
		return &CorruptBlockError{Type: t, Detail: "pair index out of range"}
	}
	return nil
}

// signedMaxScale returns the symmetric scale max/-bias, where max is
// the element with the largest magnitude, sign preserved. Dividing by
// the negative bias maps that extreme onto the lowest code exactly.
func signedMaxScale(src []float32, bias int) float32 {
	var amax, sMax float32
	for _, v := range src {
		if a := abs32(v); a > amax {
			amax = a
			sMax = v
		}
	}
	return sMax / -float32(bias)
}

// rangeScale fits value = code*d + m over codes 0..levels.
func rangeScale(src []float32, levels int) (d, m float32) {
	mn, mx := src[0], src[0]
	for _, v := range src[1:] {
		if v < mn {
			mn = v
		}
		if v > mx {
			mx = v
		}
	}
	return (mx - mn) / float32(levels), mn
}

// nibbleAt returns the 4-bit code of element i: the first half of a
// legacy block lives in low nibbles, the second half in high nibbles.
func nibbleAt(qs []byte, i int) byte {
	if i < blockfmt.QK/2 {
		return qs[i] & 0x0F
	}
	return qs[i-blockfmt.QK/2] >> 4
}

func invScale(d float32) float32 {
	if d == 0 {
		return 0
	}
	return 1 / d
}

func clampCode(x float32, max int) byte {
	c := int(x)
	if c < 0 {
		c = 0
	} else if c > max {
		c = max
	}
	return byte(c)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func getU32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
