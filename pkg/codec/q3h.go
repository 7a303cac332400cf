package codec

import "github.com/strataml/strata/pkg/blockfmt"

// Q3H: 256-element super-block, one fp16 scale, a flat little-endian
// 3-bit code stream, and a side table of up to eight (index, exact
// fp16 value) outlier entries. Outlier elements still occupy a code
// slot so the stream addressing stays uniform; their decoded value is
// overridden from the table.

const (
	q3hScaleOff = 0
	q3hCodesOff = 2
	q3hCountOff = 98
	q3hIdxOff   = 99
	q3hValsOff  = 108

	q3hCodeBits = 3
)

func encodeBlockQ3H(src []float32, dst []byte, opts Options) int {
	d := signedMaxScale(src, blockfmt.BiasQ3)
	blockfmt.PutF16(dst[q3hScaleOff:], d)
	d = blockfmt.F16Round(d)
	id := invScale(d)

	codes := dst[q3hCodesOff:q3hCountOff]
	recon := make([]float32, blockfmt.QKH)
	for j, v := range src {
		c := clampCode(v*id+float32(blockfmt.BiasQ3)+0.5, 7)
		// A fresh slice from Quantize is zeroed and offsets are in
		// range, so PutBits cannot fail here.
		_ = blockfmt.PutBits(codes, j*q3hCodeBits, q3hCodeBits, uint32(c))
		recon[j] = float32(int(c)-blockfmt.BiasQ3) * d
	}

	kept, overflow := selectOutliers(src, recon, d, opts.Criterion, opts.budget())
	dst[q3hCountOff] = byte(len(kept))
	for k, o := range kept {
		dst[q3hIdxOff+k] = byte(o.idx)
		blockfmt.PutF16(dst[q3hValsOff+2*k:], o.val)
	}
	return overflow
}

func decodePairQ3H(block []byte, idx int) (float32, float32, error) {
	if err := checkPair(blockfmt.TypeQ3H, block, idx); err != nil {
		return 0, 0, err
	}
	d := blockfmt.F16ToF32(block[q3hScaleOff:])
	codes := block[q3hCodesOff:q3hCountOff]

	c0, err := blockfmt.GetBits(codes, idx*q3hCodeBits, q3hCodeBits)
	if err != nil {
		return 0, 0, &CorruptBlockError{Type: blockfmt.TypeQ3H, Detail: err.Error()}
	}
	c1, err := blockfmt.GetBits(codes, (idx+1)*q3hCodeBits, q3hCodeBits)
	if err != nil {
		return 0, 0, &CorruptBlockError{Type: blockfmt.TypeQ3H, Detail: err.Error()}
	}
	v0 := float32(int(c0)-blockfmt.BiasQ3) * d
	v1 := float32(int(c1)-blockfmt.BiasQ3) * d

	count := int(block[q3hCountOff])
	if count > blockfmt.Q3HOutlierCap {
		return 0, 0, &CorruptBlockError{Type: blockfmt.TypeQ3H, Detail: "outlier count exceeds capacity"}
	}
	for k := 0; k < count; k++ {
		oi := int(block[q3hIdxOff+k])
		if oi >= blockfmt.QKH {
			return 0, 0, &CorruptBlockError{Type: blockfmt.TypeQ3H, Detail: "outlier index out of range"}
		}
		switch oi {
		case idx:
			v0 = blockfmt.F16ToF32(block[q3hValsOff+2*k:])
		case idx + 1:
			v1 = blockfmt.F16ToF32(block[q3hValsOff+2*k:])
		}
	}
	return v0, v1, nil
}
