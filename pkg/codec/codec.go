// Package codec implements the quantize and dequantize transforms for
// every block family in pkg/blockfmt: the legacy 4/5/8-bit scale-based
// families and the outlier-aware 3-bit super-block family.
//
// Decode follows the pairing contract: one DecodePair call reconstructs
// two adjacent elements of one block as a pure function of the block's
// bytes, so any number of lanes may decode concurrently without
// coordination. Encode is a per-block batch transform; blocks are
// immutable once written.
package codec

import (
	"errors"
	"math"

	"github.com/strataml/strata/pkg/blockfmt"
)

// Criterion selects how the outlier-aware family ranks elements when
// picking which ones to store exactly.
type Criterion int

const (
	// CriterionResidual ranks by |original - reconstructed|.
	CriterionResidual Criterion = iota
	// CriterionMagnitude ranks by |original|.
	CriterionMagnitude
)

func (c Criterion) String() string {
	switch c {
	case CriterionResidual:
		return "residual"
	case CriterionMagnitude:
		return "magnitude"
	default:
		return "criterion(?)"
	}
}

// ParseCriterion resolves a criterion name from configuration.
func ParseCriterion(s string) (Criterion, error) {
	switch s {
	case "", "residual":
		return CriterionResidual, nil
	case "magnitude":
		return CriterionMagnitude, nil
	default:
		return 0, errors.New("codec: unknown outlier criterion " + s)
	}
}

// Options tunes the encoder. The zero value is a valid default.
type Options struct {
	// Criterion picks the outlier ranking rule for TypeQ3H.
	Criterion Criterion
	// OutlierBudget caps outliers stored per Q3H block, 1..8.
	// Zero means the format capacity.
	OutlierBudget int
}

func (o Options) budget() int {
	b := o.OutlierBudget
	if b <= 0 || b > blockfmt.Q3HOutlierCap {
		return blockfmt.Q3HOutlierCap
	}
	return b
}

// coder bundles the per-family transforms. encodeBlock writes exactly
// one block and returns the number of outlier candidates that did not
// fit (always 0 for legacy families). decodePair yields elements idx
// and idx+1 of the block.
type coder struct {
	encodeBlock func(src []float32, dst []byte, opts Options) (overflow int)
	decodePair  func(block []byte, idx int) (float32, float32, error)
}

var coders = map[blockfmt.Type]coder{
	blockfmt.TypeQ4_0: {encodeBlock: encodeBlockQ4_0, decodePair: decodePairQ4_0},
	blockfmt.TypeQ4_1: {encodeBlock: encodeBlockQ4_1, decodePair: decodePairQ4_1},
	blockfmt.TypeQ5_0: {encodeBlock: encodeBlockQ5_0, decodePair: decodePairQ5_0},
	blockfmt.TypeQ5_1: {encodeBlock: encodeBlockQ5_1, decodePair: decodePairQ5_1},
	blockfmt.TypeQ8_0: {encodeBlock: encodeBlockQ8_0, decodePair: decodePairQ8_0},
	blockfmt.TypeQ3H:  {encodeBlock: encodeBlockQ3H, decodePair: decodePairQ3H},
}

// Quantize encodes src into blocks of family t and reports per-tensor
// reconstruction quality. len(src) must be a positive multiple of the
// family's block length.
func Quantize(t blockfmt.Type, src []float32, opts Options) ([]byte, *Report, error) {
	c, ok := coders[t]
	if !ok {
		return nil, nil, &UnsupportedTypeError{Type: t}
	}
	bl := t.BlockLen()
	if len(src) == 0 || len(src)%bl != 0 {
		return nil, nil, &ShapeError{Type: t, N: len(src)}
	}

	bb := t.BlockBytes()
	blocks := len(src) / bl
	out := make([]byte, blocks*bb)
	rep := &Report{Type: t, TypeName: t.String(), Elements: len(src), Blocks: blocks}

	var sumSq float64
	for b := 0; b < blocks; b++ {
		blkSrc := src[b*bl : (b+1)*bl]
		blkDst := out[b*bb : (b+1)*bb]
		rep.OutlierOverflow += c.encodeBlock(blkSrc, blkDst, opts)

		for j := 0; j < bl; j += 2 {
			v0, v1, err := c.decodePair(blkDst, j)
			if err != nil {
				// The encoder just wrote this block; a decode failure
				// here is a bug, not an input condition.
				return nil, nil, err
			}
			e0 := float64(blkSrc[j] - v0)
			e1 := float64(blkSrc[j+1] - v1)
			sumSq += e0*e0 + e1*e1
			if a := math.Abs(e0); a > rep.MaxErr {
				rep.MaxErr = a
			}
			if a := math.Abs(e1); a > rep.MaxErr {
				rep.MaxErr = a
			}
		}
	}
	rep.RMSE = math.Sqrt(sumSq / float64(len(src)))
	return out, rep, nil
}

// DecodePair reconstructs elements idx and idx+1 of a single encoded
// block. idx must be even and within the family's block length. The
// result depends only on the block's bytes.
func DecodePair(t blockfmt.Type, block []byte, idx int) (float32, float32, error) {
	c, ok := coders[t]
	if !ok {
		return 0, 0, &UnsupportedTypeError{Type: t}
	}
	return c.decodePair(block, idx)
}

// Dequantize reconstructs n elements from encoded block data, built on
// the same pair contract the parallel dispatch path uses.
func Dequantize(t blockfmt.Type, data []byte, n int) ([]float32, error) {
	c, ok := coders[t]
	if !ok {
		return nil, &UnsupportedTypeError{Type: t}
	}
	bl := t.BlockLen()
	bb := t.BlockBytes()
	if n <= 0 || n%bl != 0 {
		return nil, &ShapeError{Type: t, N: n}
	}
	blocks := n / bl
	if len(data) != blocks*bb {
		return nil, &CorruptBlockError{Type: t, Detail: "data length mismatch"}
	}
	out := make([]float32, n)
	for b := 0; b < blocks; b++ {
		blk := data[b*bb : (b+1)*bb]
		for j := 0; j < bl; j += 2 {
			v0, v1, err := c.decodePair(blk, j)
			if err != nil {
				var ce *CorruptBlockError
				if errors.As(err, &ce) {
					ce.Block = b
				}
				return nil, err
			}
			out[b*bl+j] = v0
			out[b*bl+j+1] = v1
		}
	}
	return out, nil
}
