package codec

import "sort"

// outlier is one side-table entry: the element's intra-block index and
// its exact value, stored at fp16 precision on the wire.
type outlier struct {
	idx   int
	val   float32
	score float32
}

// selectOutliers ranks a block's elements by the criterion and keeps
// the top k, returned in index order so encode output is byte-stable.
// The second result counts qualified candidates that did not fit; the
// elements behind them silently stay ordinary quantized values.
//
// Qualified means the element is badly served by the code it got: its
// reconstruction error exceeds half a quantization step, the bound an
// unclamped rounding guarantees. The criterion only changes how the
// qualified set is ranked.
func selectOutliers(src, recon []float32, scale float32, crit Criterion, k int) ([]outlier, int) {
	step := abs32(scale)
	cand := make([]outlier, 0, len(src))
	for i, v := range src {
		resid := abs32(v - recon[i])
		if resid <= step/2 {
			continue
		}
		score := resid
		if crit == CriterionMagnitude {
			score = abs32(v)
		}
		cand = append(cand, outlier{idx: i, val: v, score: score})
	}

	sort.Slice(cand, func(a, b int) bool {
		if cand[a].score != cand[b].score {
			return cand[a].score > cand[b].score
		}
		return cand[a].idx < cand[b].idx
	})

	overflow := 0
	if len(cand) > k {
		overflow = len(cand) - k
		cand = cand[:k]
	}
	sort.Slice(cand, func(a, b int) bool { return cand[a].idx < cand[b].idx })
	return cand, overflow
}
