package policy

import "math"

// Adaptive outlier budgets for the Q3H family. Early layers form
// context and tolerate the least error; later layers carry more
// redundancy, more so in larger models. The budget feeds
// codec.Options.OutlierBudget per tensor.

// OutlierBudget returns how many outliers a layer's Q3H blocks should
// keep, in [2, 8]. importance is a normalized 0..1 score (use
// TensorImportance, or 0.5 without calibration data); paramsB is the
// model size in billions of parameters.
func OutlierBudget(layerIdx, totalLayers int, importance, paramsB float64) int {
	if totalLayers <= 0 {
		return 8
	}
	depth := 0.5
	if totalLayers > 1 {
		depth = float64(layerIdx) / float64(totalLayers-1)
	}

	var base float64
	switch {
	case depth <= 0.30:
		base = 8
	case depth <= 0.70:
		base = 7
	default:
		base = 5
	}

	scale := 1.0
	switch {
	case paramsB >= 7.0:
		if depth > 0.70 {
			scale = 0.75
		} else if depth > 0.50 {
			scale = 0.9
		}
	case paramsB >= 3.0:
		if depth > 0.70 {
			scale = 0.80
		} else if depth > 0.50 {
			scale = 0.95
		}
	case paramsB >= 1.5:
		if depth > 0.70 {
			scale = 0.85
		}
	case paramsB <= 1.0:
		// Small models are the most sensitive to quantization error.
		scale = 1.2
		if depth <= 0.30 {
			scale = 1.3
		}
	}

	imp := 1.0
	if importance > 0.7 {
		imp = 1.0 + (importance - 0.7)
	} else if importance < 0.3 {
		imp = 0.7 + importance/0.3*0.3
	}

	n := int(math.Round(base * scale * imp))
	if n < 2 {
		n = 2
	}
	if n > 8 {
		n = 8
	}
	return n
}

// TensorImportance aggregates per-element calibration weights into a
// 0.2..0.9 importance score via the coefficient of variation: high
// variance means a few weights dominate, so the tensor deserves more
// outlier budget. Returns 0.5 when no data is available.
func TensorImportance(weights []float32) float64 {
	if len(weights) == 0 {
		return 0.5
	}
	var sum, sumSq float64
	for _, w := range weights {
		v := float64(w)
		sum += v
		sumSq += v * v
	}
	n := float64(len(weights))
	mean := sum / n
	variance := sumSq/n - mean*mean
	if mean < 1e-10 || variance < 0 {
		return 0.5
	}
	cv := math.Sqrt(variance) / mean
	imp := 0.2 + 0.7*cv/3.0
	return math.Min(0.9, math.Max(0.2, imp))
}
