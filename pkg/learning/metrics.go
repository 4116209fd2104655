package learning

import (
	"math"
	"sort"
)

// RegressionMetrics summarizes regressor quality on one data split
type RegressionMetrics struct {
	MAE  float64 `json:"mae"`
	RMSE float64 `json:"rmse"`
	R2   float64 `json:"r2"`
}

// EvaluateRegression computes MAE, RMSE and R² for predictions
// against actuals.
func EvaluateRegression(actual, predicted []float64) RegressionMetrics {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return RegressionMetrics{}
	}

	n := float64(len(actual))
	var absSum, sqSum float64
	for i := range actual {
		diff := actual[i] - predicted[i]
		absSum += math.Abs(diff)
		sqSum += diff * diff
	}

	m := mean(actual)
	var totSS float64
	for _, v := range actual {
		totSS += (v - m) * (v - m)
	}

	r2 := 0.0
	if totSS > 0 {
		r2 = 1 - sqSum/totSS
	}

	return RegressionMetrics{
		MAE:  absSum / n,
		RMSE: math.Sqrt(sqSum / n),
		R2:   r2,
	}
}

// Accuracy returns the fraction of correct binary predictions at a
// 0.5 probability threshold.
func Accuracy(actual, probs []float64) float64 {
	if len(actual) == 0 || len(actual) != len(probs) {
		return 0
	}
	correct := 0
	for i := range actual {
		predicted := 0.0
		if probs[i] >= 0.5 {
			predicted = 1.0
		}
		if predicted == actual[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(actual))
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Mean is the exported arithmetic mean
func Mean(values []float64) float64 {
	return mean(values)
}

// Std returns the population standard deviation
func Std(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var sq float64
	for _, v := range values {
		sq += (v - m) * (v - m)
	}
	return math.Sqrt(sq / float64(len(values)))
}

// Percentile returns the p-th percentile (0-100) using linear
// interpolation between closest ranks.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// ZScores returns the z-score of every value against the slice's own
// mean and standard deviation. A zero deviation yields all-zero
// scores.
func ZScores(values []float64) []float64 {
	out := make([]float64, len(values))
	sd := Std(values)
	if sd == 0 {
		return out
	}
	m := mean(values)
	for i, v := range values {
		out[i] = (v - m) / sd
	}
	return out
}

// Clip bounds a value to [lo, hi]
func Clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
