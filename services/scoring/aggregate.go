package scoring

import "math"

// WeightedValue is a 0-100 score with its percentage weight.
type WeightedValue struct {
	Value  float64
	Weight float64
}

// CategoryScore combines sub-category scores: Σ value * weight / 100.
func CategoryScore(values []WeightedValue) float64 {
	return clamp(weightedSum(values))
}

// TotalScore combines category scores the same way and rounds to 2 decimals.
func TotalScore(values []WeightedValue) float64 {
	return Round2(clamp(weightedSum(values)))
}

func weightedSum(values []WeightedValue) float64 {
	var sum float64
	for _, v := range values {
		sum += clamp(v.Value) * v.Weight / 100
	}
	return sum
}

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// clamp keeps a score inside [0,100]; NaN collapses to 0.
func clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}
