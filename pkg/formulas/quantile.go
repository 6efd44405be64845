package formulas

import (
	"math"
	"sort"
)

// QuantileHigher returns the empirical q-quantile using "higher" interpolation:
// the sorted observation at index ceil(q*(n-1)), i.e. the smallest sample
// value at or above the theoretical rank. No averaging between neighbours.
//
// A rank within 1e-9 of an integer is snapped to it, so 1-0.95 does not
// jump to the next observation through floating-point residue.
func QuantileHigher(data []float64, q float64) float64 {
	n := len(data)
	if n == 0 || q < 0 || q > 1 || math.IsNaN(q) {
		return math.NaN()
	}
	sorted := append([]float64(nil), data...)
	sort.Float64s(sorted)

	pos := q * float64(n-1)
	if r := math.Round(pos); math.Abs(pos-r) < 1e-9 {
		pos = r
	}
	idx := int(math.Ceil(pos))
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}
