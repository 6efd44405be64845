package formulas

import "math"

// Rolling applies fn to every trailing window of length window and aligns
// the result with the input: out[t] = fn(series[t-window+1 : t+1]).
// The first window-1 values are NaN, as is everything when window exceeds
// the series or is not positive.
func Rolling(series []float64, window int, fn func([]float64) float64) []float64 {
	out := make([]float64, len(series))
	for t := range out {
		if window <= 0 || t < window-1 {
			out[t] = math.NaN()
			continue
		}
		out[t] = fn(series[t-window+1 : t+1])
	}
	return out
}
