package formulas

import "math"

// CalculateDrawdowns returns the drawdown at every period of a return series.
//
// Drawdown Formula:
//
//	W[t]  = (1+R[0]) * ... * (1+R[t])   (wealth index, W before the first return = 1)
//	DD[t] = (W[t] - max(W[..t])) / max(W[..t])
//
// Values are <= 0. The starting wealth of 1 counts as a peak, so a loss in the
// first period is a drawdown.
func CalculateDrawdowns(returns []float64) []float64 {
	out := make([]float64, len(returns))
	wealth, peak := 1.0, 1.0
	for i, r := range returns {
		wealth *= 1 + r
		if wealth > peak {
			peak = wealth
		}
		out[i] = (wealth - peak) / peak
	}
	return out
}

// CalculateMaxDrawdown is the most negative drawdown, e.g. -0.25 for a 25%
// peak-to-trough loss. NaN for an empty series, 0 when wealth never falls.
func CalculateMaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	mdd := 0.0
	for _, dd := range CalculateDrawdowns(returns) {
		if dd < mdd {
			mdd = dd
		}
	}
	return mdd
}
