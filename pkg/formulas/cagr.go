package formulas

import "math"

// CalculateCAGR calculates the compound annual growth rate of a return series.
//
// Formula:
//
//	CAGR = (1 + cumulative)^(periodsPerYear / n) - 1
//
// where cumulative is the compounded return over all n periods.
func CalculateCAGR(returns []float64, periodsPerYear int) float64 {
	n := len(returns)
	if n == 0 {
		return math.NaN()
	}
	growth := 1.0
	for _, r := range returns {
		growth *= 1 + r
	}
	return math.Pow(growth, float64(periodsPerYear)/float64(n)) - 1
}

// CalculateCalmarRatio is CAGR / |max drawdown|. NaN when there is no drawdown.
func CalculateCalmarRatio(returns []float64, periodsPerYear int) float64 {
	mdd := CalculateMaxDrawdown(returns)
	if mdd == 0 || math.IsNaN(mdd) {
		return math.NaN()
	}
	return CalculateCAGR(returns, periodsPerYear) / math.Abs(mdd)
}
