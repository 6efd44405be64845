package formulas

import "math"

// CalculateSharpeRatio calculates the annualized Sharpe ratio.
//
// Formula:
//
//	excess = R - riskFreeRate/periodsPerYear
//	Sharpe = mean(excess) * periodsPerYear / (StdDev(excess) * sqrt(periodsPerYear))
//
// StdDev is the sample statistic. Returns NaN for fewer than two
// observations or a flat series.
func CalculateSharpeRatio(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	if len(returns) < 2 {
		return math.NaN()
	}
	ppy := float64(periodsPerYear)
	periodicRiskFree := riskFreeRate / ppy

	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - periodicRiskFree
	}

	sd := StdDev(excess)
	if sd == 0 || math.IsNaN(sd) {
		return math.NaN()
	}
	return Mean(excess) * ppy / (sd * math.Sqrt(ppy))
}

// CalculateDownsideDeviation is the population standard deviation of the
// strictly negative returns. NaN when no return is negative.
func CalculateDownsideDeviation(returns []float64) float64 {
	var downside []float64
	for _, r := range returns {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	if len(downside) == 0 {
		return math.NaN()
	}
	return PopStdDev(downside)
}

// CalculateSortinoRatio calculates the annualized Sortino ratio.
//
// Formula:
//
//	expected = (mean(R) - riskFreeRate/periodsPerYear) * periodsPerYear
//	Sortino  = expected / (DownsideDeviation(R) * sqrt(periodsPerYear))
//
// Returns NaN when the downside deviation is undefined or zero; a window
// without losses is a legitimate input.
func CalculateSortinoRatio(returns []float64, riskFreeRate float64, periodsPerYear int) float64 {
	if len(returns) == 0 {
		return math.NaN()
	}
	ppy := float64(periodsPerYear)
	dd := CalculateDownsideDeviation(returns)
	if dd == 0 || math.IsNaN(dd) {
		return math.NaN()
	}
	expected := (Mean(returns) - riskFreeRate/ppy) * ppy
	return expected / (dd * math.Sqrt(ppy))
}
