// Package formulas holds per-series return statistics shared by the
// analytics modules. Undefined results are NaN, never an error.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Mean is the arithmetic mean, NaN for an empty series.
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	return stat.Mean(data, nil)
}

// StdDev is the sample standard deviation (n-1 denominator).
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return math.NaN()
	}
	return stat.StdDev(data, nil)
}

// PopStdDev is the population standard deviation (n denominator).
func PopStdDev(data []float64) float64 {
	if len(data) == 0 {
		return math.NaN()
	}
	return math.Sqrt(stat.PopVariance(data, nil))
}

// Skewness is the adjusted Fisher-Pearson sample skewness.
func Skewness(data []float64) float64 {
	if len(data) < 3 {
		return math.NaN()
	}
	return stat.Skew(data, nil)
}

// ExcessKurtosis is the bias-corrected sample excess kurtosis.
func ExcessKurtosis(data []float64) float64 {
	if len(data) < 4 {
		return math.NaN()
	}
	return stat.ExKurtosis(data, nil)
}

// CalculateReturns converts prices to simple returns:
//
//	R[i] = P[i+1]/P[i] - 1
func CalculateReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns[i-1] = prices[i]/prices[i-1] - 1
	}
	return returns
}

// CalculateLogReturns converts prices to log returns:
//
//	R[i] = ln(P[i+1]/P[i])
func CalculateLogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	returns := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		returns[i-1] = math.Log(prices[i] / prices[i-1])
	}
	return returns
}

// CalculateCumulativeReturns compounds a return series:
//
//	C[t] = (1+R[0]) * ... * (1+R[t]) - 1
func CalculateCumulativeReturns(returns []float64) []float64 {
	out := make([]float64, len(returns))
	wealth := 1.0
	for i, r := range returns {
		wealth *= 1 + r
		out[i] = wealth - 1
	}
	return out
}

// AnnualizedReturn scales the mean periodic return: mean * periodsPerYear.
func AnnualizedReturn(returns []float64, periodsPerYear int) float64 {
	return Mean(returns) * float64(periodsPerYear)
}

// AnnualizedVolatility scales the sample standard deviation:
//
//	StdDev(returns) * sqrt(periodsPerYear)
func AnnualizedVolatility(returns []float64, periodsPerYear int) float64 {
	return StdDev(returns) * math.Sqrt(float64(periodsPerYear))
}
