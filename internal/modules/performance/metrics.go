// Package performance computes annualized return-based performance
// statistics, statically and over rolling windows.
package performance

import (
	"math"

	"github.com/HimJar911/RiskSuite360/internal/domain"
	"github.com/HimJar911/RiskSuite360/pkg/formulas"
)

// Metric names one performance statistic.
type Metric string

const (
	MetricReturn      Metric = "return"
	MetricVolatility  Metric = "volatility"
	MetricSharpe      Metric = "sharpe"
	MetricSortino     Metric = "sortino"
	MetricCAGR        Metric = "cagr"
	MetricMaxDrawdown Metric = "max_drawdown"
	MetricCalmar      Metric = "calmar"
	MetricSkewness    Metric = "skewness"
	MetricKurtosis    Metric = "kurtosis"
)

// AllMetrics lists every metric in report order.
var AllMetrics = []Metric{
	MetricReturn, MetricVolatility, MetricSharpe, MetricSortino, MetricCAGR,
	MetricMaxDrawdown, MetricCalmar, MetricSkewness, MetricKurtosis,
}

// Metrics is the static metric set for one return series.
type Metrics struct {
	Return      float64 `json:"return"`
	Volatility  float64 `json:"volatility"`
	Sharpe      float64 `json:"sharpe"`
	Sortino     float64 `json:"sortino"`
	CAGR        float64 `json:"cagr"`
	MaxDrawdown float64 `json:"max_drawdown"`
	Calmar      float64 `json:"calmar"`
	Skewness    float64 `json:"skewness"`
	Kurtosis    float64 `json:"kurtosis"`
}

// AssetMetrics tags Metrics with the asset they describe.
type AssetMetrics struct {
	Asset string `json:"asset"`
	Metrics
}

func metricFunc(m Metric, riskFreeRate float64, ppy int) (func([]float64) float64, bool) {
	switch m {
	case MetricReturn:
		return func(r []float64) float64 { return formulas.AnnualizedReturn(r, ppy) }, true
	case MetricVolatility:
		return func(r []float64) float64 { return formulas.AnnualizedVolatility(r, ppy) }, true
	case MetricSharpe:
		return func(r []float64) float64 { return formulas.CalculateSharpeRatio(r, riskFreeRate, ppy) }, true
	case MetricSortino:
		return func(r []float64) float64 { return formulas.CalculateSortinoRatio(r, riskFreeRate, ppy) }, true
	case MetricCAGR:
		return func(r []float64) float64 { return formulas.CalculateCAGR(r, ppy) }, true
	case MetricMaxDrawdown:
		return formulas.CalculateMaxDrawdown, true
	case MetricCalmar:
		return func(r []float64) float64 { return formulas.CalculateCalmarRatio(r, ppy) }, true
	case MetricSkewness:
		return formulas.Skewness, true
	case MetricKurtosis:
		return formulas.ExcessKurtosis, true
	}
	return nil, false
}

func checkSeries(op string, returns []float64) error {
	if len(returns) == 0 {
		return domain.DataError(op, "empty return series")
	}
	for i, r := range returns {
		switch {
		case math.IsNaN(r) || math.IsInf(r, 0):
			return domain.DataError(op, "return %d is not finite", i)
		case r <= -1:
			return domain.DomainError(op, "return %d is %g, a loss of 100%% or more", i, r)
		}
	}
	return nil
}

// Compute returns every static metric for one series.
func Compute(returns []float64, riskFreeRate float64, freq domain.Frequency) (Metrics, error) {
	const op = "performance.Compute"
	ppy, err := freq.PeriodsPerYear()
	if err != nil {
		return Metrics{}, err
	}
	if err := checkSeries(op, returns); err != nil {
		return Metrics{}, err
	}
	return Metrics{
		Return:      formulas.AnnualizedReturn(returns, ppy),
		Volatility:  formulas.AnnualizedVolatility(returns, ppy),
		Sharpe:      formulas.CalculateSharpeRatio(returns, riskFreeRate, ppy),
		Sortino:     formulas.CalculateSortinoRatio(returns, riskFreeRate, ppy),
		CAGR:        formulas.CalculateCAGR(returns, ppy),
		MaxDrawdown: formulas.CalculateMaxDrawdown(returns),
		Calmar:      formulas.CalculateCalmarRatio(returns, ppy),
		Skewness:    formulas.Skewness(returns),
		Kurtosis:    formulas.ExcessKurtosis(returns),
	}, nil
}

// Rolling evaluates metric over each trailing window, aligned to the
// window-end. The first window-1 values are NaN, and all of them are when
// the window is longer than the series.
func Rolling(returns []float64, metric Metric, window int, riskFreeRate float64, freq domain.Frequency) ([]float64, error) {
	const op = "performance.Rolling"
	if window <= 0 {
		return nil, domain.ConfigError(op, "window must be positive, got %d", window)
	}
	ppy, err := freq.PeriodsPerYear()
	if err != nil {
		return nil, err
	}
	fn, ok := metricFunc(metric, riskFreeRate, ppy)
	if !ok {
		return nil, domain.ConfigError(op, "unknown metric %q", metric)
	}
	if err := checkSeries(op, returns); err != nil {
		return nil, err
	}
	return formulas.Rolling(returns, window, fn), nil
}

// RollingSharpe is Rolling with MetricSharpe; each window uses the static
// Sharpe definition, annualized.
func RollingSharpe(returns []float64, window int, riskFreeRate float64, freq domain.Frequency) ([]float64, error) {
	return Rolling(returns, MetricSharpe, window, riskFreeRate, freq)
}

// RollingVolatility is Rolling with MetricVolatility (sample, annualized).
func RollingVolatility(returns []float64, window int, freq domain.Frequency) ([]float64, error) {
	return Rolling(returns, MetricVolatility, window, 0, freq)
}

// Summarize computes the static metrics for every asset of the panel.
func Summarize(returns *domain.Panel, riskFreeRate float64, freq domain.Frequency) ([]AssetMetrics, error) {
	out := make([]AssetMetrics, 0, returns.NumAssets())
	for j, asset := range returns.Assets {
		m, err := Compute(returns.Columns[j], riskFreeRate, freq)
		if err != nil {
			return nil, err
		}
		out = append(out, AssetMetrics{Asset: asset, Metrics: m})
	}
	return out, nil
}
