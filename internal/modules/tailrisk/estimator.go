// Package tailrisk estimates historical and Gaussian value-at-risk and
// conditional value-at-risk per asset.
//
// Sign conventions follow the formulas literally: historical VaR and CVaR
// are signed return figures (a loss is negative), ParametricVaR is
// -(mu + z*sigma) with z = Φ⁻¹(1-c) and ParametricCVaR is
// -(mu + φ(z)/(1-c)*sigma). Compare magnitudes across estimators.
package tailrisk

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/HimJar911/RiskSuite360/internal/domain"
	"github.com/HimJar911/RiskSuite360/internal/modules/risk"
	"github.com/HimJar911/RiskSuite360/pkg/formulas"
)

// AssetTailRisk holds the four estimates for one series.
type AssetTailRisk struct {
	Asset          string  `json:"asset"`
	Confidence     float64 `json:"confidence"`
	HistoricalVaR  float64 `json:"historical_var"`
	HistoricalCVaR float64 `json:"historical_cvar"`
	ParametricVaR  float64 `json:"parametric_var"`
	ParametricCVaR float64 `json:"parametric_cvar"`
}

func checkSample(op string, returns []float64, confidence float64) error {
	if !(confidence > 0 && confidence < 1) {
		return domain.ConfigError(op, "confidence level must be in (0, 1), got %g", confidence)
	}
	if len(returns) == 0 {
		return domain.DataError(op, "empty return sample")
	}
	for i, r := range returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return domain.DataError(op, "return %d is not finite", i)
		}
	}
	return nil
}

// HistoricalVaR is the empirical (1-c) quantile of the sample with "higher"
// interpolation.
func HistoricalVaR(returns []float64, confidence float64) (float64, error) {
	if err := checkSample("tailrisk.HistoricalVaR", returns, confidence); err != nil {
		return 0, err
	}
	return formulas.QuantileHigher(returns, 1-confidence), nil
}

// HistoricalCVaR is the mean of every return at or below HistoricalVaR.
func HistoricalCVaR(returns []float64, confidence float64) (float64, error) {
	threshold, err := HistoricalVaR(returns, confidence)
	if err != nil {
		return 0, err
	}
	var sum float64
	var n int
	for _, r := range returns {
		if r <= threshold {
			sum += r
			n++
		}
	}
	if n == 0 {
		return math.NaN(), nil
	}
	return sum / float64(n), nil
}

// gaussian returns mu (sample mean), sigma (population) and z = Φ⁻¹(1-c).
func gaussian(op string, returns []float64, confidence float64) (mu, sigma, z float64, err error) {
	if err := checkSample(op, returns, confidence); err != nil {
		return 0, 0, 0, err
	}
	return formulas.Mean(returns), formulas.PopStdDev(returns), distuv.UnitNormal.Quantile(1 - confidence), nil
}

// ParametricVaR is -(mu + z*sigma) under a normal fit.
func ParametricVaR(returns []float64, confidence float64) (float64, error) {
	mu, sigma, z, err := gaussian("tailrisk.ParametricVaR", returns, confidence)
	if err != nil {
		return 0, err
	}
	return -(mu + z*sigma), nil
}

// ParametricCVaR is -(mu + φ(z)/(1-c)*sigma) under a normal fit.
func ParametricCVaR(returns []float64, confidence float64) (float64, error) {
	mu, sigma, z, err := gaussian("tailrisk.ParametricCVaR", returns, confidence)
	if err != nil {
		return 0, err
	}
	return -(mu + distuv.UnitNormal.Prob(z)/(1-confidence)*sigma), nil
}

// Estimate runs all four estimators on every column of the panel.
func Estimate(returns *domain.Panel, confidence float64) ([]AssetTailRisk, error) {
	out := make([]AssetTailRisk, 0, returns.NumAssets())
	for j, asset := range returns.Assets {
		col := returns.Columns[j]
		row := AssetTailRisk{Asset: asset, Confidence: confidence}
		var err error
		if row.HistoricalVaR, err = HistoricalVaR(col, confidence); err != nil {
			return nil, err
		}
		if row.HistoricalCVaR, err = HistoricalCVaR(col, confidence); err != nil {
			return nil, err
		}
		if row.ParametricVaR, err = ParametricVaR(col, confidence); err != nil {
			return nil, err
		}
		if row.ParametricCVaR, err = ParametricCVaR(col, confidence); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// Portfolio estimates tail risk for a weighted portfolio of log-return
// columns. Weights apply to the simple returns expm1(r); the blended series
// is taken back to log1p so the row compares with the per-asset rows.
func Portfolio(logReturns *domain.Panel, weights []float64, confidence float64) (AssetTailRisk, error) {
	const op = "tailrisk.Portfolio"
	if len(weights) != logReturns.NumAssets() {
		return AssetTailRisk{}, domain.DataError(op, "%d weights for %d assets", len(weights), logReturns.NumAssets())
	}
	series := make([]float64, logReturns.Len())
	for t := range series {
		var simple float64
		for j, w := range weights {
			simple += w * math.Expm1(logReturns.Columns[j][t])
		}
		if simple <= -1 {
			return AssetTailRisk{}, domain.DomainError(op, "portfolio return at row %d is %g, at or below -100%%", t, simple)
		}
		series[t] = math.Log1p(simple)
	}
	p, err := domain.NewPanel(logReturns.Dates, []string{risk.PortfolioAsset}, [][]float64{series})
	if err != nil {
		return AssetTailRisk{}, err
	}
	rows, err := Estimate(p, confidence)
	if err != nil {
		return AssetTailRisk{}, err
	}
	return rows[0], nil
}
