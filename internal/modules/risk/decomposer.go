// Package risk decomposes portfolio volatility into per-asset contributions.
package risk

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/HimJar911/RiskSuite360/internal/domain"
)

// PortfolioAsset names the single column of a projected portfolio panel.
const PortfolioAsset = "portfolio"

// Contribution is one asset's share of portfolio volatility.
type Contribution struct {
	Asset     string  `json:"asset"`
	Weight    float64 `json:"weight"`
	Marginal  float64 `json:"marginal"`
	Component float64 `json:"component"`
	Percent   float64 `json:"percent"`
}

// Decomposition is the full risk-contribution report for one weight vector.
type Decomposition struct {
	Variance      float64        `json:"variance"`
	Volatility    float64        `json:"volatility"`
	Contributions []Contribution `json:"contributions"`
}

func checkDims(op string, w []float64, sigma mat.Symmetric) error {
	if n := sigma.SymmetricDim(); len(w) != n {
		return domain.DataError(op, "%d weights for a %dx%d covariance matrix", len(w), n, n)
	}
	return nil
}

// Variance is w'Σw. Tiny negative values from round-off are clamped to
// zero; anything larger means Σ is not positive semi-definite.
func Variance(w []float64, sigma mat.Symmetric) (float64, error) {
	const op = "risk.Variance"
	if err := checkDims(op, w, sigma); err != nil {
		return 0, err
	}
	n := len(w)
	wv := mat.NewVecDense(n, w)
	v := mat.Inner(wv, sigma, wv)

	var scale float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			scale += math.Abs(w[i] * sigma.At(i, j) * w[j])
		}
	}
	switch {
	case math.IsNaN(v):
		return 0, domain.DataError(op, "variance is NaN")
	case v < -1e-12*math.Max(scale, 1e-300):
		return 0, domain.DomainError(op, "negative variance %g: covariance is not positive semi-definite", v)
	case v < 0:
		return 0, nil
	}
	return v, nil
}

// Volatility is the square root of Variance.
func Volatility(w []float64, sigma mat.Symmetric) (float64, error) {
	v, err := Variance(w, sigma)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

// MarginalContribution is dσ/dw = Σw/σ.
func MarginalContribution(w []float64, sigma mat.Symmetric) ([]float64, error) {
	const op = "risk.MarginalContribution"
	vol, err := Volatility(w, sigma)
	if err != nil {
		return nil, err
	}
	if vol == 0 {
		return nil, domain.DomainError(op, "portfolio volatility is zero")
	}
	var sw mat.VecDense
	sw.MulVec(sigma, mat.NewVecDense(len(w), w))
	out := make([]float64, len(w))
	for i := range out {
		out[i] = sw.AtVec(i) / vol
	}
	return out, nil
}

// ComponentContribution is w ⊙ marginal; it sums to the portfolio volatility.
func ComponentContribution(w []float64, sigma mat.Symmetric) ([]float64, error) {
	marginal, err := MarginalContribution(w, sigma)
	if err != nil {
		return nil, err
	}
	for i := range marginal {
		marginal[i] *= w[i]
	}
	return marginal, nil
}

// PercentContribution expresses each component as a percentage of volatility.
func PercentContribution(w []float64, sigma mat.Symmetric) ([]float64, error) {
	components, err := ComponentContribution(w, sigma)
	if err != nil {
		return nil, err
	}
	vol, err := Volatility(w, sigma)
	if err != nil {
		return nil, err
	}
	for i := range components {
		components[i] = 100 * components[i] / vol
	}
	return components, nil
}

// Decompose builds the per-asset contribution table.
func Decompose(assets []string, w []float64, sigma mat.Symmetric) (*Decomposition, error) {
	const op = "risk.Decompose"
	if len(assets) != len(w) {
		return nil, domain.DataError(op, "%d assets for %d weights", len(assets), len(w))
	}
	variance, err := Variance(w, sigma)
	if err != nil {
		return nil, err
	}
	marginal, err := MarginalContribution(w, sigma)
	if err != nil {
		return nil, err
	}
	vol := math.Sqrt(variance)

	d := &Decomposition{
		Variance:      variance,
		Volatility:    vol,
		Contributions: make([]Contribution, len(w)),
	}
	for i, a := range assets {
		component := w[i] * marginal[i]
		d.Contributions[i] = Contribution{
			Asset:     a,
			Weight:    w[i],
			Marginal:  marginal[i],
			Component: component,
			Percent:   100 * component / vol,
		}
	}
	return d, nil
}

// ProjectReturns is the constant-weight portfolio return series
// sum_i w_i * R[t,i], as a single-column panel on the same dates.
func ProjectReturns(returns *domain.Panel, w []float64) (*domain.Panel, error) {
	const op = "risk.ProjectReturns"
	if len(w) != returns.NumAssets() {
		return nil, domain.DataError(op, "%d weights for %d assets", len(w), returns.NumAssets())
	}
	if returns.Len() == 0 {
		return nil, domain.DataError(op, "no return rows")
	}
	var out mat.VecDense
	out.MulVec(returns.Matrix(), mat.NewVecDense(len(w), w))
	series := make([]float64, returns.Len())
	for t := range series {
		series[t] = out.AtVec(t)
	}
	return domain.NewPanel(returns.Dates, []string{PortfolioAsset}, [][]float64{series})
}
