// Package covariance estimates covariance and correlation structure from
// return panels.
package covariance

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/HimJar911/RiskSuite360/internal/domain"
)

// Matrix is an asset-indexed symmetric matrix. It satisfies mat.Symmetric,
// so it can be passed straight to the optimizer and the risk decomposer.
type Matrix struct {
	Assets []string
	*mat.SymDense
}

// Rows copies the matrix out as nested slices, row i for Assets[i].
func (m Matrix) Rows() [][]float64 {
	n := len(m.Assets)
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		out[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			out[i][j] = m.At(i, j)
		}
	}
	return out
}

// Covariance is the sample covariance matrix (n-1 denominator).
func Covariance(returns *domain.Panel) (Matrix, error) {
	const op = "covariance.Covariance"
	if returns.Len() < 2 {
		return Matrix{}, domain.DataError(op, "need at least 2 return rows, got %d", returns.Len())
	}
	if err := returns.CheckFinite(op); err != nil {
		return Matrix{}, err
	}
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, returns.Matrix(), nil)
	return Matrix{Assets: append([]string(nil), returns.Assets...), SymDense: &cov}, nil
}

// AnnualizedCovariance scales the sample covariance by periods per year.
func AnnualizedCovariance(returns *domain.Panel, freq domain.Frequency) (Matrix, error) {
	ppy, err := freq.PeriodsPerYear()
	if err != nil {
		return Matrix{}, err
	}
	cov, err := Covariance(returns)
	if err != nil {
		return Matrix{}, err
	}
	cov.ScaleSym(float64(ppy), cov.SymDense)
	return cov, nil
}

// Correlation is the Pearson correlation matrix. Entries are clamped to
// [-1, 1] and the diagonal is exactly 1; a flat asset's row and column are NaN.
func Correlation(returns *domain.Panel) (Matrix, error) {
	cov, err := Covariance(returns)
	if err != nil {
		return Matrix{}, err
	}
	n := returns.NumAssets()
	flat := make([]bool, n)
	for j, c := range returns.Columns {
		flat[j] = isFlat(c)
	}

	corr := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			switch {
			case flat[i] || flat[j]:
				corr.SetSym(i, j, math.NaN())
			case i == j:
				corr.SetSym(i, j, 1)
			default:
				corr.SetSym(i, j, clamp(cov.At(i, j)/math.Sqrt(cov.At(i, i)*cov.At(j, j))))
			}
		}
	}
	return Matrix{Assets: cov.Assets, SymDense: corr}, nil
}

// EWMatrix is the exponentially weighted covariance as of one row.
type EWMatrix struct {
	Row  int
	Date time.Time // zero for positional panels
	Matrix
}

// EWCovariance is the pairwise exponentially weighted covariance with decay
// alpha = 2/(span+1), adjusted weights and the bias-corrected estimator.
// The first row has no defined covariance and is left out.
func EWCovariance(returns *domain.Panel, span float64) ([]EWMatrix, error) {
	const op = "covariance.EWCovariance"
	if span < 1 || math.IsNaN(span) {
		return nil, domain.ConfigError(op, "span must be >= 1, got %g", span)
	}
	if err := returns.CheckFinite(op); err != nil {
		return nil, err
	}

	n := returns.NumAssets()
	decay := 1 - 2/(span+1)
	mean := make([]float64, n)
	delta := make([]float64, n)
	co := mat.NewSymDense(n, nil)
	var sumW, sumW2 float64

	var out []EWMatrix
	for t := 0; t < returns.Len(); t++ {
		sumW *= decay
		sumW2 *= decay * decay
		co.ScaleSym(decay, co)

		prevW := sumW
		sumW++
		sumW2++
		for i, c := range returns.Columns {
			delta[i] = c[t] - mean[i]
			mean[i] += delta[i] / sumW
		}
		co.SymRankOne(co, prevW/sumW, mat.NewVecDense(n, delta))

		denom := sumW*sumW - sumW2
		if denom <= 0 {
			continue
		}
		cov := mat.NewSymDense(n, nil)
		cov.ScaleSym(sumW/denom, co)

		point := EWMatrix{Row: t, Matrix: Matrix{Assets: append([]string(nil), returns.Assets...), SymDense: cov}}
		if returns.Dates != nil {
			point.Date = returns.Dates[t]
		}
		out = append(out, point)
	}
	return out, nil
}

// RollingCorrelation is the Pearson correlation of assets a and b over each
// trailing window, aligned to the window-end row. The first window-1 values
// and windows where either asset is flat are NaN.
func RollingCorrelation(returns *domain.Panel, a, b string, window int) ([]float64, error) {
	const op = "covariance.RollingCorrelation"
	if window < 2 {
		return nil, domain.ConfigError(op, "window must be >= 2, got %d", window)
	}
	x, err := returns.Column(a)
	if err != nil {
		return nil, err
	}
	y, err := returns.Column(b)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(x))
	for t := range out {
		if t < window-1 {
			out[t] = math.NaN()
			continue
		}
		wx, wy := x[t-window+1:t+1], y[t-window+1:t+1]
		if isFlat(wx) || isFlat(wy) {
			out[t] = math.NaN()
			continue
		}
		out[t] = clamp(stat.Correlation(wx, wy, nil))
	}
	return out, nil
}

func isFlat(xs []float64) bool {
	if len(xs) == 0 {
		return true
	}
	for _, v := range xs[1:] {
		if v != xs[0] {
			return false
		}
	}
	return true
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}
