// Package optimization solves constrained portfolio-weight problems
// (minimum variance, maximum Sharpe) on top of a pluggable Solver.
package optimization

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
)

// LinearConstraint is the equality Coeffs . x = Target.
type LinearConstraint struct {
	Coeffs []float64
	Target float64
}

// Problem is a bound- and equality-constrained minimization.
type Problem struct {
	Objective func(x []float64) float64
	// Gradient is optional; solvers fall back to finite differences
	Gradient func(grad, x []float64)
	Equality *LinearConstraint
	// Lower and Upper are per-coordinate bounds; nil means unbounded
	Lower, Upper []float64
	Initial      []float64
}

// SolverSettings bounds the work a solver may do.
type SolverSettings struct {
	Tolerance     float64
	MaxIterations int
}

// Solution is the best feasible point a solver found.
type Solution struct {
	X          []float64
	F          float64
	Iterations int
	Converged  bool
	Status     string
}

// Solver minimizes a Problem. Running out of budget is not an error: the
// best iterate comes back with Converged=false.
type Solver interface {
	Name() string
	Solve(p Problem, settings SolverSettings) (Solution, error)
}

// projector maps any point onto {lower <= x <= upper, a.x = b}.
type projector struct {
	lower, upper []float64
	eq           *LinearConstraint
}

func newProjector(p Problem) (*projector, error) {
	n := len(p.Initial)
	if n == 0 {
		return nil, fmt.Errorf("problem has no variables")
	}
	lower := make([]float64, n)
	upper := make([]float64, n)
	for i := 0; i < n; i++ {
		lower[i], upper[i] = math.Inf(-1), math.Inf(1)
		if p.Lower != nil {
			lower[i] = p.Lower[i]
		}
		if p.Upper != nil {
			upper[i] = p.Upper[i]
		}
		if lower[i] > upper[i] {
			return nil, fmt.Errorf("bound %d: lower %g above upper %g", i, lower[i], upper[i])
		}
	}
	if (p.Lower != nil && len(p.Lower) != n) || (p.Upper != nil && len(p.Upper) != n) {
		return nil, fmt.Errorf("bounds do not match %d variables", n)
	}

	if p.Equality != nil {
		if len(p.Equality.Coeffs) != n {
			return nil, fmt.Errorf("equality has %d coefficients for %d variables", len(p.Equality.Coeffs), n)
		}
		lo, hi := 0.0, 0.0
		for i, a := range p.Equality.Coeffs {
			if a >= 0 {
				lo += a * lower[i]
				hi += a * upper[i]
			} else {
				lo += a * upper[i]
				hi += a * lower[i]
			}
		}
		if p.Equality.Target < lo || p.Equality.Target > hi {
			return nil, fmt.Errorf("equality target %g unreachable within bounds [%g, %g]", p.Equality.Target, lo, hi)
		}
	}
	return &projector{lower: lower, upper: upper, eq: p.Equality}, nil
}

func (pr *projector) clip(v []float64, tau float64, dst []float64) {
	for i := range v {
		x := v[i]
		if pr.eq != nil {
			x -= tau * pr.eq.Coeffs[i]
		}
		dst[i] = math.Max(pr.lower[i], math.Min(pr.upper[i], x))
	}
}

func (pr *projector) dot(x []float64) float64 {
	s := 0.0
	for i, a := range pr.eq.Coeffs {
		s += a * x[i]
	}
	return s
}

// Project returns the Euclidean projection of v. The equality multiplier is
// found by bisection (a.clip(v - tau*a) is non-increasing in tau) and the
// last rounding residual is spread over the coordinates not at a bound.
func (pr *projector) Project(v []float64) []float64 {
	x := make([]float64, len(v))
	if pr.eq == nil {
		pr.clip(v, 0, x)
		return x
	}
	b := pr.eq.Target
	g := func(tau float64) float64 {
		pr.clip(v, tau, x)
		return pr.dot(x)
	}

	lo, hi := -1.0, 1.0
	for k := 0; k < 2100 && g(lo) < b; k++ {
		lo *= 2
	}
	for k := 0; k < 2100 && g(hi) > b; k++ {
		hi *= 2
	}
	for k := 0; k < 200; k++ {
		mid := lo + (hi-lo)/2
		if mid == lo || mid == hi {
			break
		}
		if g(mid) > b {
			lo = mid
		} else {
			hi = mid
		}
	}
	pr.clip(v, lo+(hi-lo)/2, x)

	residual := b - pr.dot(x)
	var norm float64
	for i, a := range pr.eq.Coeffs {
		if x[i] > pr.lower[i] && x[i] < pr.upper[i] {
			norm += a * a
		}
	}
	if norm > 0 && residual != 0 {
		for i, a := range pr.eq.Coeffs {
			if x[i] > pr.lower[i] && x[i] < pr.upper[i] {
				x[i] = math.Max(pr.lower[i], math.Min(pr.upper[i], x[i]+residual*a/norm))
			}
		}
	}
	return x
}

// gradientOf returns the problem's gradient, or central differences of the
// objective when it has none.
func gradientOf(p Problem) func(grad, x []float64) {
	if p.Gradient != nil {
		return p.Gradient
	}
	return func(grad, x []float64) {
		fd.Gradient(grad, p.Objective, x, &fd.Settings{Formula: fd.Central})
	}
}

// stationarity is the first-order residual |x - P(x - g/s)|∞ with
// s = max(1, |g|∞). It is zero exactly at a KKT point of the constrained
// problem, whatever the gradient's scale.
func stationarity(p Problem, x []float64) (float64, error) {
	proj, err := newProjector(p)
	if err != nil {
		return 0, err
	}
	g := make([]float64, len(x))
	gradientOf(p)(g, x)
	scale := math.Max(1, normInf(g))
	trial := make([]float64, len(x))
	for i := range trial {
		trial[i] = x[i] - g[i]/scale
	}
	y := proj.Project(trial)
	r := 0.0
	for i := range x {
		r = math.Max(r, math.Abs(x[i]-y[i]))
	}
	return r, nil
}

// stationarityLimit is the residual a solution may carry and still count
// as converged under the given step tolerance.
func stationarityLimit(tol float64) float64 {
	return math.Max(math.Sqrt(tol), 1e-8)
}

func normInf(x []float64) float64 {
	m := 0.0
	for _, v := range x {
		m = math.Max(m, math.Abs(v))
	}
	return m
}
