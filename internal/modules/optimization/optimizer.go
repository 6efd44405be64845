package optimization

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/HimJar911/RiskSuite360/internal/domain"
	"github.com/HimJar911/RiskSuite360/internal/modules/covariance"
	"github.com/HimJar911/RiskSuite360/pkg/formulas"
)

// OptimizationResult holds optimal weights and the diagnostics of the solve.
type OptimizationResult struct {
	Weights    []float64
	// Objective is the solver's objective at Weights (variance, or negative Sharpe)
	Objective  float64
	Variance   float64
	Volatility float64
	// Return and Sharpe are set by MaximumSharpe only
	Return     float64
	Sharpe     float64
	Solver     string
	Iterations int
	Converged  bool
	Status     string
	Warning    *domain.ConvergenceWarning
}

// Optimizer finds long-only or long-short fully invested portfolios.
type Optimizer struct {
	minVariance Solver
	maxSharpe   Solver
	budget      SolverSettings
	log         zerolog.Logger
}

// Option configures an Optimizer.
type Option func(*Optimizer)

// WithMinVarianceSolver replaces the solver used by MinimumVariance.
func WithMinVarianceSolver(s Solver) Option {
	return func(o *Optimizer) { o.minVariance = s }
}

// WithMaxSharpeSolver replaces the solver used by MaximumSharpe.
func WithMaxSharpeSolver(s Solver) Option {
	return func(o *Optimizer) { o.maxSharpe = s }
}

// WithBudget sets the solver tolerance and iteration cap.
func WithBudget(b SolverSettings) Option {
	return func(o *Optimizer) { o.budget = b }
}

// BudgetFrom reads the solver budget out of validated settings.
func BudgetFrom(s *domain.Settings) SolverSettings {
	return SolverSettings{Tolerance: s.SolverTolerance(), MaxIterations: s.MaxIterations()}
}

// NewOptimizer creates an optimizer. Both problems default to the
// projected-gradient solver; NewGonumSolver is the alternative.
func NewOptimizer(log zerolog.Logger, opts ...Option) *Optimizer {
	d := domain.DefaultSettingsInput()
	o := &Optimizer{
		minVariance: ProjectedGradient{},
		maxSharpe:   ProjectedGradient{},
		budget:      SolverSettings{Tolerance: d.SolverTolerance, MaxIterations: d.MaxIterations},
		log:         log.With().Str("component", "optimizer").Logger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func budgetProblem(n int, allowShort bool) Problem {
	ones := make([]float64, n)
	initial := make([]float64, n)
	for i := range ones {
		ones[i] = 1
		initial[i] = 1 / float64(n)
	}
	p := Problem{
		Equality: &LinearConstraint{Coeffs: ones, Target: 1},
		Initial:  initial,
	}
	if !allowShort {
		p.Lower = make([]float64, n)
		p.Upper = ones
	}
	return p
}

func checkCovariance(op string, sigma mat.Symmetric) (int, error) {
	n := sigma.SymmetricDim()
	if n == 0 {
		return 0, domain.DataError(op, "covariance matrix is empty")
	}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if v := sigma.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, domain.DataError(op, "covariance entry (%d,%d) is not finite", i, j)
			}
		}
	}
	return n, nil
}

// MinimumVariance minimizes w'Σw subject to sum(w) = 1, and 0 <= w <= 1
// unless shorting is allowed.
func (o *Optimizer) MinimumVariance(sigma mat.Symmetric, allowShort bool) (*OptimizationResult, error) {
	const op = "optimization.MinimumVariance"
	n, err := checkCovariance(op, sigma)
	if err != nil {
		return nil, err
	}

	p := budgetProblem(n, allowShort)
	scratch := mat.NewVecDense(n, nil)
	p.Objective = func(w []float64) float64 {
		return mat.Inner(mat.NewVecDense(n, w), sigma, mat.NewVecDense(n, w))
	}
	p.Gradient = func(grad, w []float64) {
		scratch.MulVec(sigma, mat.NewVecDense(n, w))
		for i := range grad {
			grad[i] = 2 * scratch.AtVec(i)
		}
	}

	sol, err := o.solve(op, o.minVariance, p)
	if err != nil {
		return nil, err
	}
	res := o.result(op, o.minVariance, sol)
	res.Variance = sol.F
	if res.Variance < 0 {
		res.Variance = 0
	}
	res.Volatility = math.Sqrt(res.Variance)
	return res, nil
}

// MaximumSharpe maximizes (μ'w - rf)/sqrt(w'Σw) using annualized mean
// returns and annualized sample covariance of the return panel.
func (o *Optimizer) MaximumSharpe(returns *domain.Panel, riskFreeRate float64, freq domain.Frequency, allowShort bool) (*OptimizationResult, error) {
	const op = "optimization.MaximumSharpe"
	ppy, err := freq.PeriodsPerYear()
	if err != nil {
		return nil, err
	}
	sigma, err := covariance.AnnualizedCovariance(returns, freq)
	if err != nil {
		return nil, err
	}
	n := returns.NumAssets()
	mu := make([]float64, n)
	for j, c := range returns.Columns {
		mu[j] = formulas.Mean(c) * float64(ppy)
	}

	var evalErr error
	portfolio := func(w []float64) (ret, vol float64) {
		wv := mat.NewVecDense(n, w)
		ret = mat.Dot(mat.NewVecDense(n, mu), wv)
		v := mat.Inner(wv, sigma, wv)
		if v <= 0 {
			return ret, 0
		}
		return ret, math.Sqrt(v)
	}

	p := budgetProblem(n, allowShort)
	p.Objective = func(w []float64) float64 {
		ret, vol := portfolio(w)
		if vol == 0 {
			if evalErr == nil {
				evalErr = domain.DomainError(op, "portfolio volatility is zero at weights %v", w)
			}
			return math.Inf(1)
		}
		return -(ret - riskFreeRate) / vol
	}
	scratch := mat.NewVecDense(n, nil)
	p.Gradient = func(grad, w []float64) {
		ret, vol := portfolio(w)
		if vol == 0 {
			for i := range grad {
				grad[i] = 0
			}
			return
		}
		scratch.MulVec(sigma, mat.NewVecDense(n, w))
		excess := ret - riskFreeRate
		for i := range grad {
			grad[i] = -(mu[i]/vol - excess*scratch.AtVec(i)/(vol*vol*vol))
		}
	}

	sol, err := o.solve(op, o.maxSharpe, p)
	if err != nil {
		return nil, err
	}
	if evalErr != nil {
		return nil, evalErr
	}
	res := o.result(op, o.maxSharpe, sol)
	ret, vol := portfolio(res.Weights)
	res.Return = ret
	res.Volatility = vol
	res.Variance = vol * vol
	res.Sharpe = -sol.F
	return res, nil
}

func (o *Optimizer) solve(op string, s Solver, p Problem) (Solution, error) {
	if len(p.Initial) == 1 {
		x := []float64{1}
		return Solution{X: x, F: p.Objective(x), Converged: true, Status: "Trivial"}, nil
	}
	sol, err := s.Solve(p, o.budget)
	if err != nil {
		return Solution{}, domain.DomainError(op, "%s: %v", s.Name(), err)
	}
	if !sol.Converged {
		return sol, nil
	}
	// Converged also requires a first-order stationary point
	r, err := stationarity(p, sol.X)
	if err != nil {
		return Solution{}, domain.DomainError(op, "%s: %v", s.Name(), err)
	}
	if limit := stationarityLimit(o.budget.Tolerance); !(r <= limit) {
		sol.Converged = false
		sol.Status = fmt.Sprintf("%s, not stationary (residual %.3g > %.3g)", sol.Status, r, limit)
	}
	return sol, nil
}

func (o *Optimizer) result(op string, s Solver, sol Solution) *OptimizationResult {
	res := &OptimizationResult{
		Weights:    sol.X,
		Objective:  sol.F,
		Solver:     s.Name(),
		Iterations: sol.Iterations,
		Converged:  sol.Converged,
		Status:     sol.Status,
	}
	o.log.Debug().
		Str("op", op).
		Str("solver", s.Name()).
		Int("iterations", sol.Iterations).
		Str("status", sol.Status).
		Float64("objective", sol.F).
		Msg("Optimization finished")
	if !sol.Converged {
		res.Warning = &domain.ConvergenceWarning{
			Status:     sol.Status,
			Iterations: sol.Iterations,
			Message:    "solver stopped before reaching tolerance; weights are the best feasible iterate",
		}
		o.log.Warn().
			Str("op", op).
			Str("solver", s.Name()).
			Int("iterations", sol.Iterations).
			Str("status", sol.Status).
			Msg("Optimization did not converge")
	}
	return res
}
