package optimization

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGonumSolver_MinimumVariance(t *testing.T) {
	settings := SolverSettings{Tolerance: 1e-10, MaxIterations: 1000}

	t.Run("interior optimum", func(t *testing.T) {
		f, _ := quadratic([][]float64{{0.04, 0.01}, {0.01, 0.03}})
		p := simplexProblem(2)
		p.Objective = f

		sol, err := NewGonumSolver().Solve(p, settings)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{0.4, 0.6}, sol.X, 1e-4)
		assert.InDelta(t, 1.0, sol.X[0]+sol.X[1], 1e-12)
	})

	t.Run("corner optimum when long-only", func(t *testing.T) {
		f, _ := quadratic([][]float64{{0.01, 0.015}, {0.015, 0.04}})
		p := simplexProblem(2)
		p.Objective = f

		sol, err := NewGonumSolver().Solve(p, settings)
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float64{1, 0}, sol.X, 1e-3)
		assert.GreaterOrEqual(t, sol.X[1], 0.0)
	})
}

func TestGonumSolver_NeverWorseThanStart(t *testing.T) {
	f, _ := quadratic([][]float64{{0.09, 0.01, 0.0}, {0.01, 0.04, 0.005}, {0.0, 0.005, 0.01}})
	p := simplexProblem(3)
	p.Objective = f

	sol, err := NewGonumSolver().Solve(p, SolverSettings{Tolerance: 1e-12, MaxIterations: 2})
	require.NoError(t, err)
	assert.LessOrEqual(t, sol.F, f(p.Initial))
}

func TestGonumSolver_Name(t *testing.T) {
	assert.Equal(t, "gonum-bfgs", NewGonumSolver().Name())
	assert.Equal(t, "projected-gradient", ProjectedGradient{}.Name())
}
