package optimization

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ProjectedGradient is a spectral projected-gradient method: each step
// projects x - t*grad back onto the feasible set, with a Barzilai-Borwein
// trial step and backtracking until the quadratic upper bound holds. It
// only ever visits feasible points.
type ProjectedGradient struct{}

func (ProjectedGradient) Name() string { return "projected-gradient" }

func (ProjectedGradient) Solve(p Problem, settings SolverSettings) (Solution, error) {
	proj, err := newProjector(p)
	if err != nil {
		return Solution{}, err
	}
	n := len(p.Initial)
	gradient := gradientOf(p)

	x := proj.Project(p.Initial)
	f := p.Objective(x)
	g := make([]float64, n)
	gPrev := make([]float64, n)
	trial := make([]float64, n)
	step := make([]float64, n)
	gradient(g, x)

	t := 1.0
	if gn := normInf(g); gn > 0 {
		t = 1 / gn
	}

	sol := Solution{Status: "IterationLimit"}
	for k := 1; k <= settings.MaxIterations; k++ {
		sol.Iterations = k

		var next []float64
		var fNext float64
		accepted := false
		for tries := 0; tries < 60; tries++ {
			for i := range trial {
				trial[i] = x[i] - t*g[i]
			}
			next = proj.Project(trial)
			fNext = p.Objective(next)
			floats.SubTo(step, next, x)
			bound := f + floats.Dot(g, step) + floats.Dot(step, step)/(2*t)
			if fNext <= bound {
				accepted = true
				break
			}
			t /= 2
		}
		if !accepted {
			sol.Status = "LineSearchStalled"
			break
		}

		moved := normInf(step)
		copy(gPrev, g)
		x, f = next, fNext
		if moved <= settings.Tolerance {
			sol.Converged = true
			sol.Status = "StepConvergence"
			break
		}

		gradient(g, x)
		// Barzilai-Borwein: t = s.s / s.y
		var ss, sy float64
		for i := range step {
			y := g[i] - gPrev[i]
			ss += step[i] * step[i]
			sy += step[i] * y
		}
		if sy > 0 {
			t = math.Min(math.Max(ss/sy, 1e-12), 1e12)
		} else {
			t = math.Min(2*t, 1e12)
		}
	}

	sol.X = x
	sol.F = f
	return sol, nil
}
