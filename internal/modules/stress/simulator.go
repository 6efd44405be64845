// Package stress revalues a weighted portfolio under instantaneous
// percentage price shocks.
package stress

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/HimJar911/RiskSuite360/internal/domain"
)

// Shocks maps asset name to a fractional price change (-0.2 is a 20% drop,
// -1 wipes the asset out). Shocks below -1 would price an asset negative.
type Shocks map[string]float64

// Result is the portfolio value before and after a shock. Weights are
// capital fractions, so the pre-shock value is their sum.
type Result struct {
	PreShockValue  float64 `json:"pre_shock_value"`
	PostShockValue float64 `json:"post_shock_value"`
	ChangePercent  float64 `json:"change_percent"`
}

// Scenario is a named set of shocks.
type Scenario struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description"`
	Shocks      Shocks `json:"shocks" yaml:"shocks"`
}

// ScenarioResult pairs a scenario name with its outcome.
type ScenarioResult struct {
	Name string `json:"name"`
	Result
}

func (s Shocks) validate(op string, prices *domain.Panel) error {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		pct := s[name]
		if prices.Index(name) < 0 {
			return domain.DataError(op, "shock names unknown asset %q", name)
		}
		if math.IsNaN(pct) || math.IsInf(pct, 0) {
			return domain.DataError(op, "shock for %q is not finite", name)
		}
		if pct < -1 {
			return domain.DomainError(op, "shock for %q is %g, a price drop of more than 100%%", name, pct)
		}
	}
	return nil
}

// ApplyShock returns a copy of the price panel with every named asset's
// series multiplied by (1+pct). Other assets are unchanged.
func ApplyShock(prices *domain.Panel, shocks Shocks) (*domain.Panel, error) {
	if err := shocks.validate("stress.ApplyShock", prices); err != nil {
		return nil, err
	}
	out := prices.Clone()
	for name, pct := range shocks {
		col := out.Columns[out.Index(name)]
		for t := range col {
			col[t] *= 1 + pct
		}
	}
	return out, nil
}

// Simulate revalues the portfolio on the most recent price row.
func Simulate(prices *domain.Panel, weights []float64, shocks Shocks) (Result, error) {
	const op = "stress.Simulate"
	if len(weights) != prices.NumAssets() {
		return Result{}, domain.DataError(op, "%d weights for %d assets", len(weights), prices.NumAssets())
	}
	if prices.Len() == 0 {
		return Result{}, domain.DataError(op, "price panel has no rows")
	}
	shocked, err := ApplyShock(prices, shocks)
	if err != nil {
		return Result{}, err
	}

	last := prices.Len() - 1
	var pre, post float64
	for j, w := range weights {
		p := prices.Columns[j][last]
		if !(p > 0) {
			return Result{}, domain.DataError(op, "latest price of %q is %g", prices.Assets[j], p)
		}
		pre += w
		post += w * shocked.Columns[j][last] / p
	}
	if pre == 0 {
		return Result{}, domain.DomainError(op, "pre-shock portfolio value is zero")
	}
	return Result{
		PreShockValue:  pre,
		PostShockValue: post,
		ChangePercent:  100 * (post - pre) / pre,
	}, nil
}

// RunScenarios simulates every scenario concurrently. Results keep the
// input order; the first failure cancels the rest.
func RunScenarios(ctx context.Context, prices *domain.Panel, weights []float64, scenarios []Scenario) ([]ScenarioResult, error) {
	results := make([]ScenarioResult, len(scenarios))
	g, ctx := errgroup.WithContext(ctx)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := Simulate(prices, weights, sc.Shocks)
			if err != nil {
				return fmt.Errorf("scenario %q: %w", sc.Name, err)
			}
			results[i] = ScenarioResult{Name: sc.Name, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
