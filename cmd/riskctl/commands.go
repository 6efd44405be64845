package main

import (
	"os"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/HimJar911/RiskSuite360/internal/domain"
	"github.com/HimJar911/RiskSuite360/internal/modules/covariance"
	"github.com/HimJar911/RiskSuite360/internal/modules/optimization"
	"github.com/HimJar911/RiskSuite360/internal/modules/prices"
	"github.com/HimJar911/RiskSuite360/internal/modules/report"
	"github.com/HimJar911/RiskSuite360/internal/modules/stress"
	"github.com/HimJar911/RiskSuite360/internal/modules/tailrisk"
	"github.com/HimJar911/RiskSuite360/internal/view"
)

func reportCmd(opts *options) *cobra.Command {
	var summary bool
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Assemble the full risk report for a weighted portfolio",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.buildSettings()
			if err != nil {
				return err
			}
			weights, err := opts.requireWeights()
			if err != nil {
				return err
			}
			px, err := opts.loadPrices(cmd, settings)
			if err != nil {
				return err
			}

			rep, err := report.NewAssembler(opts.logger(cmd), nil).Assemble(px, weights, settings)
			if err != nil {
				return err
			}
			if summary {
				return writeJSON(cmd.OutOrStdout(), view.Summary(report.Summarize(rep)))
			}
			return writeJSON(cmd.OutOrStdout(), view.Report(rep))
		},
	}
	cmd.Flags().BoolVar(&summary, "summary", false, "print only the headline figures")
	return cmd
}

type optimizeOutput struct {
	Assets        []string              `json:"assets"`
	MinVolatility view.OptimizationView `json:"min_volatility"`
	MaxSharpe     view.OptimizationView `json:"max_sharpe"`
}

func optimizeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Find the minimum-volatility and maximum-Sharpe portfolios",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.buildSettings()
			if err != nil {
				return err
			}
			px, err := opts.loadPrices(cmd, settings)
			if err != nil {
				return err
			}
			returns, err := prices.LogReturns(px)
			if err != nil {
				return err
			}
			if returns.NumAssets() < 2 {
				return domain.DataError("optimize", "at least two assets are required, got %d", returns.NumAssets())
			}

			opt := optimization.NewOptimizer(opts.logger(cmd), optimization.WithBudget(optimization.BudgetFrom(settings)))
			sigma, err := covariance.AnnualizedCovariance(returns, settings.Frequency())
			if err != nil {
				return err
			}
			minVar, err := opt.MinimumVariance(sigma, settings.AllowShort())
			if err != nil {
				return err
			}
			maxSharpe, err := opt.MaximumSharpe(returns, settings.RiskFreeRate(), settings.Frequency(), settings.AllowShort())
			if err != nil {
				return err
			}

			return writeJSON(cmd.OutOrStdout(), optimizeOutput{
				Assets:        returns.Assets,
				MinVolatility: view.Optimization(returns.Assets, minVar, false),
				MaxSharpe:     view.Optimization(returns.Assets, maxSharpe, true),
			})
		},
	}
}

type tailRiskOutput struct {
	ConfidenceLevel view.Num            `json:"confidence_level"`
	Assets          []view.TailRiskView `json:"assets"`
	Portfolio       *view.TailRiskView  `json:"portfolio,omitempty"`
}

func varCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "var",
		Short: "Historical and parametric VaR/CVaR per asset, and for the portfolio when --weights is set",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := opts.buildSettings()
			if err != nil {
				return err
			}
			weights, err := opts.parseWeights()
			if err != nil {
				return err
			}
			px, err := opts.loadPrices(cmd, settings)
			if err != nil {
				return err
			}
			returns, err := prices.LogReturns(px)
			if err != nil {
				return err
			}

			rows, err := tailrisk.Estimate(returns, settings.ConfidenceLevel())
			if err != nil {
				return err
			}
			out := tailRiskOutput{
				ConfidenceLevel: view.Num(settings.ConfidenceLevel()),
				Assets:          view.TailRisks(rows),
			}
			if weights != nil {
				if err := domain.ValidateWeights("var", weights, returns.NumAssets(), settings.WeightTolerance(), settings.AllowShort()); err != nil {
					return err
				}
				prow, err := tailrisk.Portfolio(returns, weights, settings.ConfidenceLevel())
				if err != nil {
					return err
				}
				pv := view.TailRisk(prow)
				out.Portfolio = &pv
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
}

func stressCmd(opts *options) *cobra.Command {
	var (
		scenariosPath string
		shockFlags    map[string]string
	)
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Revalue the portfolio under price shocks or a YAML scenario file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (scenariosPath == "") == (len(shockFlags) == 0) {
				return domain.ConfigError("stress", "set exactly one of --scenarios or --shock")
			}
			settings, err := opts.buildSettings()
			if err != nil {
				return err
			}
			weights, err := opts.requireWeights()
			if err != nil {
				return err
			}
			px, err := opts.loadPrices(cmd, settings)
			if err != nil {
				return err
			}

			if scenariosPath == "" {
				shocks, err := parseShocks(shockFlags)
				if err != nil {
					return err
				}
				res, err := stress.Simulate(px, weights, shocks)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), view.Stress("", res, shocks))
			}

			f, err := os.Open(scenariosPath)
			if err != nil {
				return domain.DataError("stress", "open scenarios: %v", err)
			}
			defer f.Close()
			scenarios, err := stress.LoadScenarios(f)
			if err != nil {
				return err
			}
			results, err := stress.RunScenarios(cmd.Context(), px, weights, scenarios)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), view.StressBatch(scenarios, results))
		},
	}
	cmd.Flags().StringVar(&scenariosPath, "scenarios", "", "YAML scenario file")
	cmd.Flags().StringToStringVar(&shockFlags, "shock", nil, "single shock as ASSET=PCT, e.g. AAPL=-0.2 (repeatable)")
	return cmd
}

func parseShocks(flags map[string]string) (stress.Shocks, error) {
	names := make([]string, 0, len(flags))
	for name := range flags {
		names = append(names, name)
	}
	sort.Strings(names)

	shocks := make(stress.Shocks, len(flags))
	for _, name := range names {
		v, err := strconv.ParseFloat(flags[name], 64)
		if err != nil {
			return nil, domain.ConfigError("stress", "shock for %q: %q is not a number", name, flags[name])
		}
		shocks[name] = v
	}
	return shocks, nil
}
