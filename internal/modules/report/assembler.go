// Package report assembles the full portfolio risk report from the
// analytics modules. It adds no computation of its own.
package report

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/HimJar911/RiskSuite360/internal/domain"
	"github.com/HimJar911/RiskSuite360/internal/market_regime"
	"github.com/HimJar911/RiskSuite360/internal/metrics"
	"github.com/HimJar911/RiskSuite360/internal/modules/covariance"
	"github.com/HimJar911/RiskSuite360/internal/modules/performance"
	"github.com/HimJar911/RiskSuite360/internal/modules/prices"
	"github.com/HimJar911/RiskSuite360/internal/modules/risk"
	"github.com/HimJar911/RiskSuite360/internal/modules/tailrisk"
	"github.com/HimJar911/RiskSuite360/pkg/formulas"
)

// PortfolioStats are the headline portfolio figures. Return and Volatility
// come from log returns and the annualized covariance; the ratios come from
// the constant-weight simple-return portfolio series.
type PortfolioStats struct {
	Return      float64 `json:"return"`
	Volatility  float64 `json:"volatility"`
	Sharpe      float64 `json:"sharpe"`
	Sortino     float64 `json:"sortino"`
	Calmar      float64 `json:"calmar"`
	CAGR        float64 `json:"cagr"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// RiskReport is the assembled output. Treat it as read-only.
type RiskReport struct {
	GeneratedAt       time.Time                  `json:"generated_at"`
	Assets            []string                   `json:"assets"`
	Weights           []float64                  `json:"weights"`
	Settings          domain.SettingsInput       `json:"settings"`
	Dates             []time.Time                `json:"dates,omitempty"`
	Portfolio         PortfolioStats             `json:"portfolio"`
	AssetPerformance  []performance.AssetMetrics `json:"asset_performance"`
	RiskContributions *risk.Decomposition        `json:"risk_contributions"`
	TailRisk          []tailrisk.AssetTailRisk   `json:"tail_risk"`
	PortfolioTailRisk tailrisk.AssetTailRisk     `json:"portfolio_tail_risk"`
	Covariance        covariance.Matrix          `json:"-"`
	Correlation       covariance.Matrix          `json:"-"`
	Regime            *market_regime.Detection   `json:"regime"`
}

// Assembler runs the analytics pipeline.
type Assembler struct {
	log     zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewAssembler creates an assembler. m may be nil.
func NewAssembler(log zerolog.Logger, m *metrics.Metrics) *Assembler {
	return &Assembler{
		log:     log.With().Str("component", "report").Logger(),
		metrics: m,
		now:     time.Now,
	}
}

// Assemble builds the report for a cleaned price panel. Any failing step
// fails the whole report.
func (a *Assembler) Assemble(px *domain.Panel, weights []float64, settings *domain.Settings) (report *RiskReport, err error) {
	const op = "report.Assemble"
	start := time.Now()
	defer func() {
		a.metrics.ObserveAnalytics("report", time.Since(start), err)
	}()

	if err := domain.ValidateWeights(op, weights, px.NumAssets(), settings.WeightTolerance(), settings.AllowShort()); err != nil {
		return nil, err
	}
	freq := settings.Frequency()
	ppy := float64(settings.PeriodsPerYear())

	logReturns, err := prices.LogReturns(px)
	if err != nil {
		return nil, err
	}

	regime, err := market_regime.Detect(logReturns, settings.Window(), settings.HighVolThreshold(), settings.LowVolThreshold())
	if err != nil {
		return nil, err
	}

	sigma, err := covariance.AnnualizedCovariance(logReturns, freq)
	if err != nil {
		return nil, err
	}
	var expected float64
	for j, col := range logReturns.Columns {
		expected += weights[j] * formulas.Mean(col) * ppy
	}

	decomposition, err := risk.Decompose(px.Assets, weights, sigma)
	if err != nil {
		return nil, err
	}

	tail, err := tailrisk.Estimate(logReturns, settings.ConfidenceLevel())
	if err != nil {
		return nil, err
	}

	simple, err := prices.SimpleReturns(px)
	if err != nil {
		return nil, err
	}
	portfolioSeries, err := risk.ProjectReturns(simple, weights)
	if err != nil {
		return nil, err
	}
	portfolioPerf, err := performance.Compute(portfolioSeries.Columns[0], settings.RiskFreeRate(), freq)
	if err != nil {
		return nil, err
	}
	assetPerf, err := performance.Summarize(simple, settings.RiskFreeRate(), freq)
	if err != nil {
		return nil, err
	}
	portfolioTail, err := tailrisk.Portfolio(logReturns, weights, settings.ConfidenceLevel())
	if err != nil {
		return nil, err
	}

	corr, err := covariance.Correlation(logReturns)
	if err != nil {
		return nil, err
	}

	report = &RiskReport{
		GeneratedAt: a.now().UTC(),
		Assets:      append([]string(nil), px.Assets...),
		Weights:     append([]float64(nil), weights...),
		Settings:    settings.Input(),
		Dates:       logReturns.Dates,
		Portfolio: PortfolioStats{
			Return:      expected,
			Volatility:  decomposition.Volatility,
			Sharpe:      portfolioPerf.Sharpe,
			Sortino:     portfolioPerf.Sortino,
			Calmar:      portfolioPerf.Calmar,
			CAGR:        portfolioPerf.CAGR,
			MaxDrawdown: portfolioPerf.MaxDrawdown,
		},
		AssetPerformance:  assetPerf,
		RiskContributions: decomposition,
		TailRisk:          tail,
		PortfolioTailRisk: portfolioTail,
		Covariance:        sigma,
		Correlation:       corr,
		Regime:            regime,
	}

	a.log.Debug().
		Int("assets", px.NumAssets()).
		Int("rows", px.Len()).
		Str("frequency", string(freq)).
		Dur("elapsed", time.Since(start)).
		Msg("Risk report assembled")
	return report, nil
}
