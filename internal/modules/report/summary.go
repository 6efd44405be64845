package report

import (
	"math"
	"time"

	"github.com/HimJar911/RiskSuite360/internal/domain"
	"github.com/HimJar911/RiskSuite360/internal/market_regime"
	"github.com/HimJar911/RiskSuite360/internal/modules/performance"
	"github.com/HimJar911/RiskSuite360/internal/modules/prices"
	"github.com/HimJar911/RiskSuite360/pkg/formulas"
)

// Summary is the compact view of a RiskReport.
type Summary struct {
	PortfolioReturn     float64              `json:"portfolio_return"`
	PortfolioVolatility float64              `json:"portfolio_volatility"`
	Sharpe              float64              `json:"sharpe_ratio"`
	CAGR                float64              `json:"cagr"`
	MaxDrawdown         float64              `json:"max_drawdown"`
	ParametricVaR       float64              `json:"parametric_var"`
	ParametricCVaR      float64              `json:"parametric_cvar"`
	WorstHistoricalVaR  float64              `json:"worst_historical_var"`
	WorstAsset          string               `json:"worst_asset"`
	CurrentVolatility   float64              `json:"current_volatility"`
	Regime              market_regime.Regime `json:"regime"`
}

// Summarize projects a report down to its headline numbers.
func Summarize(r *RiskReport) Summary {
	s := Summary{
		PortfolioReturn:     r.Portfolio.Return,
		PortfolioVolatility: r.Portfolio.Volatility,
		Sharpe:              r.Portfolio.Sharpe,
		CAGR:                r.Portfolio.CAGR,
		MaxDrawdown:         r.Portfolio.MaxDrawdown,
		ParametricVaR:       r.PortfolioTailRisk.ParametricVaR,
		ParametricCVaR:      r.PortfolioTailRisk.ParametricCVaR,
		WorstHistoricalVaR:  math.NaN(),
		CurrentVolatility:   math.NaN(),
		Regime:              market_regime.RegimeUnknown,
	}
	for _, row := range r.TailRisk {
		if math.IsNaN(s.WorstHistoricalVaR) || row.HistoricalVaR < s.WorstHistoricalVaR {
			s.WorstHistoricalVaR = row.HistoricalVaR
			s.WorstAsset = row.Asset
		}
	}
	if r.Regime != nil {
		if latest, ok := r.Regime.Latest(); ok {
			s.CurrentVolatility = latest.Volatility
			s.Regime = latest.Regime
		}
	}
	return s
}

// History is the time-series view: per-asset rolling volatility (regime
// convention), per-asset rolling Sharpe, the regime timeline and the
// cross-asset mean cumulative return.
type History struct {
	Assets            []string              `json:"assets"`
	Dates             []time.Time           `json:"dates,omitempty"`
	RollingVolatility [][]float64           `json:"rolling_volatility"`
	RollingSharpe     [][]float64           `json:"rolling_sharpe"`
	Regime            []market_regime.Point `json:"regime"`
	CumulativeReturn  []float64             `json:"cumulative_return"`
}

// History computes the rolling views of a price panel.
func (a *Assembler) History(px *domain.Panel, settings *domain.Settings) (h *History, err error) {
	start := time.Now()
	defer func() {
		a.metrics.ObserveAnalytics("history", time.Since(start), err)
	}()

	logReturns, err := prices.LogReturns(px)
	if err != nil {
		return nil, err
	}
	regime, err := market_regime.Detect(logReturns, settings.Window(), settings.HighVolThreshold(), settings.LowVolThreshold())
	if err != nil {
		return nil, err
	}

	h = &History{
		Assets:            append([]string(nil), px.Assets...),
		Dates:             logReturns.Dates,
		RollingVolatility: regime.AssetVolatility,
		RollingSharpe:     make([][]float64, logReturns.NumAssets()),
		Regime:            regime.Timeline,
	}
	for j, col := range logReturns.Columns {
		sharpe, err := performance.RollingSharpe(col, settings.Window(), settings.RiskFreeRate(), settings.Frequency())
		if err != nil {
			return nil, err
		}
		h.RollingSharpe[j] = sharpe
	}

	simple, err := prices.SimpleReturns(px)
	if err != nil {
		return nil, err
	}
	cumulative, err := prices.CumulativeReturns(simple)
	if err != nil {
		return nil, err
	}
	h.CumulativeReturn = make([]float64, cumulative.Len())
	row := make([]float64, cumulative.NumAssets())
	for t := range h.CumulativeReturn {
		for j, col := range cumulative.Columns {
			row[j] = col[t]
		}
		h.CumulativeReturn[t] = formulas.Mean(row)
	}

	a.log.Debug().
		Int("assets", px.NumAssets()).
		Int("window", settings.Window()).
		Msg("Risk history computed")
	return h, nil
}
