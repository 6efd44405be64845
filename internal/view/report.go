package view

import (
	"time"

	"github.com/HimJar911/RiskSuite360/internal/domain"
	"github.com/HimJar911/RiskSuite360/internal/market_regime"
	"github.com/HimJar911/RiskSuite360/internal/modules/covariance"
	"github.com/HimJar911/RiskSuite360/internal/modules/optimization"
	"github.com/HimJar911/RiskSuite360/internal/modules/performance"
	"github.com/HimJar911/RiskSuite360/internal/modules/report"
	"github.com/HimJar911/RiskSuite360/internal/modules/risk"
	"github.com/HimJar911/RiskSuite360/internal/modules/stress"
	"github.com/HimJar911/RiskSuite360/internal/modules/tailrisk"
)

// MatrixView is an asset-labelled square matrix.
type MatrixView struct {
	Assets []string `json:"assets"`
	Values [][]Num  `json:"values"`
}

func Matrix(m covariance.Matrix) MatrixView {
	if m.SymDense == nil {
		return MatrixView{Assets: m.Assets}
	}
	return MatrixView{Assets: m.Assets, Values: Grid(m.Rows())}
}

type MetricsView struct {
	Asset       string `json:"asset,omitempty"`
	Return      Num    `json:"return"`
	Volatility  Num    `json:"volatility"`
	Sharpe      Num    `json:"sharpe"`
	Sortino     Num    `json:"sortino"`
	CAGR        Num    `json:"cagr"`
	MaxDrawdown Num    `json:"max_drawdown"`
	Calmar      Num    `json:"calmar"`
	Skewness    Num    `json:"skewness"`
	Kurtosis    Num    `json:"kurtosis"`
}

func Metrics(asset string, m performance.Metrics) MetricsView {
	return MetricsView{
		Asset:       asset,
		Return:      Num(m.Return),
		Volatility:  Num(m.Volatility),
		Sharpe:      Num(m.Sharpe),
		Sortino:     Num(m.Sortino),
		CAGR:        Num(m.CAGR),
		MaxDrawdown: Num(m.MaxDrawdown),
		Calmar:      Num(m.Calmar),
		Skewness:    Num(m.Skewness),
		Kurtosis:    Num(m.Kurtosis),
	}
}

type ContributionView struct {
	Asset     string `json:"asset"`
	Weight    Num    `json:"weight"`
	Marginal  Num    `json:"marginal"`
	Component Num    `json:"component"`
	Percent   Num    `json:"percent"`
}

type DecompositionView struct {
	Variance      Num                `json:"variance"`
	Volatility    Num                `json:"volatility"`
	Contributions []ContributionView `json:"contributions"`
}

func Decomposition(d *risk.Decomposition) DecompositionView {
	if d == nil {
		return DecompositionView{}
	}
	out := DecompositionView{
		Variance:      Num(d.Variance),
		Volatility:    Num(d.Volatility),
		Contributions: make([]ContributionView, len(d.Contributions)),
	}
	for i, c := range d.Contributions {
		out.Contributions[i] = ContributionView{
			Asset:     c.Asset,
			Weight:    Num(c.Weight),
			Marginal:  Num(c.Marginal),
			Component: Num(c.Component),
			Percent:   Num(c.Percent),
		}
	}
	return out
}

type TailRiskView struct {
	Asset          string `json:"asset"`
	Confidence     Num    `json:"confidence"`
	HistoricalVaR  Num    `json:"historical_var"`
	HistoricalCVaR Num    `json:"historical_cvar"`
	ParametricVaR  Num    `json:"parametric_var"`
	ParametricCVaR Num    `json:"parametric_cvar"`
}

func TailRisk(t tailrisk.AssetTailRisk) TailRiskView {
	return TailRiskView{
		Asset:          t.Asset,
		Confidence:     Num(t.Confidence),
		HistoricalVaR:  Num(t.HistoricalVaR),
		HistoricalCVaR: Num(t.HistoricalCVaR),
		ParametricVaR:  Num(t.ParametricVaR),
		ParametricCVaR: Num(t.ParametricCVaR),
	}
}

func TailRisks(rows []tailrisk.AssetTailRisk) []TailRiskView {
	out := make([]TailRiskView, len(rows))
	for i, r := range rows {
		out[i] = TailRisk(r)
	}
	return out
}

type PointView struct {
	Row        int    `json:"row"`
	Date       string `json:"date,omitempty"`
	Volatility Num    `json:"volatility"`
	Regime     string `json:"regime"`
}

func Points(ps []market_regime.Point) []PointView {
	out := make([]PointView, len(ps))
	for i, p := range ps {
		out[i] = PointView{Row: p.Row, Date: Date(p.Date), Volatility: Num(p.Volatility), Regime: string(p.Regime)}
	}
	return out
}

type RegimeView struct {
	Window          int         `json:"window"`
	Current         string      `json:"current"`
	Assets          []string    `json:"assets"`
	AssetVolatility [][]Num     `json:"asset_volatility"`
	Timeline        []PointView `json:"timeline"`
}

func Regime(d *market_regime.Detection) RegimeView {
	if d == nil {
		return RegimeView{Current: string(market_regime.RegimeUnknown)}
	}
	out := RegimeView{
		Window:          d.Window,
		Current:         string(market_regime.RegimeUnknown),
		Assets:          d.Assets,
		AssetVolatility: Grid(d.AssetVolatility),
		Timeline:        Points(d.Timeline),
	}
	if latest, ok := d.Latest(); ok {
		out.Current = string(latest.Regime)
	}
	return out
}

type PortfolioView struct {
	Return      Num `json:"return"`
	Volatility  Num `json:"volatility"`
	Sharpe      Num `json:"sharpe"`
	Sortino     Num `json:"sortino"`
	Calmar      Num `json:"calmar"`
	CAGR        Num `json:"cagr"`
	MaxDrawdown Num `json:"max_drawdown"`
}

// ReportView is the wire form of report.RiskReport.
type ReportView struct {
	GeneratedAt       string               `json:"generated_at"`
	Assets            []string             `json:"assets"`
	Weights           []Num                `json:"weights"`
	Settings          domain.SettingsInput `json:"settings"`
	Dates             []string             `json:"dates,omitempty"`
	Portfolio         PortfolioView        `json:"portfolio"`
	AssetPerformance  []MetricsView        `json:"asset_performance"`
	RiskContributions DecompositionView    `json:"risk_contributions"`
	TailRisk          []TailRiskView       `json:"tail_risk"`
	PortfolioTailRisk TailRiskView         `json:"portfolio_tail_risk"`
	Covariance        MatrixView           `json:"covariance"`
	Correlation       MatrixView           `json:"correlation"`
	Regime            RegimeView           `json:"regime"`
}

func Report(r *report.RiskReport) ReportView {
	out := ReportView{
		GeneratedAt: r.GeneratedAt.Format(time.RFC3339),
		Assets:      r.Assets,
		Weights:     Nums(r.Weights),
		Settings:    r.Settings,
		Dates:       Dates(r.Dates),
		Portfolio: PortfolioView{
			Return:      Num(r.Portfolio.Return),
			Volatility:  Num(r.Portfolio.Volatility),
			Sharpe:      Num(r.Portfolio.Sharpe),
			Sortino:     Num(r.Portfolio.Sortino),
			Calmar:      Num(r.Portfolio.Calmar),
			CAGR:        Num(r.Portfolio.CAGR),
			MaxDrawdown: Num(r.Portfolio.MaxDrawdown),
		},
		AssetPerformance:  make([]MetricsView, len(r.AssetPerformance)),
		RiskContributions: Decomposition(r.RiskContributions),
		TailRisk:          TailRisks(r.TailRisk),
		PortfolioTailRisk: TailRisk(r.PortfolioTailRisk),
		Covariance:        Matrix(r.Covariance),
		Correlation:       Matrix(r.Correlation),
		Regime:            Regime(r.Regime),
	}
	for i, m := range r.AssetPerformance {
		out.AssetPerformance[i] = Metrics(m.Asset, m.Metrics)
	}
	return out
}

type SummaryView struct {
	PortfolioReturn     Num    `json:"portfolio_return"`
	PortfolioVolatility Num    `json:"portfolio_volatility"`
	Sharpe              Num    `json:"sharpe_ratio"`
	CAGR                Num    `json:"cagr"`
	MaxDrawdown         Num    `json:"max_drawdown"`
	ParametricVaR       Num    `json:"parametric_var"`
	ParametricCVaR      Num    `json:"parametric_cvar"`
	WorstHistoricalVaR  Num    `json:"worst_historical_var"`
	WorstAsset          string `json:"worst_asset,omitempty"`
	CurrentVolatility   Num    `json:"current_volatility"`
	Regime              string `json:"regime"`
}

func Summary(s report.Summary) SummaryView {
	return SummaryView{
		PortfolioReturn:     Num(s.PortfolioReturn),
		PortfolioVolatility: Num(s.PortfolioVolatility),
		Sharpe:              Num(s.Sharpe),
		CAGR:                Num(s.CAGR),
		MaxDrawdown:         Num(s.MaxDrawdown),
		ParametricVaR:       Num(s.ParametricVaR),
		ParametricCVaR:      Num(s.ParametricCVaR),
		WorstHistoricalVaR:  Num(s.WorstHistoricalVaR),
		WorstAsset:          s.WorstAsset,
		CurrentVolatility:   Num(s.CurrentVolatility),
		Regime:              string(s.Regime),
	}
}

type HistoryView struct {
	Assets            []string    `json:"assets"`
	Dates             []string    `json:"dates,omitempty"`
	RollingVolatility [][]Num     `json:"rolling_volatility"`
	RollingSharpe     [][]Num     `json:"rolling_sharpe"`
	Regime            []PointView `json:"regime"`
	CumulativeReturn  []Num       `json:"cumulative_return"`
}

func History(h *report.History) HistoryView {
	return HistoryView{
		Assets:            h.Assets,
		Dates:             Dates(h.Dates),
		RollingVolatility: Grid(h.RollingVolatility),
		RollingSharpe:     Grid(h.RollingSharpe),
		Regime:            Points(h.Regime),
		CumulativeReturn:  Nums(h.CumulativeReturn),
	}
}

type OptimizationView struct {
	Weights    map[string]Num             `json:"weights"`
	Objective  Num                        `json:"objective"`
	Return     Num                        `json:"expected_return"`
	Volatility Num                        `json:"volatility"`
	Sharpe     Num                        `json:"sharpe"`
	Solver     string                     `json:"solver"`
	Iterations int                        `json:"iterations"`
	Converged  bool                       `json:"converged"`
	Status     string                     `json:"status"`
	Warning    *domain.ConvergenceWarning `json:"warning,omitempty"`
}

// Optimization renders a result. Return and Sharpe are null for minimum
// variance, which does not compute them.
func Optimization(assets []string, r *optimization.OptimizationResult, withReturn bool) OptimizationView {
	out := OptimizationView{
		Weights:    make(map[string]Num, len(assets)),
		Objective:  Num(r.Objective),
		Return:     nan,
		Volatility: Num(r.Volatility),
		Sharpe:     nan,
		Solver:     r.Solver,
		Iterations: r.Iterations,
		Converged:  r.Converged,
		Status:     r.Status,
		Warning:    r.Warning,
	}
	for i, a := range assets {
		out.Weights[a] = Num(r.Weights[i])
	}
	if withReturn {
		out.Return = Num(r.Return)
		out.Sharpe = Num(r.Sharpe)
	}
	return out
}

type StressView struct {
	Name           string        `json:"name,omitempty"`
	PreShockValue  Num           `json:"pre_shock_value"`
	PostShockValue Num           `json:"post_shock_value"`
	ChangePercent  Num           `json:"portfolio_value_change_percent"`
	Shocks         stress.Shocks `json:"shocks,omitempty"`
}

func Stress(name string, r stress.Result, shocks stress.Shocks) StressView {
	return StressView{
		Name:           name,
		PreShockValue:  Num(r.PreShockValue),
		PostShockValue: Num(r.PostShockValue),
		ChangePercent:  Num(r.ChangePercent),
		Shocks:         shocks,
	}
}

// StressBatch renders scenario results in scenario order.
func StressBatch(scenarios []stress.Scenario, results []stress.ScenarioResult) []StressView {
	out := make([]StressView, len(results))
	for i, r := range results {
		out[i] = Stress(r.Name, r.Result, scenarios[i].Shocks)
	}
	return out
}
