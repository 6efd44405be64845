package handlers

import (
	"math"

	"github.com/HimJar911/RiskSuite360/internal/domain"
	"github.com/HimJar911/RiskSuite360/internal/modules/prices"
	"github.com/HimJar911/RiskSuite360/internal/modules/stress"
	"github.com/HimJar911/RiskSuite360/internal/view"
)

const (
	SeriesPrices  = "prices"
	SeriesReturns = "returns"
)

// SeriesInput is one asset's values. A null value is a missing observation.
type SeriesInput struct {
	Asset  string     `json:"asset" validate:"required"`
	Values []*float64 `json:"values" validate:"required,min=1"`
}

// SettingsOverride replaces individual server defaults for one request.
type SettingsOverride struct {
	Frequency        *string  `json:"frequency,omitempty"`
	Window           *int     `json:"window,omitempty"`
	ConfidenceLevel  *float64 `json:"confidence_level,omitempty"`
	RiskFreeRate     *float64 `json:"risk_free_rate,omitempty"`
	HighVolThreshold *float64 `json:"high_vol_threshold,omitempty"`
	LowVolThreshold  *float64 `json:"low_vol_threshold,omitempty"`
	AllowShort       *bool    `json:"allow_short,omitempty"`
	SolverTolerance  *float64 `json:"solver_tolerance,omitempty"`
	MaxIterations    *int     `json:"max_iterations,omitempty"`
	WeightTolerance  *float64 `json:"weight_tolerance,omitempty"`
}

// apply merges o into a copy of in. A nil override returns in unchanged.
func (o *SettingsOverride) apply(in domain.SettingsInput) domain.SettingsInput {
	if o == nil {
		return in
	}
	if o.Frequency != nil {
		in.Frequency = *o.Frequency
	}
	if o.Window != nil {
		in.Window = *o.Window
	}
	if o.ConfidenceLevel != nil {
		in.ConfidenceLevel = *o.ConfidenceLevel
	}
	if o.RiskFreeRate != nil {
		in.RiskFreeRate = *o.RiskFreeRate
	}
	if o.HighVolThreshold != nil {
		in.HighVolThreshold = *o.HighVolThreshold
	}
	if o.LowVolThreshold != nil {
		in.LowVolThreshold = *o.LowVolThreshold
	}
	if o.AllowShort != nil {
		in.AllowShort = *o.AllowShort
	}
	if o.SolverTolerance != nil {
		in.SolverTolerance = *o.SolverTolerance
	}
	if o.MaxIterations != nil {
		in.MaxIterations = *o.MaxIterations
	}
	if o.WeightTolerance != nil {
		in.WeightTolerance = *o.WeightTolerance
	}
	return in
}

// AnalyticsRequest is the body shared by every analytics route.
type AnalyticsRequest struct {
	Series  []SeriesInput `json:"series" validate:"required,min=1,dive"`
	Dates   []string      `json:"dates,omitempty"`
	Weights []float64     `json:"weights,omitempty"`
	// SeriesKind is "prices" (default) or "returns"; only the return-based
	// routes accept returns
	SeriesKind string            `json:"series_kind,omitempty" validate:"omitempty,oneof=prices returns"`
	Resample   bool              `json:"resample,omitempty"`
	Settings   *SettingsOverride `json:"settings,omitempty"`
}

func (req *AnalyticsRequest) raw() prices.RawPanel {
	raw := prices.RawPanel{
		Dates:   req.Dates,
		Assets:  make([]string, len(req.Series)),
		Columns: make([][]float64, len(req.Series)),
	}
	for j, s := range req.Series {
		raw.Assets[j] = s.Asset
		col := make([]float64, len(s.Values))
		for i, v := range s.Values {
			if v == nil {
				col[i] = math.NaN()
			} else {
				col[i] = *v
			}
		}
		raw.Columns[j] = col
	}
	return raw
}

func (req *AnalyticsRequest) returnsInput() bool {
	return req.SeriesKind == SeriesReturns
}

type StressRequest struct {
	AnalyticsRequest
	Shocks stress.Shocks `json:"shocks" validate:"required,min=1"`
}

type BatchStressRequest struct {
	AnalyticsRequest
	Scenarios []stress.Scenario `json:"scenarios" validate:"required,min=1,dive"`
}

type CovarianceRequest struct {
	AnalyticsRequest
	// EWSpan enables the exponentially weighted estimate when set
	EWSpan float64 `json:"ew_span,omitempty" validate:"omitempty,gte=1"`
	// Pair asks for the rolling correlation of two assets
	Pair []string `json:"pair,omitempty" validate:"omitempty,len=2,dive,required"`
}

// Response bodies

type envelope struct {
	Data     interface{} `json:"data"`
	Metadata metadata    `json:"metadata"`
}

type metadata struct {
	Timestamp string `json:"timestamp"`
	ReportID  string `json:"report_id"`
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type optimizeResponse struct {
	Assets        []string              `json:"assets"`
	MinVolatility view.OptimizationView `json:"min_volatility"`
	MaxSharpe     view.OptimizationView `json:"max_sharpe"`
}

type tailRiskResponse struct {
	ConfidenceLevel view.Num            `json:"confidence_level"`
	Assets          []view.TailRiskView `json:"assets"`
	Portfolio       *view.TailRiskView  `json:"portfolio,omitempty"`
}

type ewResponse struct {
	Row  int    `json:"row"`
	Date string `json:"date,omitempty"`
	view.MatrixView
}

type pairResponse struct {
	Assets      []string   `json:"assets"`
	Window      int        `json:"window"`
	Correlation []view.Num `json:"correlation"`
}

type covarianceResponse struct {
	Covariance           view.MatrixView `json:"covariance"`
	AnnualizedCovariance view.MatrixView `json:"annualized_covariance"`
	Correlation          view.MatrixView `json:"correlation"`
	EWCovariance         *ewResponse     `json:"ew_covariance,omitempty"`
	RollingCorrelation   *pairResponse   `json:"rolling_correlation,omitempty"`
}
