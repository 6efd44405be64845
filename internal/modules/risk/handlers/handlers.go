// Package handlers provides HTTP handlers for the portfolio risk analytics.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/HimJar911/RiskSuite360/internal/domain"
	"github.com/HimJar911/RiskSuite360/internal/metrics"
	"github.com/HimJar911/RiskSuite360/internal/modules/covariance"
	"github.com/HimJar911/RiskSuite360/internal/modules/optimization"
	"github.com/HimJar911/RiskSuite360/internal/modules/prices"
	"github.com/HimJar911/RiskSuite360/internal/modules/report"
	"github.com/HimJar911/RiskSuite360/internal/modules/stress"
	"github.com/HimJar911/RiskSuite360/internal/modules/tailrisk"
	"github.com/HimJar911/RiskSuite360/internal/view"
)

const (
	maxBodyBytes   = 16 << 20
	contentMsgpack = "application/msgpack"
	kindRequest    = "request"
	kindValidation = "validation"
	kindInternal   = "internal"
)

// Handler handles risk analytics HTTP requests
type Handler struct {
	defaults  domain.SettingsInput
	assembler *report.Assembler
	metrics   *metrics.Metrics
	validate  *validator.Validate
	log       zerolog.Logger
	now       func() time.Time
}

// NewHandler creates a new risk analytics handler. defaults apply to any
// setting a request does not override; m may be nil.
func NewHandler(defaults domain.SettingsInput, m *metrics.Metrics, log zerolog.Logger) *Handler {
	return &Handler{
		defaults:  defaults,
		assembler: report.NewAssembler(log, m),
		metrics:   m,
		validate:  validator.New(),
		log:       log.With().Str("handler", "risk").Logger(),
		now:       time.Now,
	}
}

// HandleRiskReport handles POST /api/risk-report
func (h *Handler) HandleRiskReport(w http.ResponseWriter, r *http.Request) {
	var req AnalyticsRequest
	if !h.decode(w, r, &req) {
		return
	}
	rep, err := h.assemble(&req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResponse(w, r, http.StatusOK, view.Report(rep))
}

// HandleRiskSummary handles POST /api/risk-summary
func (h *Handler) HandleRiskSummary(w http.ResponseWriter, r *http.Request) {
	var req AnalyticsRequest
	if !h.decode(w, r, &req) {
		return
	}
	rep, err := h.assemble(&req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResponse(w, r, http.StatusOK, view.Summary(report.Summarize(rep)))
}

// HandleRiskHistory handles POST /api/risk-history
func (h *Handler) HandleRiskHistory(w http.ResponseWriter, r *http.Request) {
	var req AnalyticsRequest
	if !h.decode(w, r, &req) {
		return
	}
	px, settings, err := h.loadPrices(&req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	hist, err := h.assembler.History(px, settings)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResponse(w, r, http.StatusOK, view.History(hist))
}

// HandleOptimize handles POST /api/optimize
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	const op = "optimize"
	var req AnalyticsRequest
	if !h.decode(w, r, &req) {
		return
	}

	start := time.Now()
	resp, err := h.optimize(&req)
	h.metrics.ObserveAnalytics(op, time.Since(start), err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResponse(w, r, http.StatusOK, resp)
}

func (h *Handler) optimize(req *AnalyticsRequest) (*optimizeResponse, error) {
	returns, settings, err := h.loadReturns(req)
	if err != nil {
		return nil, err
	}
	if returns.NumAssets() < 2 {
		return nil, domain.DataError("optimize", "at least two assets are required, got %d", returns.NumAssets())
	}

	opt := optimization.NewOptimizer(h.log, optimization.WithBudget(optimization.BudgetFrom(settings)))
	sigma, err := covariance.AnnualizedCovariance(returns, settings.Frequency())
	if err != nil {
		return nil, err
	}
	minVar, err := opt.MinimumVariance(sigma, settings.AllowShort())
	if err != nil {
		return nil, err
	}
	h.metrics.ObserveOptimization("min_variance", minVar.Solver, minVar.Iterations, minVar.Converged)

	maxSharpe, err := opt.MaximumSharpe(returns, settings.RiskFreeRate(), settings.Frequency(), settings.AllowShort())
	if err != nil {
		return nil, err
	}
	h.metrics.ObserveOptimization("max_sharpe", maxSharpe.Solver, maxSharpe.Iterations, maxSharpe.Converged)

	return &optimizeResponse{
		Assets:        returns.Assets,
		MinVolatility: view.Optimization(returns.Assets, minVar, false),
		MaxSharpe:     view.Optimization(returns.Assets, maxSharpe, true),
	}, nil
}

// HandleVaRCVaR handles POST /api/var-cvar
func (h *Handler) HandleVaRCVaR(w http.ResponseWriter, r *http.Request) {
	const op = "var_cvar"
	var req AnalyticsRequest
	if !h.decode(w, r, &req) {
		return
	}

	start := time.Now()
	resp, err := h.tailRisk(&req)
	h.metrics.ObserveAnalytics(op, time.Since(start), err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResponse(w, r, http.StatusOK, resp)
}

func (h *Handler) tailRisk(req *AnalyticsRequest) (*tailRiskResponse, error) {
	const op = "var_cvar"
	returns, settings, err := h.loadReturns(req)
	if err != nil {
		return nil, err
	}
	rows, err := tailrisk.Estimate(returns, settings.ConfidenceLevel())
	if err != nil {
		return nil, err
	}
	resp := &tailRiskResponse{
		ConfidenceLevel: view.Num(settings.ConfidenceLevel()),
		Assets:          view.TailRisks(rows),
	}
	if len(req.Weights) == 0 {
		return resp, nil
	}

	if err := domain.ValidateWeights(op, req.Weights, returns.NumAssets(), settings.WeightTolerance(), settings.AllowShort()); err != nil {
		return nil, err
	}
	prow, err := tailrisk.Portfolio(returns, req.Weights, settings.ConfidenceLevel())
	if err != nil {
		return nil, err
	}
	pv := view.TailRisk(prow)
	resp.Portfolio = &pv
	return resp, nil
}

// HandleStressTest handles POST /api/stress-test
func (h *Handler) HandleStressTest(w http.ResponseWriter, r *http.Request) {
	const op = "stress"
	var req StressRequest
	if !h.decode(w, r, &req) {
		return
	}

	start := time.Now()
	res, err := h.stress(&req)
	h.metrics.ObserveAnalytics(op, time.Since(start), err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResponse(w, r, http.StatusOK, view.Stress("", res, req.Shocks))
}

func (h *Handler) stress(req *StressRequest) (stress.Result, error) {
	px, _, err := h.loadPrices(&req.AnalyticsRequest)
	if err != nil {
		return stress.Result{}, err
	}
	if err := requireWeights("stress", req.Weights); err != nil {
		return stress.Result{}, err
	}
	return stress.Simulate(px, req.Weights, req.Shocks)
}

// HandleStressBatch handles POST /api/stress-test/batch
func (h *Handler) HandleStressBatch(w http.ResponseWriter, r *http.Request) {
	const op = "stress_batch"
	var req BatchStressRequest
	if !h.decode(w, r, &req) {
		return
	}

	start := time.Now()
	results, err := h.stressBatch(r, &req)
	h.metrics.ObserveAnalytics(op, time.Since(start), err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResponse(w, r, http.StatusOK, view.StressBatch(req.Scenarios, results))
}

func (h *Handler) stressBatch(r *http.Request, req *BatchStressRequest) ([]stress.ScenarioResult, error) {
	px, _, err := h.loadPrices(&req.AnalyticsRequest)
	if err != nil {
		return nil, err
	}
	if err := requireWeights("stress_batch", req.Weights); err != nil {
		return nil, err
	}
	return stress.RunScenarios(r.Context(), px, req.Weights, req.Scenarios)
}

// HandleCovariance handles POST /api/covariance
func (h *Handler) HandleCovariance(w http.ResponseWriter, r *http.Request) {
	const op = "covariance"
	var req CovarianceRequest
	if !h.decode(w, r, &req) {
		return
	}

	start := time.Now()
	resp, err := h.covariance(&req)
	h.metrics.ObserveAnalytics(op, time.Since(start), err)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeResponse(w, r, http.StatusOK, resp)
}

func (h *Handler) covariance(req *CovarianceRequest) (*covarianceResponse, error) {
	returns, settings, err := h.loadReturns(&req.AnalyticsRequest)
	if err != nil {
		return nil, err
	}
	sample, err := covariance.Covariance(returns)
	if err != nil {
		return nil, err
	}
	annual, err := covariance.AnnualizedCovariance(returns, settings.Frequency())
	if err != nil {
		return nil, err
	}
	corr, err := covariance.Correlation(returns)
	if err != nil {
		return nil, err
	}
	resp := &covarianceResponse{
		Covariance:           view.Matrix(sample),
		AnnualizedCovariance: view.Matrix(annual),
		Correlation:          view.Matrix(corr),
	}

	if req.EWSpan > 0 {
		points, err := covariance.EWCovariance(returns, req.EWSpan)
		if err != nil {
			return nil, err
		}
		if len(points) > 0 {
			last := points[len(points)-1]
			resp.EWCovariance = &ewResponse{Row: last.Row, Date: view.Date(last.Date), MatrixView: view.Matrix(last.Matrix)}
		}
	}
	if len(req.Pair) == 2 {
		rolling, err := covariance.RollingCorrelation(returns, req.Pair[0], req.Pair[1], settings.Window())
		if err != nil {
			return nil, err
		}
		resp.RollingCorrelation = &pairResponse{Assets: req.Pair, Window: settings.Window(), Correlation: view.Nums(rolling)}
	}
	return resp, nil
}

func (h *Handler) assemble(req *AnalyticsRequest) (*report.RiskReport, error) {
	px, settings, err := h.loadPrices(req)
	if err != nil {
		return nil, err
	}
	if err := requireWeights("report", req.Weights); err != nil {
		return nil, err
	}
	return h.assembler.Assemble(px, req.Weights, settings)
}

func requireWeights(op string, w []float64) error {
	if len(w) == 0 {
		return domain.ConfigError(op, "weights are required")
	}
	return nil
}

// settings merges the request overrides into the server defaults and
// validates the result.
func (h *Handler) settings(req *AnalyticsRequest) (*domain.Settings, error) {
	return domain.NewSettings(req.Settings.apply(h.defaults))
}

// loadPrices builds the cleaned price panel, resampled to the configured
// frequency when the request asks for it.
func (h *Handler) loadPrices(req *AnalyticsRequest) (*domain.Panel, *domain.Settings, error) {
	settings, err := h.settings(req)
	if err != nil {
		return nil, nil, err
	}
	if req.returnsInput() {
		return nil, nil, domain.ConfigError("request", "this route needs price series, not returns")
	}
	px, err := prices.Clean(req.raw())
	if err != nil {
		return nil, nil, err
	}
	if req.Resample {
		if px, err = prices.Resample(px, settings.Frequency()); err != nil {
			return nil, nil, err
		}
	}
	return px, settings, nil
}

// loadReturns yields log returns for price input, or the cleaned return
// panel when the request already carries returns.
func (h *Handler) loadReturns(req *AnalyticsRequest) (*domain.Panel, *domain.Settings, error) {
	if !req.returnsInput() {
		px, settings, err := h.loadPrices(req)
		if err != nil {
			return nil, nil, err
		}
		returns, err := prices.LogReturns(px)
		return returns, settings, err
	}

	settings, err := h.settings(req)
	if err != nil {
		return nil, nil, err
	}
	if req.Resample {
		return nil, nil, domain.ConfigError("request", "resampling applies to price series only")
	}
	returns, err := prices.CleanReturns(req.raw())
	return returns, settings, err
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeErrorBody(w, http.StatusBadRequest, kindRequest, fmt.Sprintf("malformed request body: %v", err))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		h.writeErrorBody(w, http.StatusBadRequest, kindValidation, validationMessage(err))
		return false
	}
	return true
}

func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

// statusFor maps an analytics error to its HTTP status.
func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindConfig:
		return http.StatusBadRequest
	case domain.KindData, domain.KindDomain:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	kind := string(domain.KindOf(err))
	if kind == "" {
		kind = kindInternal
	}
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Analytics request failed")
	} else {
		h.log.Debug().Err(err).Str("kind", kind).Msg("Analytics request rejected")
	}
	h.writeErrorBody(w, status, kind, err.Error())
}

func (h *Handler) writeErrorBody(w http.ResponseWriter, status int, kind, message string) {
	h.writeJSON(w, status, errorBody{Error: errorDetail{Kind: kind, Message: message}})
}

// writeResponse wraps data in the response envelope and encodes it as
// msgpack when the client asks for it, JSON otherwise.
func (h *Handler) writeResponse(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	body := envelope{
		Data: data,
		Metadata: metadata{
			Timestamp: h.now().UTC().Format(time.RFC3339),
			ReportID:  uuid.NewString(),
		},
	}
	if strings.Contains(r.Header.Get("Accept"), contentMsgpack) {
		h.writeMsgpack(w, status, body)
		return
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) writeMsgpack(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", contentMsgpack)
	w.WriteHeader(status)
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode msgpack response")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
