package handlers

import (
	"bytes"
	"encoding/json"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/HimJar911/RiskSuite360/internal/domain"
	"github.com/HimJar911/RiskSuite360/internal/metrics"
)

func newTestRouter(t *testing.T, m *metrics.Metrics) http.Handler {
	t.Helper()
	h := NewHandler(domain.DefaultSettingsInput(), m, zerolog.Nop())
	r := chi.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// priceSeries is a seeded random walk per asset.
func priceSeries(rows int, seed int64, assets ...string) []map[string]interface{} {
	rng := rand.New(rand.NewSource(seed))
	out := make([]map[string]interface{}, len(assets))
	for j, a := range assets {
		values := make([]float64, rows)
		p := 100.0
		for i := range values {
			p *= 1 + 0.0005 + rng.NormFloat64()*0.01*float64(j+1)
			values[i] = p
		}
		out[j] = map[string]interface{}{"asset": a, "values": values}
	}
	return out
}

func post(t *testing.T, router http.Handler, path string, body interface{}, accept string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) (map[string]interface{}, map[string]interface{}) {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	data, ok := resp["data"].(map[string]interface{})
	require.True(t, ok, "data should be an object")
	meta, ok := resp["metadata"].(map[string]interface{})
	require.True(t, ok, "metadata should be an object")
	return data, meta
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (int, string) {
	t.Helper()
	var resp errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp.Error.Kind
}

func assertRounded(t *testing.T, v float64) {
	t.Helper()
	scaled := v * 1e5
	assert.InDelta(t, math.Round(scaled), scaled, 1e-6, "%v has more than 5 decimals", v)
}

func TestHandleRiskReport(t *testing.T) {
	router := newTestRouter(t, nil)
	body := map[string]interface{}{
		"series":  priceSeries(80, 42, "AAPL", "MSFT", "TSLA"),
		"weights": []float64{0.5, 0.3, 0.2},
	}

	data, meta := decodeEnvelope(t, post(t, router, "/risk-report", body, ""))

	_, err := uuid.Parse(meta["report_id"].(string))
	assert.NoError(t, err)
	assert.NotEmpty(t, meta["timestamp"])

	assert.Equal(t, []interface{}{"AAPL", "MSFT", "TSLA"}, data["assets"])
	portfolio := data["portfolio"].(map[string]interface{})
	vol := portfolio["volatility"].(float64)
	assert.Greater(t, vol, 0.0)
	assertRounded(t, vol)
	assert.LessOrEqual(t, portfolio["max_drawdown"].(float64), 0.0)

	contributions := data["risk_contributions"].(map[string]interface{})["contributions"].([]interface{})
	require.Len(t, contributions, 3)
	var pct float64
	for _, c := range contributions {
		pct += c.(map[string]interface{})["percent"].(float64)
	}
	assert.InDelta(t, 100.0, pct, 1e-3)

	tail := data["tail_risk"].([]interface{})
	assert.Len(t, tail, 3)

	regime := data["regime"].(map[string]interface{})
	timeline := regime["timeline"].([]interface{})
	require.Len(t, timeline, 79)
	// before the first full window the volatility is undefined
	assert.Nil(t, timeline[0].(map[string]interface{})["volatility"])
	assert.Equal(t, "Unknown", timeline[0].(map[string]interface{})["regime"])
}

func TestHandleRiskSummary(t *testing.T) {
	router := newTestRouter(t, nil)
	body := map[string]interface{}{
		"series":   priceSeries(60, 7, "A", "B"),
		"weights":  []float64{0.6, 0.4},
		"settings": map[string]interface{}{"window": 10},
	}

	data, _ := decodeEnvelope(t, post(t, router, "/risk-summary", body, ""))

	assert.Contains(t, []interface{}{"A", "B"}, data["worst_asset"])
	assert.Contains(t, []interface{}{"Volatile", "Neutral", "Calm"}, data["regime"])
	assert.NotNil(t, data["portfolio_volatility"])
}

func TestHandleRiskHistory(t *testing.T) {
	router := newTestRouter(t, nil)
	body := map[string]interface{}{
		"series":   priceSeries(30, 3, "A", "B"),
		"dates":    businessDates(30),
		"settings": map[string]interface{}{"window": 5},
	}

	data, _ := decodeEnvelope(t, post(t, router, "/risk-history", body, ""))

	dates := data["dates"].([]interface{})
	require.Len(t, dates, 29)
	assert.Equal(t, "2024-01-02", dates[0])

	vol := data["rolling_volatility"].([]interface{})
	require.Len(t, vol, 2)
	first := vol[0].([]interface{})
	for i := 0; i < 4; i++ {
		assert.Nil(t, first[i])
	}
	assert.NotNil(t, first[4])

	cum := data["cumulative_return"].([]interface{})
	assert.Len(t, cum, 29)
}

func businessDates(n int) []string {
	out := make([]string, 0, n)
	for d := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC); len(out) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, d.Format("2006-01-02"))
	}
	return out
}

func TestHandleOptimize(t *testing.T) {
	m := metrics.New()
	router := newTestRouter(t, m)
	body := map[string]interface{}{
		"series": priceSeries(250, 11, "A", "B", "C"),
	}

	data, _ := decodeEnvelope(t, post(t, router, "/optimize", body, ""))

	for _, key := range []string{"min_volatility", "max_sharpe"} {
		res := data[key].(map[string]interface{})
		weights := res["weights"].(map[string]interface{})
		require.Len(t, weights, 3)
		var sum float64
		for _, w := range weights {
			sum += w.(float64)
			assert.GreaterOrEqual(t, w.(float64), 0.0)
		}
		assert.InDelta(t, 1.0, sum, 1e-4, key)
	}
	assert.Nil(t, data["min_volatility"].(map[string]interface{})["sharpe"])
	assert.NotNil(t, data["max_sharpe"].(map[string]interface{})["sharpe"])

	t.Run("single asset is rejected", func(t *testing.T) {
		rec := post(t, router, "/optimize", map[string]interface{}{"series": priceSeries(50, 1, "A")}, "")
		code, kind := decodeError(t, rec)
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, "data", kind)
	})
}

func TestHandleVaRCVaR_Returns(t *testing.T) {
	router := newTestRouter(t, nil)
	body := map[string]interface{}{
		"series_kind": "returns",
		"series": []map[string]interface{}{
			{"asset": "A", "values": []float64{-0.05, -0.02, 0.01, 0.02, 0.03}},
			{"asset": "B", "values": []float64{0.01, -0.01, 0.00, 0.02, -0.03}},
		},
		"weights":  []float64{0.5, 0.5},
		"settings": map[string]interface{}{"confidence_level": 0.8},
	}

	data, _ := decodeEnvelope(t, post(t, router, "/var-cvar", body, ""))

	assert.Equal(t, 0.8, data["confidence_level"])
	assets := data["assets"].([]interface{})
	require.Len(t, assets, 2)
	a := assets[0].(map[string]interface{})
	assert.Equal(t, "A", a["asset"])
	assert.Equal(t, -0.02, a["historical_var"])
	assert.Equal(t, -0.035, a["historical_cvar"])

	portfolio := data["portfolio"].(map[string]interface{})
	assert.Equal(t, "portfolio", portfolio["asset"])
}

func TestHandleVaRCVaR_PortfolioMatchesReport(t *testing.T) {
	router := newTestRouter(t, nil)
	body := map[string]interface{}{
		"series":  priceSeries(60, 7, "AAPL", "MSFT"),
		"weights": []float64{0.6, 0.4},
	}

	report, _ := decodeEnvelope(t, post(t, router, "/risk-report", body, ""))
	tail, _ := decodeEnvelope(t, post(t, router, "/var-cvar", body, ""))

	assert.Equal(t, report["portfolio_tail_risk"], tail["portfolio"])
}

func TestHandleStressTest(t *testing.T) {
	router := newTestRouter(t, nil)
	series := []map[string]interface{}{
		{"asset": "AAPL", "values": []float64{100, 110}},
		{"asset": "MSFT", "values": []float64{50, 55}},
	}

	t.Run("single shock", func(t *testing.T) {
		body := map[string]interface{}{
			"series":  series,
			"weights": []float64{0.5, 0.5},
			"shocks":  map[string]float64{"AAPL": -0.2},
		}
		data, _ := decodeEnvelope(t, post(t, router, "/stress-test", body, ""))
		assert.Equal(t, -10.0, data["portfolio_value_change_percent"])
		assert.Equal(t, 1.0, data["pre_shock_value"])
		assert.Equal(t, 0.9, data["post_shock_value"])
	})

	t.Run("batch keeps scenario order", func(t *testing.T) {
		body := map[string]interface{}{
			"series":  series,
			"weights": []float64{0.5, 0.5},
			"scenarios": []map[string]interface{}{
				{"name": "crash", "shocks": map[string]float64{"AAPL": -0.2, "MSFT": -0.2}},
				{"name": "tech rally", "shocks": map[string]float64{"MSFT": 0.1}},
			},
		}
		rec := post(t, router, "/stress-test/batch", body, "")
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp struct {
			Data []map[string]interface{} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 2)
		assert.Equal(t, "crash", resp.Data[0]["name"])
		assert.Equal(t, -20.0, resp.Data[0]["portfolio_value_change_percent"])
		assert.Equal(t, "tech rally", resp.Data[1]["name"])
		assert.Equal(t, 5.0, resp.Data[1]["portfolio_value_change_percent"])
	})

	t.Run("unknown asset", func(t *testing.T) {
		body := map[string]interface{}{
			"series":  series,
			"weights": []float64{0.5, 0.5},
			"shocks":  map[string]float64{"NVDA": -0.2},
		}
		code, kind := decodeError(t, post(t, router, "/stress-test", body, ""))
		assert.Equal(t, http.StatusUnprocessableEntity, code)
		assert.Equal(t, "data", kind)
	})
}

func TestHandleCovariance(t *testing.T) {
	router := newTestRouter(t, nil)
	body := map[string]interface{}{
		"series":   priceSeries(40, 5, "A", "B"),
		"ew_span":  10,
		"pair":     []string{"A", "B"},
		"settings": map[string]interface{}{"window": 5},
	}

	data, _ := decodeEnvelope(t, post(t, router, "/covariance", body, ""))

	corr := data["correlation"].(map[string]interface{})["values"].([]interface{})
	require.Len(t, corr, 2)
	assert.Equal(t, 1.0, corr[0].([]interface{})[0])

	sample := data["covariance"].(map[string]interface{})["values"].([]interface{})
	annual := data["annualized_covariance"].(map[string]interface{})["values"].([]interface{})
	assert.InDelta(t, sample[0].([]interface{})[0].(float64)*252, annual[0].([]interface{})[0].(float64), 3e-3)

	ew := data["ew_covariance"].(map[string]interface{})
	assert.Equal(t, 38.0, ew["row"])
	assert.Len(t, ew["values"], 2)

	rolling := data["rolling_correlation"].(map[string]interface{})["correlation"].([]interface{})
	require.Len(t, rolling, 39)
	assert.Nil(t, rolling[0])
	assert.NotNil(t, rolling[4])
}

func TestMsgpackResponse(t *testing.T) {
	router := newTestRouter(t, nil)
	body := map[string]interface{}{
		"series":  []map[string]interface{}{{"asset": "A", "values": []float64{100, 110}}},
		"weights": []float64{1},
		"shocks":  map[string]float64{"A": -0.5},
	}

	rec := post(t, router, "/stress-test", body, "application/msgpack")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get("Content-Type"))

	var resp map[string]interface{}
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &resp))
	data := resp["data"].(map[string]interface{})
	assert.Equal(t, -50.0, data["portfolio_value_change_percent"])
	assert.Contains(t, resp["metadata"], "report_id")
}

func TestErrorMapping(t *testing.T) {
	router := newTestRouter(t, nil)
	series := priceSeries(30, 1, "A", "B")

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
		kind   string
	}{
		{"malformed json", "/risk-report", `{"series": [`, http.StatusBadRequest, kindRequest},
		{"unknown field", "/risk-report", map[string]interface{}{"series": series, "weights": []float64{0.5, 0.5}, "bogus": 1}, http.StatusBadRequest, kindRequest},
		{"missing series", "/risk-report", map[string]interface{}{"weights": []float64{1}}, http.StatusBadRequest, kindValidation},
		{"bad series kind", "/var-cvar", map[string]interface{}{"series": series, "series_kind": "ticks"}, http.StatusBadRequest, kindValidation},
		{"bad frequency override", "/risk-report", map[string]interface{}{"series": series, "weights": []float64{0.5, 0.5}, "settings": map[string]interface{}{"frequency": "hourly"}}, http.StatusBadRequest, "config"},
		{"inverted thresholds", "/risk-history", map[string]interface{}{"series": series, "settings": map[string]interface{}{"low_vol_threshold": 0.5}}, http.StatusBadRequest, "config"},
		{"missing weights", "/risk-report", map[string]interface{}{"series": series}, http.StatusBadRequest, "config"},
		{"returns on a price route", "/risk-report", map[string]interface{}{"series": series, "weights": []float64{0.5, 0.5}, "series_kind": "returns"}, http.StatusBadRequest, "config"},
		{"weight count mismatch", "/risk-report", map[string]interface{}{"series": series, "weights": []float64{1}}, http.StatusUnprocessableEntity, "data"},
		{"weights do not sum to one", "/risk-report", map[string]interface{}{"series": series, "weights": []float64{0.5, 0.6}}, http.StatusUnprocessableEntity, "data"},
		{"non-positive price", "/risk-history", map[string]interface{}{"series": []map[string]interface{}{{"asset": "A", "values": []float64{1, -2}}}}, http.StatusUnprocessableEntity, "data"},
		{"wipeout return", "/var-cvar", map[string]interface{}{"series_kind": "returns", "series": []map[string]interface{}{{"asset": "A", "values": []float64{0.1, -1.5}}}}, http.StatusUnprocessableEntity, "domain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, kind := decodeError(t, post(t, router, tt.path, tt.body, ""))
			assert.Equal(t, tt.status, code)
			assert.Equal(t, tt.kind, kind)
		})
	}
}

func TestMissingValuesAreForwardFilled(t *testing.T) {
	router := newTestRouter(t, nil)
	body := `{
		"series": [
			{"asset": "A", "values": [100, null, 105]},
			{"asset": "B", "values": [50, 51, null]}
		],
		"weights": [0.5, 0.5],
		"shocks": {"B": 0.1}
	}`

	data, _ := decodeEnvelope(t, post(t, router, "/stress-test", body, ""))
	assert.Equal(t, 5.0, data["portfolio_value_change_percent"])
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(domain.ConfigError("op", "x")))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(domain.DataError("op", "x")))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(domain.DomainError("op", "x")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(assert.AnError))
}

func TestRegisterRoutes(t *testing.T) {
	h := NewHandler(domain.DefaultSettingsInput(), nil, zerolog.Nop())
	r := chi.NewRouter()

	assert.NotPanics(t, func() {
		h.RegisterRoutes(r)
	})

	for _, path := range []string{"/risk-report", "/risk-summary", "/risk-history", "/optimize", "/var-cvar", "/covariance", "/stress-test", "/stress-test/batch"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, path)
	}
}
