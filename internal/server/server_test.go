package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HimJar911/RiskSuite360/internal/config"
	"github.com/HimJar911/RiskSuite360/internal/domain"
	"github.com/HimJar911/RiskSuite360/internal/metrics"
)

func newTestServer(t *testing.T, m *metrics.Metrics) *Server {
	t.Helper()
	s := New(Config{
		Log:     zerolog.Nop(),
		Config:  &config.Config{Port: 8000, Defaults: domain.DefaultSettingsInput()},
		Metrics: m,
		Port:    8000,
		DevMode: true,
	})
	s.systemHandlers.sample = func() (float64, float64) { return 12.5, 40 }
	return s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, "risksuite360", resp.Service)
	assert.Equal(t, Version, resp.Version)
	assert.GreaterOrEqual(t, resp.UptimeSeconds, 0.0)
	assert.Equal(t, s.cfg.Defaults, resp.Defaults)
}

func TestSystemStatus(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/api/system/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp SystemStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 12.5, resp.CPUPercent)
	assert.Equal(t, 40.0, resp.RAMPercent)
	assert.Greater(t, resp.Goroutines, 0)
	assert.NotEmpty(t, resp.GoVersion)
}

func TestStatusMonitor_RefreshesCache(t *testing.T) {
	s := newTestServer(t, nil)
	calls := 0
	s.systemHandlers.sample = func() (float64, float64) {
		calls++
		return 95, 10
	}

	_, ok := s.systemHandlers.cached()
	require.False(t, ok)

	s.statusMonitor.checkStatuses()
	snap, ok := s.systemHandlers.cached()
	require.True(t, ok)
	assert.Equal(t, 95.0, snap.CPUPercent)
	assert.True(t, s.statusMonitor.lastPressured)

	// the handler serves the cached snapshot without sampling again
	rec := do(t, s.Handler(), http.MethodGet, "/api/system/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, calls)
}

func TestStatusMonitor_StartStop(t *testing.T) {
	s := newTestServer(t, nil)

	s.statusMonitor.Start(10 * time.Millisecond)
	require.Eventually(t, func() bool {
		_, ok := s.systemHandlers.cached()
		return ok
	}, time.Second, 5*time.Millisecond)

	assert.NotPanics(t, func() {
		s.statusMonitor.Stop()
		s.statusMonitor.Stop()
	})
}

func TestRiskRoutesMounted(t *testing.T) {
	s := newTestServer(t, nil)
	body := `{
		"series": [{"asset": "A", "values": [100, 110]}],
		"weights": [1],
		"shocks": {"A": -0.1}
	}`

	rec := do(t, s.Handler(), http.MethodPost, "/api/stress-test", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, -10.0, resp.Data["portfolio_value_change_percent"])
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New()
	s := newTestServer(t, m)

	do(t, s.Handler(), http.MethodGet, "/health", "")
	do(t, s.Handler(), http.MethodPost, "/api/stress-test", `{"series": []}`)

	rec := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	out := rec.Body.String()
	assert.Contains(t, out, `risksuite_http_requests_total{code="200",method="GET",route="/health"} 1`)
	assert.Contains(t, out, `risksuite_http_requests_total{code="400",method="POST",route="/api/stress-test"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	s := newTestServer(t, nil)

	rec := do(t, s.Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/risk-report", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.NotEmpty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPost)
}
