// Package metrics exposes Prometheus instrumentation on a private registry.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "risksuite"

// Metrics holds every collector the service records.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests       *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	analytics          *prometheus.CounterVec
	analyticsDuration  *prometheus.HistogramVec
	solverIterations   *prometheus.HistogramVec
	solverNonConverged *prometheus.CounterVec
}

// New creates the collectors and registers them, together with the Go
// runtime and process collectors, on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"route", "method", "code"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Histogram of response latency (seconds) for HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		analytics: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analytics_runs_total",
				Help:      "Analytics computations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		analyticsDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analytics_duration_seconds",
				Help:      "Time spent in analytics computations",
				Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 8),
			},
			[]string{"operation"},
		),
		solverIterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "optimizer_iterations",
				Help:      "Solver iterations per optimization",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"problem", "solver"},
		),
		solverNonConverged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "optimizer_nonconverged_total",
				Help:      "Optimizations that stopped before reaching tolerance",
			},
			[]string{"problem", "solver"},
		),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.analytics,
		m.analyticsDuration,
		m.solverIterations,
		m.solverNonConverged,
	)
	return m
}

// Registry returns the registry backing the collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, method string, code int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveAnalytics records one analytics computation.
func (m *Metrics) ObserveAnalytics(operation string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.analytics.WithLabelValues(operation, outcome).Inc()
	m.analyticsDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

// ObserveOptimization records the solver effort of one optimization.
func (m *Metrics) ObserveOptimization(problem, solver string, iterations int, converged bool) {
	if m == nil {
		return
	}
	m.solverIterations.WithLabelValues(problem, solver).Observe(float64(iterations))
	if !converged {
		m.solverNonConverged.WithLabelValues(problem, solver).Inc()
	}
}
