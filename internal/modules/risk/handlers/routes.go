package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk analytics routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	// Report views
	r.Post("/risk-report", h.HandleRiskReport)
	r.Post("/risk-summary", h.HandleRiskSummary)
	r.Post("/risk-history", h.HandleRiskHistory)

	// Single-module endpoints
	r.Post("/optimize", h.HandleOptimize)
	r.Post("/var-cvar", h.HandleVaRCVaR)
	r.Post("/covariance", h.HandleCovariance)

	// Stress scenarios
	r.Post("/stress-test", h.HandleStressTest)
	r.Post("/stress-test/batch", h.HandleStressBatch)
}
