package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/HimJar911/RiskSuite360/internal/domain"
)

// Version is reported by the health check.
const Version = "1.0.0"

// HealthResponse is the body of GET /health. Defaults are the analytics
// settings a request gets when it does not override them.
type HealthResponse struct {
	Status        string               `json:"status"`
	Service       string               `json:"service"`
	Version       string               `json:"version"`
	UptimeSeconds float64              `json:"uptime_seconds"`
	Defaults      domain.SettingsInput `json:"defaults"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:        "healthy",
		Service:       "risksuite360",
		Version:       Version,
		UptimeSeconds: time.Since(s.systemHandlers.started).Seconds(),
		Defaults:      s.cfg.Defaults,
	})
}

// writeJSON writes a JSON body for the server's own routes. Analytics routes
// use the envelope writer in the risk handlers.
func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
