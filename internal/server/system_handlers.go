package server

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// SystemStatusResponse represents the system status
type SystemStatusResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	CPUPercent    float64 `json:"cpu_percent"`
	RAMPercent    float64 `json:"ram_percent"`
	Goroutines    int     `json:"goroutines"`
	HeapAllocMB   float64 `json:"heap_alloc_mb"`
	NumGC         uint32  `json:"num_gc"`
	GoVersion     string  `json:"go_version"`
	SampledAt     string  `json:"sampled_at"`
}

// SystemHandlers serves host and runtime status
type SystemHandlers struct {
	log     zerolog.Logger
	started time.Time
	// sample returns CPU and RAM usage percentages
	sample func() (float64, float64)

	mu   sync.RWMutex
	last *SystemStatusResponse
}

// NewSystemHandlers creates new system handlers
func NewSystemHandlers(log zerolog.Logger, started time.Time) *SystemHandlers {
	h := &SystemHandlers{
		log:     log.With().Str("service", "system").Logger(),
		started: started,
	}
	h.sample = h.getSystemStats
	return h
}

// GetSystemStatusSnapshot samples host and runtime stats now.
func (h *SystemHandlers) GetSystemStatusSnapshot() SystemStatusResponse {
	cpuPercent, ramPercent := h.sample()

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	now := time.Now()
	return SystemStatusResponse{
		Status:        "healthy",
		UptimeSeconds: now.Sub(h.started).Seconds(),
		CPUPercent:    cpuPercent,
		RAMPercent:    ramPercent,
		Goroutines:    runtime.NumGoroutine(),
		HeapAllocMB:   float64(ms.HeapAlloc) / 1024 / 1024,
		NumGC:         ms.NumGC,
		GoVersion:     runtime.Version(),
		SampledAt:     now.UTC().Format(time.RFC3339),
	}
}

// refresh samples and caches a snapshot.
func (h *SystemHandlers) refresh() SystemStatusResponse {
	snap := h.GetSystemStatusSnapshot()
	h.mu.Lock()
	h.last = &snap
	h.mu.Unlock()
	return snap
}

// cached returns the last snapshot, if any.
func (h *SystemHandlers) cached() (SystemStatusResponse, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.last == nil {
		return SystemStatusResponse{}, false
	}
	return *h.last, true
}

// HandleSystemStatus handles GET /api/system/status. It serves the status
// monitor's latest snapshot and samples on demand before the first one.
func (h *SystemHandlers) HandleSystemStatus(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.cached()
	if !ok {
		snap = h.refresh()
	}
	h.writeJSON(w, snap)
}

// getSystemStats calculates CPU and RAM usage percentages
// Uses a short interval (100ms) so the call does not block for long
func (h *SystemHandlers) getSystemStats() (float64, float64) {
	cpuPercent, err := cpu.Percent(100*time.Millisecond, false)
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get CPU percentage")
		cpuPercent = []float64{0}
	}

	memStat, err := mem.VirtualMemory()
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to get memory statistics")
		return 0, 0
	}

	cpuAvg := 0.0
	if len(cpuPercent) > 0 {
		cpuAvg = cpuPercent[0]
	}

	return cpuAvg, memStat.UsedPercent
}

// writeJSON writes a JSON response
func (h *SystemHandlers) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
