package server

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// StatusMonitor periodically refreshes the cached system status and logs
// when host pressure crosses the warning thresholds
type StatusMonitor struct {
	systemHandlers *SystemHandlers
	log            zerolog.Logger

	stop     chan struct{}
	stopOnce sync.Once

	// Track previous state
	lastPressured bool
}

const (
	cpuWarnPercent = 90
	ramWarnPercent = 90
)

// NewStatusMonitor creates a new status monitor
func NewStatusMonitor(systemHandlers *SystemHandlers, log zerolog.Logger) *StatusMonitor {
	return &StatusMonitor{
		systemHandlers: systemHandlers,
		log:            log.With().Str("component", "status_monitor").Logger(),
		stop:           make(chan struct{}),
	}
}

// Start begins periodic status monitoring
func (m *StatusMonitor) Start(interval time.Duration) {
	go m.monitor(interval)
}

// Stop ends the monitoring loop. It is safe to call more than once.
func (m *StatusMonitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

// monitor runs the periodic monitoring loop
func (m *StatusMonitor) monitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Do initial check
	m.checkStatuses()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.checkStatuses()
		}
	}
}

// checkStatuses refreshes the snapshot and logs pressure changes
func (m *StatusMonitor) checkStatuses() {
	snap := m.systemHandlers.refresh()

	pressured := snap.CPUPercent >= cpuWarnPercent || snap.RAMPercent >= ramWarnPercent
	if pressured != m.lastPressured {
		event := m.log.Info()
		if pressured {
			event = m.log.Warn()
		}
		event.
			Float64("cpu_percent", snap.CPUPercent).
			Float64("ram_percent", snap.RAMPercent).
			Int("goroutines", snap.Goroutines).
			Bool("pressured", pressured).
			Msg("System pressure changed")
		m.lastPressured = pressured
	}
}
