// Package health tracks the outcome of upstream calls.
//
// The monitor is passive: it never calls the upstream itself. It counts
// successes and failures reported by the client, notifies listeners when
// the upstream flips between healthy and failing, and periodically logs a
// summary.
package health

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// UpstreamStatus is a snapshot of upstream health
type UpstreamStatus struct {
	Healthy     bool      `json:"healthy"`
	Successes   uint64    `json:"successes"`
	Failures    uint64    `json:"failures"`
	LastError   string    `json:"last_error,omitempty"`
	LastCheckAt time.Time `json:"last_check_at,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Monitor records upstream outcomes
type Monitor struct {
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	mu          sync.RWMutex
	healthy     bool
	successes   uint64
	failures    uint64
	lastError   string
	lastCheckAt time.Time
	listeners   []func(healthy bool)

	runMu   sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewMonitor creates a new health monitor. The upstream counts as healthy
// until the first failure is reported.
func NewMonitor(interval time.Duration, logger *zap.Logger) *Monitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Monitor{
		interval: interval,
		logger:   logger,
		now:      time.Now,
		healthy:  true,
	}
}

// OnChange registers fn to be called whenever health flips
func (m *Monitor) OnChange(fn func(healthy bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// ReportUpstream records the outcome of one upstream call
func (m *Monitor) ReportUpstream(err error) {
	m.mu.Lock()
	wasHealthy := m.healthy
	m.lastCheckAt = m.now()
	if err != nil {
		m.failures++
		m.lastError = err.Error()
		m.healthy = false
	} else {
		m.successes++
		m.lastError = ""
		m.healthy = true
	}
	healthy := m.healthy
	listeners := make([]func(bool), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	if healthy == wasHealthy {
		return
	}

	if healthy {
		m.logger.Info("upstream recovered")
	} else {
		m.logger.Warn("upstream failing", zap.Error(err))
	}
	for _, fn := range listeners {
		fn(healthy)
	}
}

// Status returns the current upstream status
func (m *Monitor) Status() *UpstreamStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return &UpstreamStatus{
		Healthy:     m.healthy,
		Successes:   m.successes,
		Failures:    m.failures,
		LastError:   m.lastError,
		LastCheckAt: m.lastCheckAt,
		Timestamp:   m.now(),
	}
}

// IsHealthy returns true if the last upstream call succeeded
func (m *Monitor) IsHealthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.healthy
}

// Start starts the periodic summary log
func (m *Monitor) Start() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if m.running || m.interval <= 0 {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})

	go m.run(m.stopCh)
}

// Stop stops the periodic summary log
func (m *Monitor) Stop() {
	m.runMu.Lock()
	defer m.runMu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
}

func (m *Monitor) run(stopCh <-chan struct{}) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			m.logStatus()
		}
	}
}

func (m *Monitor) logStatus() {
	status := m.Status()

	m.logger.Info("upstream health check",
		zap.Bool("healthy", status.Healthy),
		zap.Uint64("successes", status.Successes),
		zap.Uint64("failures", status.Failures))

	if !status.Healthy {
		m.logger.Warn("upstream is unhealthy",
			zap.String("last_error", status.LastError),
			zap.Time("last_check_at", status.LastCheckAt))
	}
}
