package health

import (
	"maps"
	"sync"
	"time"
)

// Monitor keeps the in-process view of pass and account results.
type Monitor struct {
	passInterval time.Duration
	now          func() time.Time

	mu       sync.RWMutex
	running  bool
	started  time.Time
	lastPass *PassSummary
	accounts map[string]AccountHealth
}

// NewMonitor creates a monitor. passInterval is the expected time between
// pass starts and drives staleness detection.
func NewMonitor(passInterval time.Duration) *Monitor {
	return &Monitor{
		passInterval: passInterval,
		now:          time.Now,
		started:      time.Now(),
		accounts:     make(map[string]AccountHealth),
	}
}

// PassStarted marks a pass as in progress.
func (m *Monitor) PassStarted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
}

// PassFinished records a completed pass.
func (m *Monitor) PassFinished(summary PassSummary) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.lastPass = &summary
}

// RecordAccount stores the latest result for an account.
func (m *Monitor) RecordAccount(key string, h AccountHealth) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[key] = h
}

// CheckHealth evaluates the current status.
func (m *Monitor) CheckHealth() HealthReport {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report := HealthReport{
		SystemStatus: StatusHealthy,
		Running:      m.running,
		Accounts:     maps.Clone(m.accounts),
	}
	if m.lastPass != nil {
		last := *m.lastPass
		report.LastPass = &last
	}

	// A pass that never finished within two intervals means the loop is stuck.
	stale := 2 * m.passInterval
	reference := m.started
	if m.lastPass != nil {
		reference = m.lastPass.FinishedAt
	}
	if m.passInterval > 0 && m.now().Sub(reference) > stale+time.Hour {
		report.SystemStatus = StatusCritical
		return report
	}

	if m.lastPass != nil && m.lastPass.Accounts > 0 {
		switch {
		case m.lastPass.Failed == m.lastPass.Accounts:
			report.SystemStatus = StatusCritical
		case m.lastPass.Failed > 0:
			report.SystemStatus = StatusDegraded
		}
	}
	return report
}
