package health

import (
	"sync"
	"time"

	"github.com/breeze-rmm/procmon/internal/logging"
)

var log = logging.L("health")

// Status represents the health status of a component.
type Status string

const (
	Healthy   Status = "healthy"
	Degraded  Status = "degraded"
	Unhealthy Status = "unhealthy"
	Unknown   Status = "unknown"
)

// Component names reported by procmon.
const (
	ComponentCollector = "collector"
	ComponentMetrics   = "metrics"
)

// IsValid reports whether s is one of the known statuses.
func (s Status) IsValid() bool {
	switch s {
	case Healthy, Degraded, Unhealthy, Unknown:
		return true
	}
	return false
}

// UnhealthyAfter is the number of consecutive failures after which
// RecordResult marks a component unhealthy rather than degraded.
const UnhealthyAfter = 3

// Check stores the latest health result for a named component.
type Check struct {
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Failures  int       `json:"consecutiveFailures"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Monitor tracks health checks for multiple components.
type Monitor struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewMonitor creates a new health monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		checks: make(map[string]Check),
	}
}

// Update records the health status for a named component. Invalid statuses
// are recorded as Unhealthy.
func (m *Monitor) Update(name string, status Status, message string) {
	if !status.IsValid() {
		status = Unhealthy
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	failures := 0
	if status == Degraded || status == Unhealthy {
		failures = m.checks[name].Failures + 1
	}
	m.set(name, status, message, failures)
}

// RecordResult updates a component from the outcome of one operation.
// Success resets it to Healthy; failures degrade it, and UnhealthyAfter
// consecutive failures make it Unhealthy.
func (m *Monitor) RecordResult(name string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		m.set(name, Healthy, "", 0)
		return
	}

	failures := m.checks[name].Failures + 1
	status := Degraded
	if failures >= UnhealthyAfter {
		status = Unhealthy
	}
	m.set(name, status, err.Error(), failures)
}

func (m *Monitor) set(name string, status Status, message string, failures int) {
	prev, had := m.checks[name]
	m.checks[name] = Check{
		Name:      name,
		Status:    status,
		Message:   message,
		Failures:  failures,
		UpdatedAt: time.Now(),
	}

	if (status == Degraded || status == Unhealthy) && (!had || prev.Status != status) {
		log.Warn("health check changed", "component", name, "status", string(status), "message", message)
	}
}

// Get returns the health check for a named component.
func (m *Monitor) Get(name string) (Check, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.checks[name]
	return c, ok
}

// Overall returns the worst status across all registered checks.
// If no checks are registered, returns Unknown. A component that has not
// reported yet (Unknown) never masks a degraded or unhealthy one.
func (m *Monitor) Overall() Status {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.overallLocked()
}

func (m *Monitor) overallLocked() Status {
	if len(m.checks) == 0 {
		return Unknown
	}
	worst := Healthy
	for _, c := range m.checks {
		if worse(c.Status, worst) {
			worst = c.Status
		}
	}
	return worst
}

// Summary returns the overall status and per-component statuses, read
// under a single lock.
func (m *Monitor) Summary() map[string]any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	components := make(map[string]string, len(m.checks))
	for _, c := range m.checks {
		components[c.Name] = string(c.Status)
	}

	return map[string]any{
		"status":     string(m.overallLocked()),
		"components": components,
	}
}

// worse returns true if a is worse than b.
func worse(a, b Status) bool {
	return statusRank(a) > statusRank(b)
}

func statusRank(s Status) int {
	switch s {
	case Unhealthy:
		return 3
	case Degraded:
		return 2
	case Unknown:
		return 1
	default:
		return 0
	}
}
