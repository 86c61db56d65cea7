package pipeline

import (
	"slices"
	"sync"
	"time"
)

// HealthStatus summarises recent audit runs.
type HealthStatus string

const (
	HealthStatusUnknown   HealthStatus = "UNKNOWN"
	HealthStatusHealthy   HealthStatus = "HEALTHY"
	HealthStatusDegraded  HealthStatus = "DEGRADED"
	HealthStatusUnhealthy HealthStatus = "UNHEALTHY"

	// DefaultUnhealthyThreshold is the number of consecutive failed runs
	// before the pipeline reports unhealthy.
	DefaultUnhealthyThreshold = 5

	// DefaultDegradedLatencyThreshold is the p95 run latency above which the
	// pipeline reports degraded.
	DefaultDegradedLatencyThreshold = 10 * time.Second

	latencyWindowSize = 20
)

// Outcome classifies one RunAudit call.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeDegraded Outcome = "degraded"
	OutcomeFailed   Outcome = "failed"
)

// Health tracks the outcome and latency of recent audit runs.
type Health struct {
	mu                       sync.RWMutex
	status                   HealthStatus
	consecutiveFailures      int
	consecutiveDegraded      int
	lastSuccessAt            *time.Time
	lastFailureAt            *time.Time
	unhealthyThreshold       int
	recentLatencies          []time.Duration
	degradedLatencyThreshold time.Duration
	nowFn                    func() time.Time
}

func NewHealth() *Health {
	return &Health{
		status:                   HealthStatusUnknown,
		unhealthyThreshold:       DefaultUnhealthyThreshold,
		recentLatencies:          make([]time.Duration, 0, latencyWindowSize),
		degradedLatencyThreshold: DefaultDegradedLatencyThreshold,
		nowFn:                    time.Now,
	}
}

// Record folds one run into the health state. It returns true when this run
// moved the pipeline into the unhealthy state.
func (h *Health) Record(outcome Outcome, latency time.Duration) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	now := h.nowFn()
	if len(h.recentLatencies) >= latencyWindowSize {
		h.recentLatencies = h.recentLatencies[1:]
	}
	h.recentLatencies = append(h.recentLatencies, latency)

	if outcome == OutcomeFailed {
		h.consecutiveFailures++
		h.lastFailureAt = &now
		if h.consecutiveFailures >= h.unhealthyThreshold {
			wasUnhealthy := h.status == HealthStatusUnhealthy
			h.status = HealthStatusUnhealthy
			return !wasUnhealthy
		}
		if h.status == HealthStatusUnknown || h.status == HealthStatusHealthy {
			h.status = HealthStatusDegraded
		}
		return false
	}

	h.consecutiveFailures = 0
	h.lastSuccessAt = &now
	if outcome == OutcomeDegraded {
		h.consecutiveDegraded++
	} else {
		h.consecutiveDegraded = 0
	}
	if h.consecutiveDegraded > 0 || h.latencyDegraded() {
		h.status = HealthStatusDegraded
	} else {
		h.status = HealthStatusHealthy
	}
	return false
}

// latencyDegraded must be called with mu held.
func (h *Health) latencyDegraded() bool {
	if len(h.recentLatencies) < 2 {
		return false
	}
	return h.percentileLatency(95) > h.degradedLatencyThreshold
}

// percentileLatency must be called with mu held.
func (h *Health) percentileLatency(pct int) time.Duration {
	n := len(h.recentLatencies)
	if n == 0 {
		return 0
	}
	sorted := slices.Clone(h.recentLatencies)
	slices.Sort(sorted)
	idx := (pct*n - 1) / 100
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

// Snapshot returns the current health state.
func (h *Health) Snapshot() HealthSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HealthSnapshot{
		Status:              string(h.status),
		ConsecutiveFailures: h.consecutiveFailures,
		P95Latency:          h.percentileLatency(95).String(),
		LastSuccessAt:       h.lastSuccessAt,
		LastFailureAt:       h.lastFailureAt,
	}
}

// HealthSnapshot is a point-in-time view of pipeline health (JSON-safe).
type HealthSnapshot struct {
	Status              string     `json:"status"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	P95Latency          string     `json:"p95_latency"`
	LastSuccessAt       *time.Time `json:"last_success_at,omitempty"`
	LastFailureAt       *time.Time `json:"last_failure_at,omitempty"`
}
