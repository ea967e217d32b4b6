package runtime

import (
	"sync"
	"time"

	"digital.vasic.missions/pkg/monitor"
)

// Health tracks connection health to the sandbox daemon and
// implements the circuit breaker. It is process-wide state shared
// across all sessions, because it reflects the health of the single
// daemon connection, not of any one mission. All methods are safe
// for concurrent use.
type Health struct {
	mu                  sync.Mutex
	lastSuccess         time.Time
	lastProbe           time.Time
	openedAt            time.Time
	consecutiveFailures int
	open                bool

	maxFailures  int
	resetTimeout time.Duration
	now          func() time.Time // injectable clock for tests
}

// NewHealth creates a Health with the given failure threshold and
// reset timeout.
func NewHealth(maxFailures int, resetTimeout time.Duration) *Health {
	return &Health{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		now:          time.Now,
	}
}

// RecordSuccess records a successful operation: the failure count
// resets and the circuit closes. It reports whether this call
// closed a previously open circuit.
func (h *Health) RecordSuccess() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	wasOpen := h.open
	h.lastSuccess = h.now()
	h.consecutiveFailures = 0
	h.open = false
	return wasOpen
}

// RecordFailure records a failed operation. Reaching the threshold
// opens the circuit. It reports whether this call opened it.
func (h *Health) RecordFailure() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.consecutiveFailures++
	if !h.open && h.consecutiveFailures >= h.maxFailures {
		h.open = true
		h.openedAt = h.now()
		return true
	}
	return false
}

// Allow reports whether an operation may be attempted. With the
// circuit closed it always allows. With the circuit open it allows
// a single probe once the reset timeout has elapsed since the
// circuit opened, the last success, or the last probe, whichever is
// most recent; a failing probe therefore restarts the window.
func (h *Health) Allow() bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.open {
		return true
	}

	// The window anchors on whichever came last: the moment the
	// circuit opened, the last success, or the last probe. A daemon
	// that has never answered still gets the full quiet period.
	since := h.openedAt
	if h.lastSuccess.After(since) {
		since = h.lastSuccess
	}
	if h.lastProbe.After(since) {
		since = h.lastProbe
	}
	if h.now().Sub(since) > h.resetTimeout {
		h.lastProbe = h.now()
		return true
	}
	return false
}

// IsOpen reports whether the circuit is currently open.
func (h *Health) IsOpen() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.open
}

// Snapshot returns the current circuit status for the diagnostics
// surface.
func (h *Health) Snapshot() monitor.CircuitStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return monitor.CircuitStatus{
		Open:                h.open,
		ConsecutiveFailures: h.consecutiveFailures,
		LastSuccess:         h.lastSuccess,
	}
}
