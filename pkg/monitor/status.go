package monitor

import (
	"sync"
	"time"
)

// CircuitStatus is the daemon-health snapshot exposed to operators:
// whether the circuit is open, how many consecutive failures have
// been seen, and when the last call succeeded.
type CircuitStatus struct {
	Open                bool      `json:"open"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastSuccess         time.Time `json:"last_success"`
}

// StatusSource provides the current circuit status. The runtime
// adapter implements it.
type StatusSource interface {
	CircuitStatus() CircuitStatus
}

// Board is the aggregated diagnostics snapshot served to operators.
type Board struct {
	mu      sync.RWMutex
	source  StatusSource
	stats   func() CollectorStats
	session SessionState
}

// SessionState describes the currently active session, if any.
type SessionState struct {
	Active    bool   `json:"active"`
	MissionID string `json:"mission_id,omitempty"`
	StepID    string `json:"step_id,omitempty"`
	State     string `json:"state,omitempty"`
}

// Snapshot is the serializable diagnostics view.
type Snapshot struct {
	Circuit CircuitStatus  `json:"circuit"`
	Session SessionState   `json:"session"`
	Stats   CollectorStats `json:"stats"`
	Time    time.Time      `json:"time"`
}

// NewBoard creates a Board reading circuit status from source and
// aggregate stats from the collector.
func NewBoard(source StatusSource, collector *Collector) *Board {
	return &Board{
		source: source,
		stats:  collector.Stats,
	}
}

// UpdateFromEvent folds a runner event into the session view.
func (b *Board) UpdateFromEvent(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch event.Type {
	case EventSessionStarted:
		b.session = SessionState{
			Active:    true,
			MissionID: event.MissionID,
			StepID:    event.StepID,
			State:     "step_pending",
		}
	case EventStepPassed, EventStepMismatched:
		b.session.StepID = event.StepID
	case EventMissionCompleted, EventMissionAbandoned:
		b.session = SessionState{}
	}
}

// Snapshot returns the current diagnostics view.
func (b *Board) Snapshot() Snapshot {
	b.mu.RLock()
	session := b.session
	b.mu.RUnlock()

	snap := Snapshot{
		Session: session,
		Time:    time.Now(),
	}
	if b.source != nil {
		snap.Circuit = b.source.CircuitStatus()
	}
	if b.stats != nil {
		snap.Stats = b.stats()
	}
	return snap
}
