// Package metrics provides lightweight in-process counters for the
// mission runner. The host application scrapes or exports them; this
// package deliberately has no exporter dependency.
package metrics

import (
	"sync"
	"time"
)

// Recorder defines the interface for recording runner metrics.
type Recorder interface {
	// RecordDaemonCall records one daemon call attempt and its
	// outcome kind ("" for success).
	RecordDaemonCall(operation, errorKind string, duration time.Duration)
	// RecordRetry records a scheduled retry for an operation.
	RecordRetry(operation string)
	// RecordCircuitOpen records the circuit breaker opening.
	RecordCircuitOpen()
	// RecordValidation records a step validation outcome.
	RecordValidation(missionID string, matched bool)
	// RecordSandbox records a sandbox lifecycle change
	// ("created" or "destroyed").
	RecordSandbox(change string)
}

// Noop is a no-op Recorder useful for tests or when metrics
// collection is disabled.
type Noop struct{}

func (Noop) RecordDaemonCall(_, _ string, _ time.Duration) {}
func (Noop) RecordRetry(_ string)                          {}
func (Noop) RecordCircuitOpen()                            {}
func (Noop) RecordValidation(_ string, _ bool)             {}
func (Noop) RecordSandbox(_ string)                        {}

// InMemory is a Recorder backed by in-process counters. It is safe
// for concurrent use.
type InMemory struct {
	mu           sync.Mutex
	calls        map[string]int
	callFailures map[string]int
	retries      map[string]int
	circuitOpens int
	validations  map[string]int // mission -> total
	mismatches   map[string]int
	sandboxes    map[string]int
	durations    map[string]time.Duration
}

// NewInMemory creates an empty InMemory recorder.
func NewInMemory() *InMemory {
	return &InMemory{
		calls:        make(map[string]int),
		callFailures: make(map[string]int),
		retries:      make(map[string]int),
		validations:  make(map[string]int),
		mismatches:   make(map[string]int),
		sandboxes:    make(map[string]int),
		durations:    make(map[string]time.Duration),
	}
}

func (m *InMemory) RecordDaemonCall(operation, errorKind string, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[operation]++
	m.durations[operation] += duration
	if errorKind != "" {
		m.callFailures[operation]++
	}
}

func (m *InMemory) RecordRetry(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries[operation]++
}

func (m *InMemory) RecordCircuitOpen() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.circuitOpens++
}

func (m *InMemory) RecordValidation(missionID string, matched bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.validations[missionID]++
	if !matched {
		m.mismatches[missionID]++
	}
}

func (m *InMemory) RecordSandbox(change string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sandboxes[change]++
}

// Summary is a point-in-time copy of all counters.
type Summary struct {
	Calls        map[string]int           `json:"calls"`
	CallFailures map[string]int           `json:"call_failures"`
	Retries      map[string]int           `json:"retries"`
	CircuitOpens int                      `json:"circuit_opens"`
	Validations  map[string]int           `json:"validations"`
	Mismatches   map[string]int           `json:"mismatches"`
	Sandboxes    map[string]int           `json:"sandboxes"`
	Durations    map[string]time.Duration `json:"durations"`
}

// Snapshot returns a copy of all counters.
func (m *InMemory) Snapshot() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Summary{
		Calls:        make(map[string]int, len(m.calls)),
		CallFailures: make(map[string]int, len(m.callFailures)),
		Retries:      make(map[string]int, len(m.retries)),
		CircuitOpens: m.circuitOpens,
		Validations:  make(map[string]int, len(m.validations)),
		Mismatches:   make(map[string]int, len(m.mismatches)),
		Sandboxes:    make(map[string]int, len(m.sandboxes)),
		Durations:    make(map[string]time.Duration, len(m.durations)),
	}
	for k, v := range m.calls {
		s.Calls[k] = v
	}
	for k, v := range m.callFailures {
		s.CallFailures[k] = v
	}
	for k, v := range m.retries {
		s.Retries[k] = v
	}
	for k, v := range m.validations {
		s.Validations[k] = v
	}
	for k, v := range m.mismatches {
		s.Mismatches[k] = v
	}
	for k, v := range m.sandboxes {
		s.Sandboxes[k] = v
	}
	for k, v := range m.durations {
		s.Durations[k] = v
	}
	return s
}
