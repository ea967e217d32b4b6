// Package monitor provides the operator diagnostics surface: an
// event stream of session and daemon-health activity, an aggregated
// status board, and a WebSocket server to watch both live.
package monitor

import "time"

// EventType represents the type of runner event.
type EventType string

const (
	EventSessionStarted   EventType = "session_started"
	EventStepPassed       EventType = "step_passed"
	EventStepMismatched   EventType = "step_mismatched"
	EventMissionCompleted EventType = "mission_completed"
	EventMissionAbandoned EventType = "mission_abandoned"
	EventRetryScheduled   EventType = "retry_scheduled"
	EventCircuitOpened    EventType = "circuit_opened"
	EventCircuitClosed    EventType = "circuit_closed"
)

// Event represents a lifecycle or daemon-health event emitted by the
// engine or the runtime adapter.
type Event struct {
	Type      EventType      `json:"type"`
	MissionID string         `json:"mission_id,omitempty"`
	StepID    string         `json:"step_id,omitempty"`
	Operation string         `json:"operation,omitempty"`
	Message   string         `json:"message,omitempty"`
	Attempt   int            `json:"attempt,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// Publisher accepts events. The engine and runtime adapter hold a
// Publisher rather than a concrete collector so tests can observe or
// discard the stream.
type Publisher interface {
	Publish(event Event)
}

// NopPublisher discards all events.
type NopPublisher struct{}

// Publish is a no-op.
func (NopPublisher) Publish(Event) {}
