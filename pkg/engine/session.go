package engine

import (
	"time"

	"digital.vasic.missions/pkg/mission"
	"digital.vasic.missions/pkg/runtime"
)

// State is the engine lifecycle state. The engine runs at most one
// session; State describes where that session stands.
type State int

const (
	// StateIdle means no session exists.
	StateIdle State = iota

	// StateActive means a session exists but its sandbox is still
	// being prepared.
	StateActive

	// StateStepPending means the session is waiting for the current
	// step to be validated.
	StateStepPending

	// StateCompleted means the final step passed; the session is
	// being torn down.
	StateCompleted

	// StateAbandoned means the learner gave up; the session is
	// being torn down.
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateActive:
		return "active"
	case StateStepPending:
		return "step_pending"
	case StateCompleted:
		return "completed"
	case StateAbandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Session is the engine's working state for one mission run. It is
// owned by the engine and mutated only under the engine's lock.
type Session struct {
	MissionID      mission.ID
	Definition     *mission.Definition
	Handle         runtime.Handle
	StepIndex      int
	CompletedSteps []string
	State          State
	StartedAt      time.Time
}

// CurrentStep returns the step awaiting validation.
func (s *Session) CurrentStep() mission.Step {
	return s.Definition.Steps[s.StepIndex]
}

// IsLastStep reports whether the current step is the final one.
func (s *Session) IsLastStep() bool {
	return s.StepIndex == len(s.Definition.Steps)-1
}

// StepInfo describes a step for rendering by a presentation layer.
type StepInfo struct {
	MissionID    mission.ID `json:"mission_id"`
	MissionTitle string     `json:"mission_title"`
	StepID       string     `json:"step_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Index        int        `json:"index"`
	Total        int        `json:"total"`
}

// StepOutcome is the result of validating the current step. A
// mismatch is a normal learner outcome carried as data; adapter
// failures are returned as errors instead.
type StepOutcome struct {
	StepID   string `json:"step_id"`
	Matched  bool   `json:"matched"`
	Strategy string `json:"strategy"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`

	// MissionCompleted is set when this step was the last one.
	MissionCompleted  bool   `json:"mission_completed"`
	CompletionMessage string `json:"completion_message,omitempty"`
	Points            int    `json:"points,omitempty"`

	// NextStep is the step now pending, nil when the mission
	// completed or the match failed.
	NextStep *StepInfo `json:"next_step,omitempty"`
}

// Snapshot is a point-in-time view of the engine for UIs.
type Snapshot struct {
	State        State      `json:"state"`
	MissionID    mission.ID `json:"mission_id,omitempty"`
	MissionTitle string     `json:"mission_title,omitempty"`
	StepIndex    int        `json:"step_index"`
	StepTotal    int        `json:"step_total"`
	StepID       string     `json:"step_id,omitempty"`
	StartedAt    time.Time  `json:"started_at,omitempty"`
}
