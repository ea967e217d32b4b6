// Package engine drives mission sessions: it resolves definitions,
// provisions the sandbox, validates steps against their declared
// matchers, and records completions. The engine runs at most one
// session at a time.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"digital.vasic.missions/pkg/logging"
	"digital.vasic.missions/pkg/matcher"
	"digital.vasic.missions/pkg/metrics"
	"digital.vasic.missions/pkg/mission"
	"digital.vasic.missions/pkg/monitor"
	"digital.vasic.missions/pkg/progress"
	"digital.vasic.missions/pkg/runtime"
)

// Resolver maps a mission ID to its validated definition. It is
// satisfied by scenario.Loader.
type Resolver interface {
	Resolve(id mission.ID) (*mission.Definition, error)
}

// Engine is the mission state machine. All methods are safe for
// concurrent use; the single-session invariant is enforced under an
// internal lock held across daemon calls, so a second Start observes
// either the finished or the absent session, never a half-built one.
type Engine struct {
	mu       sync.Mutex
	resolver Resolver
	sandbox  runtime.Sandbox
	matchers *matcher.Registry
	store    progress.Store
	log      logging.Logger
	rec      metrics.Recorder
	pub      monitor.Publisher
	userID   string
	session  *Session
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(log logging.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) Option {
	return func(e *Engine) { e.rec = rec }
}

// WithPublisher sets the diagnostics event publisher.
func WithPublisher(p monitor.Publisher) Option {
	return func(e *Engine) { e.pub = p }
}

// WithProgressStore sets the completion store.
func WithProgressStore(store progress.Store) Option {
	return func(e *Engine) { e.store = store }
}

// WithUserID sets the user completions are recorded under.
func WithUserID(id string) Option {
	return func(e *Engine) { e.userID = id }
}

// New creates an Engine. The resolver, sandbox, and matcher registry
// are required; everything else defaults to in-process no-op or
// in-memory implementations.
func New(resolver Resolver, sandbox runtime.Sandbox, matchers *matcher.Registry, opts ...Option) *Engine {
	e := &Engine{
		resolver: resolver,
		sandbox:  sandbox,
		matchers: matchers,
		store:    progress.NewMemory(),
		log:      logging.NullLogger{},
		rec:      metrics.Noop{},
		pub:      monitor.NopPublisher{},
		userID:   "default",
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start begins a mission session: resolve the definition, provision
// the sandbox, run the environment setup commands in order, and leave
// the session waiting on the first step. Any failure after the
// sandbox exists unwinds it best-effort and returns the engine to
// idle.
func (e *Engine) Start(ctx context.Context, id mission.ID) (*StepInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissionAlreadyActive, e.session.MissionID)
	}

	def, err := e.resolver.Resolve(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissionNotFound, err)
	}

	handle, err := e.sandbox.Create(ctx, runtime.SandboxSpec{
		Image:      def.Environment.Image,
		Name:       sandboxName(id),
		WorkingDir: def.Environment.WorkingDir,
	})
	if err != nil {
		return nil, fmt.Errorf("provision sandbox for %s: %w", id, err)
	}

	for i, command := range def.Environment.Setup {
		result, execErr := e.sandbox.Exec(ctx, handle, command)
		if execErr == nil && result.ExitCode != 0 {
			execErr = fmt.Errorf("setup command %q: %s", command, result.Output())
		}
		if execErr != nil {
			e.teardown(ctx, handle, id)
			return nil, fmt.Errorf("setup step %d for %s: %w", i, id, execErr)
		}
	}

	e.session = &Session{
		MissionID:      id,
		Definition:     def,
		Handle:         handle,
		StepIndex:      0,
		CompletedSteps: make([]string, 0, len(def.Steps)),
		State:          StateStepPending,
		StartedAt:      time.Now(),
	}

	e.log.Info("mission started",
		logging.F("mission", string(id)),
		logging.F("sandbox", handle.ID),
		logging.F("steps", len(def.Steps)),
	)
	e.pub.Publish(monitor.Event{
		Type:      monitor.EventSessionStarted,
		MissionID: string(id),
		Message:   def.Mission.Title,
	})

	return e.stepInfoLocked(), nil
}

// ValidateCurrentStep runs the pending step's probe command and
// matches its output. A mismatch leaves the session where it is; a
// match advances it, and passing the final step completes the
// mission, records the completion, and tears the sandbox down.
// Adapter failures are returned as errors with the session untouched,
// so the step can be validated again once the daemon recovers.
func (e *Engine) ValidateCurrentStep(ctx context.Context) (*StepOutcome, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil || e.session.State != StateStepPending {
		return nil, ErrNoActiveSession
	}
	session := e.session
	step := session.CurrentStep()

	m, err := e.matchers.Resolve(step.Validation.Matcher)
	if err != nil {
		return nil, fmt.Errorf("step %s: %w", step.ID, err)
	}

	result, err := e.sandbox.Exec(ctx, session.Handle, step.Validation.Command)
	if err != nil {
		return nil, fmt.Errorf("probe for step %s: %w", step.ID, err)
	}

	checked := matcher.Check(m, result.Output(), step.Validation)
	e.rec.RecordValidation(string(session.MissionID), checked.Matched)

	outcome := &StepOutcome{
		StepID:   step.ID,
		Matched:  checked.Matched,
		Strategy: checked.Strategy,
		Expected: checked.Expected,
		Actual:   checked.Actual,
	}

	if !checked.Matched {
		e.pub.Publish(monitor.Event{
			Type:      monitor.EventStepMismatched,
			MissionID: string(session.MissionID),
			StepID:    step.ID,
		})
		return outcome, nil
	}

	session.CompletedSteps = append(session.CompletedSteps, step.ID)
	e.pub.Publish(monitor.Event{
		Type:      monitor.EventStepPassed,
		MissionID: string(session.MissionID),
		StepID:    step.ID,
	})

	if session.IsLastStep() {
		e.completeLocked(ctx, outcome)
		return outcome, nil
	}

	session.StepIndex++
	outcome.NextStep = e.stepInfoLocked()
	return outcome, nil
}

// completeLocked finishes the mission: record the completion, tear
// the sandbox down, and return to idle. A store failure is logged,
// not surfaced.
func (e *Engine) completeLocked(ctx context.Context, outcome *StepOutcome) {
	session := e.session
	def := session.Definition
	session.State = StateCompleted

	outcome.MissionCompleted = true
	outcome.CompletionMessage = def.Completion.Message
	outcome.Points = def.Completion.Points

	err := e.store.RecordCompletion(ctx, e.userID, session.MissionID, progress.CompletionRecord{
		Steps:       session.CompletedSteps,
		Points:      def.Completion.Points,
		Unlocks:     def.Completion.Unlocks,
		CompletedAt: time.Now().UTC(),
	})
	if err != nil {
		e.log.Error("failed to record mission completion",
			logging.F("mission", string(session.MissionID)),
			logging.Err(err),
		)
	}

	e.log.Info("mission completed",
		logging.F("mission", string(session.MissionID)),
		logging.F("points", def.Completion.Points),
	)
	e.pub.Publish(monitor.Event{
		Type:      monitor.EventMissionCompleted,
		MissionID: string(session.MissionID),
		Message:   def.Completion.Message,
	})

	e.teardown(ctx, session.Handle, session.MissionID)
	e.session = nil
}

// Hint returns the pending step's hint text.
func (e *Engine) Hint() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil || e.session.State != StateStepPending {
		return "", ErrNoActiveSession
	}
	return e.session.CurrentStep().Hint, nil
}

// Abandon discards the active session. Sandbox teardown is
// best-effort; a daemon failure is logged and the session is
// discarded regardless.
func (e *Engine) Abandon(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrNoActiveSession
	}
	session := e.session
	session.State = StateAbandoned

	e.log.Info("mission abandoned",
		logging.F("mission", string(session.MissionID)),
		logging.F("step_index", session.StepIndex),
	)
	e.pub.Publish(monitor.Event{
		Type:      monitor.EventMissionAbandoned,
		MissionID: string(session.MissionID),
		StepID:    session.CurrentStep().ID,
	})

	e.teardown(ctx, session.Handle, session.MissionID)
	e.session = nil
	return nil
}

// Status returns a snapshot of the engine for rendering.
func (e *Engine) Status() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return Snapshot{State: StateIdle}
	}
	s := e.session
	return Snapshot{
		State:        s.State,
		MissionID:    s.MissionID,
		MissionTitle: s.Definition.Mission.Title,
		StepIndex:    s.StepIndex,
		StepTotal:    len(s.Definition.Steps),
		StepID:       s.CurrentStep().ID,
		StartedAt:    s.StartedAt,
	}
}

// teardown destroys a sandbox best-effort; failures are logged.
func (e *Engine) teardown(ctx context.Context, handle runtime.Handle, id mission.ID) {
	if err := e.sandbox.Destroy(ctx, handle); err != nil {
		e.log.Warn("failed to destroy sandbox",
			logging.F("mission", string(id)),
			logging.F("sandbox", handle.ID),
			logging.Err(err),
		)
	}
}

// stepInfoLocked builds the StepInfo for the session's current step.
func (e *Engine) stepInfoLocked() *StepInfo {
	s := e.session
	step := s.CurrentStep()
	return &StepInfo{
		MissionID:    s.MissionID,
		MissionTitle: s.Definition.Mission.Title,
		StepID:       step.ID,
		Title:        step.Title,
		Description:  step.Description,
		Index:        s.StepIndex,
		Total:        len(s.Definition.Steps),
	}
}

// sandboxName derives a daemon-safe sandbox name from a hierarchical
// mission ID.
func sandboxName(id mission.ID) string {
	return "mission-" + strings.ReplaceAll(string(id), "/", "-")
}
