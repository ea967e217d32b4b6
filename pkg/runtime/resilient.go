package runtime

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"digital.vasic.missions/pkg/logging"
	"digital.vasic.missions/pkg/metrics"
	"digital.vasic.missions/pkg/monitor"
)

// Resilient decorates a Sandbox with retry, per-call timeouts, and
// the circuit breaker. All sessions share a single Resilient
// instance, so its Health state reflects the one daemon connection.
//
// Retry policy: up to MaxRetries attempts per operation, with a
// per-attempt delay of min(base << n, max) plus jitter. Before each
// retry the daemon is pinged; the result is logged but the attempt
// proceeds regardless, since the daemon may recover mid-wait. Only
// transient failures consume retry budget; permanent failures
// surface immediately.
type Resilient struct {
	inner     Sandbox
	health    *Health
	cfg       Config
	log       logging.Logger
	rec       metrics.Recorder
	publisher monitor.Publisher

	// sleep is injectable so tests can run the retry loop without
	// real delays.
	sleep func(ctx context.Context, d time.Duration) error
}

// ResilientOption configures the Resilient wrapper.
type ResilientOption func(*Resilient)

// WithLogger sets the logger.
func WithLogger(log logging.Logger) ResilientOption {
	return func(r *Resilient) { r.log = log }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(rec metrics.Recorder) ResilientOption {
	return func(r *Resilient) { r.rec = rec }
}

// WithPublisher sets the diagnostics event publisher.
func WithPublisher(p monitor.Publisher) ResilientOption {
	return func(r *Resilient) { r.publisher = p }
}

// NewResilient wraps inner with the retry and circuit breaker
// policy described by cfg.
func NewResilient(inner Sandbox, cfg Config, opts ...ResilientOption) *Resilient {
	r := &Resilient{
		inner:  inner,
		health: NewHealth(cfg.CircuitMaxFailures, cfg.CircuitResetTimeout),
		cfg:    cfg,
		log:    logging.NullLogger{},
		rec:    metrics.Noop{},
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// backoffDelay returns the capped exponential delay before retry n
// (0-based), with ±5% jitter. The cap applies per attempt, not
// cumulatively.
func (r *Resilient) backoffDelay(retry int) time.Duration {
	delay := r.cfg.RetryBaseDelay << uint(retry)
	if r.cfg.RetryMaxDelay > 0 && delay > r.cfg.RetryMaxDelay {
		delay = r.cfg.RetryMaxDelay
	}
	if delay > 0 {
		jitter := time.Duration(rand.Int63n(int64(delay)/10+1)) - delay/20
		delay += jitter
	}
	return delay
}

// do runs one operation through the retry and circuit breaker
// machinery. fn receives a context bounded by the per-call timeout.
func (r *Resilient) do(ctx context.Context, op, sandboxID string, fn func(ctx context.Context) error) error {
	if !r.health.Allow() {
		r.rec.RecordDaemonCall(op, KindCircuitOpen.String(), 0)
		return NewError(KindCircuitOpen, op,
			"too many recent daemon failures, refusing to call", nil)
	}

	// With the circuit open, Allow admitted a half-open probe:
	// a single attempt, no retry budget.
	maxAttempts := r.cfg.MaxRetries
	if r.health.IsOpen() {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			delay := r.backoffDelay(attempt - 2)
			r.rec.RecordRetry(op)
			r.publish(monitor.Event{
				Type:      monitor.EventRetryScheduled,
				Operation: op,
				Attempt:   attempt,
				Message:   fmt.Sprintf("retrying in %s", delay),
			})
			if err := r.sleep(ctx, delay); err != nil {
				// The caller gave up during the wait; report the
				// failure we were retrying, not the wait itself.
				return lastErr
			}
			if err := r.pingOnce(ctx); err != nil {
				r.log.Warn("daemon still unreachable before retry",
					logging.F("op", op),
					logging.F("attempt", attempt),
					logging.Err(err),
				)
			}
		}

		start := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
		err := fn(callCtx)
		cancel()
		duration := time.Since(start)

		if err == nil {
			if r.health.RecordSuccess() {
				r.publish(monitor.Event{
					Type:      monitor.EventCircuitClosed,
					Operation: op,
					Message:   "daemon recovered, circuit closed",
				})
			}
			r.rec.RecordDaemonCall(op, "", duration)
			r.logCall(op, sandboxID, attempt, duration, nil)
			return nil
		}

		err = r.normalize(op, err, callCtx)
		kind := KindOf(err)
		r.rec.RecordDaemonCall(op, kind.String(), duration)
		r.logCall(op, sandboxID, attempt, duration, err)

		if kind != KindTransient {
			return err
		}

		if r.health.RecordFailure() {
			r.rec.RecordCircuitOpen()
			r.publish(monitor.Event{
				Type:      monitor.EventCircuitOpened,
				Operation: op,
				Message:   "consecutive daemon failures reached threshold",
			})
			r.log.Error("circuit breaker opened",
				logging.F("op", op),
				logging.F("failures", r.cfg.CircuitMaxFailures),
			)
		}
		lastErr = err

		if ctx.Err() != nil {
			return lastErr
		}
	}

	return NewError(KindTransient, op,
		fmt.Sprintf("failed after %d attempts, daemon may be unresponsive", maxAttempts),
		lastErr)
}

// normalize ensures fn's failure carries a taxonomy kind. A per-call
// timeout shows up as the inner context's deadline expiry and is
// classified transient.
func (r *Resilient) normalize(op string, err error, callCtx context.Context) error {
	if _, ok := err.(*Error); ok {
		return err
	}
	if callCtx.Err() == context.DeadlineExceeded {
		return NewError(KindTransient, op, "daemon call timed out", err)
	}
	return NewError(KindUnknown, op, "", err)
}

// pingOnce checks daemon reachability without touching circuit
// state; it informs logging between retries, nothing else.
func (r *Resilient) pingOnce(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()
	return r.inner.Ping(pingCtx)
}

func (r *Resilient) logCall(op, sandboxID string, attempt int, duration time.Duration, err error) {
	call := logging.DaemonCallLog{
		Timestamp:  time.Now().Format(time.RFC3339Nano),
		Operation:  op,
		SandboxID:  sandboxID,
		Attempt:    attempt,
		MaxRetries: r.cfg.MaxRetries,
		DurationMs: duration.Milliseconds(),
	}
	if err != nil {
		call.ErrorKind = KindOf(err).String()
		call.Error = err.Error()
	}
	r.log.LogDaemonCall(call)
}

func (r *Resilient) publish(event monitor.Event) {
	if r.publisher != nil {
		r.publisher.Publish(event)
	}
}

// Create provisions a sandbox with retry protection.
func (r *Resilient) Create(ctx context.Context, spec SandboxSpec) (Handle, error) {
	var handle Handle
	err := r.do(ctx, "create", "", func(ctx context.Context) error {
		var err error
		handle, err = r.inner.Create(ctx, spec)
		return err
	})
	if err == nil {
		r.rec.RecordSandbox("created")
	}
	return handle, err
}

// Exec runs a command in the sandbox with retry protection.
func (r *Resilient) Exec(ctx context.Context, handle Handle, command string) (ExecResult, error) {
	var result ExecResult
	err := r.do(ctx, "exec", handle.ID, func(ctx context.Context) error {
		var err error
		result, err = r.inner.Exec(ctx, handle, command)
		return err
	})
	return result, err
}

// Stop halts the sandbox with retry protection.
func (r *Resilient) Stop(ctx context.Context, handle Handle) error {
	return r.do(ctx, "stop", handle.ID, func(ctx context.Context) error {
		return r.inner.Stop(ctx, handle)
	})
}

// Destroy removes the sandbox with retry protection.
func (r *Resilient) Destroy(ctx context.Context, handle Handle) error {
	err := r.do(ctx, "destroy", handle.ID, func(ctx context.Context) error {
		return r.inner.Destroy(ctx, handle)
	})
	if err == nil {
		r.rec.RecordSandbox("destroyed")
	}
	return err
}

// Ping checks daemon reachability. A successful ping counts as a
// successful operation and closes the circuit like any other.
func (r *Resilient) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, r.cfg.CallTimeout)
	defer cancel()

	if err := r.inner.Ping(pingCtx); err != nil {
		if _, ok := err.(*Error); !ok {
			err = NewError(KindTransient, "ping", "daemon unreachable", err)
		}
		return err
	}
	if r.health.RecordSuccess() {
		r.publish(monitor.Event{
			Type:      monitor.EventCircuitClosed,
			Operation: "ping",
			Message:   "daemon recovered, circuit closed",
		})
	}
	return nil
}

// CircuitStatus exposes the circuit breaker state for the
// diagnostics surface.
func (r *Resilient) CircuitStatus() monitor.CircuitStatus {
	return r.health.Snapshot()
}
