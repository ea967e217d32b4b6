package runtime

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Environment variables consumed by the runtime adapter. The daemon
// connection string itself is DOCKER_HOST, honored by the client
// library, so a native daemon or any API-compatible alternative
// reachable over the same protocol works unchanged.
const (
	EnvMaxRetries     = "MISSIONS_MAX_RETRIES"
	EnvRetryBaseDelay = "MISSIONS_RETRY_BASE_DELAY"
	EnvRetryMaxDelay  = "MISSIONS_RETRY_MAX_DELAY"
	EnvCBMaxFailures  = "MISSIONS_CB_MAX_FAILURES"
	EnvCBTimeout      = "MISSIONS_CB_TIMEOUT"
	EnvCallTimeout    = "MISSIONS_CALL_TIMEOUT"
)

// Config holds the retry and circuit breaker settings for the
// runtime adapter.
type Config struct {
	// MaxRetries is the maximum number of attempts per operation.
	MaxRetries int

	// RetryBaseDelay is the delay before the first retry; each
	// subsequent retry doubles it.
	RetryBaseDelay time.Duration

	// RetryMaxDelay caps each individual backoff delay.
	RetryMaxDelay time.Duration

	// CircuitMaxFailures is the consecutive-failure threshold
	// that opens the circuit.
	CircuitMaxFailures int

	// CircuitResetTimeout is how long an open circuit waits
	// before allowing a probe.
	CircuitResetTimeout time.Duration

	// CallTimeout bounds each individual daemon call so a hung
	// call cannot stall a retry attempt. It must be smaller than
	// the overall retry budget.
	CallTimeout time.Duration
}

// DefaultConfig returns the documented defaults: 5 attempts, 1s
// base delay, 10s delay cap, circuit threshold 5, 30s reset
// timeout, 60s per-call bound.
func DefaultConfig() Config {
	return Config{
		MaxRetries:          5,
		RetryBaseDelay:      1 * time.Second,
		RetryMaxDelay:       10 * time.Second,
		CircuitMaxFailures:  5,
		CircuitResetTimeout: 30 * time.Second,
		CallTimeout:         60 * time.Second,
	}
}

// ConfigFromEnv reads configuration from the environment, falling
// back to the defaults for anything unset. Unparseable values are
// an error rather than a silent fallback.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if err := intFromEnv(EnvMaxRetries, &cfg.MaxRetries); err != nil {
		return cfg, err
	}
	if err := secondsFromEnv(EnvRetryBaseDelay, &cfg.RetryBaseDelay); err != nil {
		return cfg, err
	}
	if err := secondsFromEnv(EnvRetryMaxDelay, &cfg.RetryMaxDelay); err != nil {
		return cfg, err
	}
	if err := intFromEnv(EnvCBMaxFailures, &cfg.CircuitMaxFailures); err != nil {
		return cfg, err
	}
	if err := secondsFromEnv(EnvCBTimeout, &cfg.CircuitResetTimeout); err != nil {
		return cfg, err
	}
	if err := secondsFromEnv(EnvCallTimeout, &cfg.CallTimeout); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks configuration invariants.
func (c Config) Validate() error {
	if c.MaxRetries < 1 {
		return fmt.Errorf("max retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.RetryBaseDelay < 0 || c.RetryMaxDelay < 0 {
		return fmt.Errorf("retry delays must not be negative")
	}
	if c.RetryMaxDelay > 0 && c.RetryBaseDelay > c.RetryMaxDelay {
		return fmt.Errorf(
			"retry base delay %s exceeds max delay %s",
			c.RetryBaseDelay, c.RetryMaxDelay,
		)
	}
	if c.CircuitMaxFailures < 1 {
		return fmt.Errorf("circuit failure threshold must be at least 1, got %d", c.CircuitMaxFailures)
	}
	if c.CallTimeout <= 0 {
		return fmt.Errorf("call timeout must be positive, got %s", c.CallTimeout)
	}
	return nil
}

func intFromEnv(key string, dst *int) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", key, raw, err)
	}
	*dst = v
	return nil
}

// secondsFromEnv parses a fractional number of seconds (e.g., "1.5").
func secondsFromEnv(key string, dst *time.Duration) error {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("parse %s=%q: %w", key, raw, err)
	}
	*dst = time.Duration(v * float64(time.Second))
	return nil
}
