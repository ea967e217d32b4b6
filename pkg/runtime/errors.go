package runtime

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a daemon failure so the retry policy and callers
// can switch on it without inspecting daemon-specific error text.
type Kind int

const (
	// KindUnknown covers anything uncategorized. It is treated as
	// non-retryable to avoid masking bugs behind retries.
	KindUnknown Kind = iota

	// KindTransient marks connection-level failures (reset,
	// timeout, temporary unavailability) that are safe to retry.
	KindTransient

	// KindNotFound marks a missing sandbox handle or image.
	KindNotFound

	// KindInvalidSpec marks a malformed provisioning request.
	KindInvalidSpec

	// KindCircuitOpen marks a call rejected without contacting
	// the daemon because it is presumed down.
	KindCircuitOpen
)

// String returns the taxonomy name of the kind.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindNotFound:
		return "not_found"
	case KindInvalidSpec:
		return "invalid_spec"
	case KindCircuitOpen:
		return "circuit_open"
	default:
		return "unknown"
	}
}

// Error is the typed failure surfaced by the runtime adapter.
type Error struct {
	Kind Kind
	Op   string // operation that failed: create, exec, stop, destroy, ping
	Msg  string
	Err  error // underlying daemon error, may be nil
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError constructs a typed runtime error.
func NewError(kind Kind, op, msg string, err error) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Err: err}
}

// KindOf extracts the taxonomy kind from err. Context deadline
// expiry counts as transient (a hung call is indistinguishable from
// a dead connection); anything untyped is unknown.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	return KindUnknown
}

// IsTransient reports whether err is safe to retry.
func IsTransient(err error) bool {
	return KindOf(err) == KindTransient
}

// IsCircuitOpen reports whether err was rejected by the open
// circuit breaker.
func IsCircuitOpen(err error) bool {
	return KindOf(err) == KindCircuitOpen
}

// IsNotFound reports whether err marks a missing handle or image.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}
