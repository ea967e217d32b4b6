// Package runtime wraps the external sandbox daemon behind a small
// synchronous contract and makes it survivable: every operation is
// retried with exponential backoff, classified into a typed error
// taxonomy, and guarded by a process-wide circuit breaker.
package runtime

import (
	"context"
	"fmt"
)

// Handle is an opaque reference to a provisioned sandbox. It is
// exclusively owned by the session that created it.
type Handle struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SandboxSpec describes the sandbox to provision.
type SandboxSpec struct {
	// Image is the base image reference (e.g., "alpine:latest").
	Image string

	// Name optionally pins the sandbox name. A stale sandbox with
	// the same name is removed before creation.
	Name string

	// WorkingDir is the working directory for commands executed
	// inside the sandbox. Empty means the image default.
	WorkingDir string
}

// ExecResult is the captured outcome of a command executed inside a
// sandbox.
type ExecResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Output returns the combined output a validation probe is matched
// against: stdout when present, otherwise stderr. A nonzero exit
// with no output at all yields a synthetic message so matchers and
// humans see something rather than an empty string.
func (r ExecResult) Output() string {
	if r.Stdout != "" {
		return r.Stdout
	}
	if r.Stderr != "" {
		return r.Stderr
	}
	if r.ExitCode != 0 {
		return r.SyntheticExitMessage()
	}
	return ""
}

// SyntheticExitMessage is the placeholder output for a silent
// nonzero exit.
func (r ExecResult) SyntheticExitMessage() string {
	return fmt.Sprintf("Command exited with code %d", r.ExitCode)
}

// Sandbox is the synchronous contract against the sandbox daemon.
// Implementations must honor ctx cancellation on every call; all
// calls may block on daemon I/O.
type Sandbox interface {
	// Create provisions and starts a sandbox.
	Create(ctx context.Context, spec SandboxSpec) (Handle, error)

	// Exec runs a shell command inside the sandbox and captures
	// its output and exit code.
	Exec(ctx context.Context, handle Handle, command string) (ExecResult, error)

	// Stop halts the sandbox without removing it.
	Stop(ctx context.Context, handle Handle) error

	// Destroy force-removes the sandbox.
	Destroy(ctx context.Context, handle Handle) error

	// Ping checks daemon reachability.
	Ping(ctx context.Context) error
}
