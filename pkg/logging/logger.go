// Package logging provides structured logging for the mission runner
// with JSON, console, and multi-destination output.
package logging

// Logger defines the interface for structured logging used across
// the engine and runtime adapter.
type Logger interface {
	// Info logs an informational message.
	Info(msg string, fields ...Field)

	// Warn logs a warning message.
	Warn(msg string, fields ...Field)

	// Error logs an error message.
	Error(msg string, fields ...Field)

	// Debug logs a debug-level message.
	Debug(msg string, fields ...Field)

	// WithFields returns a Logger with additional default
	// fields attached to every subsequent log entry.
	WithFields(fields ...Field) Logger

	// LogDaemonCall logs one attempt against the sandbox daemon.
	LogDaemonCall(call DaemonCallLog)

	// Close flushes any buffers and releases resources.
	Close() error
}

// DaemonCallLog captures a single sandbox daemon call attempt,
// including retry context and outcome classification.
type DaemonCallLog struct {
	Timestamp  string `json:"timestamp"`
	Operation  string `json:"operation"`
	SandboxID  string `json:"sandbox_id,omitempty"`
	Attempt    int    `json:"attempt"`
	MaxRetries int    `json:"max_retries"`
	DurationMs int64  `json:"duration_ms"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
}

// LogLevel represents logging severity levels.
type LogLevel int

const (
	// LevelDebug is the most verbose level.
	LevelDebug LogLevel = iota
	// LevelInfo is the default level.
	LevelInfo
	// LevelWarn indicates potential issues.
	LevelWarn
	// LevelError indicates failures.
	LevelError
)

// String returns the string representation of a log level.
func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}
