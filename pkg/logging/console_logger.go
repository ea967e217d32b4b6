package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// ANSI color codes.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorBlue   = "\033[34m"
	colorGray   = "\033[90m"
)

// ConsoleLogger provides colored console output.
type ConsoleLogger struct {
	mu      sync.Mutex
	output  io.Writer
	verbose bool
	fields  map[string]any
}

// NewConsoleLogger creates a console logger. When verbose is
// true, debug messages are emitted.
func NewConsoleLogger(verbose bool) *ConsoleLogger {
	return &ConsoleLogger{
		output:  os.Stdout,
		verbose: verbose,
		fields:  make(map[string]any),
	}
}

func (c *ConsoleLogger) log(
	level LogLevel, color, msg string, fields ...Field,
) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ts := time.Now().Format("15:04:05")
	levelStr := level.String()

	merged := make([]Field, 0, len(c.fields)+len(fields))
	for k, v := range c.fields {
		merged = append(merged, Field{Key: k, Value: v})
	}
	merged = append(merged, fields...)

	var fieldStr string
	if len(merged) > 0 {
		parts := make([]string, 0, len(merged))
		for _, f := range merged {
			parts = append(
				parts,
				fmt.Sprintf("%s=%v", f.Key, f.Value),
			)
		}
		fieldStr = " " + colorGray +
			fmt.Sprintf("{%s}", strings.Join(parts, ", ")) +
			colorReset
	}

	fmt.Fprintf(
		c.output, "%s%s%s [%s%-5s%s] %s%s\n",
		colorGray, ts, colorReset,
		color, levelStr, colorReset,
		msg, fieldStr,
	)
}

// Info logs an informational message.
func (c *ConsoleLogger) Info(msg string, fields ...Field) {
	c.log(LevelInfo, colorBlue, msg, fields...)
}

// Warn logs a warning message.
func (c *ConsoleLogger) Warn(msg string, fields ...Field) {
	c.log(LevelWarn, colorYellow, msg, fields...)
}

// Error logs an error message.
func (c *ConsoleLogger) Error(msg string, fields ...Field) {
	c.log(LevelError, colorRed, msg, fields...)
}

// Debug logs a debug message only if verbose is enabled.
func (c *ConsoleLogger) Debug(msg string, fields ...Field) {
	if c.verbose {
		c.log(LevelDebug, colorGray, msg, fields...)
	}
}

// WithFields returns a new Logger with additional default
// fields.
func (c *ConsoleLogger) WithFields(
	fields ...Field,
) Logger {
	newFields := make(map[string]any)
	for k, v := range c.fields {
		newFields[k] = v
	}
	for _, f := range fields {
		newFields[f.Key] = f.Value
	}
	return &ConsoleLogger{
		output:  c.output,
		verbose: c.verbose,
		fields:  newFields,
	}
}

// LogDaemonCall logs a daemon call summary to the console. Calls
// that succeed on the first attempt are debug-level noise; retries
// and failures are surfaced as warnings.
func (c *ConsoleLogger) LogDaemonCall(call DaemonCallLog) {
	fields := []Field{
		{Key: "op", Value: call.Operation},
		{Key: "attempt", Value: fmt.Sprintf("%d/%d", call.Attempt, call.MaxRetries)},
		{Key: "duration_ms", Value: call.DurationMs},
	}
	if call.SandboxID != "" {
		fields = append(fields, Field{Key: "sandbox", Value: call.SandboxID})
	}

	if call.Error == "" {
		if call.Attempt <= 1 {
			c.Debug("daemon call", fields...)
		} else {
			c.Info("daemon call recovered", fields...)
		}
		return
	}

	fields = append(fields,
		Field{Key: "kind", Value: call.ErrorKind},
		Field{Key: "error", Value: call.Error},
	)
	c.Warn("daemon call failed", fields...)
}

// Close is a no-op for console output.
func (c *ConsoleLogger) Close() error { return nil }
