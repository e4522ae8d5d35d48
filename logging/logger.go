package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel is a small enum for user facing level configuration decoupled from slog.
type LogLevel int

const (
	// LogLevelDebug is the debug logging level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the informational logging level.
	LogLevelInfo
	// LogLevelWarn is the warning logging level.
	LogLevelWarn
	// LogLevelError is the error logging level.
	LogLevelError
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a case-insensitive level name to a LogLevel. Unknown names
// resolve to LogLevelInfo.
func ParseLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

// Logger defines the minimal logging interface. Arguments follow the slog
// key/value convention.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// SlogAdapter wraps *slog.Logger to implement the Logger interface.
type SlogAdapter struct {
	*slog.Logger
}

// Debug logs a debug message.
func (s *SlogAdapter) Debug(msg string, args ...any) { s.Logger.Debug(msg, args...) }

// Info logs an informational message.
func (s *SlogAdapter) Info(msg string, args ...any) { s.Logger.Info(msg, args...) }

// Warn logs a warning message.
func (s *SlogAdapter) Warn(msg string, args ...any) { s.Logger.Warn(msg, args...) }

// Error logs an error message.
func (s *SlogAdapter) Error(msg string, args ...any) { s.Logger.Error(msg, args...) }

// NewSlogAdapter creates a Logger from *slog.Logger.
func NewSlogAdapter(logger *slog.Logger) Logger {
	return &SlogAdapter{Logger: logger}
}

// NewDefaultSlogLogger creates a Logger using slog.Default().
func NewDefaultSlogLogger() Logger {
	return NewSlogAdapter(slog.Default())
}

// NewSlogLogger builds a slog backed Logger writing to stdout.
// Format is "json" (default) or "text".
func NewSlogLogger(level LogLevel, format string, addSource bool) Logger {
	return NewSlogLoggerTo(os.Stdout, level, format, addSource)
}

// NewSlogLoggerTo is NewSlogLogger with an explicit writer.
func NewSlogLoggerTo(w io.Writer, level LogLevel, format string, addSource bool) Logger {
	opts := &slog.HandlerOptions{Level: slogLevel(level), AddSource: addSource}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return NewSlogAdapter(slog.New(handler))
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NoOpLogger discards all log messages. Useful for testing or when logging is disabled.
type NoOpLogger struct{}

// Debug logs a debug message.
func (NoOpLogger) Debug(string, ...any) {}

// Info logs an informational message.
func (NoOpLogger) Info(string, ...any) {}

// Warn logs a warning message.
func (NoOpLogger) Warn(string, ...any) {}

// Error logs an error message.
func (NoOpLogger) Error(string, ...any) {}

// ContextLogger prepends a fixed set of key/value attributes to every entry
// and offers domain helpers for tool, model and workflow events.
type ContextLogger struct {
	base  Logger
	attrs []any
}

// With returns a ContextLogger that adds args to every entry written through l.
// A nil l yields a logger backed by NoOpLogger.
func With(l Logger, args ...any) *ContextLogger {
	if l == nil {
		l = NoOpLogger{}
	}

	if cl, ok := l.(*ContextLogger); ok {
		return cl.With(args...)
	}

	return &ContextLogger{base: l, attrs: append([]any(nil), args...)}
}

// With clones the logger adding args.
func (c *ContextLogger) With(args ...any) *ContextLogger {
	attrs := make([]any, 0, len(c.attrs)+len(args))
	attrs = append(attrs, c.attrs...)
	attrs = append(attrs, args...)

	return &ContextLogger{base: c.base, attrs: attrs}
}

func (c *ContextLogger) merge(args []any) []any {
	if len(c.attrs) == 0 {
		return args
	}

	out := make([]any, 0, len(c.attrs)+len(args))
	out = append(out, c.attrs...)

	return append(out, args...)
}

// Debug logs at debug level.
func (c *ContextLogger) Debug(msg string, args ...any) { c.base.Debug(msg, c.merge(args)...) }

// Info logs at info level.
func (c *ContextLogger) Info(msg string, args ...any) { c.base.Info(msg, c.merge(args)...) }

// Warn logs at warn level.
func (c *ContextLogger) Warn(msg string, args ...any) { c.base.Warn(msg, c.merge(args)...) }

// Error logs at error level.
func (c *ContextLogger) Error(msg string, args ...any) { c.base.Error(msg, c.merge(args)...) }

// LogToolCall records execution details for a tool invocation.
func (c *ContextLogger) LogToolCall(tool, state string, dur time.Duration, err error) {
	args := []any{"tool_name", tool, "state", state, "duration", dur}
	if err != nil {
		c.Warn("tool execution failed", append(args, "error", err.Error())...)
		return
	}

	c.Info("tool execution completed", args...)
}

// LogLLMCall records model call latency and success.
func (c *ContextLogger) LogLLMCall(model string, dur time.Duration, err error) {
	args := []any{"model", model, "duration", dur}
	if err != nil {
		c.Error("llm call failed", append(args, "error", err.Error())...)
		return
	}

	c.Info("llm call completed", args...)
}

// LogWorkflow records aggregate workflow run metrics.
func (c *ContextLogger) LogWorkflow(pattern string, agents int, dur time.Duration, err error) {
	args := []any{"pattern", pattern, "agent_count", agents, "duration", dur}
	if err != nil {
		c.Error("workflow failed", append(args, "error", err.Error())...)
		return
	}

	c.Info("workflow completed", args...)
}
