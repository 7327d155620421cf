package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// LogLevel is a thin enum for user friendly level configuration decoupled
// from any backend.
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

// ParseLevel converts a case-insensitive level name. Unknown names map to info.
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

// Logger defines the minimal logging interface used across healthbot.
// Arguments after msg are alternating key/value pairs.
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

// Config configures construction of a Logger via New.
type Config struct {
	Level   string    // debug, info, warn, error
	Format  string    // json or text (console for zerolog)
	Backend string    // slog or zerolog
	Output  io.Writer // defaults to os.Stderr
}

// New builds a Logger for the configured backend.
func New(cfg Config) (Logger, error) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	level := ParseLevel(cfg.Level)

	switch strings.ToLower(cfg.Backend) {
	case "", "slog":
		opts := &slog.HandlerOptions{Level: slogLevel(level)}

		var handler slog.Handler
		if cfg.Format == "text" {
			handler = slog.NewTextHandler(cfg.Output, opts)
		} else {
			handler = slog.NewJSONHandler(cfg.Output, opts)
		}

		return NewSlogAdapter(slog.New(handler)), nil
	case "zerolog":
		return NewZerolog(cfg.Output, level, cfg.Format), nil
	default:
		return nil, fmt.Errorf("unsupported log backend: %s", cfg.Backend)
	}
}

func slogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelInfo:
		return slog.LevelInfo
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// With returns a Logger that prefixes every entry with the given key/value
// pairs.
func With(l Logger, args ...any) Logger {
	if len(args) == 0 {
		return l
	}

	if s, ok := l.(*SlogAdapter); ok {
		return &SlogAdapter{Logger: s.Logger.With(args...)}
	}

	if z, ok := l.(*ZerologAdapter); ok {
		return z.With(args...)
	}

	return &prefixed{next: l, fields: args}
}

type prefixed struct {
	next   Logger
	fields []any
}

func (p *prefixed) merge(args []any) []any {
	out := make([]any, 0, len(p.fields)+len(args))
	out = append(out, p.fields...)

	return append(out, args...)
}

func (p *prefixed) Debug(msg string, args ...any) { p.next.Debug(msg, p.merge(args)...) }
func (p *prefixed) Info(msg string, args ...any)  { p.next.Info(msg, p.merge(args)...) }
func (p *prefixed) Warn(msg string, args ...any)  { p.next.Warn(msg, p.merge(args)...) }
func (p *prefixed) Error(msg string, args ...any) { p.next.Error(msg, p.merge(args)...) }

// LogLLMCall records model call latency and success.
func LogLLMCall(l Logger, model string, dur time.Duration, err error) {
	if err != nil {
		l.Error("LLM call failed", "model", model, "duration", dur, "success", false, "error", err.Error())
		return
	}

	l.Info("LLM call completed", "model", model, "duration", dur, "success", true)
}

// LogWorkflowExecution records aggregate workflow run metrics.
func LogWorkflowExecution(l Logger, workflow string, steps int, dur time.Duration, err error) {
	if err != nil {
		l.Error("Workflow execution failed", "workflow", workflow, "step_count", steps, "duration", dur, "success", false, "error", err.Error())
		return
	}

	l.Info("Workflow execution completed", "workflow", workflow, "step_count", steps, "duration", dur, "success", true)
}
