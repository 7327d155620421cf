package logging

import (
	"io"

	"github.com/rs/zerolog"
)

// ZerologAdapter wraps zerolog.Logger to implement the Logger interface.
// Key/value args are attached as structured fields.
type ZerologAdapter struct {
	logger zerolog.Logger
}

// NewZerolog creates a zerolog backed Logger. format "console" enables the
// human friendly console writer, anything else writes JSON.
func NewZerolog(w io.Writer, level LogLevel, format string) *ZerologAdapter {
	if format == "console" || format == "text" {
		w = zerolog.ConsoleWriter{Out: w}
	}

	l := zerolog.New(w).Level(zerologLevel(level)).With().Timestamp().Logger()

	return &ZerologAdapter{logger: l}
}

// NewZerologAdapter wraps an existing zerolog.Logger.
func NewZerologAdapter(l zerolog.Logger) *ZerologAdapter {
	return &ZerologAdapter{logger: l}
}

// With returns a child logger carrying the given key/value pairs.
func (z *ZerologAdapter) With(args ...any) *ZerologAdapter {
	return &ZerologAdapter{logger: z.logger.With().Fields(args).Logger()}
}

// Debug logs a debug message.
func (z *ZerologAdapter) Debug(msg string, args ...any) { z.logger.Debug().Fields(args).Msg(msg) }

// Info logs an informational message.
func (z *ZerologAdapter) Info(msg string, args ...any) { z.logger.Info().Fields(args).Msg(msg) }

// Warn logs a warning message.
func (z *ZerologAdapter) Warn(msg string, args ...any) { z.logger.Warn().Fields(args).Msg(msg) }

// Error logs an error message.
func (z *ZerologAdapter) Error(msg string, args ...any) { z.logger.Error().Fields(args).Msg(msg) }

func zerologLevel(l LogLevel) zerolog.Level {
	switch l {
	case LogLevelDebug:
		return zerolog.DebugLevel
	case LogLevelWarn:
		return zerolog.WarnLevel
	case LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
