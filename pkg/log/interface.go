// Package log provides the structured logging interface used by the
// estimators in perceptron.
//
// The Logger interface mirrors the shape of log/slog so that call sites read
// the same regardless of backend. The default implementation writes JSON lines
// through github.com/rs/zerolog.
//
// Example usage:
//
//	logger := log.GetLogger().With(log.ModelNameKey, "Perceptron")
//	logger.Info("Training started",
//	    log.OperationKey, log.OperationFit,
//	    log.SamplesKey, 60000,
//	    log.FeaturesKey, 784,
//	)
package log

import (
	"context"
)

// Logger is a structured logger. Fields are alternating key/value pairs.
type Logger interface {
	// Debug logs detailed diagnostic information, such as per-epoch progress.
	Debug(msg string, fields ...any)

	// Info logs general operational information.
	Info(msg string, fields ...any)

	// Warn logs conditions that do not stop the operation.
	Warn(msg string, fields ...any)

	// Error logs an error condition. If the first field is an error it is
	// attached together with its stack trace.
	Error(msg string, fields ...any)

	// With returns a Logger that adds fields to every record.
	With(fields ...any) Logger

	// Enabled reports whether records at level would be emitted.
	Enabled(ctx context.Context, level Level) bool
}

// Level is a logging level. Values match slog.Level.
type Level int

const (
	LevelDebug Level = -4
	LevelInfo  Level = 0
	LevelWarn  Level = 4
	LevelError Level = 8
)

// String returns the upper-case level name.
func (l Level) String() string {
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
