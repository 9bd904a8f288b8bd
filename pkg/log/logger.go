package log

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"

	perrors "github.com/YuminosukeSato/perceptron/pkg/errors"
)

var (
	globalMu     sync.RWMutex
	globalLogger Logger = NewZerologLogger(os.Stderr, LevelInfo)

	stackOnce sync.Once
)

// GetLogger returns the process-wide logger.
func GetLogger() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// SetLogger replaces the process-wide logger. Estimators capture the logger
// when they are constructed, so call this before building them.
func SetLogger(l Logger) {
	globalMu.Lock()
	defer globalMu.Unlock()
	globalLogger = l
}

// SetupLogger installs a JSON zerolog logger on stderr at the given level and
// routes errors.Warn through it.
func SetupLogger(level string) error {
	return SetupLoggerWithWriter(os.Stderr, level)
}

// SetupLoggerWithWriter is SetupLogger with an explicit destination.
func SetupLoggerWithWriter(w io.Writer, level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	zl := NewZerologLogger(w, lvl)
	SetLogger(zl)
	perrors.SetZerologWarnFunc(zl.warn)
	return nil
}

// ParseLevel converts "debug", "info", "warn" or "error" into a Level.
func ParseLevel(level string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, perrors.NewValidationError("log_level", "must be one of debug, info, warn, error", level)
	}
}

// ZerologLogger implements Logger on top of zerolog.
type ZerologLogger struct {
	logger zerolog.Logger
}

// NewZerologLogger creates a logger writing JSON lines to w.
func NewZerologLogger(w io.Writer, level Level) *ZerologLogger {
	stackOnce.Do(func() {
		zerolog.ErrorStackMarshaler = extractStacktrace
		zerolog.ErrorStackFieldName = StacktraceKey
	})
	zl := zerolog.New(w).Level(toZerologLevel(level)).With().Timestamp().Logger()
	return &ZerologLogger{logger: zl}
}

// Debug implements Logger.
func (z *ZerologLogger) Debug(msg string, fields ...any) {
	z.write(z.logger.Debug(), msg, fields)
}

// Info implements Logger.
func (z *ZerologLogger) Info(msg string, fields ...any) {
	z.write(z.logger.Info(), msg, fields)
}

// Warn implements Logger.
func (z *ZerologLogger) Warn(msg string, fields ...any) {
	z.write(z.logger.Warn(), msg, fields)
}

// Error implements Logger. A leading error field is attached with its stack
// trace and, for the typed errors in pkg/errors, its structured fields.
func (z *ZerologLogger) Error(msg string, fields ...any) {
	e := z.logger.Error()
	if len(fields) > 0 {
		if err, ok := fields[0].(error); ok {
			e = e.Stack().Err(err)
			var m zerolog.LogObjectMarshaler
			if errors.As(err, &m) {
				e = e.Object("error.detail", m)
			}
			fields = fields[1:]
		}
	}
	z.write(e, msg, fields)
}

// With implements Logger.
func (z *ZerologLogger) With(fields ...any) Logger {
	return &ZerologLogger{logger: z.logger.With().Fields(fields).Logger()}
}

// Enabled implements Logger.
func (z *ZerologLogger) Enabled(_ context.Context, level Level) bool {
	return z.logger.GetLevel() <= toZerologLevel(level)
}

func (z *ZerologLogger) write(e *zerolog.Event, msg string, fields []any) {
	if e == nil {
		return
	}
	if len(fields)%2 != 0 {
		fields = append(fields, "!MISSING")
	}
	if len(fields) > 0 {
		e = e.Fields(fields)
	}
	e.Msg(msg)
}

// warn is installed as the errors.Warn sink.
func (z *ZerologLogger) warn(w error) {
	e := z.logger.Warn()
	var m zerolog.LogObjectMarshaler
	if errors.As(w, &m) {
		e = e.EmbedObject(m)
	}
	e.Msg(w.Error())
}

func toZerologLevel(level Level) zerolog.Level {
	switch {
	case level <= LevelDebug:
		return zerolog.DebugLevel
	case level <= LevelInfo:
		return zerolog.InfoLevel
	case level <= LevelWarn:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}

// extractStacktrace pulls the stack recorded by cockroachdb/errors out of the
// error's safe details.
func extractStacktrace(err error) interface{} {
	safeDetails := errors.GetSafeDetails(err).SafeDetails
	if len(safeDetails) > 0 {
		return safeDetails[0]
	}
	return nil
}
