package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Youmanvi/roomledger/internal/infrastructure/config"
)

const TraceIDKey = "trace_id"

type Logger struct {
	*zerolog.Logger
}

// NewLogger creates a new structured logger based on configuration
func NewLogger(cfg *config.ObservabilityConfig) *Logger {
	var output io.Writer = os.Stdout

	// Format output
	if cfg.LogFormat == "text" {
		output = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	return NewLoggerWithWriter(output, cfg.LogLevel)
}

// NewLoggerWithWriter creates a logger writing to w at the given level
func NewLoggerWithWriter(w io.Writer, level string) *Logger {
	logger := zerolog.New(w).
		Level(parseLogLevel(level)).
		With().
		Timestamp().
		Logger()

	return &Logger{Logger: &logger}
}

// NewNopLogger returns a logger that discards everything
func NewNopLogger() *Logger {
	logger := zerolog.Nop()
	return &Logger{Logger: &logger}
}

// WithTraceID returns a new logger with trace ID attached
func (l *Logger) WithTraceID(traceID string) *Logger {
	logger := l.With().Str(TraceIDKey, traceID).Logger()
	return &Logger{Logger: &logger}
}

// WithRoomType returns a new logger with the room type attached
func (l *Logger) WithRoomType(roomTypeID string) *Logger {
	logger := l.With().Str("room_type_id", roomTypeID).Logger()
	return &Logger{Logger: &logger}
}

// WithReservationID returns a new logger with reservation ID
func (l *Logger) WithReservationID(reservationID string) *Logger {
	logger := l.With().Str("reservation_id", reservationID).Logger()
	return &Logger{Logger: &logger}
}

// WithActivityName returns a new logger with activity name
func (l *Logger) WithActivityName(activityName string) *Logger {
	logger := l.With().Str("activity", activityName).Logger()
	return &Logger{Logger: &logger}
}

// WithComponent returns a new logger tagged with a component name
func (l *Logger) WithComponent(component string) *Logger {
	logger := l.With().Str("component", component).Logger()
	return &Logger{Logger: &logger}
}

// WithError returns a new logger with error attached
func (l *Logger) WithError(err error) *Logger {
	logger := l.With().Err(err).Logger()
	return &Logger{Logger: &logger}
}

// parseLogLevel converts string to zerolog level
func parseLogLevel(levelStr string) zerolog.Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// GetGlobalLogger returns the global logger
func GetGlobalLogger() *Logger {
	logger := log.Logger
	return &Logger{Logger: &logger}
}
