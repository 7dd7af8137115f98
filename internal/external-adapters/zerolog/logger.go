// Package zerolog adapts rs/zerolog to the domain Logger contract.
// This is in external-adapters to isolate the external dependency
package zerolog

import (
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/kilnworks/kiln/internal/domain/interfaces"
)

// Logger implements interfaces.Logger on top of zerolog
type Logger struct {
	log zerolog.Logger
}

// NewLogger creates a JSON logger writing to w (stderr when nil)
func NewLogger(w io.Writer) *Logger {
	if w == nil {
		w = os.Stderr
	}
	return &Logger{
		log: zerolog.New(w).With().Timestamp().Logger(),
	}
}

// NewConsoleLogger creates a human-readable logger for interactive use
func NewConsoleLogger() *Logger {
	return &Logger{
		log: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
	}
}

// Debug logs debug-level messages
func (l *Logger) Debug(msg string, fields ...interfaces.Field) {
	emit(l.log.Debug(), msg, fields)
}

// Info logs informational messages
func (l *Logger) Info(msg string, fields ...interfaces.Field) {
	emit(l.log.Info(), msg, fields)
}

// Warn logs warning messages
func (l *Logger) Warn(msg string, fields ...interfaces.Field) {
	emit(l.log.Warn(), msg, fields)
}

// Error logs error messages
func (l *Logger) Error(msg string, fields ...interfaces.Field) {
	emit(l.log.Error(), msg, fields)
}

func emit(ev *zerolog.Event, msg string, fields []interfaces.Field) {
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	ev.Msg(msg)
}
