// Package logging sets up the process-wide slog.Logger used by every
// xenomorph stage. There is exactly one mutable process-wide singleton
// here: the level, set once by Init and read by every handler created
// afterward.
package logging

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
)

var level = new(slog.LevelVar)

// Init configures the process-wide logging level and returns a Logger
// that writes to stderr. Call it once, before the pipeline's first stage.
func Init(debug bool) *slog.Logger {
	if debug {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	}))
}

// Scoped returns a logger tagging every record with the given pipeline
// stage ("build", "verify", "coordinate", "terminate", "prepare",
// "execute", "cleanup").
func Scoped(logger *slog.Logger, scope string) *slog.Logger {
	return logger.With(slog.String("scope", scope))
}

// ErrorWriter wraps a Logger and implements the Writer interface.
type ErrorWriter struct {
	logger *slog.Logger
}

// Write implements the Writer interface and writes the given bytes to the
// error logger.
func (ew *ErrorWriter) Write(p []byte) (int, error) {
	ew.logger.Error(string(bytes.TrimSpace(p)))
	return len(p), nil
}

// NewErrorWriter creates an ErrorWriter for the given logger.
func NewErrorWriter(logger *slog.Logger) *ErrorWriter {
	return &ErrorWriter{logger}
}

// NewFileLogger creates a Logger that appends to the given logfile, for
// when --log is supplied. If debug is true the level is DEBUG, else INFO.
func NewFileLogger(logfile string, debug bool) (*slog.Logger, error) {
	f, err := os.OpenFile(
		logfile,
		os.O_CREATE|os.O_APPEND|os.O_WRONLY,
		0o644,
	)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", logfile, err)
	}

	if debug {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	return slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})), nil
}
