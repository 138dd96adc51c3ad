// Package log defines the public logging interface used across visacheck packages.
package log

import (
	"context"
	// Use standard library's structured logging level type.
	"log/slog"
)

// Logger defines the public interface for logging operations within visacheck.
// Components accept this interface so embedding applications can route core
// warnings (rejected selections, failed rule loads, failed saves) into their
// own logging pipeline.
type Logger interface {
	// Debugf logs a formatted message at the DEBUG level.
	Debugf(format string, args ...interface{})
	// Infof logs a formatted message at the INFO level.
	Infof(format string, args ...interface{})
	// Warnf logs a formatted message at the WARN level.
	Warnf(format string, args ...interface{})
	// Errorf logs a formatted message at the ERROR level.
	// Implementations should check whether the last arg is an error and log it structurally.
	Errorf(format string, args ...interface{})

	// Log logs a message at the specified slog.Level with additional key-value attributes.
	Log(level slog.Level, msg string, args ...interface{})
	// LogCtx logs a message at the specified slog.Level, including context
	// information such as trace IDs when the implementation supports it.
	LogCtx(ctx context.Context, level slog.Level, msg string, args ...interface{})

	// With returns a new Logger with the specified attributes added to all entries.
	With(args ...interface{}) Logger
	// IsEnabled reports whether the logger outputs logs at the given level.
	IsEnabled(level slog.Level) bool
}
