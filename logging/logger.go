// Package logging defines the structured logger used across the interception packages.
package logging

import (
	"context"
	"log/slog"
)

// Logger defines the interface for structured logging.
// All components log through this interface using key-value pairs so that
// applications control how container and interception logs appear:
//
//	logger.Info("service registered", "type", "ITestService", "lifetime", "singleton")
//
// The shape is compatible with log/slog, zap's sugared logger, logrus and others.
type Logger interface {
	// Info logs an informational message, such as an intercepted call.
	Info(msg string, args ...any)

	// Error logs an error that did not stop the current operation.
	Error(msg string, args ...any)

	// Warn logs an unusual condition.
	Warn(msg string, args ...any)

	// Debug logs detailed diagnostics such as descriptor registration and resolution.
	Debug(msg string, args ...any)
}

// NopLogger discards everything. It is the default for every component.
type NopLogger struct{}

func (NopLogger) Info(string, ...any)  {}
func (NopLogger) Error(string, ...any) {}
func (NopLogger) Warn(string, ...any)  {}
func (NopLogger) Debug(string, ...any) {}

// SlogLogger adapts a *slog.Logger to Logger.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps logger. A nil logger falls back to slog.Default().
func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogLogger{logger: logger}
}

func (l *SlogLogger) Info(msg string, args ...any)  { l.logger.Info(msg, args...) }
func (l *SlogLogger) Error(msg string, args ...any) { l.logger.Error(msg, args...) }
func (l *SlogLogger) Warn(msg string, args ...any)  { l.logger.Warn(msg, args...) }
func (l *SlogLogger) Debug(msg string, args ...any) { l.logger.Debug(msg, args...) }

// Enabled reports whether the underlying handler would emit records at level.
func (l *SlogLogger) Enabled(level slog.Level) bool {
	return l.logger.Enabled(context.Background(), level)
}

// OrNop returns logger, or NopLogger when logger is nil.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return NopLogger{}
	}
	return logger
}
