// Package log wraps slog with a component attribute so every line says which
// part of the pipeline emitted it (storage, importer, sync, worker).
package log

import (
	"context"
	"log/slog"
	"os"
	"strings"
)

// Logger carries a component name into every record.
type Logger struct {
	*slog.Logger
	component string
}

// Setup builds the process-wide logger and installs it as the slog default.
// level accepts "debug", "info", "warn", "error"; anything else means info.
func Setup(component, level string) *Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	l := &Logger{
		Logger:    slog.New(handler).With("component", component),
		component: component,
	}
	slog.SetDefault(l.Logger)
	return l
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// WithComponent returns a child logger for a sub-component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    l.Logger.With("component", component),
		component: component,
	}
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

// FailCtx logs err at error level and returns it unchanged, for call sites
// that both log and propagate.
func (l *Logger) FailCtx(ctx context.Context, msg string, err error, args ...any) error {
	l.ErrorContext(ctx, msg, append([]any{"error", err}, args...)...)
	return err
}
