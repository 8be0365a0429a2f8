// Package logging provides the structured logger contract used across the
// orchestrator, stores, and host binaries, backed by the standard library's
// slog.
package logging

import (
	"context"
	"log/slog"
	"os"
)

// Logger is the narrow structured-logging surface every collaborator in this
// module depends on. It mirrors slog's level methods so any slog.Logger can
// satisfy it directly via Slog.
type Logger interface {
	Debug(ctx context.Context, msg string, kv ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Error(ctx context.Context, msg string, kv ...any)
}

// Slog adapts a *slog.Logger to the Logger interface.
type Slog struct {
	L *slog.Logger
}

// NewSlog builds a Slog logger writing JSON to stderr at the given level.
func NewSlog(level slog.Level) Slog {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return Slog{L: slog.New(handler)}
}

func (s Slog) Debug(ctx context.Context, msg string, kv ...any) { s.L.DebugContext(ctx, msg, kv...) }
func (s Slog) Info(ctx context.Context, msg string, kv ...any)  { s.L.InfoContext(ctx, msg, kv...) }
func (s Slog) Warn(ctx context.Context, msg string, kv ...any)  { s.L.WarnContext(ctx, msg, kv...) }
func (s Slog) Error(ctx context.Context, msg string, kv ...any) { s.L.ErrorContext(ctx, msg, kv...) }

// ParseLevel maps a lowercase level name to a slog.Level, defaulting to Info
// for unrecognized values.
func ParseLevel(name string) slog.Level {
	switch name {
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
