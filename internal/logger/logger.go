package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

type ContextKey string

const (
	// RequestIDKey is the context key for the HTTP request ID.
	RequestIDKey ContextKey = "request_id"
	// RunIDKey is the context key for a reminder dispatch run.
	RunIDKey ContextKey = "run_id"
)

type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// New builds a slog logger from cfg. Output defaults to stdout.
func New(cfg *Config) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// Init installs the logger built from cfg as the slog default.
func Init(cfg *Config) *slog.Logger {
	l := New(cfg)
	slog.SetDefault(l)
	return l
}

// WithContext returns the default logger annotated with request and run IDs found in ctx.
func WithContext(ctx context.Context) *slog.Logger {
	return From(ctx, slog.Default())
}

// From annotates base with the IDs found in ctx.
func From(ctx context.Context, base *slog.Logger) *slog.Logger {
	l := base
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		l = l.With("request_id", requestID)
	}
	if runID, ok := ctx.Value(RunIDKey).(string); ok && runID != "" {
		l = l.With("run_id", runID)
	}
	return l
}

func Info(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Info(msg, args...)
}

func Debug(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Debug(msg, args...)
}

func Warn(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Warn(msg, args...)
}

func Error(ctx context.Context, msg string, args ...any) {
	WithContext(ctx).Error(msg, args...)
}
