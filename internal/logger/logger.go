// Package logger provides the structured logger used across every
// component: connection lifecycle transitions, order book merge
// errors, and background task failures. The stack has no third-party
// logging dependency anywhere in the retrieved pack, so this wraps
// stdlib log/slog rather than reaching for an out-of-pack import (see
// DESIGN.md).
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// Level mirrors slog.Level under names that read naturally at call
// sites (logger.LevelInfo, not slog.LevelInfo).
type Level int

const (
	LevelDebug Level = Level(slog.LevelDebug)
	LevelInfo  Level = Level(slog.LevelInfo)
	LevelWarn  Level = Level(slog.LevelWarn)
	LevelError Level = Level(slog.LevelError)
)

// LoggerInterface is the contract every component depends on, so
// callers can swap in a test double without pulling in slog.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, kv ...any)
	Info(ctx context.Context, msg string, kv ...any)
	Warn(ctx context.Context, msg string, kv ...any)
	Error(ctx context.Context, msg string, kv ...any)
	With(kv ...any) LoggerInterface
}

// Logger adapts *slog.Logger to LoggerInterface, tagging every record
// with a "component" field.
type Logger struct {
	slog *slog.Logger
}

// Option configures New.
type Option func(*config)

type config struct {
	out    io.Writer
	level  Level
	json   bool
	source bool
}

// WithOutput overrides the destination writer (default os.Stderr).
func WithOutput(w io.Writer) Option {
	return func(c *config) { c.out = w }
}

// WithJSON switches the handler from slog's text format to JSON,
// for production environments that ship logs to a collector.
func WithJSON() Option {
	return func(c *config) { c.json = true }
}

// WithSource adds the calling file:line to every record.
func WithSource() Option {
	return func(c *config) { c.source = true }
}

// New builds a Logger for component name at the given level.
func New(name string, level Level, opts ...Option) *Logger {
	c := &config{out: os.Stderr, level: level}
	for _, opt := range opts {
		opt(c)
	}

	handlerOpts := &slog.HandlerOptions{
		Level:     slog.Level(c.level),
		AddSource: c.source,
	}
	var handler slog.Handler
	if c.json {
		handler = slog.NewJSONHandler(c.out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(c.out, handlerOpts)
	}
	return &Logger{slog: slog.New(handler).With("component", name)}
}

func (l *Logger) Debug(ctx context.Context, msg string, kv ...any) {
	l.slog.DebugContext(ctx, msg, kv...)
}

func (l *Logger) Info(ctx context.Context, msg string, kv ...any) {
	l.slog.InfoContext(ctx, msg, kv...)
}

func (l *Logger) Warn(ctx context.Context, msg string, kv ...any) {
	l.slog.WarnContext(ctx, msg, kv...)
}

func (l *Logger) Error(ctx context.Context, msg string, kv ...any) {
	l.slog.ErrorContext(ctx, msg, kv...)
}

// With returns a logger that annotates every record with the given
// key/value pairs in addition to name, e.g. per-connection exchange
// and symbol context.
func (l *Logger) With(kv ...any) LoggerInterface {
	return &Logger{slog: l.slog.With(kv...)}
}

// Noop returns a LoggerInterface that discards everything, useful in
// tests that don't care about log output.
func Noop() LoggerInterface {
	return &Logger{slog: slog.New(slog.NewTextHandler(io.Discard, nil))}
}
