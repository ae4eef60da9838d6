package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// Logger is the logging surface used across the console. Arguments are
// slog key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
	WithContext(ctx context.Context) Logger
}

type Config struct {
	// Level is debug, info, warn or error. Unknown names mean info.
	Level string
	// Format is text (alias console) or json.
	Format string
	// Output defaults to os.Stderr.
	Output    io.Writer
	AddSource bool
}

// DefaultConfig is used until the CLI configuration has been read: text,
// warnings and up, on stderr.
func DefaultConfig() Config {
	return Config{Level: "warn", Format: "text", Output: os.Stderr}
}

// level is shared by every logger from New, so SetLevel reaches loggers
// already handed to components.
var level slog.LevelVar

// New builds a slog-backed Logger. Credentials in attributes are masked,
// see redactAttr.
func New(cfg Config) (Logger, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:       &level,
		AddSource:   cfg.AddSource,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr { return redactAttr(a) },
	}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "json":
		h = slog.NewJSONHandler(out, opts)
	case "", "text", "console":
		h = slog.NewTextHandler(out, opts)
	default:
		return nil, fmt.Errorf("logger: unknown format %q", cfg.Format)
	}

	level.Set(parseLevel(cfg.Level))
	return ctxLogger{l: slog.New(h), ctx: context.Background()}, nil
}

func SetLevel(name string) { level.Set(parseLevel(name)) }

// GetLevel returns the shared level in lower case, e.g. "warn".
func GetLevel() string { return strings.ToLower(level.Level().String()) }

func parseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// ctxLogger passes its context to every record so handlers can read
// request-scoped values.
type ctxLogger struct {
	l   *slog.Logger
	ctx context.Context
}

func (c ctxLogger) Debug(msg string, args ...any) { c.l.DebugContext(c.ctx, msg, args...) }
func (c ctxLogger) Info(msg string, args ...any)  { c.l.InfoContext(c.ctx, msg, args...) }
func (c ctxLogger) Warn(msg string, args ...any)  { c.l.WarnContext(c.ctx, msg, args...) }
func (c ctxLogger) Error(msg string, args ...any) { c.l.ErrorContext(c.ctx, msg, args...) }

func (c ctxLogger) With(args ...any) Logger {
	return ctxLogger{l: c.l.With(args...), ctx: c.ctx}
}

func (c ctxLogger) WithContext(ctx context.Context) Logger {
	return ctxLogger{l: c.l, ctx: ctx}
}

type holder struct{ Logger }

var process atomic.Pointer[holder]

func init() {
	l, _ := New(DefaultConfig())
	process.Store(&holder{l})
}

// SetDefault replaces the logger returned by Default. Nil is ignored.
func SetDefault(l Logger) {
	if l != nil {
		process.Store(&holder{l})
	}
}

func Default() Logger { return process.Load().Logger }

// Nop discards everything.
func Nop() Logger {
	return ctxLogger{l: slog.New(slog.DiscardHandler), ctx: context.Background()}
}
