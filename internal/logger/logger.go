// Package logger provides structured, context-aware logging backed by zerolog.
package logger

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Level represents a logging level.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// TraceIDFn extracts a trace id from the context. Nil falls back to the otel span.
type TraceIDFn func(ctx context.Context) string

// LoggerInterface is what services depend on.
type LoggerInterface interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	Debugc(ctx context.Context, caller int, msg string, args ...any)
	Infoc(ctx context.Context, caller int, msg string, args ...any)
	Warnc(ctx context.Context, caller int, msg string, args ...any)
	Errorc(ctx context.Context, caller int, msg string, args ...any)
}

var _ LoggerInterface = (*Logger)(nil)

// Logger writes key/value pairs as JSON lines.
type Logger struct {
	zl        zerolog.Logger
	traceIDFn TraceIDFn
}

// New creates a logger writing to w. Pass io.Discard to silence it.
func New(w io.Writer, level Level, service string, traceIDFn TraceIDFn) *Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	zl := zerolog.New(w).
		Level(level.zerolog()).
		With().
		Timestamp().
		Str("service", service).
		Logger()

	if traceIDFn == nil {
		traceIDFn = spanTraceID
	}

	return &Logger{zl: zl, traceIDFn: traceIDFn}
}

// NewConsole creates a human readable logger, used by the CLI in debug runs.
func NewConsole(w io.Writer, level Level, service string) *Logger {
	out := zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	return New(out, level, service, nil)
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(args ...any) *Logger {
	ctx := l.zl.With()
	for i := 0; i+1 < len(args); i += 2 {
		ctx = ctx.Interface(keyString(args[i]), args[i+1])
	}
	return &Logger{zl: ctx.Logger(), traceIDFn: l.traceIDFn}
}

func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.write(ctx, l.zl.Debug(), 0, msg, args)
}

func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.write(ctx, l.zl.Info(), 0, msg, args)
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.write(ctx, l.zl.Warn(), 0, msg, args)
}

func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.write(ctx, l.zl.Error(), 0, msg, args)
}

func (l *Logger) Debugc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, l.zl.Debug(), caller, msg, args)
}

func (l *Logger) Infoc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, l.zl.Info(), caller, msg, args)
}

func (l *Logger) Warnc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, l.zl.Warn(), caller, msg, args)
}

func (l *Logger) Errorc(ctx context.Context, caller int, msg string, args ...any) {
	l.write(ctx, l.zl.Error(), caller, msg, args)
}

func (l *Logger) write(ctx context.Context, ev *zerolog.Event, caller int, msg string, args []any) {
	if ev == nil {
		return
	}

	if caller > 0 {
		ev = ev.Caller(caller + 2)
	}

	if ctx != nil {
		if id := l.traceIDFn(ctx); id != "" {
			ev = ev.Str("trace_id", id)
		}
	}

	for i := 0; i < len(args); i += 2 {
		key := keyString(args[i])
		if i+1 >= len(args) {
			ev = ev.Str(key, "(MISSING)")
			break
		}
		switch v := args[i+1].(type) {
		case error:
			ev = ev.AnErr(key, v)
		case fmt.Stringer:
			ev = ev.Stringer(key, v)
		default:
			ev = ev.Interface(key, v)
		}
	}

	ev.Msg(msg)
}

func keyString(k any) string {
	if s, ok := k.(string); ok {
		return s
	}
	return fmt.Sprint(k)
}

func spanTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
