// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package log is a thin structured-logging wrapper around log/slog, in the
// shape every long-running worker in this module pulls a logger from:
//
//	var logger = log.WithContext("pkg", "trim")
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"
)

// Levels, ordered the same as slog's but named the way callers expect.
const (
	LevelTrace = slog.Level(-8)
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Logger is the interface every worker and controller in this module logs through.
type Logger interface {
	Trace(msg string, ctx ...any)
	Debug(msg string, ctx ...any)
	Info(msg string, ctx ...any)
	Warn(msg string, ctx ...any)
	Error(msg string, ctx ...any)
	With(ctx ...any) Logger
}

type logger struct {
	inner *slog.Logger
}

// NewLogger wraps an slog.Handler as a Logger.
func NewLogger(h slog.Handler) Logger {
	return &logger{inner: slog.New(h)}
}

func (l *logger) write(level slog.Level, msg string, ctx []any) {
	if !l.inner.Enabled(context.Background(), level) {
		return
	}
	l.inner.Log(context.Background(), level, msg, ctx...)
}

func (l *logger) Trace(msg string, ctx ...any) { l.write(LevelTrace, msg, ctx) }
func (l *logger) Debug(msg string, ctx ...any) { l.write(LevelDebug, msg, ctx) }
func (l *logger) Info(msg string, ctx ...any)  { l.write(LevelInfo, msg, ctx) }
func (l *logger) Warn(msg string, ctx ...any)  { l.write(LevelWarn, msg, ctx) }
func (l *logger) Error(msg string, ctx ...any) { l.write(LevelError, msg, ctx) }

func (l *logger) With(ctx ...any) Logger {
	return &logger{inner: l.inner.With(ctx...)}
}

var root = NewLogger(NewTerminalHandler(os.Stderr, false))

// SetDefault sets the package-level root logger used by the free functions below.
func SetDefault(l Logger) {
	if ll, ok := l.(*logger); ok {
		root = ll
		return
	}
	root = l
}

// WithContext returns a new Logger derived from the root logger, carrying the
// given key/value pairs on every subsequent log line. This is the entry point
// every package-level worker uses, e.g. log.WithContext("pkg", "trim").
func WithContext(ctx ...any) Logger {
	return root.With(ctx...)
}

func Trace(msg string, ctx ...any) { root.Trace(msg, ctx...) }
func Debug(msg string, ctx ...any) { root.Debug(msg, ctx...) }
func Info(msg string, ctx ...any)  { root.Info(msg, ctx...) }
func Warn(msg string, ctx ...any)  { root.Warn(msg, ctx...) }
func Error(msg string, ctx ...any) { root.Error(msg, ctx...) }

// NewTerminalHandler returns a handler that writes human-readable, leveled
// lines meant for an interactive terminal (or a daemon's stderr).
func NewTerminalHandler(w io.Writer, _ bool) slog.Handler {
	return NewTerminalHandlerWithLevel(w, LevelTrace, false)
}

// NewTerminalHandlerWithLevel is NewTerminalHandler with an explicit, mutable level gate.
func NewTerminalHandlerWithLevel(w io.Writer, lvl slog.Leveler, _ bool) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: false,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.Format("01-02|15:04:05.000"))
				}
			}
			return a
		},
	})
}

// JSONHandler returns a handler that writes one JSON object per line at the
// default (trace-and-above, i.e. everything) level.
func JSONHandler(w io.Writer) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: LevelTrace})
}

// JSONHandlerWithLevel is JSONHandler with an explicit, mutable level gate.
func JSONHandlerWithLevel(w io.Writer, lvl slog.Leveler) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
}
