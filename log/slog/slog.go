// Package slog adapts a *slog.Logger to tiercache.Logger.
package slog

import (
	"context"
	stdslog "log/slog"
	"maps"
	"slices"

	"github.com/unkn0wn-root/tiercache"
)

var _ tiercache.Logger = Logger{}

type Logger struct{ L *stdslog.Logger }

// New wraps l; nil uses slog.Default().
func New(l *stdslog.Logger) Logger {
	if l == nil {
		l = stdslog.Default()
	}
	return Logger{L: l.With("component", "tiercache")}
}

func (s Logger) Debug(msg string, f tiercache.Fields) { s.log(stdslog.LevelDebug, msg, f) }
func (s Logger) Info(msg string, f tiercache.Fields)  { s.log(stdslog.LevelInfo, msg, f) }
func (s Logger) Warn(msg string, f tiercache.Fields)  { s.log(stdslog.LevelWarn, msg, f) }
func (s Logger) Error(msg string, f tiercache.Fields) { s.log(stdslog.LevelError, msg, f) }

func (s Logger) log(lvl stdslog.Level, msg string, f tiercache.Fields) {
	ctx := context.Background()
	if !s.L.Enabled(ctx, lvl) {
		return
	}
	s.L.LogAttrs(ctx, lvl, msg, attrs(f)...)
}

func attrs(f tiercache.Fields) []stdslog.Attr {
	if len(f) == 0 {
		return nil
	}
	out := make([]stdslog.Attr, 0, len(f))
	for _, k := range slices.Sorted(maps.Keys(f)) {
		out = append(out, stdslog.Any(k, f[k]))
	}
	return out
}
