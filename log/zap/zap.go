// Package zap adapts a *zap.Logger to tiercache.Logger.
package zap

import (
	"maps"
	"slices"

	"github.com/unkn0wn-root/tiercache"
	"go.uber.org/zap"
)

var _ tiercache.Logger = ZapLogger{}

type ZapLogger struct{ L *zap.Logger }

// New wraps l; a nil l logs nothing.
func New(l *zap.Logger) ZapLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return ZapLogger{L: l.Named("tiercache")}
}

func (z ZapLogger) Debug(msg string, f tiercache.Fields) { z.L.Debug(msg, zf(f)...) }
func (z ZapLogger) Info(msg string, f tiercache.Fields)  { z.L.Info(msg, zf(f)...) }
func (z ZapLogger) Warn(msg string, f tiercache.Fields)  { z.L.Warn(msg, zf(f)...) }
func (z ZapLogger) Error(msg string, f tiercache.Fields) { z.L.Error(msg, zf(f)...) }

func zf(f tiercache.Fields) []zap.Field {
	if len(f) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(f))
	for _, k := range slices.Sorted(maps.Keys(f)) {
		if err, ok := f[k].(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, f[k]))
	}
	return out
}
