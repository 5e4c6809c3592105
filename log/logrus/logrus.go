// Package logrus adapts a *logrus.Entry to tiercache.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"
	"github.com/unkn0wn-root/tiercache"
)

var _ tiercache.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New wraps l with a component=tiercache field.
func New(l *logrus.Logger) LogrusLogger {
	return LogrusLogger{E: l.WithField("component", "tiercache")}
}

func (l LogrusLogger) Debug(msg string, f tiercache.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f tiercache.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f tiercache.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f tiercache.Fields) { l.with(f).Error(msg) }

func (l LogrusLogger) with(f tiercache.Fields) *logrus.Entry {
	if len(f) == 0 {
		return l.E
	}
	e := l.E.WithFields(logrus.Fields(f))
	if err, ok := f["err"].(error); ok {
		e = e.WithError(err)
	}
	return e
}
