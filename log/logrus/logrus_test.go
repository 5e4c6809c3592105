package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/unkn0wn-root/tiercache"
)

func TestLogrusLoggerFields(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	cause := errors.New("boom")
	l.Warn("layer call failed", tiercache.Fields{"level": 2, "err": cause})

	e := hook.LastEntry()
	if e == nil || e.Level != logrus.WarnLevel || e.Message != "layer call failed" {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Data["component"] != "tiercache" || e.Data["level"] != 2 {
		t.Fatalf("unexpected data: %v", e.Data)
	}
	if e.Data[logrus.ErrorKey] != cause {
		t.Fatalf("error not attached: %v", e.Data)
	}

	l.Debug("promoted", nil)
	if n := len(hook.AllEntries()); n != 2 {
		t.Fatalf("entries=%d want 2", n)
	}
}
