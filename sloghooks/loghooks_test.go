package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newTestHooks(opts Options) (*Hooks, *bytes.Buffer) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(l, opts), &buf
}

func TestRedactsKeys(t *testing.T) {
	h, buf := newTestHooks(Options{})
	h.NegativeCached(0, "user:secret")
	out := buf.String()
	if !strings.Contains(out, "tiercache.negative_cached") {
		t.Fatalf("missing event: %q", out)
	}
	if strings.Contains(out, "secret") {
		t.Fatalf("key leaked: %q", out)
	}

	h, buf = newTestHooks(Options{Redact: func(k string) string { return "k=" + k }})
	h.NegativeCached(1, "abc")
	if !strings.Contains(buf.String(), "k=abc") {
		t.Fatalf("custom redactor not used: %q", buf.String())
	}
}

func TestSampling(t *testing.T) {
	h, buf := newTestHooks(Options{PromoteEvery: 3})
	for i := 0; i < 9; i++ {
		h.Promoted(0, 1)
	}
	if n := strings.Count(buf.String(), "tiercache.promoted"); n != 3 {
		t.Fatalf("logged %d promotions, want 3", n)
	}
}

func TestEvents(t *testing.T) {
	h, buf := newTestHooks(Options{})
	h.LayerError(2, "get", errors.New("boom"))
	h.WriteRejected(0, 4)
	h.WriteAborted(4)
	out := buf.String()
	for _, want := range []string{"tiercache.layer_error", "err=boom", "tiercache.write_rejected", "tiercache.write_aborted"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestNilLogger(t *testing.T) {
	h := New(nil, Options{})
	h.LayerError(0, "get", errors.New("x"))
	h.Promoted(0, 1)
	h.NegativeCached(0, "k")
	h.WriteRejected(0, 1)
	h.WriteAborted(1)
}
