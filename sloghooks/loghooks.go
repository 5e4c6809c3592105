// Package sloghooks reports tiercache events through log/slog.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/tiercache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	PromoteEvery  uint64
	NegativeEvery uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	promoteCtr  atomic.Uint64
	negativeCtr atomic.Uint64
}

var _ tiercache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) LayerError(level int, op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("tiercache.layer_error",
		"level", level,
		"op", op,
		"err", err)
}

func (h *Hooks) Promoted(level, count int) {
	if h.l == nil || !sample(h.opts.PromoteEvery, &h.promoteCtr) {
		return
	}
	h.l.Debug("tiercache.promoted",
		"level", level,
		"count", count)
}

func (h *Hooks) NegativeCached(level int, key string) {
	if h.l == nil || !sample(h.opts.NegativeEvery, &h.negativeCtr) {
		return
	}
	h.l.Debug("tiercache.negative_cached",
		"level", level,
		"key", h.redact(key))
}

func (h *Hooks) WriteRejected(level, count int) {
	if h.l == nil {
		return
	}
	h.l.Info("tiercache.write_rejected",
		"level", level,
		"count", count)
}

func (h *Hooks) WriteAborted(count int) {
	if h.l == nil {
		return
	}
	h.l.Error("tiercache.write_aborted",
		"count", count)
}
