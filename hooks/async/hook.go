// Package asynchook moves hook delivery off the cache's hot path.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{PromoteEvery: 100})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := tiercache.New[User](tiercache.Options[User]{
//	    Namespace: "user",
//	    Layers:    layers,
//	    Hooks:     hooks, // or `raw` if you don't want async
//	})
//
// Events are dropped when the queue is full; Dropped reports how many.
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/tiercache"
)

type Hooks struct {
	inner   tiercache.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ tiercache.Hooks = (*Hooks)(nil)

func New(inner tiercache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Later events are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.mu.Lock()
		h.closed = true
		close(h.q)
		h.mu.Unlock()
		h.wg.Wait()
	})
}

// Dropped returns the number of events lost to a full queue or a closed Hooks.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) LayerError(level int, op string, err error) {
	h.try(func() { h.inner.LayerError(level, op, err) })
}
func (h *Hooks) Promoted(level, count int) { h.try(func() { h.inner.Promoted(level, count) }) }
func (h *Hooks) NegativeCached(level int, key string) {
	h.try(func() { h.inner.NegativeCached(level, key) })
}
func (h *Hooks) WriteRejected(level, count int) { h.try(func() { h.inner.WriteRejected(level, count) }) }
func (h *Hooks) WriteAborted(count int)         { h.try(func() { h.inner.WriteAborted(count) }) }
