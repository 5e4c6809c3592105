package ristretto

import (
	"context"
	"fmt"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/tiercache/layer"
)

// Layer keeps entries in a ristretto cache. Writes are admitted asynchronously
// and may be dropped under pressure (Set then reports ok=false).
//
// Ristretto cannot enumerate keys, so Flush clears the whole cache, not only
// the current namespace. Give each namespace its own Layer if that matters.
type Layer struct {
	layer.Scope
	c           *rc.Cache
	ttl         time.Duration
	costBySize  bool
	synchronous bool
}

var _ layer.Layer = (*Layer)(nil)

type Options struct {
	NumCounters int64         `mapstructure:"num_counters"` // 0 => 1e5
	MaxCost     int64         `mapstructure:"max_cost"`     // 0 => 1e4 items, or bytes with CostBySize; ristretto's per-entry overhead is not charged
	BufferItems int64         `mapstructure:"buffer_items"` // 0 => 64
	TTL         time.Duration `mapstructure:"ttl"`          // <= 0 => no expiry
	Metrics     bool          `mapstructure:"metrics"`
	// CostBySize charges len(value) per entry instead of 1.
	CostBySize bool `mapstructure:"cost_by_size"`
	// Synchronous waits for each write to be applied before returning.
	Synchronous       bool `mapstructure:"synchronous"`
	CacheNotFoundKeys bool `mapstructure:"cache_not_found_keys"`
}

func New(o Options) (*Layer, error) {
	if o.NumCounters < 0 || o.MaxCost < 0 || o.BufferItems < 0 {
		return nil, fmt.Errorf("%w: ristretto: negative sizing", layer.ErrInvalidConfig)
	}
	if o.NumCounters == 0 {
		o.NumCounters = 1e5
	}
	if o.MaxCost == 0 {
		o.MaxCost = 1e4
	}
	if o.BufferItems == 0 {
		o.BufferItems = 64
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: o.NumCounters,
		MaxCost:     o.MaxCost,
		BufferItems: o.BufferItems,
		Metrics:     o.Metrics,
		// MaxCost counts items (or value bytes), not ristretto's internal bookkeeping
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ristretto: %v", layer.ErrInvalidConfig, err)
	}
	l := &Layer{c: c, ttl: o.TTL, costBySize: o.CostBySize, synchronous: o.Synchronous}
	l.SetCacheNotFoundKeys(o.CacheNotFoundKeys)
	return l, nil
}

func Factory(opts map[string]any) (layer.Layer, error) {
	var o Options
	if err := layer.DecodeOptions(opts, &o); err != nil {
		return nil, err
	}
	return New(o)
}

func (l *Layer) Get(_ context.Context, key string) ([]byte, bool, error) {
	return l.load(l.Key(key))
}

func (l *Layer) load(sk string) ([]byte, bool, error) {
	v, ok := l.c.Get(sk)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		l.c.Del(sk)
		return nil, false, nil
	}
	return append([]byte{}, b...), true, nil
}

func (l *Layer) GetMulti(_ context.Context, ks []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(ks))
	for sk, k := range l.Keys(ks) {
		if b, ok, _ := l.load(sk); ok {
			out[k] = b
		}
	}
	return out, nil
}

func (l *Layer) Set(_ context.Context, key string, value []byte) (bool, error) {
	ok := l.put(l.Key(key), value)
	if l.synchronous {
		l.c.Wait()
	}
	return ok, nil
}

func (l *Layer) SetMulti(_ context.Context, items map[string][]byte) (bool, error) {
	all := true
	for k, v := range items {
		all = l.put(l.Key(k), v) && all
	}
	if l.synchronous {
		l.c.Wait()
	}
	return all, nil
}

func (l *Layer) put(sk string, value []byte) bool {
	cost := int64(1)
	if l.costBySize && len(value) > 0 {
		cost = int64(len(value))
	}
	// ristretto stores the value as-is; keep it non-nil and detached from the caller
	v := append([]byte{}, value...)
	return l.c.SetWithTTL(sk, v, cost, l.ttl)
}

func (l *Layer) Contains(_ context.Context, key string) (bool, error) {
	_, ok := l.c.Get(l.Key(key))
	return ok, nil
}

func (l *Layer) Delete(_ context.Context, key string) error {
	l.c.Del(l.Key(key))
	return nil
}

func (l *Layer) DeleteMulti(_ context.Context, ks []string) error {
	for sk := range l.Keys(ks) {
		l.c.Del(sk)
	}
	return nil
}

func (l *Layer) Flush(_ context.Context) error {
	l.c.Clear()
	return nil
}

// Wait blocks until buffered writes are applied.
func (l *Layer) Wait() { l.c.Wait() }

func (l *Layer) Close(_ context.Context) error {
	l.c.Wait()
	l.c.Close()
	return nil
}

// Metrics exposes ristretto counters when Options.Metrics is set.
func (l *Layer) Metrics() *rc.Metrics { return l.c.Metrics }
