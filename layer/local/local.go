// Package local is the in-process "accelerator" tier: a TTL map living in the
// application's heap, shared by every cache built on the same Layer.
package local

import (
	"context"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/unkn0wn-root/tiercache/layer"
)

type Options struct {
	TTL               time.Duration `mapstructure:"ttl"`              // <= 0 => no expiry
	CleanupInterval   time.Duration `mapstructure:"cleanup_interval"` // 0 => 1m; < 0 disables the janitor
	CacheNotFoundKeys bool          `mapstructure:"cache_not_found_keys"`
}

type Layer struct {
	layer.Scope
	c   *gocache.Cache
	ttl time.Duration
}

var _ layer.Layer = (*Layer)(nil)

func New(o Options) *Layer {
	ttl := o.TTL
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	cleanup := o.CleanupInterval
	if cleanup == 0 {
		cleanup = time.Minute
	}
	return NewWithCache(gocache.New(ttl, cleanup), o)
}

// NewWithCache wraps an existing go-cache instance, e.g. one shared with other code.
func NewWithCache(c *gocache.Cache, o Options) *Layer {
	ttl := o.TTL
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	l := &Layer{c: c, ttl: ttl}
	l.SetCacheNotFoundKeys(o.CacheNotFoundKeys)
	return l
}

func Factory(opts map[string]any) (layer.Layer, error) {
	var o Options
	if err := layer.DecodeOptions(opts, &o); err != nil {
		return nil, err
	}
	return New(o), nil
}

func (l *Layer) Get(_ context.Context, key string) ([]byte, bool, error) {
	return l.load(l.Key(key))
}

func (l *Layer) load(sk string) ([]byte, bool, error) {
	v, ok := l.c.Get(sk)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		// foreign entry under our prefix
		l.c.Delete(sk)
		return nil, false, nil
	}
	// callers own the returned slice
	return append([]byte{}, b...), true, nil
}

func (l *Layer) GetMulti(_ context.Context, ks []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(ks))
	for sk, k := range l.Keys(ks) {
		if v, ok, _ := l.load(sk); ok {
			out[k] = v
		}
	}
	return out, nil
}

func (l *Layer) Set(_ context.Context, key string, value []byte) (bool, error) {
	l.c.Set(l.Key(key), append([]byte{}, value...), l.ttl)
	return true, nil
}

func (l *Layer) SetMulti(_ context.Context, items map[string][]byte) (bool, error) {
	for k, v := range items {
		l.c.Set(l.Key(k), append([]byte{}, v...), l.ttl)
	}
	return true, nil
}

func (l *Layer) Contains(_ context.Context, key string) (bool, error) {
	_, ok := l.c.Get(l.Key(key))
	return ok, nil
}

func (l *Layer) Delete(_ context.Context, key string) error {
	l.c.Delete(l.Key(key))
	return nil
}

func (l *Layer) DeleteMulti(_ context.Context, ks []string) error {
	for sk := range l.Keys(ks) {
		l.c.Delete(sk)
	}
	return nil
}

func (l *Layer) Flush(_ context.Context) error {
	prefix := l.Prefix()
	for k := range l.c.Items() {
		if strings.HasPrefix(k, prefix) {
			l.c.Delete(k)
		}
	}
	return nil
}

func (l *Layer) Close(_ context.Context) error { return nil }
