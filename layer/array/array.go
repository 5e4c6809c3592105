// Package array is an unbounded in-process layer backed by a concurrent map.
// It never evicts; use it as layer 0 for request-scoped or short-lived stacks.
package array

import (
	"context"
	"strings"

	"github.com/puzpuzpuz/xsync"

	"github.com/unkn0wn-root/tiercache/layer"
)

type Options struct {
	CacheNotFoundKeys bool `mapstructure:"cache_not_found_keys"`
}

type Layer struct {
	layer.Scope
	m *xsync.Map
}

var _ layer.Layer = (*Layer)(nil)

func New(o Options) *Layer {
	l := &Layer{m: xsync.NewMap()}
	l.SetCacheNotFoundKeys(o.CacheNotFoundKeys)
	return l
}

// Factory builds a Layer from free-form adapter options.
func Factory(opts map[string]any) (layer.Layer, error) {
	var o Options
	if err := layer.DecodeOptions(opts, &o); err != nil {
		return nil, err
	}
	return New(o), nil
}

func (l *Layer) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := l.m.Load(l.Key(key))
	if !ok {
		return nil, false, nil
	}
	return clone(v.([]byte)), true, nil
}

func (l *Layer) GetMulti(_ context.Context, ks []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(ks))
	for sk, k := range l.Keys(ks) {
		if v, ok := l.m.Load(sk); ok {
			out[k] = clone(v.([]byte))
		}
	}
	return out, nil
}

func (l *Layer) Set(_ context.Context, key string, value []byte) (bool, error) {
	l.m.Store(l.Key(key), clone(value))
	return true, nil
}

func (l *Layer) SetMulti(_ context.Context, items map[string][]byte) (bool, error) {
	for k, v := range items {
		l.m.Store(l.Key(k), clone(v))
	}
	return true, nil
}

func (l *Layer) Contains(_ context.Context, key string) (bool, error) {
	_, ok := l.m.Load(l.Key(key))
	return ok, nil
}

func (l *Layer) Delete(_ context.Context, key string) error {
	l.m.Delete(l.Key(key))
	return nil
}

func (l *Layer) DeleteMulti(_ context.Context, ks []string) error {
	for sk := range l.Keys(ks) {
		l.m.Delete(sk)
	}
	return nil
}

func (l *Layer) Flush(_ context.Context) error {
	prefix := l.Prefix()
	l.m.Range(func(k string, _ interface{}) bool {
		if strings.HasPrefix(k, prefix) {
			l.m.Delete(k)
		}
		return true
	})
	return nil
}

func (l *Layer) Close(_ context.Context) error { return nil }

// clone keeps stored bytes independent of caller buffers; an empty value stays non-nil.
func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
