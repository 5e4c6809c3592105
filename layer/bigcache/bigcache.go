package bigcache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	bc "github.com/allegro/bigcache/v3"

	"github.com/unkn0wn-root/tiercache/layer"
)

type Layer struct {
	layer.Scope
	c *bc.BigCache
}

var _ layer.Layer = (*Layer)(nil)

type Options struct {
	LifeWindow         time.Duration `mapstructure:"life_window"` // 0 => 10m
	CleanWindow        time.Duration `mapstructure:"clean_window"`
	MaxEntriesInWindow int           `mapstructure:"max_entries_in_window"`
	MaxEntrySize       int           `mapstructure:"max_entry_size"`
	HardMaxCacheSizeMB int           `mapstructure:"hard_max_cache_size_mb"` // ~ memory limit; 0 = unlimited
	Shards             int           `mapstructure:"shards"`                 // power of two
	CacheNotFoundKeys  bool          `mapstructure:"cache_not_found_keys"`
}

func New(o Options) (*Layer, error) {
	life := o.LifeWindow
	if life <= 0 {
		life = 10 * time.Minute
	}
	conf := bc.DefaultConfig(life)
	conf.Verbose = false
	if o.CleanWindow > 0 {
		conf.CleanWindow = o.CleanWindow
	}
	if o.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = o.MaxEntriesInWindow
	}
	if o.MaxEntrySize > 0 {
		conf.MaxEntrySize = o.MaxEntrySize
	}
	if o.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = o.HardMaxCacheSizeMB
	}
	if o.Shards > 0 {
		conf.Shards = o.Shards
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: bigcache: %v", layer.ErrInvalidConfig, err)
	}
	l := &Layer{c: c}
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
	b, err := l.c.Get(l.Key(key))
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("bigcache: get: %w", err)
	}
	return b, true, nil
}

func (l *Layer) GetMulti(ctx context.Context, ks []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(ks))
	for _, k := range ks {
		b, ok, err := l.Get(ctx, k)
		if err != nil {
			return out, err
		}
		if ok {
			out[k] = b
		}
	}
	return out, nil
}

func (l *Layer) Set(_ context.Context, key string, value []byte) (bool, error) {
	// BigCache does not support per-entry TTL; uses global LifeWindow.
	if err := l.c.Set(l.Key(key), value); err != nil {
		return false, fmt.Errorf("bigcache: set: %w", err)
	}
	return true, nil
}

func (l *Layer) SetMulti(ctx context.Context, items map[string][]byte) (bool, error) {
	for k, v := range items {
		if ok, err := l.Set(ctx, k, v); !ok || err != nil {
			return false, err
		}
	}
	return true, nil
}

func (l *Layer) Contains(ctx context.Context, key string) (bool, error) {
	_, ok, err := l.Get(ctx, key)
	return ok, err
}

func (l *Layer) Delete(_ context.Context, key string) error {
	return l.del(l.Key(key))
}

func (l *Layer) DeleteMulti(_ context.Context, ks []string) error {
	for sk := range l.Keys(ks) {
		if err := l.del(sk); err != nil {
			return err
		}
	}
	return nil
}

func (l *Layer) del(sk string) error {
	if err := l.c.Delete(sk); err != nil && !errors.Is(err, bc.ErrEntryNotFound) {
		return fmt.Errorf("bigcache: delete: %w", err)
	}
	return nil
}

// Flush walks the cache and drops entries in the current namespace.
func (l *Layer) Flush(_ context.Context) error {
	prefix := l.Prefix()
	var doomed []string
	it := l.c.Iterator()
	for it.SetNext() {
		e, err := it.Value()
		if err != nil {
			continue // entry vanished while iterating
		}
		if strings.HasPrefix(e.Key(), prefix) {
			doomed = append(doomed, e.Key())
		}
	}
	for _, k := range doomed {
		if err := l.del(k); err != nil {
			return err
		}
	}
	return nil
}

func (l *Layer) Close(_ context.Context) error {
	return l.c.Close()
}
