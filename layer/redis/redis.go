package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/unkn0wn-root/tiercache/layer"
)

var ErrNilClient = errors.New("redis layer: nil client")

const scanCount = 512

type Layer struct {
	layer.Scope
	rdb         goredis.UniversalClient
	ttl         time.Duration
	closeClient bool
}

var _ layer.Layer = (*Layer)(nil)

type Config struct {
	Client            goredis.UniversalClient
	CloseClient       bool          // set true only if this layer exclusively owns the client
	TTL               time.Duration // <= 0 => no expiry
	CacheNotFoundKeys bool
}

func New(cfg Config) (*Layer, error) {
	if cfg.Client == nil {
		return nil, ErrNilClient
	}
	l := &Layer{rdb: cfg.Client, closeClient: cfg.CloseClient, ttl: cfg.TTL}
	l.SetCacheNotFoundKeys(cfg.CacheNotFoundKeys)
	return l, nil
}

// Options are the adapter options accepted by Factory.
type Options struct {
	Addr              string        `mapstructure:"addr"` // host:port; default 127.0.0.1:6379
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	DB                int           `mapstructure:"database"`
	PoolSize          int           `mapstructure:"pool_size"`
	DialTimeout       time.Duration `mapstructure:"timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	TTL               time.Duration `mapstructure:"ttl"`
	CacheNotFoundKeys bool          `mapstructure:"cache_not_found_keys"`
}

func (o Options) addr() string {
	if o.Addr != "" {
		return o.Addr
	}
	host := o.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := o.Port
	if port == 0 {
		port = 6379
	}
	return fmt.Sprintf("%s:%d", host, port)
}

// Factory builds a Layer that owns its own client. The client connects lazily.
func Factory(opts map[string]any) (layer.Layer, error) {
	var o Options
	if err := layer.DecodeOptions(opts, &o); err != nil {
		return nil, err
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        o.addr(),
		Username:    o.Username,
		Password:    o.Password,
		DB:          o.DB,
		PoolSize:    o.PoolSize,
		DialTimeout: o.DialTimeout,
		ReadTimeout: o.ReadTimeout,
	})
	return New(Config{Client: rdb, CloseClient: true, TTL: o.TTL, CacheNotFoundKeys: o.CacheNotFoundKeys})
}

func (l *Layer) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := l.rdb.Get(ctx, l.Key(key)).Bytes()
	if err == goredis.Nil {
		return nil, false, nil // miss
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis layer: get: %w", err) // transport/server error
	}
	return b, true, nil
}

// GetMulti uses one MGET on a single node. On a cluster, keys hash to different
// slots and MGET would fail with CROSSSLOT, so each key gets its own GET in a
// pipeline that the client routes per slot.
func (l *Layer) GetMulti(ctx context.Context, ks []string) (map[string][]byte, error) {
	if len(ks) == 0 {
		return make(map[string][]byte), nil
	}
	if _, ok := l.rdb.(*goredis.ClusterClient); ok {
		return l.getEach(ctx, ks)
	}
	return l.mget(ctx, ks)
}

func (l *Layer) mget(ctx context.Context, ks []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(ks))
	sks := make([]string, len(ks))
	for i, k := range ks {
		sks[i] = l.Key(k)
	}
	vals, err := l.rdb.MGet(ctx, sks...).Result()
	if err != nil {
		return out, fmt.Errorf("redis layer: mget: %w", err)
	}
	for i, v := range vals {
		switch vv := v.(type) {
		case string:
			out[ks[i]] = []byte(vv)
		case []byte:
			out[ks[i]] = vv
		}
	}
	return out, nil
}

func (l *Layer) getEach(ctx context.Context, ks []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(ks))
	cmds := make([]*goredis.StringCmd, len(ks))
	_, err := l.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for i, k := range ks {
			cmds[i] = p.Get(ctx, l.Key(k))
		}
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return out, fmt.Errorf("redis layer: get multi: %w", err)
	}
	for i, cmd := range cmds {
		b, err := cmd.Bytes()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			return out, fmt.Errorf("redis layer: get multi: %w", err)
		}
		out[ks[i]] = b
	}
	return out, nil
}

func (l *Layer) Set(ctx context.Context, key string, value []byte) (bool, error) {
	if err := l.rdb.Set(ctx, l.Key(key), value, l.expiry()).Err(); err != nil {
		return false, fmt.Errorf("redis layer: set: %w", err)
	}
	return true, nil
}

// SetMulti pipelines one SET per item so TTLs apply and cluster slots never cross.
func (l *Layer) SetMulti(ctx context.Context, items map[string][]byte) (bool, error) {
	if len(items) == 0 {
		return true, nil
	}
	ttl := l.expiry()
	cmds, err := l.rdb.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for k, v := range items {
			p.Set(ctx, l.Key(k), v, ttl)
		}
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("redis layer: set multi: %w", err)
	}
	for _, c := range cmds {
		if c.Err() != nil {
			return false, nil
		}
	}
	return true, nil
}

func (l *Layer) Contains(ctx context.Context, key string) (bool, error) {
	n, err := l.rdb.Exists(ctx, l.Key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("redis layer: exists: %w", err)
	}
	return n > 0, nil
}

func (l *Layer) Delete(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, l.Key(key)).Err(); err != nil {
		return fmt.Errorf("redis layer: del: %w", err)
	}
	return nil
}

func (l *Layer) DeleteMulti(ctx context.Context, ks []string) error {
	if len(ks) == 0 {
		return nil
	}
	sks := make([]string, 0, len(ks))
	for sk := range l.Keys(ks) {
		sks = append(sks, sk)
	}
	return delEach(ctx, l.rdb, sks)
}

// Flush scans for the namespace's keys and deletes them. On a cluster every
// master is scanned.
func (l *Layer) Flush(ctx context.Context) error {
	match := escapeGlob(l.Prefix()) + "*"
	if cc, ok := l.rdb.(*goredis.ClusterClient); ok {
		return cc.ForEachMaster(ctx, func(ctx context.Context, c *goredis.Client) error {
			return flushNode(ctx, c, match)
		})
	}
	return flushNode(ctx, l.rdb, match)
}

// flushNode collects a full SCAN pass before deleting anything, so the result
// does not depend on how the server moves its cursor when keys disappear.
func flushNode(ctx context.Context, c goredis.Cmdable, match string) error {
	var (
		cursor uint64
		found  []string
	)
	for {
		ks, next, err := c.Scan(ctx, cursor, match, scanCount).Result()
		if err != nil {
			return fmt.Errorf("redis layer: scan: %w", err)
		}
		found = append(found, ks...)
		if next == 0 {
			break
		}
		cursor = next
	}
	for len(found) > 0 {
		n := min(len(found), scanCount)
		if err := delEach(ctx, c, found[:n]); err != nil {
			return err
		}
		found = found[n:]
	}
	return nil
}

// delEach issues single-key DELs in one pipeline; multi-key DEL would fail
// with CROSSSLOT on a cluster.
func delEach(ctx context.Context, c goredis.Cmdable, sks []string) error {
	if len(sks) == 0 {
		return nil
	}
	_, err := c.Pipelined(ctx, func(p goredis.Pipeliner) error {
		for _, sk := range sks {
			p.Del(ctx, sk)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis layer: del: %w", err)
	}
	return nil
}

func (l *Layer) expiry() time.Duration {
	if l.ttl <= 0 {
		return 0 // treat non-positive TTLs as "no expiry"
	}
	return l.ttl
}

// Close releases the underlying redis client only when this layer owns it.
// Safe to call multiple times; repeated calls become no-ops.
func (l *Layer) Close(context.Context) error {
	if l.closeClient {
		if err := l.rdb.Close(); err != nil && !errors.Is(err, goredis.ErrClosed) {
			return err
		}
	}
	return nil
}

var globReplacer = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

func escapeGlob(s string) string { return globReplacer.Replace(s) }
