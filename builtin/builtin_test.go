package builtin

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unkn0wn-root/tiercache"
	"github.com/unkn0wn-root/tiercache/codec"
)

func TestRegistryNames(t *testing.T) {
	assert.Equal(t,
		[]string{"apcu", "array", "bigcache", "local", "mysql", "postgres", "redis", "ristretto", "sqlite"},
		Registry().Names())
}

func TestFourTierStackFromYAML(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cfg, err := tiercache.ParseConfig([]byte(fmt.Sprintf(`
namespace: orders
encoder: msgpack
layers:
  - adapter_name: array
    adapter_options: {cache_not_found_keys: true}
  - adapter_name: local
    adapter_options: {ttl: 60}
  - adapter_name: redis
    adapter_options: {addr: %q, ttl: 5m}
  - adapter_name: sqlite
    adapter_options: {path: ":memory:", table_name: orders_cache}
`, mr.Addr())))
	require.NoError(t, err)

	type order struct {
		ID    int     `msgpack:"id"`
		Total float64 `msgpack:"total"`
	}
	cc, err := New[order](cfg, tiercache.Options[order]{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close(ctx) })

	ls := cc.Layers()
	require.Len(t, ls, 4)

	// seed only the authoritative layer, then read through the stack
	o := order{ID: 7, Total: 12.5}
	ok, err := ls[3].Set(ctx, "7", mustMsgpack(t, o))
	require.NoError(t, err)
	require.True(t, ok)

	got, found, err := cc.Get(ctx, "7")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, o, got)
	for i := 0; i < 3; i++ {
		has, err := ls[i].Contains(ctx, "7")
		require.NoError(t, err)
		assert.True(t, has, "layer %d not promoted", i)
	}
	assert.True(t, mr.Exists("orders:7"))

	// negative caching on layer 0 only
	_, found, err = cc.Get(ctx, "404")
	require.NoError(t, err)
	assert.False(t, found)
	has, _ := ls[0].Contains(ctx, "404")
	assert.True(t, has)
	has, _ = ls[1].Contains(ctx, "404")
	assert.False(t, has)

	assert.True(t, cc.Flush(ctx))
	assert.False(t, cc.Contains(ctx, "7"))
}

func TestUnknownAdapter(t *testing.T) {
	cfg := tiercache.Config{Layers: []tiercache.LayerConfig{{Name: "memcached", Options: map[string]any{}}}}
	_, err := New[string](cfg, tiercache.Options[string]{})
	assert.ErrorIs(t, err, tiercache.ErrInvalidConfig)
}

func TestAdapterOptionErrorsSurface(t *testing.T) {
	cfg := tiercache.Config{Layers: []tiercache.LayerConfig{
		{Name: "array", Options: map[string]any{"no_such_option": 1}},
	}}
	_, err := New[string](cfg, tiercache.Options[string]{})
	assert.ErrorIs(t, err, tiercache.ErrInvalidConfig)
}

func mustMsgpack[V any](t *testing.T, v V) []byte {
	t.Helper()
	b, err := codec.Msgpack[V]{}.Encode(v)
	require.NoError(t, err)
	return b
}
