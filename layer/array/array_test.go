package array

import (
	"context"
	"testing"

	"github.com/puzpuzpuz/xsync"

	"github.com/unkn0wn-root/tiercache/layer"
	"github.com/unkn0wn-root/tiercache/layer/layertest"
)

func TestContract(t *testing.T) {
	// one backing map per subtest, shared across namespaces
	backends := map[*testing.T]*xsync.Map{}
	layertest.Run(t, func(t *testing.T, ns string) layer.Layer {
		m, ok := backends[t]
		if !ok {
			m = xsync.NewMap()
			backends[t] = m
		}
		l := &Layer{m: m}
		l.SetNamespace(ns)
		return l
	}, layertest.Options{})
}

func TestStoredBytesAreCopied(t *testing.T) {
	ctx := context.Background()
	l := New(Options{})
	buf := []byte("abc")
	if _, err := l.Set(ctx, "k", buf); err != nil {
		t.Fatal(err)
	}
	buf[0] = 'X'
	v, _, _ := l.Get(ctx, "k")
	if string(v) != "abc" {
		t.Fatalf("stored value aliased caller buffer: %q", v)
	}
	v[1] = 'Y'
	v2, _, _ := l.Get(ctx, "k")
	if string(v2) != "abc" {
		t.Fatalf("returned value aliases storage: %q", v2)
	}
}

func TestFactory(t *testing.T) {
	l, err := Factory(map[string]any{"cache_not_found_keys": true})
	if err != nil {
		t.Fatal(err)
	}
	if !l.CacheNotFoundKeys() {
		t.Fatalf("cache_not_found_keys not applied")
	}
	if _, err := Factory(map[string]any{"bogus": 1}); err == nil {
		t.Fatalf("unknown option accepted")
	}
}
