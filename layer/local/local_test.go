package local

import (
	"context"
	"testing"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/unkn0wn-root/tiercache/layer"
	"github.com/unkn0wn-root/tiercache/layer/layertest"
)

func TestContract(t *testing.T) {
	backends := map[*testing.T]*gocache.Cache{}
	layertest.Run(t, func(t *testing.T, ns string) layer.Layer {
		c, ok := backends[t]
		if !ok {
			c = gocache.New(gocache.NoExpiration, 0)
			backends[t] = c
		}
		l := NewWithCache(c, Options{})
		l.SetNamespace(ns)
		return l
	}, layertest.Options{})
}

func TestTTLExpires(t *testing.T) {
	ctx := context.Background()
	l := New(Options{TTL: 50 * time.Millisecond, CleanupInterval: -1})
	l.SetNamespace("ttl")
	if _, err := l.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := l.Get(ctx, "k"); !ok {
		t.Fatalf("fresh entry missing")
	}
	time.Sleep(80 * time.Millisecond)
	if _, ok, _ := l.Get(ctx, "k"); ok {
		t.Fatalf("entry outlived its ttl")
	}
}

func TestForeignEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	c := gocache.New(gocache.NoExpiration, 0)
	l := NewWithCache(c, Options{})
	l.SetNamespace("ns")
	c.Set("ns:k", 42, gocache.NoExpiration)
	if _, ok, err := l.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("foreign value must read as miss: ok=%v err=%v", ok, err)
	}
	if _, ok := c.Get("ns:k"); ok {
		t.Fatalf("foreign value not dropped")
	}
}

func TestFactorySeconds(t *testing.T) {
	l, err := Factory(map[string]any{"ttl": 300, "cache_not_found_keys": true})
	if err != nil {
		t.Fatal(err)
	}
	ll := l.(*Layer)
	if ll.ttl != 5*time.Minute || !ll.CacheNotFoundKeys() {
		t.Fatalf("options not applied: ttl=%v", ll.ttl)
	}
}
