// Package layertest runs the layer.Layer contract against an implementation.
package layertest

import (
	"bytes"
	"context"
	"testing"

	"github.com/unkn0wn-root/tiercache/layer"
)

// Factory returns a fresh layer scoped to ns. Layers returned for the same test
// must share one backend so namespace isolation can be observed.
type Factory func(t *testing.T, ns string) layer.Layer

type Options struct {
	// GlobalFlush is set for backends whose Flush clears every namespace.
	GlobalFlush bool
	// Settle is called after writes for backends that apply them asynchronously.
	Settle func(l layer.Layer)
}

// Run executes the contract suite.
func Run(t *testing.T, newLayer Factory, o Options) {
	t.Helper()
	settle := o.Settle
	if settle == nil {
		settle = func(layer.Layer) {}
	}
	ctx := context.Background()

	t.Run("GetMissThenHit", func(t *testing.T) {
		l := newLayer(t, "ns")
		if _, ok, err := l.Get(ctx, "k"); err != nil || ok {
			t.Fatalf("Get on empty layer: ok=%v err=%v", ok, err)
		}
		if ok, err := l.Set(ctx, "k", []byte("v")); err != nil || !ok {
			t.Fatalf("Set: ok=%v err=%v", ok, err)
		}
		settle(l)
		v, ok, err := l.Get(ctx, "k")
		if err != nil || !ok || string(v) != "v" {
			t.Fatalf("Get after Set: v=%q ok=%v err=%v", v, ok, err)
		}
	})

	t.Run("EmptyValueIsAHit", func(t *testing.T) {
		l := newLayer(t, "ns")
		if ok, err := l.Set(ctx, "empty", []byte{}); err != nil || !ok {
			t.Fatalf("Set empty: ok=%v err=%v", ok, err)
		}
		settle(l)
		v, ok, err := l.Get(ctx, "empty")
		if err != nil || !ok || len(v) != 0 {
			t.Fatalf("empty value must be found: v=%q ok=%v err=%v", v, ok, err)
		}
		if has, err := l.Contains(ctx, "empty"); err != nil || !has {
			t.Fatalf("Contains empty value: %v %v", has, err)
		}
	})

	t.Run("BinaryTransparent", func(t *testing.T) {
		l := newLayer(t, "ns")
		in := []byte{0, 1, 2, 0xff, 'x', 0}
		if ok, err := l.Set(ctx, "bin", in); err != nil || !ok {
			t.Fatalf("Set: ok=%v err=%v", ok, err)
		}
		settle(l)
		out, ok, err := l.Get(ctx, "bin")
		if err != nil || !ok || !bytes.Equal(in, out) {
			t.Fatalf("bytes changed: in=%x out=%x ok=%v err=%v", in, out, ok, err)
		}
	})

	t.Run("ReturnedValueIsACopy", func(t *testing.T) {
		l := newLayer(t, "ns")
		if _, err := l.Set(ctx, "own", []byte("abc")); err != nil {
			t.Fatal(err)
		}
		settle(l)
		v, ok, err := l.Get(ctx, "own")
		if err != nil || !ok {
			t.Fatalf("Get: ok=%v err=%v", ok, err)
		}
		v[0] = 'X'
		got, err := l.GetMulti(ctx, []string{"own"})
		if err != nil || string(got["own"]) != "abc" {
			t.Fatalf("stored value changed through Get result: %q err=%v", got["own"], err)
		}
		got["own"][1] = 'Y'
		if v, _, _ := l.Get(ctx, "own"); string(v) != "abc" {
			t.Fatalf("stored value changed through GetMulti result: %q", v)
		}
	})

	t.Run("MultiOps", func(t *testing.T) {
		l := newLayer(t, "ns")
		items := map[string][]byte{"a": []byte("1"), "b": []byte("2"), "c": []byte("3")}
		if ok, err := l.SetMulti(ctx, items); err != nil || !ok {
			t.Fatalf("SetMulti: ok=%v err=%v", ok, err)
		}
		settle(l)
		got, err := l.GetMulti(ctx, []string{"a", "b", "zz"})
		if err != nil {
			t.Fatalf("GetMulti: %v", err)
		}
		if len(got) != 2 || string(got["a"]) != "1" || string(got["b"]) != "2" {
			t.Fatalf("GetMulti: %v", got)
		}
		if _, ok := got["zz"]; ok {
			t.Fatalf("GetMulti must omit absent keys")
		}
		if err := l.DeleteMulti(ctx, []string{"a", "b", "nope"}); err != nil {
			t.Fatalf("DeleteMulti: %v", err)
		}
		settle(l)
		got, err = l.GetMulti(ctx, []string{"a", "b", "c"})
		if err != nil || len(got) != 1 || string(got["c"]) != "3" {
			t.Fatalf("after DeleteMulti: %v err=%v", got, err)
		}
		if got, err := l.GetMulti(ctx, nil); err != nil || len(got) != 0 {
			t.Fatalf("GetMulti(nil): %v %v", got, err)
		}
		if err := l.DeleteMulti(ctx, nil); err != nil {
			t.Fatalf("DeleteMulti(nil): %v", err)
		}
	})

	t.Run("DeleteIdempotent", func(t *testing.T) {
		l := newLayer(t, "ns")
		if _, err := l.Set(ctx, "k", []byte("v")); err != nil {
			t.Fatal(err)
		}
		settle(l)
		for i := 0; i < 2; i++ {
			if err := l.Delete(ctx, "k"); err != nil {
				t.Fatalf("Delete #%d: %v", i, err)
			}
		}
		settle(l)
		if has, err := l.Contains(ctx, "k"); err != nil || has {
			t.Fatalf("Contains after Delete: %v %v", has, err)
		}
	})

	t.Run("NamespaceIsolation", func(t *testing.T) {
		a := newLayer(t, "alpha")
		b := newLayer(t, "beta")
		if _, err := a.Set(ctx, "k", []byte("A")); err != nil {
			t.Fatal(err)
		}
		if _, err := b.Set(ctx, "k", []byte("B")); err != nil {
			t.Fatal(err)
		}
		settle(a)
		settle(b)
		va, _, _ := a.Get(ctx, "k")
		vb, _, _ := b.Get(ctx, "k")
		if string(va) != "A" || string(vb) != "B" {
			t.Fatalf("namespaces leaked: a=%q b=%q", va, vb)
		}
		if err := a.Flush(ctx); err != nil {
			t.Fatalf("Flush: %v", err)
		}
		settle(a)
		if has, _ := a.Contains(ctx, "k"); has {
			t.Fatalf("Flush left key in its own namespace")
		}
		if o.GlobalFlush {
			return
		}
		if v, ok, _ := b.Get(ctx, "k"); !ok || string(v) != "B" {
			t.Fatalf("Flush removed another namespace's key: ok=%v v=%q", ok, v)
		}
	})

	t.Run("SetNamespace", func(t *testing.T) {
		l := newLayer(t, "one")
		if _, err := l.Set(ctx, "k", []byte("v")); err != nil {
			t.Fatal(err)
		}
		settle(l)
		l.SetNamespace("two")
		if l.Namespace() != "two" {
			t.Fatalf("Namespace: %q", l.Namespace())
		}
		if _, ok, _ := l.Get(ctx, "k"); ok {
			t.Fatalf("key visible after namespace switch")
		}
		l.SetNamespace("one")
		if _, ok, _ := l.Get(ctx, "k"); !ok {
			t.Fatalf("key lost after switching back")
		}
	})
}
