package tiercache

import (
	"context"
	"fmt"
	"maps"
	"sync/atomic"

	"go.uber.org/multierr"

	c "github.com/unkn0wn-root/tiercache/codec"
	"github.com/unkn0wn-root/tiercache/internal/keys"
	"github.com/unkn0wn-root/tiercache/internal/wire"
	"github.com/unkn0wn-root/tiercache/layer"
)

type cache[V any] struct {
	layers []layer.Layer
	codec  c.Codec[V]
	log    Logger
	hooks  Hooks
	ns     atomic.Pointer[string]
}

func newCache[V any](opts Options[V]) (*cache[V], error) {
	if len(opts.Layers) == 0 {
		return nil, fmt.Errorf("%w: at least one layer is required", ErrInvalidConfig)
	}
	for i, l := range opts.Layers {
		if l == nil {
			return nil, fmt.Errorf("%w: layer %d is nil", ErrInvalidConfig, i)
		}
	}

	cc := &cache[V]{
		layers: append([]layer.Layer(nil), opts.Layers...),
	}

	// defaults
	cc.codec = opts.Codec
	if cc.codec == nil {
		cc.codec = c.JSON[V]{}
	}
	if opts.MaxValueSize > 0 {
		cc.codec = c.Limit[V]{Inner: cc.codec, MaxDecode: opts.MaxValueSize}
	}
	cc.log = opts.Logger
	if cc.log == nil {
		cc.log = NopLogger{}
	}
	cc.hooks = opts.Hooks
	if cc.hooks == nil {
		cc.hooks = NopHooks{}
	}

	cc.SetNamespace(opts.Namespace)
	return cc, nil
}

func (cc *cache[V]) Namespace() string {
	if p := cc.ns.Load(); p != nil {
		return *p
	}
	return ""
}

func (cc *cache[V]) SetNamespace(ns string) {
	cc.ns.Store(&ns)
	for _, l := range cc.layers {
		l.SetNamespace(ns)
	}
}

func (cc *cache[V]) Layers() []layer.Layer {
	return append([]layer.Layer(nil), cc.layers...)
}

func (cc *cache[V]) Close(ctx context.Context) error {
	var errs error
	for i, l := range cc.layers {
		if err := l.Close(ctx); err != nil {
			errs = multierr.Append(errs, &LayerError{Level: i, Op: "close", Err: err})
		}
	}
	return errs
}

func (cc *cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	raw, found := cc.lookup(ctx, key)
	if !found || wire.IsMiss(raw) {
		return zero, false, nil
	}
	v, err := cc.codec.Decode(raw)
	if err != nil {
		return zero, false, fmt.Errorf("tiercache: decode %q: %w", key, err)
	}
	return v, true, nil
}

// lookup walks shallow to deep and stops at the first hit. Walking back up, every
// layer above the hit receives the raw value. On a total miss, layers above the
// last one that cache not-found keys receive the miss marker instead.
func (cc *cache[V]) lookup(ctx context.Context, key string) ([]byte, bool) {
	var (
		raw   []byte
		found bool
		depth = len(cc.layers) - 1
	)
	for i, l := range cc.layers {
		v, ok, err := l.Get(ctx, key)
		if err != nil {
			if !layer.IsNotFound(err) {
				cc.layerErr(i, "get", err)
			}
			continue
		}
		if ok {
			raw, found, depth = v, true, i
			break
		}
	}

	var miss []byte
	for i := depth - 1; i >= 0; i-- {
		l := cc.layers[i]
		switch {
		case found:
			if cc.setAt(i, "promote", func(l layer.Layer) (bool, error) { return l.Set(ctx, key, raw) }) {
				cc.log.Debug("promoted", Fields{"key": key, "level": i, "from": depth})
				cc.hooks.Promoted(i, 1)
			}
		case l.CacheNotFoundKeys():
			if miss == nil {
				miss = wire.Miss()
			}
			if cc.setAt(i, "negative_cache", func(l layer.Layer) (bool, error) { return l.Set(ctx, key, miss) }) {
				cc.log.Debug("negatively cached", Fields{"key": key, "level": i})
				cc.hooks.NegativeCached(i, key)
			}
		}
	}
	return raw, found
}

func (cc *cache[V]) GetMulti(ctx context.Context, ks []string) (map[string]V, error) {
	raws := cc.lookupMulti(ctx, keys.Uniq(ks))
	out := make(map[string]V, len(raws))
	var errs error
	for k, raw := range raws {
		if wire.IsMiss(raw) {
			continue
		}
		v, err := cc.codec.Decode(raw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("tiercache: decode %q: %w", k, err))
			continue
		}
		out[k] = v
	}
	return out, errs
}

// lookupMulti asks each layer only for the keys still missing and stops once all
// are satisfied. Walking back up, each layer gets one SetMulti with everything
// recovered below it. Misses are not negatively cached on this path.
func (cc *cache[V]) lookupMulti(ctx context.Context, ks []string) map[string][]byte {
	out := make(map[string][]byte, len(ks))
	if len(ks) == 0 {
		return out
	}

	hitsAt := make([]map[string][]byte, 0, len(cc.layers))
	pending := ks
	for i, l := range cc.layers {
		got, err := l.GetMulti(ctx, pending)
		if err != nil {
			cc.layerErr(i, "get_multi", err)
		}
		hits := make(map[string][]byte, len(got))
		still := pending[:0:0]
		for _, k := range pending {
			if v, ok := got[k]; ok {
				hits[k] = v
				out[k] = v
			} else {
				still = append(still, k)
			}
		}
		hitsAt = append(hitsAt, hits)
		if len(still) == 0 {
			break
		}
		pending = still
	}

	recovered := make(map[string][]byte)
	for i := len(hitsAt) - 2; i >= 0; i-- {
		maps.Copy(recovered, hitsAt[i+1])
		if len(recovered) == 0 {
			continue
		}
		batch := maps.Clone(recovered)
		if cc.setAt(i, "promote_multi", func(l layer.Layer) (bool, error) { return l.SetMulti(ctx, batch) }) {
			cc.log.Debug("promoted", Fields{"level": i, "count": len(batch)})
			cc.hooks.Promoted(i, len(batch))
		}
	}
	return out
}

func (cc *cache[V]) Set(ctx context.Context, key string, value V) (bool, error) {
	raw, err := cc.codec.Encode(value)
	if err != nil {
		return false, fmt.Errorf("tiercache: encode %q: %w", key, err)
	}
	return cc.writeThrough("set", 1, func(l layer.Layer) (bool, error) {
		return l.Set(ctx, key, raw)
	}), nil
}

func (cc *cache[V]) SetMulti(ctx context.Context, items map[string]V) (bool, error) {
	if len(items) == 0 {
		return true, nil
	}
	raws := make(map[string][]byte, len(items))
	for k, v := range items {
		raw, err := cc.codec.Encode(v)
		if err != nil {
			return false, fmt.Errorf("tiercache: encode %q: %w", k, err)
		}
		raws[k] = raw
	}
	return cc.writeThrough("set_multi", len(raws), func(l layer.Layer) (bool, error) {
		return l.SetMulti(ctx, raws)
	}), nil
}

// writeThrough applies write from the deepest layer up. The deepest layer is
// authoritative: if it rejects the write, the cascade stops and reports false.
// Rejections above it are reported but do not stop the cascade.
func (cc *cache[V]) writeThrough(op string, count int, write func(layer.Layer) (bool, error)) bool {
	last := len(cc.layers) - 1
	for i := last; i >= 0; i-- {
		if cc.setAt(i, op, write) {
			continue
		}
		if i == last {
			cc.log.Error("write aborted: authoritative layer rejected write", Fields{"op": op, "level": i, "count": count})
			cc.hooks.WriteAborted(count)
			return false
		}
		cc.hooks.WriteRejected(i, count)
	}
	return true
}

func (cc *cache[V]) Contains(ctx context.Context, key string) bool {
	for i, l := range cc.layers {
		ok, err := l.Contains(ctx, key)
		if err != nil {
			cc.layerErr(i, "contains", err)
			continue
		}
		if ok {
			return true
		}
	}
	return false
}

func (cc *cache[V]) Delete(ctx context.Context, key string) bool {
	cc.fanOut("delete", func(l layer.Layer) error { return l.Delete(ctx, key) })
	return true
}

func (cc *cache[V]) DeleteMulti(ctx context.Context, ks []string) bool {
	if len(ks) == 0 {
		return true
	}
	cc.fanOut("delete_multi", func(l layer.Layer) error { return l.DeleteMulti(ctx, ks) })
	return true
}

func (cc *cache[V]) Flush(ctx context.Context) bool {
	cc.fanOut("flush", func(l layer.Layer) error { return l.Flush(ctx) })
	return true
}

// fanOut calls fn on every layer; failures are reported, never fatal.
func (cc *cache[V]) fanOut(op string, fn func(layer.Layer) error) {
	for i, l := range cc.layers {
		if err := fn(l); err != nil {
			cc.layerErr(i, op, err)
		}
	}
}

// setAt runs a write against layer i and reports failures. Returns the layer's ok.
func (cc *cache[V]) setAt(i int, op string, write func(layer.Layer) (bool, error)) bool {
	ok, err := write(cc.layers[i])
	if err != nil {
		cc.layerErr(i, op, err)
		return false
	}
	if !ok {
		cc.log.Warn("layer rejected write", Fields{"op": op, "level": i})
	}
	return ok
}

func (cc *cache[V]) layerErr(i int, op string, err error) {
	cc.log.Warn("layer call failed", Fields{"op": op, "level": i, "err": err})
	cc.hooks.LayerError(i, op, &LayerError{Level: i, Op: op, Err: err})
}
