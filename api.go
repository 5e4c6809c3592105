package tiercache

import (
	"context"

	c "github.com/unkn0wn-root/tiercache/codec"
	"github.com/unkn0wn-root/tiercache/layer"
)

// Cache is the orchestrator over an ordered layer stack.
// V is the caller's value type. Serialization is handled by a pluggable Codec[V].
//
// Layer failures never surface as errors: reads treat them as misses, writes as
// rejections, and both are reported through Logger and Hooks. Apart from Close,
// returned errors come from the codec.
type Cache[V any] interface {
	// Get returns the value from the shallowest layer holding key.
	// ok=false when no layer has it, or when a negatively cached miss is hit.
	Get(ctx context.Context, key string) (v V, ok bool, err error)

	// GetMulti returns the found keys only. Duplicate keys are collapsed.
	// Values that fail to decode are left out and reported in err.
	GetMulti(ctx context.Context, keys []string) (map[string]V, error)

	// Set writes through every layer, deepest first. ok=false when the
	// authoritative layer rejected the write; no other layer is touched then.
	// A single-layer stack is no exception: that layer is authoritative, so its
	// rejection reports false.
	Set(ctx context.Context, key string, value V) (ok bool, err error)
	SetMulti(ctx context.Context, items map[string]V) (ok bool, err error)

	Contains(ctx context.Context, key string) bool

	// Delete, DeleteMulti and Flush reach every layer and always report true.
	Delete(ctx context.Context, key string) bool
	DeleteMulti(ctx context.Context, keys []string) bool
	Flush(ctx context.Context) bool

	Namespace() string
	// SetNamespace switches the namespace of every layer.
	SetNamespace(ns string)

	// Layers returns the stack, fastest first.
	Layers() []layer.Layer

	// Close closes every layer.
	Close(ctx context.Context) error
}

// Options configure a Cache built from explicit layers.
// Only Layers is required; others have sensible defaults.
type Options[V any] struct {
	// Required. Ordered fastest (0) to authoritative (N-1).
	Layers []layer.Layer

	Namespace    string     // applied to every layer; may be empty
	Codec        c.Codec[V] // nil => JSON
	MaxValueSize int        // > 0 rejects wire values larger than this on decode
	Logger       Logger     // nil => NopLogger
	Hooks        Hooks      // nil => NopHooks
}

func New[V any](opts Options[V]) (Cache[V], error) {
	cc, err := newCache[V](opts)
	if err != nil {
		return nil, err
	}
	return cc, nil
}
