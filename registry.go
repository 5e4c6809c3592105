package tiercache

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/multierr"

	c "github.com/unkn0wn-root/tiercache/codec"
	"github.com/unkn0wn-root/tiercache/layer"
)

// LayerFactory builds a layer from its adapter_options.
type LayerFactory func(opts map[string]any) (layer.Layer, error)

// Registry maps adapter names to factories. Names are case-insensitive.
// Safe for concurrent use.
type Registry struct {
	mu sync.RWMutex
	m  map[string]LayerFactory
}

func NewRegistry() *Registry {
	return &Registry{m: make(map[string]LayerFactory)}
}

// Register binds name to f, replacing any previous binding.
func (r *Registry) Register(name string, f LayerFactory) {
	r.mu.Lock()
	r.m[normalize(name)] = f
	r.mu.Unlock()
}

// Lookup returns the factory for name. Unknown names wrap ErrInvalidConfig.
func (r *Registry) Lookup(name string) (LayerFactory, error) {
	r.mu.RLock()
	f, ok := r.m[normalize(name)]
	r.mu.RUnlock()
	if !ok || f == nil {
		return nil, fmt.Errorf("%w: unknown adapter %q", ErrInvalidConfig, name)
	}
	return f, nil
}

// Names returns the registered adapter names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.m))
	for n := range r.m {
		out = append(out, n)
	}
	r.mu.RUnlock()
	slices.Sort(out)
	return out
}

func normalize(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// NewFromConfig validates cfg, resolves the encoder and every adapter name, then
// builds the layers in order. If a factory fails, layers already built are closed.
//
// opts.Layers is ignored. opts.Codec, when set, wins over cfg.Encoder.
// cfg.Namespace wins over opts.Namespace when non-empty.
func NewFromConfig[V any](cfg Config, reg *Registry, opts Options[V]) (Cache[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if reg == nil {
		return nil, fmt.Errorf("%w: nil registry", ErrInvalidConfig)
	}
	if opts.Codec == nil {
		codec, err := c.ByName[V](cfg.Encoder)
		if err != nil {
			return nil, err
		}
		opts.Codec = codec
	}

	factories := make([]LayerFactory, len(cfg.Layers))
	var errs error
	for i, lc := range cfg.Layers {
		f, err := reg.Lookup(lc.Name)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("layers[%d]: %w", i, err))
			continue
		}
		factories[i] = f
	}
	if errs != nil {
		return nil, errs
	}

	layers := make([]layer.Layer, 0, len(factories))
	for i, f := range factories {
		l, err := f(cfg.Layers[i].Options)
		if err != nil {
			for _, built := range layers {
				_ = built.Close(context.Background())
			}
			return nil, fmt.Errorf("tiercache: layers[%d] (%s): %w", i, cfg.Layers[i].Name, err)
		}
		layers = append(layers, l)
	}

	opts.Layers = layers
	opts.Namespace = coalesce(cfg.Namespace, opts.Namespace)
	return New(opts)
}
