package layer

import (
	"sync/atomic"

	"github.com/unkn0wn-root/tiercache/internal/keys"
)

// Scope carries a layer's namespace and negative-caching flag.
// Embed it in adapters; the zero value is the empty namespace.
type Scope struct {
	ns       atomic.Pointer[string]
	notFound bool
}

// SetCacheNotFoundKeys sets the negative-caching flag. Call it before the layer is shared.
func (s *Scope) SetCacheNotFoundKeys(v bool) { s.notFound = v }

func (s *Scope) Namespace() string {
	if p := s.ns.Load(); p != nil {
		return *p
	}
	return ""
}

func (s *Scope) SetNamespace(ns string) { s.ns.Store(&ns) }

func (s *Scope) CacheNotFoundKeys() bool { return s.notFound }

// Key returns the storage key for k.
func (s *Scope) Key(k string) string { return keys.Join(s.Namespace(), k) }

// Keys maps storage key -> caller key for ks.
func (s *Scope) Keys(ks []string) map[string]string {
	ns := s.Namespace()
	out := make(map[string]string, len(ks))
	for _, k := range ks {
		out[keys.Join(ns, k)] = k
	}
	return out
}

// Prefix returns the storage-key prefix owned by the current namespace.
func (s *Scope) Prefix() string { return keys.Prefix(s.Namespace()) }

// Strip removes the namespace prefix from a storage key.
func (s *Scope) Strip(storageKey string) (string, bool) {
	return keys.Strip(s.Namespace(), storageKey)
}
