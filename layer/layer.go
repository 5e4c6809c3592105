// Package layer defines the storage contract used by tiercache.
//
// A Layer is one tier of the stack: an in-process map, a local accelerator cache,
// a distributed store or a durable table. Layers are byte-for-byte transparent:
// Get must return exactly the bytes previously passed to Set for a key. The
// orchestrator owns encoding; layers never see application values.
//
// Every layer scopes its keys by namespace ("<ns>:<key>") itself, so backends can
// apply their own key-safety rules. Callers always pass un-prefixed keys and
// GetMulti returns un-prefixed keys.
package layer

import (
	"context"
	"errors"
)

var (
	// ErrKeyNotFound may be returned (wrapped or not) by Get instead of ok=false.
	ErrKeyNotFound = errors.New("tiercache: key not found")
	// ErrInvalidConfig marks construction-time configuration errors.
	ErrInvalidConfig = errors.New("tiercache: invalid configuration")
)

// Layer is a namespaced key/value store. Must be safe for concurrent use.
type Layer interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// An empty non-nil value is a hit. Transport errors return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// GetMulti returns only the keys that were found.
	GetMulti(ctx context.Context, keys []string) (map[string][]byte, error)

	// Set stores value. ok=false means the backend rejected the write.
	Set(ctx context.Context, key string, value []byte) (ok bool, err error)

	// SetMulti stores all items. ok=false if any item was rejected.
	SetMulti(ctx context.Context, items map[string][]byte) (ok bool, err error)

	Contains(ctx context.Context, key string) (bool, error)

	// Delete and DeleteMulti are idempotent: deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
	DeleteMulti(ctx context.Context, keys []string) error

	// Flush removes every key in the layer's namespace.
	Flush(ctx context.Context) error

	Namespace() string
	SetNamespace(ns string)

	// CacheNotFoundKeys reports whether misses should be negatively cached here.
	CacheNotFoundKeys() bool

	// Close releases resources.
	Close(ctx context.Context) error
}

// IsNotFound reports whether err carries the ErrKeyNotFound signal.
func IsNotFound(err error) bool { return errors.Is(err, ErrKeyNotFound) }
