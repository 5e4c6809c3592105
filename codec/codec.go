// Package codec converts application values to the wire bytes stored by every layer.
package codec

import (
	"fmt"
	"strings"

	"github.com/unkn0wn-root/tiercache/layer"
)

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Default is the encoder name used when none is configured.
const Default = "json"

// ByName resolves an encoder name from configuration.
//
//	json          structured text (default)
//	cbor          RFC 8949 binary, deterministic
//	msgpack       compact binary
//	msgpack-json  msgpack that falls back to `json` struct tags
//	none, raw     identity; only for V = string or V = []byte
//
// Errors wrap layer.ErrInvalidConfig.
func ByName[V any](name string) (Codec[V], error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON[V]{}, nil
	case "cbor":
		c, err := NewCBOR[V](true)
		if err != nil {
			return nil, fmt.Errorf("%w: encoder cbor: %v", layer.ErrInvalidConfig, err)
		}
		return c, nil
	case "msgpack", "serial", "serialize":
		return Msgpack[V]{}, nil
	case "msgpack-json":
		return Msgpack[V]{JSONTags: true}, nil
	case "none", "raw":
		var v V
		switch any(v).(type) {
		case string:
			return any(String{}).(Codec[V]), nil
		case []byte:
			return any(Bytes{}).(Codec[V]), nil
		}
		return nil, fmt.Errorf("%w: encoder %q needs a string or []byte value type, got %T",
			layer.ErrInvalidConfig, name, v)
	}
	return nil, fmt.Errorf("%w: unknown encoder %q", layer.ErrInvalidConfig, name)
}
