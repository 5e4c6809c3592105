package codec

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack stores values in MessagePack via vmihailenco/msgpack/v5.
// The zero value is ready to use and reads only `msgpack` tags.
type Msgpack[V any] struct {
	// JSONTags falls back to `json` tags for fields without a `msgpack` tag,
	// so a type tagged for JSON keeps its field names when the stack switches
	// encoders. Both sides of a layer must agree on this setting.
	JSONTags bool
}

func (m Msgpack[V]) Encode(v V) ([]byte, error) {
	if !m.JSONTags {
		return msgpack.Marshal(v)
	}
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (m Msgpack[V]) Decode(b []byte) (V, error) {
	var v V
	if !m.JSONTags {
		err := msgpack.Unmarshal(b, &v)
		return v, err
	}
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.SetCustomStructTag("json")
	err := dec.Decode(&v)
	return v, err
}
