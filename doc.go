// Package tiercache implements a multi-tier cache-aside orchestrator: one logical
// key/value cache over an ordered stack of layers, from the fastest (layer 0,
// e.g. an in-process map) to the authoritative one (layer N-1, e.g. a SQL table).
//
// Components:
//   - Layer: namespaced byte store (array, local, bigcache, ristretto, redis, sqltable).
//   - Codec[V]: (de)serializes V <-> []byte. Applied exactly once per operation.
//   - Registry: adapter name -> factory, used to build a stack from Config.
//
// Reads cascade shallow to deep and stop at the first hit. A value found below
// layer 0 is promoted into every layer above it; a key missing everywhere is
// remembered as a miss marker in layers configured with cache_not_found_keys.
// Writes go deepest first: if the authoritative layer rejects a write, nothing
// shallower is touched. Deletes and flushes fan out to every layer.
//
//	c, _ := tiercache.New[User](tiercache.Options[User]{
//	    Namespace: "user",
//	    Layers:    []layer.Layer{array.New(array.Options{}), redisLayer},
//	})
//	_, _ = c.Set(ctx, "42", u)
//	u, ok, err := c.Get(ctx, "42")
package tiercache
