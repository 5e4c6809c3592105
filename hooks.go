package tiercache

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// A layer call failed. Reads treat it as a miss, writes as a rejection.
	// op ∈ {"get", "get_multi", "set", "set_multi", "promote", "promote_multi",
	// "negative_cache", "contains", "delete", "delete_multi", "flush"}
	LayerError(level int, op string, err error)

	// count values found deeper were written back into layer level.
	Promoted(level, count int)

	// A miss marker for key was written into layer level.
	NegativeCached(level int, key string)

	// A non-authoritative layer rejected a write-through; the cascade went on.
	WriteRejected(level, count int)

	// The authoritative layer rejected a write; shallower layers were not touched.
	WriteAborted(count int)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) LayerError(int, string, error) {}
func (NopHooks) Promoted(int, int)             {}
func (NopHooks) NegativeCached(int, string)    {}
func (NopHooks) WriteRejected(int, int)        {}
func (NopHooks) WriteAborted(int)              {}
