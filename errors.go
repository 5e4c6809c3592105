package tiercache

import (
	"fmt"

	"github.com/unkn0wn-root/tiercache/layer"
)

var (
	// ErrInvalidConfig marks construction-time configuration errors
	// (missing options, unknown adapter or encoder names).
	ErrInvalidConfig = layer.ErrInvalidConfig
	// ErrKeyNotFound is the optional miss signal a layer may return from Get.
	ErrKeyNotFound = layer.ErrKeyNotFound
)

// LayerError is a failed call on one layer of the stack.
type LayerError struct {
	Level int
	Op    string
	Err   error
}

func (e *LayerError) Error() string {
	return fmt.Sprintf("tiercache: layer %d: %s: %v", e.Level, e.Op, e.Err)
}

func (e *LayerError) Unwrap() error { return e.Err }
