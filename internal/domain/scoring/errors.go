package scoring

import (
	"errors"
)

// Sentinel kinds for scoring errors.
var (
	// ErrModelUnavailable covers every model-path failure: missing or corrupt
	// artifact, prediction failure and attribution failure. The engine absorbs
	// it by falling back to the deterministic path.
	ErrModelUnavailable = errors.New("model unavailable")
	ErrInvalidWeights   = errors.New("invalid weight table")
)
