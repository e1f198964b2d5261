package service

import (
	"fmt"

	"github.com/okian/fasal/internal/domain/types"
)

// Sentinel kinds for service errors.
var (
	ErrNotStarted  = fmt.Errorf("service not started: %w", types.ErrUnavailable)
	ErrQueueFull   = fmt.Errorf("batch queue is full: %w", types.ErrBackpressure)
	ErrJobNotFound = fmt.Errorf("batch job %w", types.ErrNotFound)
)
