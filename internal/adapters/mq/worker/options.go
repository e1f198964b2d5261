package worker

import (
	"github.com/okian/fasal/pkg/logger"
)

// Option configures an InMemoryWorker.
type Option func(*InMemoryWorker)

// WithName sets the worker name used in logs.
func WithName(name string) Option {
	return func(w *InMemoryWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets the worker logger.
func WithLogger(l logger.Logger) Option {
	return func(w *InMemoryWorker) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithReporter sets the receiver of per-request outcomes.
func WithReporter(r Reporter) Option {
	return func(w *InMemoryWorker) {
		w.reporter = r
	}
}

// WithIDGenerator sets how record IDs are minted.
func WithIDGenerator(newID func() string) Option {
	return func(w *InMemoryWorker) {
		if newID != nil {
			w.newID = newID
		}
	}
}
