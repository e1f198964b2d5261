package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Default histogram buckets.
var (
	// DefaultHTTPBuckets covers request latencies in milliseconds.
	DefaultHTTPBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000}
	// DefaultScoreBuckets splits the 0-100 score range into tenths.
	DefaultScoreBuckets = prometheus.LinearBuckets(10, 10, 10)
	// DefaultScoringBuckets covers per-farmer scoring latencies in milliseconds.
	DefaultScoringBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50}
)

// Option configures a Manager.
type Option func(*Manager)

// WithNamespace sets the namespace for all metrics.
func WithNamespace(namespace string) Option {
	return func(m *Manager) {
		if namespace != "" {
			m.namespace = namespace
		}
	}
}

// WithSubsystem sets the subsystem for all metrics.
func WithSubsystem(subsystem string) Option {
	return func(m *Manager) {
		if subsystem != "" {
			m.subsystem = subsystem
		}
	}
}

// WithHTTPBuckets sets the HTTP latency buckets.
func WithHTTPBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.httpBuckets = buckets
		}
	}
}

// WithScoreBuckets sets the buckets of the score value histogram.
func WithScoreBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.scoreBuckets = buckets
		}
	}
}

// WithScoringBuckets sets the scoring latency buckets.
func WithScoringBuckets(buckets []float64) Option {
	return func(m *Manager) {
		if len(buckets) > 0 {
			m.scoringBuckets = buckets
		}
	}
}

// WithRegistry registers collectors on registry instead of the default one.
func WithRegistry(registry prometheus.Registerer) Option {
	return func(m *Manager) {
		if registry != nil {
			m.registry = registry
		}
	}
}
