// Package config defines service configuration and its loading.
package config

import (
	"runtime"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ModelPath points at a tree-ensemble artifact. Empty means no model.
	ModelPath string `koanf:"model_path"`

	// UseModel enables the model scoring path when ModelPath is set.
	UseModel bool `koanf:"use_model"`

	// HistoryDB is the SQLite file for score history. Empty keeps history
	// in memory only.
	HistoryDB string `koanf:"history_db"`

	// HistoryPerFarmer and HistoryCacheSize bound the in-memory history.
	HistoryPerFarmer int `koanf:"history_per_farmer"`
	HistoryCacheSize int `koanf:"history_cache_size"`

	// QueueSize bounds the batch scoring queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of batch scoring workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many batch request IDs are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// JobRetention sets how many batch jobs stay queryable.
	JobRetention int `koanf:"job_retention"`

	// MaxHistoryLimit caps GET /score/{farmer_id}/history?limit.
	MaxHistoryLimit int `koanf:"max_history_limit"`

	// BatchMaxItems caps the items of one POST /score/batch.
	BatchMaxItems int `koanf:"batch_max_items"`

	// MinEligibleScore is the lowest score that qualifies for a loan.
	MinEligibleScore float64 `koanf:"min_eligible_score"`

	// BaseLoanLimit is the loan ceiling at a multiplier of 1.0.
	BaseLoanLimit int64 `koanf:"base_loan_limit"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:         "info",
		LogFormat:        "text",
		Addr:             ":9080",
		UseModel:         true,
		HistoryPerFarmer: 50,
		HistoryCacheSize: 10_000,
		QueueSize:        10_000,
		WorkerCount:      runtime.NumCPU(),
		DedupeSize:       50_000,
		JobRetention:     1_000,
		MaxHistoryLimit:  100,
		BatchMaxItems:    500,
		MinEligibleScore: 40,
		BaseLoanLimit:    250_000,
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return invalid("addr must not be empty")
	case c.LogFormat != "text" && c.LogFormat != "json":
		return invalid("log_format must be text or json")
	case c.QueueSize < 1:
		return invalid("queue_size must be positive")
	case c.WorkerCount < 1:
		return invalid("worker_count must be positive")
	case c.HistoryPerFarmer < 1 || c.HistoryCacheSize < 1:
		return invalid("history_per_farmer and history_cache_size must be positive")
	case c.MaxHistoryLimit < 1:
		return invalid("max_history_limit must be positive")
	case c.BatchMaxItems < 1:
		return invalid("batch_max_items must be positive")
	case c.MinEligibleScore < 0 || c.MinEligibleScore > 100:
		return invalid("min_eligible_score must be within [0, 100]")
	case c.BaseLoanLimit <= 0:
		return invalid("base_loan_limit must be positive")
	}
	return nil
}
