// Package loadtest drives a running scoring service with synthetic farmers:
// it submits them as batch jobs, waits for the jobs to settle and checks the
// stored history against what the jobs reported.
package loadtest

import (
	"errors"
	"runtime"
	"time"

	"github.com/okian/fasal/internal/domain/types"
	"github.com/okian/fasal/pkg/logger"
)

// Defaults applied to zero Config fields.
const (
	DefaultBaseURL      = "http://localhost:9080"
	DefaultFarmers      = 1000
	DefaultBatchSize    = 100
	DefaultTimeout      = 30 * time.Second
	DefaultWaitTimeout  = 2 * time.Minute
	DefaultPollInterval = 200 * time.Millisecond
	DefaultVerifySample = 50
)

// ErrVerification is returned when stored history disagrees with job results.
var ErrVerification = errors.New("verification failed")

// Config holds configuration for a load test run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Farmers      int           // Number of farmers to generate
	BatchSize    int           // Items per batch job
	Workers      int           // Concurrent HTTP workers
	Timeout      time.Duration // Per-request timeout
	WaitTimeout  time.Duration // How long to wait for jobs to complete
	PollInterval time.Duration // Delay between job status polls
	VerifySample int           // Farmers whose history is checked
	Seed         uint64        // Seed for attribute generation
	Verbose      bool          // Log every batch
	Logger       logger.Logger // Progress logger; discards when nil
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Farmers <= 0 {
		c.Farmers = DefaultFarmers
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.WaitTimeout <= 0 {
		c.WaitTimeout = DefaultWaitTimeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.VerifySample < 0 {
		c.VerifySample = 0
	}
	if c.Logger == nil {
		c.Logger = logger.Discard()
	}
	return c
}

// Stats holds load test statistics.
type Stats struct {
	FarmersGenerated int                `json:"farmers_generated" yaml:"farmers_generated"`
	BatchesSubmitted int                `json:"batches_submitted" yaml:"batches_submitted"`
	BatchesRejected  int                `json:"batches_rejected" yaml:"batches_rejected"`
	ItemsScored      int                `json:"items_scored" yaml:"items_scored"`
	ItemsFailed      int                `json:"items_failed" yaml:"items_failed"`
	ItemsDuplicate   int                `json:"items_duplicate" yaml:"items_duplicate"`
	ItemsRejected    int                `json:"items_rejected" yaml:"items_rejected"`
	JobsIncomplete   int                `json:"jobs_incomplete" yaml:"jobs_incomplete"`
	HistoriesChecked int                `json:"histories_checked" yaml:"histories_checked"`
	Mismatches       int                `json:"mismatches" yaml:"mismatches"`
	Bands            map[types.Band]int `json:"bands" yaml:"bands"`
	StartTime        time.Time          `json:"start_time" yaml:"start_time"`
	EndTime          time.Time          `json:"end_time" yaml:"end_time"`
	Duration         time.Duration      `json:"duration" yaml:"duration"`
}
