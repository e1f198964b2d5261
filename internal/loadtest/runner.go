package loadtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fasal/internal/domain/model"
	"github.com/okian/fasal/internal/domain/types"
	"github.com/okian/fasal/pkg/logger"
)

const percentageMultiplier = 100

// Run executes a complete load test against cfg.BaseURL. Stats are returned
// even when the run fails part way.
func Run(ctx context.Context, cfg Config) (*Stats, error) {
	cfg = cfg.withDefaults()
	log := cfg.Logger
	stats := &Stats{
		StartTime: time.Now(),
		Bands:     make(map[types.Band]int),
	}

	log.Info(ctx, "starting load test",
		logger.String("base_url", cfg.BaseURL),
		logger.Int("farmers", cfg.Farmers),
		logger.Int("batch_size", cfg.BatchSize),
		logger.Int("workers", cfg.Workers))

	c := newClient(cfg.BaseURL, cfg.Timeout)

	// Step 1: Check service health
	if err := c.health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate farmers
	items := newGenerator(cfg.Seed).farmers(cfg.Farmers)
	stats.FarmersGenerated = len(items)

	// Step 3: Submit batches concurrently
	jobIDs, err := submitBatches(ctx, c, cfg, items, stats)
	if err != nil {
		return stats, fmt.Errorf("batch submission failed: %w", err)
	}

	// Step 4: Wait for the jobs to settle
	jobs, err := waitForJobs(ctx, c, cfg, jobIDs)
	if err != nil {
		return stats, fmt.Errorf("waiting for jobs failed: %w", err)
	}
	tally(jobs, stats)

	// Step 5: Check stored history against job results
	if err := verify(ctx, c, cfg, jobs, stats); err != nil {
		return stats, err
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	logFinalStats(ctx, log, stats)

	if stats.Mismatches > 0 {
		return stats, fmt.Errorf("%w: %d of %d histories disagree", ErrVerification, stats.Mismatches, stats.HistoriesChecked)
	}
	return stats, nil
}

// submitBatches posts items in chunks of cfg.BatchSize and returns the IDs of
// accepted jobs. Batches refused for backpressure are counted, not fatal.
func submitBatches(ctx context.Context, c *client, cfg Config, items []model.BatchItem, stats *Stats) ([]string, error) {
	var (
		mu       sync.Mutex
		jobIDs   []string
		rejected int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for start := 0; start < len(items); start += cfg.BatchSize {
		batch := items[start:min(start+cfg.BatchSize, len(items))]
		g.Go(func() error {
			job, err := c.submitBatch(gctx, batch)
			if errors.Is(err, errBackpressure) {
				mu.Lock()
				rejected++
				mu.Unlock()
				cfg.Logger.Warn(gctx, "batch rejected for backpressure", logger.Int("items", len(batch)))
				return nil
			}
			if err != nil {
				return err
			}
			mu.Lock()
			jobIDs = append(jobIDs, job.ID)
			mu.Unlock()
			if cfg.Verbose {
				cfg.Logger.Info(gctx, "batch submitted", logger.String("job_id", job.ID), logger.Int("items", job.Total))
			}
			return nil
		})
	}
	err := g.Wait()

	stats.BatchesSubmitted = len(jobIDs)
	stats.BatchesRejected = rejected
	return jobIDs, err
}

// waitForJobs polls every job until it completes or cfg.WaitTimeout elapses.
// Jobs still pending at the deadline are returned as last seen.
func waitForJobs(ctx context.Context, c *client, cfg Config, jobIDs []string) ([]model.Job, error) {
	wctx, cancel := context.WithTimeout(ctx, cfg.WaitTimeout)
	defer cancel()

	jobs := make([]model.Job, len(jobIDs))
	g, gctx := errgroup.WithContext(wctx)
	g.SetLimit(cfg.Workers)
	for i, id := range jobIDs {
		g.Go(func() error {
			job, err := pollJob(gctx, c, cfg.PollInterval, id)
			jobs[i] = job
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				cfg.Logger.Warn(ctx, "job did not complete in time", logger.String("job_id", id))
				return nil
			}
			return err
		})
	}
	return jobs, g.Wait()
}

func pollJob(ctx context.Context, c *client, interval time.Duration, id string) (model.Job, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last model.Job
	for {
		job, err := c.job(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return last, ctx.Err()
			}
			return last, err
		}
		last = job
		if job.State == model.JobCompleted {
			return job, nil
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}
}

func tally(jobs []model.Job, stats *Stats) {
	for _, job := range jobs {
		if job.State != model.JobCompleted {
			stats.JobsIncomplete++
		}
		for _, item := range job.Items {
			switch item.State {
			case model.ItemScored:
				stats.ItemsScored++
				if item.Score != nil {
					stats.Bands[types.BandOf(*item.Score)]++
				}
			case model.ItemFailed:
				stats.ItemsFailed++
			case model.ItemDuplicate:
				stats.ItemsDuplicate++
			case model.ItemRejected:
				stats.ItemsRejected++
			}
		}
	}
}

// logFinalStats logs the final load test statistics.
func logFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, farmersPerSecond float64

	if stats.FarmersGenerated > 0 {
		successRate = float64(stats.ItemsScored) / float64(stats.FarmersGenerated) * percentageMultiplier
	}
	if stats.Duration > 0 {
		farmersPerSecond = float64(stats.ItemsScored) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("farmers_generated", stats.FarmersGenerated),
		logger.Int("batches_submitted", stats.BatchesSubmitted),
		logger.Int("batches_rejected", stats.BatchesRejected),
		logger.Int("items_scored", stats.ItemsScored),
		logger.Int("items_failed", stats.ItemsFailed),
		logger.Int("items_duplicate", stats.ItemsDuplicate),
		logger.Int("items_rejected", stats.ItemsRejected),
		logger.Int("jobs_incomplete", stats.JobsIncomplete),
		logger.Int("histories_checked", stats.HistoriesChecked),
		logger.Int("mismatches", stats.Mismatches),
		logger.Duration("duration", stats.Duration),
		logger.Float64("success_rate", successRate),
		logger.Float64("farmers_per_second", farmersPerSecond))
}
