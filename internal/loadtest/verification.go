package loadtest

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fasal/internal/domain/model"
	"github.com/okian/fasal/internal/domain/scoring"
	"github.com/okian/fasal/internal/domain/types"
	"github.com/okian/fasal/pkg/logger"
)

// verify fetches the latest record of up to cfg.VerifySample scored farmers
// and compares it with the job item that produced it.
func verify(ctx context.Context, c *client, cfg Config, jobs []model.Job, stats *Stats) error {
	sample := scoredItems(jobs, cfg.VerifySample)
	if len(sample) == 0 {
		return nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for _, item := range sample {
		g.Go(func() error {
			history, err := c.history(gctx, item.FarmerID, 1)
			if err != nil {
				return fmt.Errorf("history for %s: %w", item.FarmerID, err)
			}
			problem := checkRecord(item, history)

			mu.Lock()
			defer mu.Unlock()
			stats.HistoriesChecked++
			if problem != "" {
				stats.Mismatches++
				cfg.Logger.Warn(gctx, "history mismatch",
					logger.String("farmer_id", item.FarmerID),
					logger.String("problem", problem))
			}
			return nil
		})
	}
	return g.Wait()
}

// scoredItems returns up to n scored items in job order.
func scoredItems(jobs []model.Job, n int) []model.JobItem {
	var out []model.JobItem
	for _, job := range jobs {
		for _, item := range job.Items {
			if len(out) == n {
				return out
			}
			if item.State == model.ItemScored {
				out = append(out, item)
			}
		}
	}
	return out
}

// checkRecord describes how history disagrees with item, or returns "".
func checkRecord(item model.JobItem, history []model.ScoreRecord) string {
	if len(history) == 0 {
		return "no history stored"
	}
	rec := history[0]
	switch {
	case rec.ID != item.RecordID:
		return fmt.Sprintf("latest record %s, job reported %s", rec.ID, item.RecordID)
	case item.Score == nil || rec.Score != *item.Score:
		return fmt.Sprintf("stored score %.1f differs from job score", rec.Score)
	case rec.Score < 0 || rec.Score > 100:
		return fmt.Sprintf("score %.1f out of range", rec.Score)
	case rec.Band != types.BandOf(rec.Score):
		return fmt.Sprintf("band %s does not match score %.1f", rec.Band, rec.Score)
	case len(rec.Drivers) > scoring.TopDrivers:
		return fmt.Sprintf("%d drivers reported", len(rec.Drivers))
	}
	return ""
}
