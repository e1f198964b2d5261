package service

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/fasal/internal/domain/model"
)

const defaultJobRetention = 1000

// jobTracker follows batch jobs until they drop out of the retention window.
// It receives worker outcomes through Report.
type jobTracker struct {
	mu   sync.Mutex
	jobs *lru.Cache[string, *model.Job]
	now  func() time.Time
}

func newJobTracker(retention int, now func() time.Time) *jobTracker {
	if retention < 1 {
		retention = defaultJobRetention
	}
	jobs, _ := lru.New[string, *model.Job](retention)
	return &jobTracker{jobs: jobs, now: now}
}

// create registers a job whose items all start queued.
func (t *jobTracker) create(id string, items []model.JobItem) {
	for i := range items {
		items[i].State = model.ItemQueued
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs.Add(id, &model.Job{
		ID:        id,
		State:     model.JobPending,
		Total:     len(items),
		Pending:   len(items),
		Items:     items,
		CreatedAt: t.now(),
	})
}

func (t *jobTracker) remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.jobs.Remove(id)
}

// settle records an item that never reached a worker.
func (t *jobTracker) settle(id string, pos int, state model.ItemState) {
	t.update(id, pos, func(job *model.Job, item *model.JobItem) {
		item.State = state
		switch state {
		case model.ItemDuplicate:
			job.Duplicates++
		case model.ItemRejected:
			job.Rejected++
		}
	})
}

// Report implements worker.Reporter.
func (t *jobTracker) Report(_ context.Context, req model.ScoreRequest, rec model.ScoreRecord, err error) { //nolint:gocritic // hugeParam
	t.update(req.JobID, req.Item, func(job *model.Job, item *model.JobItem) {
		if err != nil {
			item.State = model.ItemFailed
			item.Error = err.Error()
			job.Failed++
			return
		}
		score := rec.Score
		item.State = model.ItemScored
		item.RecordID = rec.ID
		item.Score = &score
		job.Completed++
	})
}

// update applies fn to a queued item and completes the job once nothing is
// pending. Unknown jobs and already settled items are ignored.
func (t *jobTracker) update(id string, pos int, fn func(*model.Job, *model.JobItem)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs.Peek(id)
	if !ok || pos < 0 || pos >= len(job.Items) || job.Items[pos].State != model.ItemQueued {
		return
	}
	fn(job, &job.Items[pos])
	job.Pending--
	if job.Pending == 0 {
		finished := t.now()
		job.State = model.JobCompleted
		job.FinishedAt = &finished
	}
}

// get returns a copy of job id.
func (t *jobTracker) get(id string) (model.Job, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	job, ok := t.jobs.Get(id)
	if !ok {
		return model.Job{}, false
	}
	out := *job
	out.Items = make([]model.JobItem, len(job.Items))
	for i, item := range job.Items {
		if item.Score != nil {
			score := *item.Score
			item.Score = &score
		}
		out.Items[i] = item
	}
	return out, true
}

func (t *jobTracker) count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.jobs.Len()
}
