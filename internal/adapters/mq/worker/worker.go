// Package worker scores queued batch requests and records the results.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fasal/internal/domain/features"
	"github.com/okian/fasal/internal/domain/model"
	"github.com/okian/fasal/internal/domain/scoring"
	"github.com/okian/fasal/pkg/logger"
	"github.com/okian/fasal/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Scorer computes an explained score from raw attributes.
type Scorer interface {
	Score(ctx context.Context, raw features.Raw) (scoring.Result, error)
}

// Recorder stores a finished score.
type Recorder interface {
	Append(ctx context.Context, rec model.ScoreRecord) error
}

// Reporter is told the outcome of every request. rec is zero when err is set.
type Reporter interface {
	Report(ctx context.Context, req model.ScoreRequest, rec model.ScoreRecord, err error)
}

// Queue is where workers receive requests from.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.ScoreRequest
}

// Worker processes requests until stopped.
type Worker interface {
	// Run processes requests until ctx is done, the queue is drained and
	// closed, or Shutdown is called.
	Run(ctx context.Context)

	Shutdown(ctx context.Context) error
}

// InMemoryWorker scores requests from a Queue.
type InMemoryWorker struct {
	queue    Queue
	scorer   Scorer
	recorder Recorder
	reporter Reporter
	newID    func() string
	name     string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(queue Queue, scorer Scorer, recorder Recorder, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		scorer:   scorer,
		recorder: recorder,
		newID:    uuid.NewString,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case req, ok := <-requests:
			if !ok {
				return
			}
			if err := w.process(ctx, req); err != nil {
				w.logger.Error(ctx, "error processing score request",
					logger.String("request_id", req.RequestID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker after the request in flight, if any.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.stop()
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) stop() {
	w.shutdownOnce.Do(func() { close(w.shutdown) })
}

func (w *InMemoryWorker) process(ctx context.Context, req model.ScoreRequest) error { //nolint:gocritic // hugeParam: requests travel by value
	ctx = logger.WithFields(ctx,
		logger.String("job_id", req.JobID),
		logger.String("request_id", req.RequestID),
		logger.String("farmer_id", req.FarmerID),
	)
	res, err := w.scorer.Score(ctx, req.Attributes)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scoring_error")
		w.report(ctx, req, model.ScoreRecord{}, err)
		return fmt.Errorf("score request %s: %w", req.RequestID, err)
	}

	rec := model.NewScoreRecord(w.newID(), req.FarmerID, res)
	if err := w.recorder.Append(ctx, rec); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "history_error")
		w.report(ctx, req, model.ScoreRecord{}, err)
		return fmt.Errorf("record score for request %s: %w", req.RequestID, err)
	}

	metrics.RecordWorkerProcessed()
	w.report(ctx, req, rec, nil)
	return nil
}

func (w *InMemoryWorker) report(ctx context.Context, req model.ScoreRequest, rec model.ScoreRecord, err error) { //nolint:gocritic // hugeParam
	if w.reporter != nil {
		w.reporter.Report(ctx, req, rec, err)
	}
}

// Pool runs a fixed set of workers on one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates workerCount workers sharing opts. A count below one uses
// one worker per CPU.
func NewPool(workerCount int, queue Queue, scorer Scorer, recorder Recorder, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	p := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
	}
	for i := range p.workers {
		wopts := append(append([]Option(nil), opts...), WithName("worker-"+strconv.Itoa(i)))
		p.workers[i] = NewInMemoryWorker(queue, scorer, recorder, wopts...)
	}

	probe := &InMemoryWorker{logger: logger.Discard()}
	for _, opt := range opts {
		opt(probe)
	}
	p.logger = probe.logger.Named("worker-pool")

	metrics.UpdateWorkerCount(workerCount)
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start launches every worker.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Shutdown closes the queue and lets the workers drain it. Workers still
// busy when ctx or the pool timeout expires are stopped.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var timedOut bool
	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-drainCtx.Done():
			timedOut = true
			p.logger.Warn(ctx, "worker drain timed out", logger.Int("worker_id", i))
			w.stop()
		}
	}
	metrics.UpdateWorkerCount(0)
	if timedOut {
		return fmt.Errorf("worker pool drain: %w", drainCtx.Err())
	}
	return nil
}
