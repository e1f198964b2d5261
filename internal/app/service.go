// Package service wires the scoring engine, the loan calculator, the score
// history and the batch pipeline behind the operations the HTTP API needs.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/fasal/internal/adapters/mq/queue"
	"github.com/okian/fasal/internal/adapters/mq/worker"
	"github.com/okian/fasal/internal/adapters/repository"
	"github.com/okian/fasal/internal/domain/dedupe"
	"github.com/okian/fasal/internal/domain/features"
	"github.com/okian/fasal/internal/domain/loan"
	"github.com/okian/fasal/internal/domain/model"
	"github.com/okian/fasal/internal/domain/scoring"
	"github.com/okian/fasal/internal/domain/types"
	"github.com/okian/fasal/pkg/logger"
	"github.com/okian/fasal/pkg/metrics"
)

// Defaults for service limits.
const (
	DefaultMaxHistoryLimit = 100
	DefaultBatchMaxItems   = 500
)

// Service implements the API dependencies.
type Service struct {
	mu sync.RWMutex

	engine     *scoring.Engine
	calculator *loan.Calculator
	history    repository.HistoryStore
	deduper    dedupe.Deduper
	jobs       *jobTracker
	queue      *queue.InMemoryQueue
	pool       *worker.Pool

	workerCount     int
	queueSize       int
	dedupeSize      int
	jobRetention    int
	maxHistoryLimit int
	batchMaxItems   int
	now             func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithEngine sets the scoring engine.
func WithEngine(e *scoring.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithCalculator sets the loan calculator.
func WithCalculator(c *loan.Calculator) Option {
	return func(s *Service) {
		if c != nil {
			s.calculator = c
		}
	}
}

// WithHistory sets the score history store. The service closes it on Stop.
func WithHistory(h repository.HistoryStore) Option {
	return func(s *Service) {
		if h != nil {
			s.history = h
		}
	}
}

// WithWorkerCount sets the number of batch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the batch queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many batch request IDs are remembered.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithJobRetention sets how many batch jobs stay queryable.
func WithJobRetention(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.jobRetention = n
		}
	}
}

// WithMaxHistoryLimit caps the limit accepted by History.
func WithMaxHistoryLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxHistoryLimit = n
		}
	}
}

// WithBatchMaxItems caps the number of items in one batch.
func WithBatchMaxItems(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.batchMaxItems = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source for job timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service. Synchronous operations work immediately;
// batch scoring needs Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount:     runtime.NumCPU(),
		queueSize:       10000,
		dedupeSize:      dedupe.DefaultMaxSize,
		jobRetention:    defaultJobRetention,
		maxHistoryLimit: DefaultMaxHistoryLimit,
		batchMaxItems:   DefaultBatchMaxItems,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.engine == nil {
		s.engine = scoring.NewEngine(scoring.WithLogger(s.logger.Named("engine")))
	}
	if s.calculator == nil {
		s.calculator = loan.NewCalculator()
	}
	if s.history == nil {
		s.history = repository.NewMemoryStore()
	}
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.jobs = newJobTracker(s.jobRetention, s.now)
	return s
}

// Start launches the batch queue and worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting scoring service...")
	s.queue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.pool = worker.NewPool(s.workerCount, s.queue, s.engine, s.history,
		worker.WithReporter(s.jobs),
		worker.WithLogger(s.logger),
	)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Bool("model_loaded", s.engine.ModelLoaded()),
	)
	return nil
}

// Stop drains the batch queue and closes the history store.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logger.Info(ctx, "stopping scoring service...")
	var errs []error
	if s.started {
		if err := s.pool.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
		s.started = false
	}
	if err := s.history.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close history: %w", err))
	}
	s.logger.Info(ctx, "scoring service stopped")
	return errors.Join(errs...)
}

// Score computes, stores and returns a score for farmerID.
func (s *Service) Score(ctx context.Context, farmerID string, raw features.Raw) (model.ScoreRecord, error) {
	farmerID = strings.TrimSpace(farmerID)
	if farmerID == "" {
		return model.ScoreRecord{}, types.NewInputError("farmer_id", "required")
	}
	ctx = logger.WithFields(ctx, logger.String("farmer_id", farmerID))
	res, err := s.engine.Score(ctx, raw)
	if err != nil {
		return model.ScoreRecord{}, err
	}

	rec := model.NewScoreRecord(uuid.NewString(), farmerID, res)
	if err := s.history.Append(ctx, rec); err != nil {
		metrics.RecordErrorByComponent("history", "append")
		return model.ScoreRecord{}, fmt.Errorf("store score for %s: %w", farmerID, err)
	}
	return rec, nil
}

// History returns up to limit records for farmerID, newest first.
func (s *Service) History(ctx context.Context, farmerID string, limit int) ([]model.ScoreRecord, error) {
	if limit < 1 || limit > s.maxHistoryLimit {
		return nil, types.NewInputError("limit", fmt.Sprintf("must be between 1 and %d", s.maxHistoryLimit))
	}
	return s.history.History(ctx, farmerID, limit)
}

// MaxHistoryLimit returns the largest accepted history limit.
func (s *Service) MaxHistoryLimit() int { return s.maxHistoryLimit }

// SubmitBatch queues items for asynchronous scoring. Items whose request ID
// was already submitted are reported as duplicates. It fails with
// ErrQueueFull only when no item could be queued.
func (s *Service) SubmitBatch(ctx context.Context, items []model.BatchItem) (model.Job, error) {
	if len(items) == 0 || len(items) > s.batchMaxItems {
		return model.Job{}, types.NewInputError("items", fmt.Sprintf("must hold between 1 and %d entries", s.batchMaxItems))
	}
	jobItems := make([]model.JobItem, len(items))
	for i, it := range items {
		farmerID := strings.TrimSpace(it.FarmerID)
		if farmerID == "" {
			return model.Job{}, types.NewInputError(fmt.Sprintf("items[%d].farmer_id", i), "required")
		}
		reqID := strings.TrimSpace(it.RequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		jobItems[i] = model.JobItem{RequestID: reqID, FarmerID: farmerID}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return model.Job{}, ErrNotStarted
	}

	jobID := uuid.NewString()
	s.jobs.create(jobID, jobItems)

	var attempted, rejected int
	for i, it := range jobItems {
		if s.deduper.SeenAndRecord(ctx, it.RequestID) {
			metrics.RecordDuplicateRequest()
			s.jobs.settle(jobID, i, model.ItemDuplicate)
			continue
		}
		attempted++
		req := model.ScoreRequest{
			RequestID:  it.RequestID,
			JobID:      jobID,
			Item:       i,
			FarmerID:   it.FarmerID,
			Attributes: items[i].Features,
			TS:         s.now(),
		}
		if !s.queue.Enqueue(ctx, req) {
			s.deduper.Unrecord(ctx, it.RequestID)
			s.jobs.settle(jobID, i, model.ItemRejected)
			rejected++
		}
	}

	if attempted > 0 && rejected == attempted {
		s.jobs.remove(jobID)
		return model.Job{}, ErrQueueFull
	}
	s.logger.Debug(ctx, "batch accepted",
		logger.String("job_id", jobID),
		logger.Int("items", len(items)),
		logger.Int("rejected", rejected),
	)
	job, _ := s.jobs.get(jobID)
	return job, nil
}

// JobStatus returns the current state of a batch job.
func (s *Service) JobStatus(_ context.Context, jobID string) (model.Job, error) {
	job, ok := s.jobs.get(jobID)
	if !ok {
		return model.Job{}, ErrJobNotFound
	}
	return job, nil
}

// Quote prices a loan. A missing score or crop is taken from the farmer's
// latest record.
func (s *Service) Quote(ctx context.Context, req model.QuoteRequest) (loan.Quote, error) {
	q, err := s.quote(ctx, req)
	if err != nil {
		metrics.RecordQuoteRejected()
		return loan.Quote{}, err
	}
	metrics.RecordQuote(q.Eligible)
	return q, nil
}

func (s *Service) quote(ctx context.Context, req model.QuoteRequest) (loan.Quote, error) {
	crop := req.CropType
	if req.Score == nil || crop == "" {
		latest, err := s.latest(ctx, req.FarmerID)
		switch {
		case err == nil:
			if req.Score == nil {
				score := latest.Score
				req.Score = &score
			}
			if crop == "" {
				crop = latest.CropType
			}
		case req.Score == nil:
			return loan.Quote{}, err
		}
	}
	return s.calculator.Quote(*req.Score, req.RequestedAmount, crop)
}

func (s *Service) latest(ctx context.Context, farmerID string) (model.ScoreRecord, error) {
	farmerID = strings.TrimSpace(farmerID)
	if farmerID == "" {
		return model.ScoreRecord{}, types.NewInputError("score", "compute score first")
	}
	rec, err := s.history.Latest(ctx, farmerID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.ScoreRecord{}, types.NewInputError("score", "no score history for farmer; compute score first")
	}
	return rec, err
}

// ModelLoaded reports whether the model scoring path is configured.
func (s *Service) ModelLoaded() bool { return s.engine.ModelLoaded() }

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":      s.started,
		"worker_count": s.workerCount,
		"queue_size":   s.queueSize,
		"dedupe_size":  s.dedupeSize,
		"dedupe_seen":  s.deduper.Size(),
		"jobs":         s.jobs.count(),
		"model_loaded": s.engine.ModelLoaded(),
	}
	if farmers, err := s.history.Count(ctx); err == nil {
		stats["farmers"] = farmers
	}
	if s.started {
		stats["queue_length"] = s.queue.Len(ctx)
	}
	return stats
}
