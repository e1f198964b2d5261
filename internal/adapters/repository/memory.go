package repository

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/okian/fasal/internal/domain/model"
	"github.com/okian/fasal/pkg/metrics"
)

// MemoryStore is a bounded HistoryStore held in process memory.
type MemoryStore struct {
	maxFarmers int
	perFarmer  int

	mu      sync.Mutex
	farmers *lru.Cache[string, []model.ScoreRecord]
	records int
	closed  bool
}

// NewMemoryStore builds an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		maxFarmers: DefaultMaxFarmers,
		perFarmer:  DefaultPerFarmer,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Eviction runs inside Add, which is only called with s.mu held.
	s.farmers, _ = lru.NewWithEvict(s.maxFarmers, func(_ string, recs []model.ScoreRecord) {
		s.records -= len(recs)
	})
	return s
}

// Append stores rec, dropping the farmer's oldest record when full.
func (s *MemoryStore) Append(_ context.Context, rec model.ScoreRecord) error {
	if err := validate(rec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	// Records are kept oldest first.
	recs, _ := s.farmers.Peek(rec.FarmerID)
	next := make([]model.ScoreRecord, 0, min(len(recs)+1, s.perFarmer))
	if drop := len(recs) + 1 - s.perFarmer; drop > 0 {
		recs = recs[drop:]
		s.records -= drop
	}
	next = append(next, recs...)
	next = append(next, rec)
	s.records++
	s.farmers.Add(rec.FarmerID, next)

	metrics.RecordHistoryWrite("memory")
	metrics.UpdateHistoryRecords(s.records)
	return nil
}

func (s *MemoryStore) Latest(_ context.Context, farmerID string) (model.ScoreRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return model.ScoreRecord{}, ErrClosed
	}

	recs, ok := s.farmers.Get(farmerID)
	if !ok || len(recs) == 0 {
		return model.ScoreRecord{}, ErrNotFound
	}
	return recs[len(recs)-1], nil
}

func (s *MemoryStore) History(_ context.Context, farmerID string, limit int) ([]model.ScoreRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	recs, _ := s.farmers.Get(farmerID)
	n := min(limit, len(recs))
	out := make([]model.ScoreRecord, 0, n)
	for i := len(recs) - 1; i >= len(recs)-n; i-- {
		out = append(out, recs[i])
	}
	return out, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}
	return s.farmers.Len(), nil
}

// Close drops every record.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.farmers.Purge()
	}
	return nil
}
