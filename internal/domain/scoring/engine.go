package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/fasal/internal/domain/features"
	"github.com/okian/fasal/internal/domain/types"
	"github.com/okian/fasal/pkg/logger"
	"github.com/okian/fasal/pkg/metrics"
)

// Option configures an Engine.
type Option func(*Engine)

// WithModel sets the preferred scoring path. A nil predictor leaves the
// engine on the deterministic path.
func WithModel(p Predictor) Option {
	return func(e *Engine) {
		e.model = p
	}
}

// WithFallback replaces the deterministic scorer.
func WithFallback(p Predictor) Option {
	return func(e *Engine) {
		if p != nil {
			e.fallback = p
		}
	}
}

// WithTemplates overlays explanation texts onto the defaults.
func WithTemplates(t Templates) Option {
	return func(e *Engine) {
		e.templates = t.merge()
	}
}

// WithLogger sets the logger that reports model fallbacks.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithBatchConcurrency bounds how many farmers ScoreBatch scores at once.
func WithBatchConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.batchConcurrency = n
		}
	}
}

// WithClock sets the time source for ComputedAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// Engine selects a scoring path, falls back on model failure and formats
// the public result. It holds no per-request state.
type Engine struct {
	model            Predictor
	fallback         Predictor
	templates        Templates
	log              logger.Logger
	batchConcurrency int
	now              func() time.Time
}

// NewEngine builds an engine. Without WithModel every score is deterministic.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		fallback:         NewDeterministicScorer(),
		templates:        DefaultTemplates(),
		log:              logger.Discard(),
		batchConcurrency: runtime.NumCPU(),
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ModelLoaded reports whether the preferred model path is usable.
func (e *Engine) ModelLoaded() bool {
	if e.model == nil {
		return false
	}
	if l, ok := e.model.(interface{ Loaded() bool }); ok {
		return l.Loaded()
	}
	return true
}

// Score normalizes raw, scores it and explains the top drivers. It fails
// only when raw carries no recognised attribute at all.
func (e *Engine) Score(ctx context.Context, raw features.Raw) (Result, error) {
	if len(raw) == 0 {
		return Result{}, types.NewInputError("features", "attribute bag is empty")
	}
	if raw.Known() == 0 {
		return Result{}, types.NewInputError("features", "no recognised farmer attributes")
	}

	start := time.Now()
	v := features.Normalize(raw)
	p, err := e.predict(ctx, v)
	if err != nil {
		return Result{}, err
	}

	score := types.Round(clamp(100*p.Raw, 0, 100), 1)
	res := Result{
		Score:      score,
		Band:       types.BandOf(score),
		Drivers:    rankDrivers(v, p.Contributions, e.templates, TopDrivers),
		ModelType:  p.Path,
		Features:   v,
		ComputedAt: e.now().UTC(),
	}
	metrics.RecordScore(string(res.ModelType), res.Score, float64(time.Since(start).Microseconds())/1000)
	return res, nil
}

func (e *Engine) predict(ctx context.Context, v features.Vector) (Prediction, error) {
	if e.model != nil {
		p, err := e.modelPredict(ctx, v)
		if err == nil {
			return p, nil
		}
		e.log.Warn(ctx, "model unavailable, using deterministic score", logger.Error(err))
		metrics.RecordModelFallback()
	}
	p, err := e.fallback.Predict(ctx, v)
	if err != nil {
		return Prediction{}, fmt.Errorf("deterministic score: %w", err)
	}
	if p.Path == "" {
		p.Path = types.ModelDeterministic
	}
	return p, nil
}

// modelPredict runs the model path, turning any failure into
// ErrModelUnavailable.
func (e *Engine) modelPredict(ctx context.Context, v features.Vector) (p Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = Prediction{}, fmt.Errorf("%w: panic: %v", ErrModelUnavailable, r)
		}
	}()
	p, err = e.model.Predict(ctx, v)
	if err != nil {
		if errors.Is(err, ErrModelUnavailable) {
			return Prediction{}, err
		}
		return Prediction{}, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	if math.IsNaN(p.Raw) || math.IsInf(p.Raw, 0) {
		return Prediction{}, fmt.Errorf("%w: non-finite prediction", ErrModelUnavailable)
	}
	for _, c := range p.Contributions {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return Prediction{}, fmt.Errorf("%w: non-finite attribution", ErrModelUnavailable)
		}
	}
	if p.Path == "" {
		p.Path = types.ModelML
	}
	return p, nil
}

// BatchResult is the outcome of one farmer in a batch.
type BatchResult struct {
	Result Result
	Err    error
}

// ScoreBatch scores raws concurrently and returns outcomes in input order.
// Per-farmer failures are reported in BatchResult.Err; the returned error is
// only set when ctx ends before the batch completes.
func (e *Engine) ScoreBatch(ctx context.Context, raws []features.Raw) ([]BatchResult, error) {
	out := make([]BatchResult, len(raws))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchConcurrency)
	for i, raw := range raws {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.Score(gctx, raw)
			out[i] = BatchResult{Result: res, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return out, fmt.Errorf("score batch: %w", err)
	}
	return out, nil
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
