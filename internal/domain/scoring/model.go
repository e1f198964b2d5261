package scoring

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/okian/fasal/internal/domain/ensemble"
	"github.com/okian/fasal/internal/domain/features"
	"github.com/okian/fasal/internal/domain/types"
)

// additivityTolerance bounds |expected + sum(phi) - prediction|.
const additivityTolerance = 1e-6

// ModelScorer scores with a tree ensemble and attributes with TreeSHAP.
type ModelScorer struct {
	ens *ensemble.Ensemble
}

// NewModelScorer wraps a loaded ensemble. The ensemble must be trained on
// the canonical feature order.
func NewModelScorer(ens *ensemble.Ensemble) (*ModelScorer, error) {
	if ens == nil {
		return nil, fmt.Errorf("%w: no ensemble", ErrModelUnavailable)
	}
	names := ens.FeatureNames()
	if len(names) != features.Count {
		return nil, fmt.Errorf("%w: model has %d features, want %d", ErrModelUnavailable, len(names), features.Count)
	}
	for i, name := range features.Order {
		if names[i] != string(name) {
			return nil, fmt.Errorf("%w: feature %d is %q, want %q", ErrModelUnavailable, i, names[i], name)
		}
	}
	return &ModelScorer{ens: ens}, nil
}

// LoadModelScorer loads the artifact at path and wraps it.
func LoadModelScorer(path string) (*ModelScorer, error) {
	ens, err := ensemble.Load(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	return NewModelScorer(ens)
}

// Ensemble returns the wrapped ensemble.
func (m *ModelScorer) Ensemble() *ensemble.Ensemble { return m.ens }

// Predict returns the model output and its per-feature attributions scaled
// to score points. Every failure, including a panic, is ErrModelUnavailable.
func (m *ModelScorer) Predict(_ context.Context, v features.Vector) (p Prediction, err error) {
	defer func() {
		if r := recover(); r != nil {
			p, err = Prediction{}, fmt.Errorf("%w: panic during prediction: %v", ErrModelUnavailable, r)
		}
	}()

	ex, err := m.ens.Explain(v.Slice())
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrModelUnavailable, err)
	}
	if math.IsNaN(ex.Prediction) || math.IsInf(ex.Prediction, 0) {
		return Prediction{}, fmt.Errorf("%w: prediction is not finite", ErrModelUnavailable)
	}
	total := ex.Expected
	for _, phi := range ex.Phi {
		total += phi
	}
	if math.Abs(total-ex.Prediction) > additivityTolerance {
		return Prediction{}, fmt.Errorf("%w: attributions sum to %g, prediction is %g", ErrModelUnavailable, total, ex.Prediction)
	}

	p = Prediction{Raw: ex.Prediction, Path: types.ModelML}
	for i, phi := range ex.Phi {
		p.Contributions[i] = 100 * phi
	}
	return p, nil
}

// LazyModelScorer loads its artifact on first use. A failed load is
// remembered: every later call reports the same ErrModelUnavailable.
type LazyModelScorer struct {
	path   string
	once   sync.Once
	scorer *ModelScorer
	err    error
}

// NewLazyModelScorer defers loading path until the first prediction.
func NewLazyModelScorer(path string) *LazyModelScorer {
	return &LazyModelScorer{path: path}
}

// Load loads the artifact once and reports the outcome.
func (l *LazyModelScorer) Load() error {
	l.once.Do(func() {
		l.scorer, l.err = LoadModelScorer(l.path)
	})
	return l.err
}

// Loaded reports whether the artifact loaded successfully.
func (l *LazyModelScorer) Loaded() bool {
	return l.Load() == nil
}

// Predict loads the model if needed and scores v.
func (l *LazyModelScorer) Predict(ctx context.Context, v features.Vector) (Prediction, error) {
	if err := l.Load(); err != nil {
		return Prediction{}, err
	}
	return l.scorer.Predict(ctx, v)
}
