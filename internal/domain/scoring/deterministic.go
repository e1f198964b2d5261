package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/okian/fasal/internal/domain/features"
	"github.com/okian/fasal/internal/domain/types"
)

// weightTolerance bounds how far a weight table may drift from summing to one.
const weightTolerance = 1e-6

// DefaultBaseline is the reference value contributions are measured from: a
// typical farmer sits at the middle of every domain.
const DefaultBaseline = 0.5

// WeightTable holds one non-negative weight per feature, indexed by
// features.Order.
type WeightTable [features.Count]float64

var defaultWeights = map[features.Name]float64{
	features.LandArea:              0.08,
	features.CropType:              0.06,
	features.LastYearYieldEst:      0.12,
	features.NDVIMean:              0.15,
	features.NDVITrend:             0.10,
	features.RainfallAnomaly3Mo:    0.08,
	features.PastKCCDefaults:       0.15,
	features.UPITxnFreq:            0.10,
	features.MarketPriceVolatility: 0.06,
	features.FPOMembershipFlag:     0.05,
	features.DistanceToMandiKm:     0.05,
}

// DefaultWeights returns the built-in weight table.
func DefaultWeights() WeightTable {
	w, err := NewWeightTable(defaultWeights)
	if err != nil {
		panic(err)
	}
	return w
}

// NewWeightTable validates weights: every feature present, none negative,
// no unknown names and a total of one.
func NewWeightTable(weights map[features.Name]float64) (WeightTable, error) {
	var w WeightTable
	var unknown []string
	for name := range weights {
		if _, ok := features.Index(name); !ok {
			unknown = append(unknown, string(name))
		}
	}
	if len(unknown) > 0 {
		return w, fmt.Errorf("%w: unknown features %s", ErrInvalidWeights, strings.Join(unknown, ", "))
	}
	for i, name := range features.Order {
		v, ok := weights[name]
		if !ok {
			return w, fmt.Errorf("%w: missing weight for %s", ErrInvalidWeights, name)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return w, fmt.Errorf("%w: weight for %s must be a non-negative number", ErrInvalidWeights, name)
		}
		w[i] = v
	}
	if sum := w.Sum(); math.Abs(sum-1) > weightTolerance {
		return w, fmt.Errorf("%w: weights sum to %g", ErrInvalidWeights, sum)
	}
	return w, nil
}

// Sum returns the total weight.
func (w WeightTable) Sum() float64 {
	s := 0.0
	for _, v := range w {
		s += v
	}
	return s
}

// Of returns the weight of name.
func (w WeightTable) Of(name features.Name) float64 {
	i, ok := features.Index(name)
	if !ok {
		return 0
	}
	return w[i]
}

// DeterministicOption configures a DeterministicScorer.
type DeterministicOption func(*DeterministicScorer)

// WithWeights replaces the weight table.
func WithWeights(w WeightTable) DeterministicOption {
	return func(s *DeterministicScorer) {
		s.weights = w
	}
}

// WithBaseline sets one reference value for every feature.
func WithBaseline(b float64) DeterministicOption {
	return func(s *DeterministicScorer) {
		if b >= 0 && b <= 1 {
			for i := range s.baseline {
				s.baseline[i] = b
			}
		}
	}
}

// DeterministicScorer is the always-available weighted-sum path. It is
// immutable after construction.
type DeterministicScorer struct {
	weights  WeightTable
	baseline [features.Count]float64
}

// NewDeterministicScorer builds the fallback scorer.
func NewDeterministicScorer(opts ...DeterministicOption) *DeterministicScorer {
	s := &DeterministicScorer{weights: DefaultWeights()}
	for i := range s.baseline {
		s.baseline[i] = DefaultBaseline
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Weights returns the weight table in use.
func (s *DeterministicScorer) Weights() WeightTable { return s.weights }

// Predict computes sum(w*x) and each feature's signed distance from the
// baseline in score points. It never fails.
func (s *DeterministicScorer) Predict(_ context.Context, v features.Vector) (Prediction, error) {
	p := Prediction{Path: types.ModelDeterministic}
	for i, x := range v.Values {
		w := s.weights[i]
		p.Raw += w * x
		p.Contributions[i] = 100 * w * (x - s.baseline[i])
	}
	return p, nil
}
