// Package scoring turns normalized feature vectors into explained credit
// scores. A tree-ensemble model is preferred when configured and the
// deterministic weighted sum takes over whenever the model is unavailable.
package scoring

import (
	"context"
	"time"

	"github.com/okian/fasal/internal/domain/features"
	"github.com/okian/fasal/internal/domain/types"
)

// Prediction is the output of one scoring path.
type Prediction struct {
	// Raw is the score on a [0,1] scale before clamping.
	Raw float64
	// Contributions are signed per-feature impacts in score points, indexed
	// by features.Order.
	Contributions [features.Count]float64
	// Path names the scorer that produced the prediction.
	Path types.ModelType
}

// Predictor is implemented by both scoring paths.
type Predictor interface {
	Predict(ctx context.Context, v features.Vector) (Prediction, error)
}

// Result is a public, explained score.
type Result struct {
	Score      float64         `json:"score" yaml:"score"`
	Band       types.Band      `json:"band" yaml:"band"`
	Drivers    []types.Driver  `json:"drivers" yaml:"drivers"`
	ModelType  types.ModelType `json:"model_type" yaml:"model_type"`
	Features   features.Vector `json:"-" yaml:"-"`
	ComputedAt time.Time       `json:"computed_at" yaml:"computed_at"`
}
