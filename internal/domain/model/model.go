// Package model holds the records that move between the API, the batch
// queue and the history stores.
package model

import (
	"time"

	"github.com/okian/fasal/internal/domain/features"
	"github.com/okian/fasal/internal/domain/scoring"
	"github.com/okian/fasal/internal/domain/types"
)

// ScoreRequest is one farmer waiting to be scored by a batch worker. Item is
// its position in the job.
type ScoreRequest struct {
	RequestID  string       `json:"request_id"`
	JobID      string       `json:"job_id"`
	Item       int          `json:"item"`
	FarmerID   string       `json:"farmer_id"`
	Attributes features.Raw `json:"features"`
	TS         time.Time    `json:"ts"`
}

// ScoreRecord is a stored score. Records are never modified after Append.
type ScoreRecord struct {
	ID         string             `json:"id"`
	FarmerID   string             `json:"farmer_id"`
	Score      float64            `json:"score"`
	Band       types.Band         `json:"band"`
	Drivers    []types.Driver     `json:"drivers"`
	ModelType  types.ModelType    `json:"model_type"`
	CropType   string             `json:"crop_type,omitempty"`
	Features   map[string]float64 `json:"features"`
	ComputedAt time.Time          `json:"computed_at"`
}

// NewScoreRecord captures res for farmerID under id. Features holds the
// normalized value of every canonical feature.
func NewScoreRecord(id, farmerID string, res scoring.Result) ScoreRecord {
	feats := make(map[string]float64, features.Count)
	for i, name := range features.Order {
		feats[string(name)] = res.Features.Values[i]
	}
	drivers := make([]types.Driver, len(res.Drivers))
	copy(drivers, res.Drivers)
	return ScoreRecord{
		ID:         id,
		FarmerID:   farmerID,
		Score:      res.Score,
		Band:       res.Band,
		Drivers:    drivers,
		ModelType:  res.ModelType,
		CropType:   res.Features.Crop,
		Features:   feats,
		ComputedAt: res.ComputedAt,
	}
}
