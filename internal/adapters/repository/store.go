// Package repository stores the score history of each farmer.
package repository

import (
	"context"

	"github.com/okian/fasal/internal/domain/model"
)

// HistoryStore keeps immutable score records per farmer.
type HistoryStore interface {
	// Append stores rec as the newest record of rec.FarmerID.
	Append(ctx context.Context, rec model.ScoreRecord) error

	// Latest returns the newest record for farmerID.
	// Returns ErrNotFound if the farmer has no history.
	Latest(ctx context.Context, farmerID string) (model.ScoreRecord, error)

	// History returns up to limit records for farmerID, newest first.
	// An unknown farmer yields an empty slice.
	History(ctx context.Context, farmerID string, limit int) ([]model.ScoreRecord, error)

	// Count returns the number of farmers with at least one record.
	Count(ctx context.Context) (int, error)

	Close() error
}

func validate(rec model.ScoreRecord) error {
	if rec.ID == "" || rec.FarmerID == "" {
		return ErrInvalidRecord
	}
	return nil
}
