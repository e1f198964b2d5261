package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/okian/fasal/internal/domain/model"
	"github.com/okian/fasal/internal/domain/types"
	"github.com/okian/fasal/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS score_history (
	id          TEXT PRIMARY KEY,
	farmer_id   TEXT NOT NULL,
	score       REAL NOT NULL,
	band        TEXT NOT NULL,
	model_type  TEXT NOT NULL,
	crop_type   TEXT NOT NULL DEFAULT '',
	drivers     TEXT NOT NULL,
	features    TEXT NOT NULL,
	computed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_score_history_farmer ON score_history (farmer_id, computed_at);
`

const selectColumns = `id, farmer_id, score, band, model_type, crop_type, drivers, features, computed_at`

// SQLStore is a HistoryStore persisted in a SQLite database.
type SQLStore struct {
	db *sql.DB
}

// OpenSQLStore opens or creates the database at path and bootstraps the
// schema. Use ":memory:" for a private in-memory database.
func OpenSQLStore(ctx context.Context, path string) (*SQLStore, error) {
	if path == "" {
		return nil, errors.New("history database path not specified")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema in %s: %w", path, err)
	}
	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Append(ctx context.Context, rec model.ScoreRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	drivers, err := json.Marshal(rec.Drivers)
	if err != nil {
		return fmt.Errorf("encode drivers: %w", err)
	}
	feats, err := json.Marshal(rec.Features)
	if err != nil {
		return fmt.Errorf("encode features: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO score_history (`+selectColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FarmerID, rec.Score, string(rec.Band), string(rec.ModelType), rec.CropType,
		string(drivers), string(feats), rec.ComputedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert score %s: %w", rec.ID, err)
	}
	metrics.RecordHistoryWrite("sqlite")
	return nil
}

func (s *SQLStore) Latest(ctx context.Context, farmerID string) (model.ScoreRecord, error) {
	recs, err := s.History(ctx, farmerID, 1)
	if err != nil {
		return model.ScoreRecord{}, err
	}
	if len(recs) == 0 {
		return model.ScoreRecord{}, ErrNotFound
	}
	return recs[0], nil
}

func (s *SQLStore) History(ctx context.Context, farmerID string, limit int) ([]model.ScoreRecord, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM score_history
		 WHERE farmer_id = ? ORDER BY computed_at DESC, rowid DESC LIMIT ?`,
		farmerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history for %s: %w", farmerID, err)
	}
	defer rows.Close()

	out := []model.ScoreRecord{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history for %s: %w", farmerID, err)
	}
	return out, nil
}

func (s *SQLStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT farmer_id) FROM score_history`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count farmers: %w", err)
	}
	return n, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func scanRecord(rows *sql.Rows) (model.ScoreRecord, error) {
	var (
		rec             model.ScoreRecord
		band, modelType string
		drivers, feats  string
		computedAtNanos int64
	)
	if err := rows.Scan(&rec.ID, &rec.FarmerID, &rec.Score, &band, &modelType, &rec.CropType,
		&drivers, &feats, &computedAtNanos); err != nil {
		return model.ScoreRecord{}, fmt.Errorf("scan score record: %w", err)
	}
	if err := json.Unmarshal([]byte(drivers), &rec.Drivers); err != nil {
		return model.ScoreRecord{}, fmt.Errorf("decode drivers of %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(feats), &rec.Features); err != nil {
		return model.ScoreRecord{}, fmt.Errorf("decode features of %s: %w", rec.ID, err)
	}
	rec.Band = types.Band(band)
	rec.ModelType = types.ModelType(modelType)
	rec.ComputedAt = time.Unix(0, computedAtNanos).UTC()
	return rec, nil
}
