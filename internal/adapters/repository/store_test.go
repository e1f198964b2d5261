package repository_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/fasal/internal/adapters/repository"
	"github.com/okian/fasal/internal/domain/model"
	"github.com/okian/fasal/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

var epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func record(farmerID string, seq int) model.ScoreRecord {
	return model.ScoreRecord{
		ID:        fmt.Sprintf("%s-%d", farmerID, seq),
		FarmerID:  farmerID,
		Score:     50 + float64(seq),
		Band:      types.BandMedium,
		ModelType: types.ModelDeterministic,
		CropType:  "wheat",
		Drivers: []types.Driver{
			{Feature: "Credit history", Impact: 7.5, Explanation: "Clean credit history"},
		},
		Features:   map[string]float64{"ndvi_mean": 0.5},
		ComputedAt: epoch.Add(time.Duration(seq) * time.Minute),
	}
}

type storeCase struct {
	name string
	open func(t *testing.T) repository.HistoryStore
}

func stores() []storeCase {
	return []storeCase{
		{"memory", func(*testing.T) repository.HistoryStore {
			return repository.NewMemoryStore()
		}},
		{"sqlite", func(t *testing.T) repository.HistoryStore {
			s, err := repository.OpenSQLStore(context.Background(), filepath.Join(t.TempDir(), "history.db"))
			if err != nil {
				t.Fatalf("open sqlite store: %v", err)
			}
			return s
		}},
	}
}

func TestHistoryStore(t *testing.T) {
	ctx := context.Background()

	for _, sc := range stores() {
		Convey("Given an empty "+sc.name+" store", t, func() {
			s := sc.open(t)
			Reset(func() { _ = s.Close() })

			Convey("Then unknown farmers have no history", func() {
				_, err := s.Latest(ctx, "F404")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)

				recs, err := s.History(ctx, "F404", 5)
				So(err, ShouldBeNil)
				So(recs, ShouldBeEmpty)

				n, err := s.Count(ctx)
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 0)
			})

			Convey("When records are appended for two farmers", func() {
				for i := 1; i <= 3; i++ {
					So(s.Append(ctx, record("F001", i)), ShouldBeNil)
				}
				So(s.Append(ctx, record("F002", 1)), ShouldBeNil)

				Convey("Then the latest record is the newest one", func() {
					rec, err := s.Latest(ctx, "F001")
					So(err, ShouldBeNil)
					So(rec, ShouldResemble, record("F001", 3))
				})

				Convey("Then history is newest first and limited", func() {
					recs, err := s.History(ctx, "F001", 2)
					So(err, ShouldBeNil)
					So(len(recs), ShouldEqual, 2)
					So(recs[0].ID, ShouldEqual, "F001-3")
					So(recs[1].ID, ShouldEqual, "F001-2")

					recs, err = s.History(ctx, "F001", 10)
					So(err, ShouldBeNil)
					So(len(recs), ShouldEqual, 3)
				})

				Convey("Then farmers are counted once", func() {
					n, err := s.Count(ctx)
					So(err, ShouldBeNil)
					So(n, ShouldEqual, 2)
				})
			})

			Convey("When arguments are invalid", func() {
				_, err := s.History(ctx, "F001", 0)
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)

				err = s.Append(ctx, model.ScoreRecord{ID: "x"})
				So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
			})
		})
	}
}

func TestMemoryStoreBounds(t *testing.T) {
	ctx := context.Background()

	Convey("Given a memory store keeping two records for two farmers", t, func() {
		s := repository.NewMemoryStore(repository.WithPerFarmer(2), repository.WithMaxFarmers(2))

		Convey("When a farmer exceeds its record limit", func() {
			for i := 1; i <= 4; i++ {
				So(s.Append(ctx, record("F001", i)), ShouldBeNil)
			}

			Convey("Then only the newest records remain", func() {
				recs, err := s.History(ctx, "F001", 10)
				So(err, ShouldBeNil)
				So(len(recs), ShouldEqual, 2)
				So(recs[0].ID, ShouldEqual, "F001-4")
				So(recs[1].ID, ShouldEqual, "F001-3")
			})
		})

		Convey("When a third farmer is added", func() {
			So(s.Append(ctx, record("F001", 1)), ShouldBeNil)
			So(s.Append(ctx, record("F002", 1)), ShouldBeNil)
			_, _ = s.Latest(ctx, "F001")
			So(s.Append(ctx, record("F003", 1)), ShouldBeNil)

			Convey("Then the least recently used farmer is evicted", func() {
				n, _ := s.Count(ctx)
				So(n, ShouldEqual, 2)
				_, err := s.Latest(ctx, "F002")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
				_, err = s.Latest(ctx, "F001")
				So(err, ShouldBeNil)
			})
		})

		Convey("When the store is closed", func() {
			So(s.Close(), ShouldBeNil)

			Convey("Then further calls fail", func() {
				So(errors.Is(s.Append(ctx, record("F001", 1)), repository.ErrClosed), ShouldBeTrue)
				_, err := s.Count(ctx)
				So(errors.Is(err, repository.ErrClosed), ShouldBeTrue)
			})
		})
	})
}

func TestSQLStorePersistence(t *testing.T) {
	ctx := context.Background()

	Convey("Given a SQLite file with stored history", t, func() {
		path := filepath.Join(t.TempDir(), "history.db")
		s, err := repository.OpenSQLStore(ctx, path)
		So(err, ShouldBeNil)
		So(s.Append(ctx, record("F001", 1)), ShouldBeNil)
		So(s.Close(), ShouldBeNil)

		Convey("When the file is reopened", func() {
			s, err = repository.OpenSQLStore(ctx, path)
			So(err, ShouldBeNil)
			Reset(func() { _ = s.Close() })

			Convey("Then the records survive", func() {
				rec, err := s.Latest(ctx, "F001")
				So(err, ShouldBeNil)
				So(rec, ShouldResemble, record("F001", 1))
			})

			Convey("Then a duplicate record ID is rejected", func() {
				So(s.Append(ctx, record("F001", 1)), ShouldNotBeNil)
			})
		})

		Convey("When no path is given", func() {
			_, err := repository.OpenSQLStore(ctx, "")
			So(err, ShouldNotBeNil)
		})
	})
}
