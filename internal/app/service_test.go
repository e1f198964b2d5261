package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	service "github.com/okian/fasal/internal/app"
	"github.com/okian/fasal/internal/domain/features"
	"github.com/okian/fasal/internal/domain/model"
	"github.com/okian/fasal/internal/domain/types"
	"github.com/okian/fasal/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func farmer() features.Raw {
	return features.Raw{
		"land_area":               2.0,
		"crop_type":               "wheat",
		"last_year_yield_est":     6.5,
		"ndvi_mean":               0.55,
		"ndvi_trend":              0.0,
		"rainfall_anomaly_3mo":    -25.0,
		"past_kcc_defaults":       0,
		"upi_txn_freq":            25,
		"market_price_volatility": 17.5,
		"fpo_membership_flag":     true,
		"distance_to_mandi_km":    26,
	}
}

func score(v float64) *float64 { return &v }

// waitJob polls until the job completes or a deadline passes.
func waitJob(svc *service.Service, id string) model.Job {
	deadline := time.Now().Add(5 * time.Second)
	for {
		job, err := svc.JobStatus(context.Background(), id)
		if err != nil || job.State == model.JobCompleted || time.Now().After(deadline) {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestServiceScore(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with default components", t, func() {
		svc := service.New()
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("When a farmer is scored", func() {
			rec, err := svc.Score(ctx, " F001 ", farmer())

			Convey("Then the record is stored with a fresh ID", func() {
				So(err, ShouldBeNil)
				So(rec.ID, ShouldNotBeEmpty)
				So(rec.FarmerID, ShouldEqual, "F001")
				So(rec.Score, ShouldEqual, 59.7)
				So(rec.Band, ShouldEqual, types.BandMedium)
				So(rec.CropType, ShouldEqual, "wheat")

				hist, err := svc.History(ctx, "F001", 10)
				So(err, ShouldBeNil)
				So(len(hist), ShouldEqual, 1)
				So(hist[0].ID, ShouldEqual, rec.ID)
			})
		})

		Convey("When the farmer ID is missing", func() {
			_, err := svc.Score(ctx, "  ", farmer())
			var ie *types.InputError
			So(errors.As(err, &ie), ShouldBeTrue)
			So(ie.Field, ShouldEqual, "farmer_id")
		})

		Convey("When the features are empty", func() {
			_, err := svc.Score(ctx, "F001", features.Raw{})
			So(errors.Is(err, types.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("When history is asked with a bad limit", func() {
			_, err := svc.History(ctx, "F001", 0)
			So(errors.Is(err, types.ErrInvalidInput), ShouldBeTrue)
			_, err = svc.History(ctx, "F001", svc.MaxHistoryLimit()+1)
			So(errors.Is(err, types.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestServiceQuote(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service with one scored farmer", t, func() {
		svc := service.New()
		Reset(func() { _ = svc.Stop(ctx) })
		_, err := svc.Score(ctx, "F001", farmer())
		So(err, ShouldBeNil)

		Convey("When a quote omits score and crop", func() {
			q, err := svc.Quote(ctx, model.QuoteRequest{FarmerID: "F001", RequestedAmount: decimal.NewFromInt(100000)})

			Convey("Then both come from the latest record", func() {
				So(err, ShouldBeNil)
				So(q.Score, ShouldEqual, 59.7)
				So(q.CropType, ShouldEqual, "wheat")
				So(q.Eligible, ShouldBeTrue)
				So(q.InterestRate.String(), ShouldEqual, "10")
			})
		})

		Convey("When a quote supplies its own score and crop", func() {
			q, err := svc.Quote(ctx, model.QuoteRequest{
				Score:           score(82),
				CropType:        "cotton",
				RequestedAmount: decimal.NewFromInt(1000),
			})

			Convey("Then no history is needed", func() {
				So(err, ShouldBeNil)
				So(q.Score, ShouldEqual, 82)
				So(q.CropCycleMonths, ShouldEqual, 6)
			})
		})

		Convey("When a quote has a score but an unknown farmer", func() {
			q, err := svc.Quote(ctx, model.QuoteRequest{FarmerID: "F404", Score: score(65), RequestedAmount: decimal.NewFromInt(1000)})
			So(err, ShouldBeNil)
			So(q.CropType, ShouldBeEmpty)
		})

		Convey("When no score can be found", func() {
			_, err := svc.Quote(ctx, model.QuoteRequest{FarmerID: "F404", RequestedAmount: decimal.NewFromInt(1000)})

			Convey("Then the caller is told to compute a score first", func() {
				var ie *types.InputError
				So(errors.As(err, &ie), ShouldBeTrue)
				So(ie.Field, ShouldEqual, "score")
				So(ie.Reason, ShouldContainSubstring, "compute score first")
			})
		})

		Convey("When the requested amount is not positive", func() {
			_, err := svc.Quote(ctx, model.QuoteRequest{Score: score(65)})
			So(errors.Is(err, types.ErrInvalidInput), ShouldBeTrue)
		})
	})
}

func TestServiceBatch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc := service.New(service.WithWorkerCount(2), service.WithBatchMaxItems(5))
		So(svc.Start(ctx), ShouldBeNil)
		Reset(func() { _ = svc.Stop(ctx) })

		Convey("When a batch is submitted", func() {
			job, err := svc.SubmitBatch(ctx, []model.BatchItem{
				{RequestID: "r1", FarmerID: "F001", Features: farmer()},
				{RequestID: "r2", FarmerID: "F002", Features: features.Raw{"ndvi_mean": 0.9}},
				{RequestID: "r1", FarmerID: "F001", Features: farmer()},
				{RequestID: "r3", FarmerID: "F003", Features: features.Raw{"unknown": 1}},
			})
			So(err, ShouldBeNil)
			So(job.ID, ShouldNotBeEmpty)
			So(job.Total, ShouldEqual, 4)

			done := waitJob(svc, job.ID)

			Convey("Then every item settles", func() {
				So(done.State, ShouldEqual, model.JobCompleted)
				So(done.FinishedAt, ShouldNotBeNil)
				So(done.Pending, ShouldEqual, 0)
				So(done.Completed, ShouldEqual, 2)
				So(done.Duplicates, ShouldEqual, 1)
				So(done.Failed, ShouldEqual, 1)
				So(done.Items[0].State, ShouldEqual, model.ItemScored)
				So(*done.Items[0].Score, ShouldEqual, 59.7)
				So(done.Items[2].State, ShouldEqual, model.ItemDuplicate)
				So(done.Items[3].State, ShouldEqual, model.ItemFailed)
				So(done.Items[3].Error, ShouldContainSubstring, "features")
			})

			Convey("Then scored items land in history", func() {
				hist, err := svc.History(ctx, "F002", 5)
				So(err, ShouldBeNil)
				So(len(hist), ShouldEqual, 1)
				So(hist[0].ID, ShouldEqual, done.Items[1].RecordID)
			})

			Convey("Then resubmitting the same request IDs only yields duplicates", func() {
				again, err := svc.SubmitBatch(ctx, []model.BatchItem{{RequestID: "r2", FarmerID: "F002", Features: farmer()}})
				So(err, ShouldBeNil)
				So(again.State, ShouldEqual, model.JobCompleted)
				So(again.Duplicates, ShouldEqual, 1)
			})
		})

		Convey("When a batch is malformed", func() {
			_, err := svc.SubmitBatch(ctx, nil)
			So(errors.Is(err, types.ErrInvalidInput), ShouldBeTrue)

			big := make([]model.BatchItem, 6)
			for i := range big {
				big[i] = model.BatchItem{FarmerID: fmt.Sprintf("F%d", i), Features: farmer()}
			}
			_, err = svc.SubmitBatch(ctx, big)
			So(errors.Is(err, types.ErrInvalidInput), ShouldBeTrue)

			_, err = svc.SubmitBatch(ctx, []model.BatchItem{{Features: farmer()}})
			var ie *types.InputError
			So(errors.As(err, &ie), ShouldBeTrue)
			So(ie.Field, ShouldEqual, "items[0].farmer_id")
		})

		Convey("When an unknown job is queried", func() {
			_, err := svc.JobStatus(ctx, "nope")
			So(errors.Is(err, service.ErrJobNotFound), ShouldBeTrue)
		})

		Convey("Then stats describe the running service", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, true)
			So(stats["worker_count"], ShouldEqual, 2)
			So(stats["model_loaded"], ShouldEqual, false)
		})
	})

	Convey("Given a service that was never started", t, func() {
		svc := service.New()

		Convey("Then batches are refused", func() {
			_, err := svc.SubmitBatch(ctx, []model.BatchItem{{FarmerID: "F001", Features: farmer()}})
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
		})
	})
}
