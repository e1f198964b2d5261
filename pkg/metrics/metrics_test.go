package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a private registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When a manager is created with custom names", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHTTPBuckets([]float64{1, 5, 10}),
				WithScoreBuckets([]float64{40, 70}),
				WithScoringBuckets([]float64{1}),
				WithRegistry(registry),
			)
			m.modelFallbacks.Inc()

			Convey("Then its collectors are registered under those names", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "test_unit_model_fallbacks_total")
			})
		})

		Convey("When two managers share one registry", func() {
			NewManager(WithRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When scores are recorded", func() {
			before := testutil.ToFloat64(globalManager.scoresTotal.WithLabelValues("ml"))
			RecordScore("ml", 72.5, 0.4)
			RecordScore("ml", 41, 0.2)

			Convey("Then the per-path counter advances", func() {
				So(testutil.ToFloat64(globalManager.scoresTotal.WithLabelValues("ml")), ShouldEqual, before+2)
			})
		})

		Convey("When a fallback is recorded", func() {
			before := testutil.ToFloat64(globalManager.modelFallbacks)
			RecordModelFallback()
			So(testutil.ToFloat64(globalManager.modelFallbacks), ShouldEqual, before+1)
		})

		Convey("When quotes are recorded", func() {
			before := testutil.ToFloat64(globalManager.quotesTotal.WithLabelValues("false"))
			RecordQuote(false)
			RecordQuote(true)
			RecordQuoteRejected()
			So(testutil.ToFloat64(globalManager.quotesTotal.WithLabelValues("false")), ShouldEqual, before+1)
		})

		Convey("When gauges are updated", func() {
			UpdateQueueSize(12)
			UpdateQueueCapacity(100)
			UpdateWorkerCount(4)
			UpdateHistoryRecords(33)

			Convey("Then they hold the last value", func() {
				So(testutil.ToFloat64(globalManager.queueSize), ShouldEqual, 12)
				So(testutil.ToFloat64(globalManager.queueCapacity), ShouldEqual, 100)
				So(testutil.ToFloat64(globalManager.workerCount), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.historyRecords), ShouldEqual, 33)
			})
		})

		Convey("When the remaining helpers are called", func() {
			So(func() {
				RecordDuplicateRequest()
				RecordHTTPRequest("/score", "POST", "201")
				RecordHTTPRequestDuration("/score", "POST", "201", 3)
				RecordQueueEnqueueError()
				RecordWorkerProcessed()
				RecordWorkerError()
				RecordHistoryWrite("memory")
				RecordErrorByComponent("api", "bad_request")
			}, ShouldNotPanic)
		})

		Convey("Then the registry is exposed for scraping", func() {
			So(GetRegistry(), ShouldNotBeNil)
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
