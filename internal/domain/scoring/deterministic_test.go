package scoring_test

import (
	"context"
	"errors"
	"testing"

	"github.com/okian/fasal/internal/domain/features"
	"github.com/okian/fasal/internal/domain/scoring"
	"github.com/okian/fasal/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func uniform(x float64) features.Vector {
	var v features.Vector
	for i := range v.Values {
		v.Values[i] = x
	}
	return v
}

func TestWeightTable(t *testing.T) {
	Convey("Given the default weight table", t, func() {
		w := scoring.DefaultWeights()

		Convey("Then it sums to one", func() {
			So(w.Sum(), ShouldAlmostEqual, 1, 1e-6)
		})

		Convey("Then credit history and crop health carry the most weight", func() {
			So(w.Of(features.PastKCCDefaults), ShouldEqual, 0.15)
			So(w.Of(features.NDVIMean), ShouldEqual, 0.15)
			So(w.Of("soil_ph"), ShouldEqual, 0)
		})
	})

	Convey("Given custom weight maps", t, func() {
		full := func() map[features.Name]float64 {
			m := map[features.Name]float64{}
			for _, name := range features.Order {
				m[name] = 1.0 / features.Count
			}
			return m
		}

		Convey("When every feature shares the weight evenly", func() {
			_, err := scoring.NewWeightTable(full())
			So(err, ShouldBeNil)
		})

		Convey("When the weights do not sum to one", func() {
			m := full()
			m[features.LandArea] += 0.1
			_, err := scoring.NewWeightTable(m)
			So(errors.Is(err, scoring.ErrInvalidWeights), ShouldBeTrue)
		})

		Convey("When a weight is negative", func() {
			m := full()
			m[features.LandArea] = -m[features.LandArea]
			_, err := scoring.NewWeightTable(m)
			So(errors.Is(err, scoring.ErrInvalidWeights), ShouldBeTrue)
		})

		Convey("When a feature is missing or unknown", func() {
			m := full()
			delete(m, features.CropType)
			_, err := scoring.NewWeightTable(m)
			So(errors.Is(err, scoring.ErrInvalidWeights), ShouldBeTrue)

			m = full()
			m["soil_ph"] = 0
			_, err = scoring.NewWeightTable(m)
			So(errors.Is(err, scoring.ErrInvalidWeights), ShouldBeTrue)
		})
	})
}

func TestDeterministicScorer(t *testing.T) {
	Convey("Given the deterministic scorer", t, func() {
		s := scoring.NewDeterministicScorer()
		ctx := context.Background()

		Convey("When every feature sits at the baseline", func() {
			p, err := s.Predict(ctx, uniform(scoring.DefaultBaseline))

			Convey("Then the score is the neutral midpoint with no contributions", func() {
				So(err, ShouldBeNil)
				So(100*p.Raw, ShouldAlmostEqual, 50, 1e-9)
				So(p.Path, ShouldEqual, types.ModelDeterministic)
				for _, c := range p.Contributions {
					So(c, ShouldAlmostEqual, 0, 1e-12)
				}
			})
		})

		Convey("When every feature is at its best", func() {
			p, _ := s.Predict(ctx, uniform(1))

			Convey("Then the score is 100 and contributions are half the weight", func() {
				So(100*p.Raw, ShouldAlmostEqual, 100, 1e-9)
				i, _ := features.Index(features.NDVIMean)
				So(p.Contributions[i], ShouldAlmostEqual, 7.5, 1e-9)
			})
		})

		Convey("When the same vector is scored twice", func() {
			v := features.Normalize(features.Raw{"land_area": 4, "ndvi_mean": 0.8, "past_kcc_defaults": 2})
			a, _ := s.Predict(ctx, v)
			b, _ := s.Predict(ctx, v)

			Convey("Then the outputs are identical", func() {
				So(a, ShouldResemble, b)
			})
		})

		Convey("When the baseline is moved to zero", func() {
			zero := scoring.NewDeterministicScorer(scoring.WithBaseline(0))
			p, _ := zero.Predict(ctx, uniform(1))

			Convey("Then contributions sum to the whole score", func() {
				sum := 0.0
				for _, c := range p.Contributions {
					sum += c
				}
				So(sum, ShouldAlmostEqual, 100*p.Raw, 1e-9)
			})
		})
	})
}
