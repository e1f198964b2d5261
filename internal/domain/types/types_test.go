package types_test

import (
	"errors"
	"fmt"
	"testing"

	types "github.com/okian/fasal/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBandOf(t *testing.T) {
	Convey("Given scores around the band boundaries", t, func() {
		cases := []struct {
			score float64
			band  types.Band
		}{
			{0, types.BandLow},
			{40, types.BandLow},
			{40.1, types.BandMedium},
			{70, types.BandMedium},
			{70.1, types.BandHigh},
			{100, types.BandHigh},
		}

		Convey("Then each maps to the documented band", func() {
			for _, tc := range cases {
				So(types.BandOf(tc.score), ShouldEqual, tc.band)
			}
		})
	})
}

func TestInputError(t *testing.T) {
	Convey("Given an input error for the requested amount", t, func() {
		err := fmt.Errorf("quote: %w", types.NewInputError("requested_amount", "must be positive"))

		Convey("Then it matches the invalid input sentinel", func() {
			So(errors.Is(err, types.ErrInvalidInput), ShouldBeTrue)
		})

		Convey("Then the failing field can be recovered", func() {
			var ie *types.InputError
			So(errors.As(err, &ie), ShouldBeTrue)
			So(ie.Field, ShouldEqual, "requested_amount")
			So(err.Error(), ShouldEqual, "quote: invalid requested_amount: must be positive")
		})
	})
}

func TestRound(t *testing.T) {
	Convey("Given values to round", t, func() {
		So(types.Round(61.25, 1), ShouldEqual, 61.3)
		So(types.Round(-3.456, 2), ShouldEqual, -3.46)
		So(types.Round(7, 0), ShouldEqual, 7)
	})
}
