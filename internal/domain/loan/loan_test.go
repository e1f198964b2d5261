package loan_test

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/okian/fasal/internal/domain/loan"
	"github.com/okian/fasal/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestQuoteEligible(t *testing.T) {
	Convey("Given the default calculator", t, func() {
		c := loan.NewCalculator()

		Convey("When a 74.3 score asks for less than its ceiling", func() {
			q, err := c.Quote(74.3, amount(200000), "Wheat")

			Convey("Then the request is granted in full", func() {
				So(err, ShouldBeNil)
				So(q.Eligible, ShouldBeTrue)
				So(q.MaxLoanAmount.Equal(amount(275000)), ShouldBeTrue)
				So(q.RecommendedAmount.Equal(amount(200000)), ShouldBeTrue)
				So(q.InterestRate.String(), ShouldEqual, "8.5")
				So(q.CropType, ShouldEqual, "wheat")
				So(q.CropCycleMonths, ShouldEqual, 5)
				So(q.Remarks, ShouldStartWith, "Excellent")
			})

			Convey("Then plans cover the crop cycle, a year and two years", func() {
				So(len(q.EMIPlans), ShouldEqual, 3)
				So(q.EMIPlans[0].DurationMonths, ShouldEqual, 5)
				So(q.EMIPlans[1].DurationMonths, ShouldEqual, 12)
				So(q.EMIPlans[2].DurationMonths, ShouldEqual, 24)
				So(q.EMIPlans[1].EMIAmount.String(), ShouldEqual, "17443.96")
				So(q.EMIPlans[1].TotalRepayment.String(), ShouldEqual, "209327.52")
				So(q.EMIPlans[2].EMIAmount.String(), ShouldEqual, "9091.14")
			})

			Convey("Then every plan repays at least the principal exactly n times the EMI", func() {
				for _, p := range q.EMIPlans {
					n := decimal.NewFromInt(int64(p.DurationMonths))
					So(p.EMIAmount.Mul(n).Equal(p.TotalRepayment), ShouldBeTrue)
					So(p.TotalRepayment.GreaterThanOrEqual(q.RecommendedAmount), ShouldBeTrue)
				}
			})
		})

		Convey("When the request exceeds the ceiling", func() {
			q, err := c.Quote(45, amount(500000), "rice")

			Convey("Then the recommendation is capped", func() {
				So(err, ShouldBeNil)
				So(q.MaxLoanAmount.Equal(amount(100000)), ShouldBeTrue)
				So(q.RecommendedAmount.Equal(q.MaxLoanAmount), ShouldBeTrue)
				So(q.InterestRate.String(), ShouldEqual, "12")
				So(q.Remarks, ShouldStartWith, "Fair")
			})

			Convey("Then a score at or below 50 gets no two-year plan", func() {
				So(len(q.EMIPlans), ShouldEqual, 2)
				So(q.EMIPlans[0].DurationMonths, ShouldEqual, 4)
				So(q.EMIPlans[1].DurationMonths, ShouldEqual, 12)
				So(q.EMIPlans[0].EMIAmount.String(), ShouldEqual, "25628.11")
			})
		})

		Convey("When scores sit on tier boundaries", func() {
			at80, _ := c.Quote(80, amount(1000), "maize")
			below80, _ := c.Quote(79.9, amount(1000), "maize")
			at55, _ := c.Quote(55, amount(1000), "maize")

			Convey("Then the boundary takes the better rate", func() {
				So(at80.InterestRate.String(), ShouldEqual, "7")
				So(below80.InterestRate.String(), ShouldEqual, "8.5")
				So(at55.InterestRate.String(), ShouldEqual, "10")
			})
		})

		Convey("When the crop is unknown or missing", func() {
			q, err := c.Quote(60, amount(1000), "dragonfruit")
			So(err, ShouldBeNil)
			So(q.CropCycleMonths, ShouldEqual, loan.DefaultCropCycleMonths)

			q, err = c.Quote(60, amount(1000), "")
			So(err, ShouldBeNil)
			So(q.CropCycleMonths, ShouldEqual, loan.DefaultCropCycleMonths)
		})

		Convey("When the crop cycle equals a standard tenor", func() {
			custom := loan.NewCalculator(loan.WithCropCycles(map[string]int{"sugarcane": 12}, 4))
			q, _ := custom.Quote(65, amount(1000), "sugarcane")

			Convey("Then the tenor is offered once", func() {
				So(len(q.EMIPlans), ShouldEqual, 2)
				So(q.EMIPlans[0].DurationMonths, ShouldEqual, 12)
				So(q.EMIPlans[1].DurationMonths, ShouldEqual, 24)
			})
		})
	})
}

func TestQuoteMonotonic(t *testing.T) {
	Convey("Given increasing scores", t, func() {
		c := loan.NewCalculator()
		prevMax := decimal.Zero
		prevRate := decimal.NewFromInt(100)

		Convey("Then the ceiling never falls and the rate never rises", func() {
			for s := 40.0; s <= 100; s += 0.5 {
				q, err := c.Quote(s, amount(10000000), "wheat")
				So(err, ShouldBeNil)
				So(q.MaxLoanAmount.GreaterThanOrEqual(prevMax), ShouldBeTrue)
				So(q.InterestRate.LessThanOrEqual(prevRate), ShouldBeTrue)
				So(q.RecommendedAmount.LessThanOrEqual(q.MaxLoanAmount), ShouldBeTrue)
				prevMax, prevRate = q.MaxLoanAmount, q.InterestRate
			}
		})
	})
}

func TestQuoteIneligible(t *testing.T) {
	Convey("Given a score below the threshold", t, func() {
		q, err := loan.NewCalculator().Quote(30, amount(50000), "cotton")

		Convey("Then the quote is ineligible with no amounts or plans", func() {
			So(err, ShouldBeNil)
			So(q.Eligible, ShouldBeFalse)
			So(q.MaxLoanAmount.IsZero(), ShouldBeTrue)
			So(q.RecommendedAmount.IsZero(), ShouldBeTrue)
			So(q.EMIPlans, ShouldBeEmpty)
			So(q.EMIPlans, ShouldNotBeNil)
			So(q.CropCycleMonths, ShouldEqual, 6)
			So(q.Remarks, ShouldStartWith, "Credit score below threshold")
		})
	})

	Convey("Given scores outside the valid range", t, func() {
		c := loan.NewCalculator()

		Convey("Then they are clamped rather than rejected", func() {
			q, err := c.Quote(math.NaN(), amount(1000), "wheat")
			So(err, ShouldBeNil)
			So(q.Score, ShouldEqual, 0)
			So(q.Eligible, ShouldBeFalse)

			q, err = c.Quote(140, amount(1000), "wheat")
			So(err, ShouldBeNil)
			So(q.Score, ShouldEqual, 100)
			So(q.Eligible, ShouldBeTrue)
		})
	})
}

func TestQuoteLoweredThreshold(t *testing.T) {
	Convey("Given a threshold below the lowest ceiling step", t, func() {
		c := loan.NewCalculator(loan.WithMinEligibleScore(30))

		Convey("When an eligible score falls under every step", func() {
			q, err := c.Quote(35, amount(100000), "wheat")

			Convey("Then it gets the lowest step rather than an empty offer", func() {
				So(err, ShouldBeNil)
				So(q.Eligible, ShouldBeTrue)
				So(q.MaxLoanAmount.Equal(amount(100000)), ShouldBeTrue)
				So(q.RecommendedAmount.Equal(amount(100000)), ShouldBeTrue)
				So(q.InterestRate.String(), ShouldEqual, "12")
				So(len(q.EMIPlans), ShouldEqual, 2)
				for _, p := range q.EMIPlans {
					So(p.EMIAmount.IsPositive(), ShouldBeTrue)
					So(p.TotalRepayment.GreaterThanOrEqual(q.RecommendedAmount), ShouldBeTrue)
				}
			})
		})

		Convey("When the score is still below the threshold", func() {
			q, err := c.Quote(29.9, amount(100000), "wheat")

			Convey("Then the quote stays ineligible", func() {
				So(err, ShouldBeNil)
				So(q.Eligible, ShouldBeFalse)
				So(q.MaxLoanAmount.IsZero(), ShouldBeTrue)
				So(q.EMIPlans, ShouldBeEmpty)
			})
		})
	})
}

func TestQuoteInvalidAmount(t *testing.T) {
	Convey("Given non-positive requested amounts", t, func() {
		c := loan.NewCalculator()

		for _, req := range []decimal.Decimal{amount(-5), decimal.Zero} {
			_, err := c.Quote(80, req, "wheat")

			Convey("Then "+req.String()+" is rejected as invalid input", func() {
				So(errors.Is(err, types.ErrInvalidInput), ShouldBeTrue)
				var ie *types.InputError
				So(errors.As(err, &ie), ShouldBeTrue)
				So(ie.Field, ShouldEqual, "requested_amount")
			})
		}
	})
}

func TestEMI(t *testing.T) {
	Convey("Given a zero interest rate", t, func() {
		emi := loan.EMI(amount(1000), decimal.Zero, 3)

		Convey("Then the principal is split evenly and rounded up", func() {
			So(emi.String(), ShouldEqual, "333.34")
		})
	})

	Convey("Given degenerate inputs", t, func() {
		So(loan.EMI(amount(1000), decimal.NewFromInt(10), 0).IsZero(), ShouldBeTrue)
		So(loan.EMI(decimal.Zero, decimal.NewFromInt(10), 12).IsZero(), ShouldBeTrue)
	})

	Convey("Given custom calculator settings", t, func() {
		c := loan.NewCalculator(
			loan.WithMinEligibleScore(20),
			loan.WithBaseLimit(amount(100000)),
			loan.WithMultiplierSteps([]loan.Step{{MinScore: 0, Value: 1}}),
			loan.WithRateTiers([]loan.Step{{MinScore: 0, Value: 6}}),
			loan.WithStandardTenors(6),
			loan.WithExtendedTenor(0, 0),
		)
		q, err := c.Quote(25, amount(500000), "rice")

		Convey("Then they replace the defaults", func() {
			So(err, ShouldBeNil)
			So(c.MinEligibleScore(), ShouldEqual, 20)
			So(q.Eligible, ShouldBeTrue)
			So(q.MaxLoanAmount.Equal(amount(100000)), ShouldBeTrue)
			So(q.InterestRate.String(), ShouldEqual, "6")
			So(len(q.EMIPlans), ShouldEqual, 2)
			So(q.EMIPlans[0].DurationMonths, ShouldEqual, 4)
			So(q.EMIPlans[1].DurationMonths, ShouldEqual, 6)
		})
	})
}
