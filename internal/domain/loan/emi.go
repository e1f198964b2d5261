package loan

import (
	"github.com/shopspring/decimal"
)

// monthsPerYearPct converts an annual percentage into a monthly fraction.
var monthsPerYearPct = decimal.NewFromInt(1200)

// minMonthlyRate is the rate below which amortization degrades to P/n.
var minMonthlyRate = decimal.New(1, -12)

// EMI returns the reducing-balance installment for principal at annualPct
// over months, rounded up to the paisa so the schedule never repays less
// than the principal.
func EMI(principal, annualPct decimal.Decimal, months int) decimal.Decimal {
	if months <= 0 || !principal.IsPositive() {
		return decimal.Zero
	}
	n := decimal.NewFromInt(int64(months))
	r := annualPct.Div(monthsPerYearPct)
	if r.LessThan(minMonthlyRate) {
		return principal.Div(n).RoundCeil(2)
	}
	growth := decimal.NewFromInt(1).Add(r).Pow(n)
	emi := principal.Mul(r).Mul(growth).Div(growth.Sub(decimal.NewFromInt(1)))
	return emi.RoundCeil(2)
}

// NewPlan builds the schedule for one tenor. TotalRepayment is exactly
// EMIAmount * months.
func NewPlan(principal, annualPct decimal.Decimal, months int) Plan {
	emi := EMI(principal, annualPct, months)
	return Plan{
		DurationMonths: months,
		EMIAmount:      emi,
		TotalRepayment: emi.Mul(decimal.NewFromInt(int64(months))),
	}
}
