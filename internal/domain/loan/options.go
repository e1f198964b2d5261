package loan

import (
	"github.com/shopspring/decimal"
)

// Defaults for the calculator tables.
const (
	DefaultMinEligibleScore = 40.0
	DefaultBaseLimit        = 250_000
	DefaultCropCycleMonths  = 4
)

var defaultMultipliers = []Step{
	{MinScore: 40, Value: 0.4},
	{MinScore: 50, Value: 0.6},
	{MinScore: 60, Value: 0.8},
	{MinScore: 70, Value: 1.1},
	{MinScore: 80, Value: 1.4},
	{MinScore: 90, Value: 1.6},
}

// Annual interest rates in percent. A score on a boundary gets the lower rate.
var defaultRates = []Step{
	{MinScore: 80, Value: 7.0},
	{MinScore: 70, Value: 8.5},
	{MinScore: 55, Value: 10.0},
	{MinScore: 40, Value: 12.0},
}

var defaultCropCycles = map[string]int{
	"rice":   4,
	"wheat":  5,
	"cotton": 6,
	"maize":  4,
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithMinEligibleScore sets the eligibility threshold.
func WithMinEligibleScore(score float64) Option {
	return func(c *Calculator) {
		if score >= 0 && score <= 100 {
			c.minScore = score
		}
	}
}

// WithBaseLimit sets the amount a multiplier of 1.0 maps to.
func WithBaseLimit(limit decimal.Decimal) Option {
	return func(c *Calculator) {
		if limit.IsPositive() {
			c.baseLimit = limit
		}
	}
}

// WithMultiplierSteps replaces the score to loan-ceiling multiplier table.
func WithMultiplierSteps(steps []Step) Option {
	return func(c *Calculator) {
		if len(steps) > 0 {
			c.multipliers = sortSteps(steps)
		}
	}
}

// WithRateTiers replaces the score to annual-rate table.
func WithRateTiers(tiers []Step) Option {
	return func(c *Calculator) {
		if len(tiers) > 0 {
			c.rates = sortSteps(tiers)
		}
	}
}

// WithCropCycles replaces the crop cycle table and its default.
func WithCropCycles(cycles map[string]int, defaultMonths int) Option {
	return func(c *Calculator) {
		if len(cycles) > 0 {
			c.cropCycles = copyCycles(cycles)
		}
		if defaultMonths > 0 {
			c.defaultCycle = defaultMonths
		}
	}
}

// WithStandardTenors sets the tenors offered besides the crop cycle.
func WithStandardTenors(months ...int) Option {
	return func(c *Calculator) {
		c.tenors = append([]int(nil), months...)
	}
}

// WithExtendedTenor offers months as an extra tenor to scores above minScore.
// Zero months disables it.
func WithExtendedTenor(months int, minScore float64) Option {
	return func(c *Calculator) {
		c.extendedTenor = months
		c.extendedAbove = minScore
	}
}
