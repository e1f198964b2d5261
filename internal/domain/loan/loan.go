// Package loan turns a credit score into a crop-cycle-aligned loan quote.
package loan

import (
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/okian/fasal/internal/domain/types"
)

// Step maps every score at or above MinScore to Value until the next step.
type Step struct {
	MinScore float64 `json:"min_score" yaml:"min_score"`
	Value    float64 `json:"value" yaml:"value"`
}

// Plan is one amortization schedule.
type Plan struct {
	DurationMonths int             `json:"duration_months" yaml:"duration_months"`
	EMIAmount      decimal.Decimal `json:"emi_amount" yaml:"emi_amount"`
	TotalRepayment decimal.Decimal `json:"total_repayment" yaml:"total_repayment"`
}

// Quote is the loan offer for one score.
type Quote struct {
	Score             float64         `json:"credit_score" yaml:"credit_score"`
	Eligible          bool            `json:"eligible" yaml:"eligible"`
	MaxLoanAmount     decimal.Decimal `json:"max_loan_amount" yaml:"max_loan_amount"`
	RecommendedAmount decimal.Decimal `json:"recommended_amount" yaml:"recommended_amount"`
	InterestRate      decimal.Decimal `json:"interest_rate" yaml:"interest_rate"`
	EMIPlans          []Plan          `json:"emi_plans" yaml:"emi_plans"`
	CropType          string          `json:"crop_type" yaml:"crop_type"`
	CropCycleMonths   int             `json:"crop_cycle_months" yaml:"crop_cycle_months"`
	Remarks           string          `json:"remarks" yaml:"remarks"`
}

// Remark thresholds.
const (
	excellentScore = 70.0
	goodScore      = 50.0
)

// Calculator derives loan quotes. It is immutable after construction.
type Calculator struct {
	minScore      float64
	baseLimit     decimal.Decimal
	multipliers   []Step
	rates         []Step
	cropCycles    map[string]int
	defaultCycle  int
	tenors        []int
	extendedTenor int
	extendedAbove float64
}

// NewCalculator builds a calculator with the default tables.
func NewCalculator(opts ...Option) *Calculator {
	c := &Calculator{
		minScore:      DefaultMinEligibleScore,
		baseLimit:     decimal.NewFromInt(DefaultBaseLimit),
		multipliers:   sortSteps(defaultMultipliers),
		rates:         sortSteps(defaultRates),
		cropCycles:    copyCycles(defaultCropCycles),
		defaultCycle:  DefaultCropCycleMonths,
		tenors:        []int{12},
		extendedTenor: 24,
		extendedAbove: 50,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MinEligibleScore returns the eligibility threshold.
func (c *Calculator) MinEligibleScore() float64 { return c.minScore }

// CropCycle returns the cycle length for crop, or the default for unknown
// crops.
func (c *Calculator) CropCycle(crop string) int {
	if m, ok := c.cropCycles[normalizeCrop(crop)]; ok {
		return m
	}
	return c.defaultCycle
}

// Quote prices a loan of requested for score. Only a non-positive requested
// amount is an error; low scores yield an ineligible quote.
func (c *Calculator) Quote(score float64, requested decimal.Decimal, crop string) (Quote, error) {
	if !requested.IsPositive() {
		return Quote{}, types.NewInputError("requested_amount", "must be greater than zero")
	}
	if math.IsNaN(score) {
		score = 0
	}
	score = math.Max(0, math.Min(100, score))

	crop = normalizeCrop(crop)
	q := Quote{
		Score:             score,
		Eligible:          score >= c.minScore,
		MaxLoanAmount:     decimal.Zero,
		RecommendedAmount: decimal.Zero,
		InterestRate:      decimal.Zero,
		EMIPlans:          []Plan{},
		CropType:          crop,
		CropCycleMonths:   c.CropCycle(crop),
		Remarks:           c.remarks(score),
	}
	if !q.Eligible {
		return q, nil
	}

	q.MaxLoanAmount = c.baseLimit.Mul(decimal.NewFromFloat(c.multiplier(score))).Round(2)
	q.RecommendedAmount = decimal.Min(requested, q.MaxLoanAmount)
	q.InterestRate = decimal.NewFromFloat(c.rate(score))
	for _, n := range c.tenorsFor(score, q.CropCycleMonths) {
		q.EMIPlans = append(q.EMIPlans, NewPlan(q.RecommendedAmount, q.InterestRate, n))
	}
	return q, nil
}

// multiplier picks the ceiling step for score. An eligible score below every
// step gets the lowest one.
func (c *Calculator) multiplier(score float64) float64 {
	if len(c.multipliers) == 0 {
		return 0
	}
	return lookup(c.multipliers, score, c.multipliers[len(c.multipliers)-1].Value)
}

// rate picks the tier for score; a score under every tier pays the highest rate.
func (c *Calculator) rate(score float64) float64 {
	if len(c.rates) == 0 {
		return 0
	}
	return lookup(c.rates, score, c.rates[len(c.rates)-1].Value)
}

func (c *Calculator) tenorsFor(score float64, cycle int) []int {
	set := map[int]struct{}{cycle: {}}
	for _, t := range c.tenors {
		set[t] = struct{}{}
	}
	if c.extendedTenor > 0 && score > c.extendedAbove {
		set[c.extendedTenor] = struct{}{}
	}
	out := make([]int, 0, len(set))
	for t := range set {
		if t > 0 {
			out = append(out, t)
		}
	}
	sort.Ints(out)
	return out
}

func (c *Calculator) remarks(score float64) string {
	switch {
	case score < c.minScore:
		return "Credit score below threshold. Loan not recommended."
	case score >= excellentScore:
		return "Excellent credit profile. Eligible for premium rates."
	case score >= goodScore:
		return "Good credit profile. Standard rates applicable."
	default:
		return "Fair credit profile. Higher interest rates may apply."
	}
}

// lookup returns the value of the highest step whose MinScore <= score.
// steps must be sorted by descending MinScore.
func lookup(steps []Step, score, fallback float64) float64 {
	for _, s := range steps {
		if score >= s.MinScore {
			return s.Value
		}
	}
	return fallback
}

func sortSteps(steps []Step) []Step {
	out := append([]Step(nil), steps...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MinScore > out[j].MinScore })
	return out
}

func copyCycles(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[normalizeCrop(k)] = v
	}
	return out
}

func normalizeCrop(crop string) string {
	return strings.ToLower(strings.TrimSpace(crop))
}
