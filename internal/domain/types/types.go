// Package types contains the score vocabulary shared across the application.
package types

import "math"

// Band is a coarse risk tier derived from the numeric score.
type Band string

// Score bands.
const (
	BandLow    Band = "low"
	BandMedium Band = "medium"
	BandHigh   Band = "high"
)

// Band upper bounds, inclusive.
const (
	LowBandMax    = 40.0
	MediumBandMax = 70.0
)

// BandOf returns the band for score: low is [0,40], medium (40,70], high above.
func BandOf(score float64) Band {
	switch {
	case score <= LowBandMax:
		return BandLow
	case score <= MediumBandMax:
		return BandMedium
	default:
		return BandHigh
	}
}

// ModelType names the scoring path that produced a score.
type ModelType string

// Scoring paths.
const (
	ModelDeterministic ModelType = "deterministic"
	ModelML            ModelType = "ml"
)

// Driver is one of the top contributing features of a score.
type Driver struct {
	Feature     string  `json:"feature" yaml:"feature"`
	Impact      float64 `json:"impact" yaml:"impact"`
	Explanation string  `json:"explanation" yaml:"explanation"`
}

// Round rounds x half away from zero to the given number of decimals.
func Round(x float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(x*p) / p
}
