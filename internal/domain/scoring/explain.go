package scoring

import (
	"sort"
	"strconv"
	"strings"

	"github.com/okian/fasal/internal/domain/features"
	"github.com/okian/fasal/internal/domain/types"
)

// TopDrivers is how many drivers a result carries.
const TopDrivers = 3

// Template placeholders.
const (
	// PlaceholderValue renders the raw value the feature was scored from.
	PlaceholderValue = "{value}"
	// PlaceholderDirection renders "Excess" for a positive raw value and
	// "Delayed" otherwise.
	PlaceholderDirection = "{direction}"
)

// Template holds the explanation texts of one feature.
type Template struct {
	Positive string `json:"positive" yaml:"positive"`
	Negative string `json:"negative" yaml:"negative"`
}

// Templates maps every feature to its explanation texts.
type Templates map[features.Name]Template

var defaultTemplates = Templates{
	features.NDVIMean: {
		Positive: "Strong crop health observed from satellite",
		Negative: "Lower crop vigor detected from satellite",
	},
	features.NDVITrend: {
		Positive: "Improving crop health trend",
		Negative: "Declining crop vigor vs last season",
	},
	features.RainfallAnomaly3Mo: {
		Positive: "Favorable rainfall pattern",
		Negative: "{direction} rainfall observed",
	},
	features.PastKCCDefaults: {
		Positive: "Clean credit history",
		Negative: "{value} default(s) in KCC history",
	},
	features.UPITxnFreq: {
		Positive: "Active digital transaction history",
		Negative: "Limited digital payment activity",
	},
	features.LandArea: {
		Positive: "Larger farm size",
		Negative: "Smaller farm size",
	},
	features.LastYearYieldEst: {
		Positive: "Strong previous yield",
		Negative: "Lower yield in previous season",
	},
	features.MarketPriceVolatility: {
		Positive: "Stable crop prices",
		Negative: "High price volatility for crop",
	},
	features.FPOMembershipFlag: {
		Positive: "Member of Farmer Producer Organization",
		Negative: "Not part of FPO network",
	},
	features.DistanceToMandiKm: {
		Positive: "Close to market",
		Negative: "Far from mandi ({value} km)",
	},
	features.CropType: {
		Positive: "Growing {value}",
		Negative: "Growing {value}",
	},
}

// DefaultTemplates returns a copy of the built-in templates.
func DefaultTemplates() Templates {
	out := make(Templates, len(defaultTemplates))
	for k, v := range defaultTemplates {
		out[k] = v
	}
	return out
}

// merge overlays non-empty texts from t onto a copy of the defaults.
func (t Templates) merge() Templates {
	out := DefaultTemplates()
	for name, tpl := range t {
		cur := out[name]
		if tpl.Positive != "" {
			cur.Positive = tpl.Positive
		}
		if tpl.Negative != "" {
			cur.Negative = tpl.Negative
		}
		out[name] = cur
	}
	return out
}

// Explain renders the text for feature i of v. Zero impact reads as positive.
func (t Templates) Explain(v features.Vector, i int, impact float64) string {
	spec := features.SpecOf(i)
	tpl, ok := t[spec.Name]
	text := tpl.Positive
	if impact < 0 {
		text = tpl.Negative
	}
	if !ok || text == "" {
		if impact < 0 {
			return "Negative contribution from " + spec.Label
		}
		return "Positive contribution from " + spec.Label
	}
	if strings.Contains(text, PlaceholderValue) {
		text = strings.ReplaceAll(text, PlaceholderValue, valueText(v, i))
	}
	if strings.Contains(text, PlaceholderDirection) {
		dir := "Delayed"
		if v.Effective[i] > 0 {
			dir = "Excess"
		}
		text = strings.ReplaceAll(text, PlaceholderDirection, dir)
	}
	return text
}

func valueText(v features.Vector, i int) string {
	if features.SpecOf(i).Kind == features.KindCategorical {
		if v.Crop == "" {
			return "unspecified crop"
		}
		return v.Crop
	}
	return strconv.FormatFloat(types.Round(v.Effective[i], 1), 'f', -1, 64)
}

// rankDrivers orders contributions by descending magnitude, breaking ties by
// feature order, and explains the top n.
func rankDrivers(v features.Vector, contributions [features.Count]float64, t Templates, n int) []types.Driver {
	idx := make([]int, features.Count)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return abs(contributions[idx[a]]) > abs(contributions[idx[b]])
	})
	if n > len(idx) {
		n = len(idx)
	}
	drivers := make([]types.Driver, 0, n)
	for _, i := range idx[:n] {
		impact := types.Round(contributions[i], 2)
		if impact == 0 {
			impact = 0 // drop the sign of -0
		}
		drivers = append(drivers, types.Driver{
			Feature:     features.SpecOf(i).Label,
			Impact:      impact,
			Explanation: t.Explain(v, i, impact),
		})
	}
	return drivers
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
