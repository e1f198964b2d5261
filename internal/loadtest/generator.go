package loadtest

import (
	"math"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/fasal/internal/domain/features"
	"github.com/okian/fasal/internal/domain/model"
	"github.com/okian/fasal/internal/domain/types"
)

const seedMix = 0x9e3779b97f4a7c15

type span struct{ lo, hi float64 }

// profile is a family of farmers with similar attribute ranges.
type profile struct {
	land       span
	yield      span
	ndvi       span
	trend      span
	rain       span
	defaults   span
	upi        span
	volatility span
	distance   span
	fpo        float64 // probability of FPO membership
}

var (
	strongFarmer = profile{
		land: span{4, 10}, yield: span{3.5, 5}, ndvi: span{0.65, 0.9}, trend: span{0, 0.15},
		rain: span{0, 10}, defaults: span{0, 0}, upi: span{30, 50}, volatility: span{5, 12},
		distance: span{2, 15}, fpo: 0.9,
	}
	averageFarmer = profile{
		land: span{1.5, 5}, yield: span{2.5, 4}, ndvi: span{0.45, 0.7}, trend: span{-0.05, 0.05},
		rain: span{5, 25}, defaults: span{0, 1}, upi: span{10, 35}, volatility: span{10, 22},
		distance: span{10, 30}, fpo: 0.5,
	}
	weakFarmer = profile{
		land: span{0.5, 2}, yield: span{1.5, 2.5}, ndvi: span{0.2, 0.45}, trend: span{-0.15, 0},
		rain: span{25, 50}, defaults: span{1, 3}, upi: span{0, 10}, volatility: span{20, 30},
		distance: span{30, 50}, fpo: 0.1,
	}
)

var crops = []string{"rice", "wheat", "cotton", "maize", "millet"}

// generator builds synthetic batch items. It is not safe for concurrent use.
type generator struct {
	rng *rand.Rand
}

func newGenerator(seed uint64) *generator {
	return &generator{rng: rand.New(rand.NewPCG(seed, seed^seedMix))}
}

// farmers returns n items with unique farmer and request IDs.
func (g *generator) farmers(n int) []model.BatchItem {
	items := make([]model.BatchItem, n)
	for i := range items {
		items[i] = model.BatchItem{
			RequestID: uuid.NewString(),
			FarmerID:  "F-" + uuid.NewString(),
			Features:  g.attributes(),
		}
	}
	return items
}

// attributes draws one farmer. One in eight is sparse, carrying only a few
// attributes so that midpoint imputation is exercised too.
func (g *generator) attributes() features.Raw {
	var p profile
	switch g.rng.IntN(4) {
	case 0:
		p = strongFarmer
	case 1:
		p = weakFarmer
	default:
		p = averageFarmer
	}

	rain := g.between(p.rain)
	if g.rng.IntN(2) == 0 {
		rain = -rain
	}
	raw := features.Raw{
		string(features.LandArea):              types.Round(g.between(p.land), 2),
		string(features.CropType):              crops[g.rng.IntN(len(crops))],
		string(features.LastYearYieldEst):      types.Round(g.between(p.yield), 2),
		string(features.NDVIMean):              types.Round(g.between(p.ndvi), 3),
		string(features.NDVITrend):             types.Round(g.between(p.trend), 3),
		string(features.RainfallAnomaly3Mo):    types.Round(rain, 1),
		string(features.PastKCCDefaults):       int(math.Round(g.between(p.defaults))),
		string(features.UPITxnFreq):            int(math.Round(g.between(p.upi))),
		string(features.MarketPriceVolatility): types.Round(g.between(p.volatility), 1),
		string(features.FPOMembershipFlag):     g.rng.Float64() < p.fpo,
		string(features.DistanceToMandiKm):     types.Round(g.between(p.distance), 1),
	}
	if g.rng.IntN(8) == 0 {
		return features.Raw{
			string(features.NDVIMean):   raw[string(features.NDVIMean)],
			string(features.CropType):   raw[string(features.CropType)],
			string(features.UPITxnFreq): raw[string(features.UPITxnFreq)],
		}
	}
	return raw
}

func (g *generator) between(s span) float64 {
	return s.lo + g.rng.Float64()*(s.hi-s.lo)
}
