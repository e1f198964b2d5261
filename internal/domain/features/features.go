// Package features maps a farmer's raw attribute bag onto the fixed-order,
// normalized feature vector shared by every scoring path.
//
// The order declared in Order is load-bearing: weight tables, model artifacts
// and attribution vectors are all indexed by it.
package features

// Name identifies one scoring feature.
type Name string

// Feature names as they appear in raw attribute bags and model artifacts.
const (
	LandArea              Name = "land_area"
	CropType              Name = "crop_type"
	LastYearYieldEst      Name = "last_year_yield_est"
	NDVIMean              Name = "ndvi_mean"
	NDVITrend             Name = "ndvi_trend"
	RainfallAnomaly3Mo    Name = "rainfall_anomaly_3mo"
	PastKCCDefaults       Name = "past_kcc_defaults"
	UPITxnFreq            Name = "upi_txn_freq"
	MarketPriceVolatility Name = "market_price_volatility"
	FPOMembershipFlag     Name = "fpo_membership_flag"
	DistanceToMandiKm     Name = "distance_to_mandi_km"
)

// Count is the fixed length of every feature vector.
const Count = 11

// Order is the canonical feature order.
var Order = [Count]Name{
	LandArea,
	CropType,
	LastYearYieldEst,
	NDVIMean,
	NDVITrend,
	RainfallAnomaly3Mo,
	PastKCCDefaults,
	UPITxnFreq,
	MarketPriceVolatility,
	FPOMembershipFlag,
	DistanceToMandiKm,
}

// Kind selects the transform applied to a raw value.
type Kind int

const (
	// KindLinear scales [Lo, Hi] onto [0, 1].
	KindLinear Kind = iota
	// KindInverseLinear scales [Lo, Hi] onto [1, 0]; higher raw values are worse.
	KindInverseLinear
	// KindCategorical looks the value up in a table.
	KindCategorical
	// KindAbsDeviation maps |x| in [0, Hi] onto [1, 0]; values near zero are best.
	KindAbsDeviation
	// KindBinary passes a 0/1 flag through.
	KindBinary
)

// Domain is the declared raw range of a numeric feature.
type Domain struct {
	Lo float64
	Hi float64
}

// Mid returns the midpoint of the domain.
func (d Domain) Mid() float64 { return (d.Lo + d.Hi) / 2 }

// Spec describes how one feature is read and normalized.
type Spec struct {
	Name   Name
	Label  string
	Kind   Kind
	Domain Domain
}

// Default categorical encoding for crop types not in CropEncoding.
const DefaultCropEncoding = 0.5

// CropEncoding maps a crop name to its normalized creditworthiness prior.
var CropEncoding = map[string]float64{
	"wheat":  0.9,
	"rice":   0.8,
	"maize":  0.75,
	"cotton": 0.7,
}

var specs = [Count]Spec{
	{Name: LandArea, Label: "Farm size", Kind: KindLinear, Domain: Domain{Lo: 0.5, Hi: 10}},
	{Name: CropType, Label: "Crop category", Kind: KindCategorical, Domain: Domain{Lo: 0, Hi: 1}},
	// Yield is compared per hectare (tonnes/ha) whenever a land area is known.
	{Name: LastYearYieldEst, Label: "Previous yield", Kind: KindLinear, Domain: Domain{Lo: 1.5, Hi: 5}},
	{Name: NDVIMean, Label: "Crop health (satellite)", Kind: KindLinear, Domain: Domain{Lo: 0.2, Hi: 0.9}},
	{Name: NDVITrend, Label: "Crop vigor trend", Kind: KindLinear, Domain: Domain{Lo: -0.15, Hi: 0.15}},
	// Domain is the absolute deviation in mm; the sign only affects wording.
	{Name: RainfallAnomaly3Mo, Label: "Rainfall pattern", Kind: KindAbsDeviation, Domain: Domain{Lo: 0, Hi: 50}},
	{Name: PastKCCDefaults, Label: "Credit history", Kind: KindInverseLinear, Domain: Domain{Lo: 0, Hi: 3}},
	{Name: UPITxnFreq, Label: "Digital transactions", Kind: KindLinear, Domain: Domain{Lo: 0, Hi: 50}},
	{Name: MarketPriceVolatility, Label: "Price stability", Kind: KindInverseLinear, Domain: Domain{Lo: 5, Hi: 30}},
	{Name: FPOMembershipFlag, Label: "FPO membership", Kind: KindBinary, Domain: Domain{Lo: 0, Hi: 1}},
	{Name: DistanceToMandiKm, Label: "Market access", Kind: KindInverseLinear, Domain: Domain{Lo: 2, Hi: 50}},
}

// Specs returns the per-feature specs in canonical order.
func Specs() [Count]Spec { return specs }

// SpecOf returns the spec at index i of Order.
func SpecOf(i int) Spec { return specs[i] }

// Index returns the position of name in Order.
func Index(name Name) (int, bool) {
	for i, n := range Order {
		if n == name {
			return i, true
		}
	}
	return -1, false
}

// Label returns the human-readable label for name, or the raw name when unknown.
func Label(name Name) string {
	if i, ok := Index(name); ok {
		return specs[i].Label
	}
	return string(name)
}
