package marketdata

import "sort"

// SectorPriors are the ranges placeholder data is drawn from and the bounds
// the CLI suggests for each sector.
type SectorPriors struct {
	Sector              string     `json:"sector"`
	RoyaltyRangePct     [2]float64 `json:"royalty_range_pct"`
	CAGRRangePct        [2]float64 `json:"cagr_range_pct"`
	DiscountRangePct    [2]float64 `json:"discount_range_pct"`
	MarketSizeRangeM    [2]float64 `json:"market_size_range_m"`
	PenetrationRangePct [2]float64 `json:"penetration_range_pct"`
	RoyaltyTermYears    [2]int     `json:"royalty_term_years"`
	TypicalDealType     string     `json:"typical_deal_type"`
}

var DefaultPriors = map[string]SectorPriors{
	"software": {
		Sector:              "software",
		RoyaltyRangePct:     [2]float64{1.0, 5.0},
		CAGRRangePct:        [2]float64{8.0, 18.0},
		DiscountRangePct:    [2]float64{8.0, 12.0},
		MarketSizeRangeM:    [2]float64{200, 5000},
		PenetrationRangePct: [2]float64{1.0, 15.0},
		RoyaltyTermYears:    [2]int{5, 15},
		TypicalDealType:     "non-exclusive",
	},
	"biotech_therapeutic": {
		Sector:              "biotech_therapeutic",
		RoyaltyRangePct:     [2]float64{3.0, 8.0},
		CAGRRangePct:        [2]float64{4.0, 12.0},
		DiscountRangePct:    [2]float64{10.0, 15.0},
		MarketSizeRangeM:    [2]float64{500, 20000},
		PenetrationRangePct: [2]float64{2.0, 20.0},
		RoyaltyTermYears:    [2]int{10, 20},
		TypicalDealType:     "exclusive",
	},
	"biotech_diagnostic": {
		Sector:              "biotech_diagnostic",
		RoyaltyRangePct:     [2]float64{3.0, 7.0},
		CAGRRangePct:        [2]float64{5.0, 10.0},
		DiscountRangePct:    [2]float64{9.0, 13.0},
		MarketSizeRangeM:    [2]float64{200, 8000},
		PenetrationRangePct: [2]float64{2.0, 15.0},
		RoyaltyTermYears:    [2]int{8, 17},
		TypicalDealType:     "exclusive",
	},
	"medical_device": {
		Sector:              "medical_device",
		RoyaltyRangePct:     [2]float64{3.0, 7.0},
		CAGRRangePct:        [2]float64{4.0, 9.0},
		DiscountRangePct:    [2]float64{9.0, 13.0},
		MarketSizeRangeM:    [2]float64{300, 10000},
		PenetrationRangePct: [2]float64{2.0, 15.0},
		RoyaltyTermYears:    [2]int{8, 17},
		TypicalDealType:     "exclusive",
	},
	"semiconductor": {
		Sector:              "semiconductor",
		RoyaltyRangePct:     [2]float64{1.0, 4.0},
		CAGRRangePct:        [2]float64{5.0, 12.0},
		DiscountRangePct:    [2]float64{8.0, 12.0},
		MarketSizeRangeM:    [2]float64{1000, 50000},
		PenetrationRangePct: [2]float64{1.0, 10.0},
		RoyaltyTermYears:    [2]int{8, 17},
		TypicalDealType:     "exclusive",
	},
	"materials": {
		Sector:              "materials",
		RoyaltyRangePct:     [2]float64{2.0, 5.0},
		CAGRRangePct:        [2]float64{3.0, 8.0},
		DiscountRangePct:    [2]float64{8.0, 12.0},
		MarketSizeRangeM:    [2]float64{100, 5000},
		PenetrationRangePct: [2]float64{2.0, 15.0},
		RoyaltyTermYears:    [2]int{8, 17},
		TypicalDealType:     "exclusive",
	},
	"clean_energy": {
		Sector:              "clean_energy",
		RoyaltyRangePct:     [2]float64{2.0, 6.0},
		CAGRRangePct:        [2]float64{8.0, 20.0},
		DiscountRangePct:    [2]float64{9.0, 14.0},
		MarketSizeRangeM:    [2]float64{500, 30000},
		PenetrationRangePct: [2]float64{1.0, 10.0},
		RoyaltyTermYears:    [2]int{10, 20},
		TypicalDealType:     "exclusive",
	},
	"mechanical_engineering": {
		Sector:              "mechanical_engineering",
		RoyaltyRangePct:     [2]float64{2.0, 5.0},
		CAGRRangePct:        [2]float64{2.0, 7.0},
		DiscountRangePct:    [2]float64{8.0, 12.0},
		MarketSizeRangeM:    [2]float64{100, 5000},
		PenetrationRangePct: [2]float64{2.0, 15.0},
		RoyaltyTermYears:    [2]int{8, 17},
		TypicalDealType:     "exclusive",
	},
	"default": {
		Sector:              "default",
		RoyaltyRangePct:     [2]float64{2.0, 5.0},
		CAGRRangePct:        [2]float64{1.0, 20.0},
		DiscountRangePct:    [2]float64{5.0, 15.0},
		MarketSizeRangeM:    [2]float64{100, 5000},
		PenetrationRangePct: [2]float64{5.0, 20.0},
		RoyaltyTermYears:    [2]int{8, 17},
		TypicalDealType:     "exclusive",
	},
}

func PriorForSector(sector string) SectorPriors {
	if p, ok := DefaultPriors[sector]; ok {
		return p
	}
	return DefaultPriors["default"]
}

func SectorNames() []string {
	out := make([]string, 0, len(DefaultPriors))
	for name := range DefaultPriors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
