package royalty

import (
	"fmt"
	"math"
	"sort"
)

type Range struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

type IntRange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Ranges bound each driver for sensitivity and scenario analysis.
type Ranges struct {
	RoyaltyRatePct Range    `json:"royalty_rate_pct"`
	CAGRPct        Range    `json:"cagr_pct"`
	PenetrationPct Range    `json:"penetration_pct"`
	MarketSizeM    Range    `json:"market_size_m"`
	TermYears      IntRange `json:"term_years"`
}

type SensitivityDriver struct {
	Assumption    string  `json:"assumption"`
	TotalDeltaUSD float64 `json:"total_delta_usd"`
	Direction     string  `json:"direction"`
}

type ScenarioOutput struct {
	TotalRoyaltyUSD      float64        `json:"total_royalty_usd"`
	DiscountedRoyaltyUSD *float64       `json:"discounted_royalty_usd,omitempty"`
	Classification       Classification `json:"classification"`
}

// DefaultRanges spreads each driver around p: ±25% for rate, penetration and
// market size, ±2 points of CAGR and ±2 years of term.
func DefaultRanges(p Params) Ranges {
	lowPen := p.PenetrationPct * 0.75
	highPen := math.Min(100, p.PenetrationPct*1.25)
	return Ranges{
		RoyaltyRatePct: Range{Low: p.RoyaltyRatePct * 0.75, High: math.Min(100, p.RoyaltyRatePct*1.25)},
		CAGRPct:        Range{Low: math.Max(-99, p.CAGRPct-2), High: p.CAGRPct + 2},
		PenetrationPct: Range{Low: lowPen, High: highPen},
		MarketSizeM:    Range{Low: p.MarketSizeM * 0.75, High: p.MarketSizeM * 1.25},
		TermYears:      IntRange{Low: max(1, p.TermYears-2), High: min(MaxTermYears, p.TermYears+2)},
	}
}

// Scenarios evaluates all-low, base and all-high variants of p.
func Scenarios(p Params, curve CurveConfig, r Ranges) (map[string]ScenarioOutput, error) {
	pess := p
	pess.RoyaltyRatePct = r.RoyaltyRatePct.Low
	pess.CAGRPct = r.CAGRPct.Low
	pess.PenetrationPct = r.PenetrationPct.Low
	pess.MarketSizeM = r.MarketSizeM.Low
	pess.TermYears = r.TermYears.Low

	opt := p
	opt.RoyaltyRatePct = r.RoyaltyRatePct.High
	opt.CAGRPct = r.CAGRPct.High
	opt.PenetrationPct = r.PenetrationPct.High
	opt.MarketSizeM = r.MarketSizeM.High
	opt.TermYears = r.TermYears.High

	out := map[string]ScenarioOutput{}
	for name, in := range map[string]Params{"pessimistic": pess, "base": p, "optimistic": opt} {
		res, err := Project(in, curve)
		if err != nil {
			return nil, fmt.Errorf("%s scenario: %w", name, err)
		}
		out[name] = ScenarioOutput{
			TotalRoyaltyUSD:      res.TotalRoyaltyUSD,
			DiscountedRoyaltyUSD: res.DiscountedRoyaltyUSD,
			Classification:       res.Classification,
		}
	}
	return out, nil
}

// Sensitivity swings one driver at a time between its low and high bound and
// ranks drivers by the absolute change in total royalty.
func Sensitivity(p Params, curve CurveConfig, r Ranges) ([]SensitivityDriver, error) {
	type candidate struct {
		name      string
		set       func(*Params, bool)
		direction string
	}

	cands := []candidate{
		{name: "royalty_rate_pct", set: func(b *Params, high bool) {
			b.RoyaltyRatePct = pick(r.RoyaltyRatePct, high)
		}, direction: "Higher royalty rate increases total royalty"},
		{name: "cagr_pct", set: func(b *Params, high bool) {
			b.CAGRPct = pick(r.CAGRPct, high)
		}, direction: "Faster market growth increases total royalty"},
		{name: "penetration_pct", set: func(b *Params, high bool) {
			b.PenetrationPct = pick(r.PenetrationPct, high)
		}, direction: "Higher market penetration increases total royalty"},
		{name: "market_size_m", set: func(b *Params, high bool) {
			b.MarketSizeM = pick(r.MarketSizeM, high)
		}, direction: "Larger starting market increases total royalty"},
		{name: "term_years", set: func(b *Params, high bool) {
			if high {
				b.TermYears = r.TermYears.High
			} else {
				b.TermYears = r.TermYears.Low
			}
		}, direction: "Longer royalty term increases total royalty"},
	}

	out := make([]SensitivityDriver, 0, len(cands))
	for _, c := range cands {
		low, high := p, p
		c.set(&low, false)
		c.set(&high, true)
		resLow, err := Project(low, curve)
		if err != nil {
			return nil, fmt.Errorf("%s low: %w", c.name, err)
		}
		resHigh, err := Project(high, curve)
		if err != nil {
			return nil, fmt.Errorf("%s high: %w", c.name, err)
		}
		delta := math.Abs(resHigh.TotalRoyaltyUSD - resLow.TotalRoyaltyUSD)
		out = append(out, SensitivityDriver{
			Assumption:    c.name,
			TotalDeltaUSD: delta,
			Direction:     fmt.Sprintf("%s by $%.0f", c.direction, delta),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalDeltaUSD > out[j].TotalDeltaUSD })
	return out, nil
}

func pick(r Range, high bool) float64 {
	if high {
		return r.High
	}
	return r.Low
}
