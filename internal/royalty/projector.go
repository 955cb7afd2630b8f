package royalty

import (
	"errors"
	"fmt"
	"math"
)

func (p Params) mode() PenetrationMode {
	if p.PenetrationMode == "" {
		return ModeConstant
	}
	return p.PenetrationMode
}

// Validate reports every invalid field at once; the returned error matches
// ErrInvalidParameter.
func (p Params) Validate() error {
	var errs []error
	if !finite(p.RoyaltyRatePct) || p.RoyaltyRatePct <= 0 || p.RoyaltyRatePct > 100 {
		errs = append(errs, invalid("royalty_rate_pct", p.RoyaltyRatePct, "must be in (0,100]"))
	}
	if p.TermYears < 1 || p.TermYears > MaxTermYears {
		errs = append(errs, invalid("term_years", p.TermYears, fmt.Sprintf("must be in [1,%d]", MaxTermYears)))
	}
	if !finite(p.MarketSizeM) || p.MarketSizeM <= 0 {
		errs = append(errs, invalid("market_size_m", p.MarketSizeM, "must be > 0"))
	}
	if !finite(p.CAGRPct) || p.CAGRPct <= -100 {
		errs = append(errs, invalid("cagr_pct", p.CAGRPct, "must be > -100"))
	}
	switch p.mode() {
	case ModeConstant:
		if !finite(p.PenetrationPct) || p.PenetrationPct < 0 || p.PenetrationPct > 100 {
			errs = append(errs, invalid("penetration_pct", p.PenetrationPct, "must be in [0,100]"))
		}
	case ModeShaped:
		if !finite(p.PenetrationPct) || p.PenetrationPct <= 0 || p.PenetrationPct > 100 {
			errs = append(errs, invalid("penetration_pct", p.PenetrationPct, "shaped initial must be in (0,100]"))
		}
	default:
		errs = append(errs, invalid("penetration_mode", p.PenetrationMode, "must be constant or shaped"))
	}
	if p.DiscountRatePct != nil {
		if d := *p.DiscountRatePct; !finite(d) || d <= -100 {
			errs = append(errs, invalid("discount_rate_pct", d, "must be > -100"))
		}
	}
	return errors.Join(errs...)
}

// Project validates p, builds its penetration sequence and runs the projection.
func Project(p Params, curve CurveConfig) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	seq, err := BuildSequence(p, curve)
	if err != nil {
		return Result{}, err
	}
	return ProjectSequence(p, seq)
}

// ProjectSequence compounds the market one year before each record, so the
// first row already reflects one year of growth. Arithmetic runs in dollars;
// rows are reported in millions.
func ProjectSequence(p Params, seq Sequence) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if len(seq) != p.TermYears {
		return Result{}, invalid("penetration", len(seq), fmt.Sprintf("sequence length must equal term_years=%d", p.TermYears))
	}
	for i, f := range seq {
		if !finite(f) || f < 0 || f > 1 {
			return Result{}, invalid(fmt.Sprintf("penetration[%d]", i), f, "fraction must be in [0,1]")
		}
	}

	growth := 1 + p.CAGRPct/100
	rate := p.RoyaltyRatePct / 100
	market := p.MarketSizeM * dollarsPerMillion

	var discount float64
	if p.DiscountRatePct != nil {
		discount = 1 + *p.DiscountRatePct/100
	}

	rows := make([]YearRecord, 0, p.TermYears)
	total := 0.0
	discounted := 0.0
	for i := 0; i < p.TermYears; i++ {
		market *= growth
		penetrated := market * seq[i]
		annual := penetrated * rate
		total += annual
		if p.DiscountRatePct != nil {
			discounted += annual / math.Pow(discount, float64(i+1))
		}
		rows = append(rows, YearRecord{
			Year:              p.EntryYear + i,
			Penetration:       seq[i],
			MarketSizeM:       market / dollarsPerMillion,
			PenetratedMarketM: penetrated / dollarsPerMillion,
			AnnualRoyaltyM:    annual / dollarsPerMillion,
		})
	}

	if !finite(total) || !finite(discounted) {
		return Result{}, invalid("market_size_m", p.MarketSizeM,
			fmt.Sprintf("projection overflows with cagr_pct=%v over %d years", p.CAGRPct, p.TermYears))
	}

	out := Result{
		Rows:            rows,
		TotalRoyaltyUSD: total,
		Classification:  Classify(total),
	}
	if p.DiscountRatePct != nil {
		out.DiscountedRoyaltyUSD = &discounted
	}
	return out, nil
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
