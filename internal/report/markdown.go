package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/joelkehle/techtransfer-royalty/internal/analysis"
	"github.com/joelkehle/techtransfer-royalty/internal/royalty"
)

var scenarioOrder = []string{"pessimistic", "base", "optimistic"}

var assumptionLabels = map[string]string{
	"royalty_rate_pct": "Royalty rate",
	"cagr_pct":         "Market CAGR",
	"penetration_pct":  "Market penetration",
	"market_size_m":    "Initial market size",
	"term_years":       "Royalty term",
}

// BuildMarkdown renders the full report for a.
func BuildMarkdown(a analysis.Analysis) string {
	var b strings.Builder
	p := a.Params
	res := a.Result

	fmt.Fprintf(&b, "# Royalty Projection Report\n\n")
	fmt.Fprintf(&b, "- Projection ID: %s\n", a.ID)
	if a.CaseID != "" {
		fmt.Fprintf(&b, "- Case ID: %s\n", sanitize(a.CaseID))
	}
	if a.Product != "" {
		fmt.Fprintf(&b, "- Product: %s\n", sanitize(a.Product))
	}
	fmt.Fprintf(&b, "- Date: %s\n", a.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&b, "- Penetration model: %s\n\n", penetrationModel(a))
	fmt.Fprintf(&b, "%s\n\n", a.Disclaimer)

	// --- Summary ---
	fmt.Fprintf(&b, "## Summary\n\n")
	fmt.Fprintf(&b, "> **%s**\n\n", Banner(res.Classification))
	last := p.EntryYear + p.TermYears - 1
	fmt.Fprintf(&b, "- Total royalty over %d years (%d-%d): **%s** (%s)\n",
		p.TermYears, p.EntryYear, last, FormatMillions(res.TotalRoyaltyM()), FormatUSD(res.TotalRoyaltyUSD))
	if res.DiscountedRoyaltyUSD != nil && p.DiscountRatePct != nil {
		fmt.Fprintf(&b, "- Discounted at %s: %s (%s)\n",
			FormatPercent(*p.DiscountRatePct), FormatMillions(*res.DiscountedRoyaltyUSD/1e6), FormatUSD(*res.DiscountedRoyaltyUSD))
	}
	fmt.Fprintf(&b, "- Classification: `%s` (threshold %s)\n\n", res.Classification, FormatUSD(royalty.HighValueThresholdUSD))

	// --- Assumptions ---
	fmt.Fprintf(&b, "## Assumptions\n\n")
	fmt.Fprintf(&b, "| Assumption | Value |\n|------------|-------|\n")
	fmt.Fprintf(&b, "| Royalty rate | %s |\n", FormatPercent(p.RoyaltyRatePct))
	fmt.Fprintf(&b, "| Market entry year | %d |\n", p.EntryYear)
	fmt.Fprintf(&b, "| Royalty term | %d years |\n", p.TermYears)
	fmt.Fprintf(&b, "| Initial market size | %s |\n", FormatMillions(p.MarketSizeM))
	fmt.Fprintf(&b, "| Market CAGR | %s |\n", FormatPercent(p.CAGRPct))
	if a.Custom {
		fmt.Fprintf(&b, "| Market penetration | custom sequence |\n")
	} else {
		fmt.Fprintf(&b, "| Market penetration | %s |\n", FormatPercent(p.PenetrationPct))
	}
	if p.DiscountRatePct != nil {
		fmt.Fprintf(&b, "| Discount rate | %s |\n", FormatPercent(*p.DiscountRatePct))
	}
	fmt.Fprintf(&b, "\nThe market compounds by the CAGR once before each year is recorded, so the first row "+
		"already includes one year of growth.\n\n")

	// --- Annual breakdown ---
	fmt.Fprintf(&b, "## Annual Breakdown\n\n")
	fmt.Fprintf(&b, "| Year | Market Size | Penetration | Penetrated Market | Annual Royalty |\n")
	fmt.Fprintf(&b, "|------|-------------|-------------|-------------------|----------------|\n")
	for _, r := range res.Rows {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | **%s** |\n",
			r.Year, FormatMillions(r.MarketSizeM), FormatFraction(r.Penetration),
			FormatMillions(r.PenetratedMarketM), FormatMillions(r.AnnualRoyaltyM))
	}
	fmt.Fprintf(&b, "| **Total** | | | | **%s** |\n\n", FormatMillions(res.TotalRoyaltyM()))

	if a.CurveProfile != "" {
		fmt.Fprintf(&b, "## Penetration Curve\n\n")
		fmt.Fprintf(&b, "Adoption follows the `%s` profile: slow uptake, growth, a peak plateau, then decline.\n\n", a.CurveProfile)
		fmt.Fprintf(&b, "| Year | Phase | Penetration |\n|------|-------|-------------|\n")
		for i, f := range a.Penetration {
			fmt.Fprintf(&b, "| %d | %s | %s |\n", p.EntryYear+i, royalty.PhaseAt(i), FormatFraction(f))
		}
		fmt.Fprintf(&b, "\n")
	}

	if len(a.Sensitivity) > 0 {
		fmt.Fprintf(&b, "## Sensitivity\n\n")
		fmt.Fprintf(&b, "Each assumption is moved between its low and high bound while the others stay at base.\n\n")
		fmt.Fprintf(&b, "| Rank | Assumption | Range | Swing in Total |\n|------|------------|-------|----------------|\n")
		for i, d := range a.Sensitivity {
			fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", i+1, label(d.Assumption), rangeText(a.Ranges, d.Assumption), FormatUSD(d.TotalDeltaUSD))
		}
		fmt.Fprintf(&b, "\n")
	}

	if len(a.Scenarios) > 0 {
		fmt.Fprintf(&b, "## Scenarios\n\n")
		fmt.Fprintf(&b, "| Scenario | Total Royalty | Discounted | Classification |\n|----------|---------------|------------|----------------|\n")
		for _, name := range scenarioOrder {
			s, ok := a.Scenarios[name]
			if !ok {
				continue
			}
			disc := "n/a"
			if s.DiscountedRoyaltyUSD != nil {
				disc = FormatUSD(*s.DiscountedRoyaltyUSD)
			}
			fmt.Fprintf(&b, "| %s | %s | %s | `%s` |\n", name, FormatUSD(s.TotalRoyaltyUSD), disc, s.Classification)
		}
		fmt.Fprintf(&b, "\n")
	}

	if md := a.MarketData; md != nil {
		fmt.Fprintf(&b, "## Market Data\n\n")
		if md.Placeholder() {
			fmt.Fprintf(&b, "> WARNING: No market data source was reachable. The values below are randomized placeholders "+
				"drawn from sector priors and must not be relied on.\n\n")
		}
		fmt.Fprintf(&b, "- Source: `%s`\n", md.Provenance)
		if md.Sector != "" {
			fmt.Fprintf(&b, "- Sector: %s\n", sanitize(md.Sector))
		}
		fmt.Fprintf(&b, "- Market size: %s\n", FormatMillions(md.MarketSizeM))
		fmt.Fprintf(&b, "- CAGR: %s\n", FormatPercent(md.CAGRPct))
		fmt.Fprintf(&b, "- Discount rate: %s\n", FormatPercent(md.DiscountRatePct))
		if len(md.Competitors) > 0 {
			names := make([]string, len(md.Competitors))
			for i, c := range md.Competitors {
				names[i] = sanitize(c)
			}
			fmt.Fprintf(&b, "- Competitors: %s\n", strings.Join(names, ", "))
		}
		if md.Notes != "" {
			fmt.Fprintf(&b, "- Notes: %s\n", sanitize(md.Notes))
		}
		fmt.Fprintf(&b, "\n")
	}
	return b.String()
}

func penetrationModel(a analysis.Analysis) string {
	switch {
	case a.CurveProfile != "":
		return fmt.Sprintf("shaped (%s profile, starting at %s)", a.CurveProfile, FormatPercent(a.Params.PenetrationPct))
	case a.Custom:
		return "custom sequence"
	default:
		return fmt.Sprintf("constant at %s", FormatPercent(a.Params.PenetrationPct))
	}
}

func label(assumption string) string {
	if l, ok := assumptionLabels[assumption]; ok {
		return l
	}
	return assumption
}

func rangeText(r *royalty.Ranges, assumption string) string {
	if r == nil {
		return "-"
	}
	switch assumption {
	case "royalty_rate_pct":
		return FormatPercent(r.RoyaltyRatePct.Low) + " to " + FormatPercent(r.RoyaltyRatePct.High)
	case "cagr_pct":
		return FormatPercent(r.CAGRPct.Low) + " to " + FormatPercent(r.CAGRPct.High)
	case "penetration_pct":
		return FormatPercent(r.PenetrationPct.Low) + " to " + FormatPercent(r.PenetrationPct.High)
	case "market_size_m":
		return FormatMillions(r.MarketSizeM.Low) + " to " + FormatMillions(r.MarketSizeM.High)
	case "term_years":
		return fmt.Sprintf("%d to %d years", r.TermYears.Low, r.TermYears.High)
	default:
		return "-"
	}
}
