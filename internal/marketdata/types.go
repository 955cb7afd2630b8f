package marketdata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrDataUnavailable marks a lookup that produced no usable data. Callers
// recover from it with a fallback source; it never fails a projection.
var ErrDataUnavailable = errors.New("market data unavailable")

type Provenance string

const (
	ProvenanceLLM         Provenance = "LLM_LOOKUP"
	ProvenanceStatic      Provenance = "SUPPLIED"
	ProvenancePlaceholder Provenance = "PLACEHOLDER"
)

// MarketData are best-effort inputs for a projection. Placeholder data is
// random and must not be presented as meaningful.
type MarketData struct {
	Product         string     `json:"product"`
	Sector          string     `json:"sector"`
	MarketSizeM     float64    `json:"market_size_m"`
	CAGRPct         float64    `json:"cagr_pct"`
	DiscountRatePct float64    `json:"discount_rate_pct"`
	Competitors     []string   `json:"competitors"`
	Provenance      Provenance `json:"provenance"`
	Notes           string     `json:"notes,omitempty"`
}

func (m MarketData) Placeholder() bool { return m.Provenance == ProvenancePlaceholder }

// Validate checks that m can feed a projection.
func (m MarketData) Validate() error {
	var problems []string
	if math.IsNaN(m.MarketSizeM) || m.MarketSizeM <= 0 {
		problems = append(problems, "market_size_m must be > 0")
	}
	if math.IsNaN(m.CAGRPct) || m.CAGRPct <= -100 || m.CAGRPct > 100 {
		problems = append(problems, "cagr_pct must be in (-100,100]")
	}
	if math.IsNaN(m.DiscountRatePct) || m.DiscountRatePct < 0 || m.DiscountRatePct > 100 {
		problems = append(problems, "discount_rate_pct must be in [0,100]")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

type Source interface {
	Lookup(ctx context.Context, product string) (MarketData, error)
}

// SectorSource is a Source whose answer depends on a sector hint.
type SectorSource interface {
	Source
	LookupInSector(ctx context.Context, product, sector string) (MarketData, error)
}

// LookupInSector passes sector to src when it understands one and falls back
// to a plain Lookup otherwise. An empty sector keeps the source's own.
func LookupInSector(ctx context.Context, src Source, product, sector string) (MarketData, error) {
	if ss, ok := src.(SectorSource); ok && strings.TrimSpace(sector) != "" {
		return ss.LookupInSector(ctx, product, strings.TrimSpace(sector))
	}
	return src.Lookup(ctx, product)
}

// StaticSource returns explicitly supplied data for every product.
type StaticSource struct {
	Data MarketData
}

func (s StaticSource) Lookup(_ context.Context, product string) (MarketData, error) {
	out := s.Data
	out.Product = product
	out.Competitors = append([]string(nil), s.Data.Competitors...)
	if out.Provenance == "" {
		out.Provenance = ProvenanceStatic
	}
	if err := out.Validate(); err != nil {
		return MarketData{}, fmt.Errorf("%w: %v", ErrDataUnavailable, err)
	}
	return out, nil
}
