package marketdata

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"
)

var placeholderCompetitors = []string{
	"Incumbent Corp",
	"Emerging Labs",
	"Global Industries",
	"Regional Challenger",
	"Platform Holdings",
	"University Spinout",
}

// PlaceholderSource draws random values from the sector priors. It stands in
// when no real data is reachable and tags its output as placeholder.
type PlaceholderSource struct {
	Sector string

	mu  sync.Mutex
	rng *rand.Rand
}

func NewPlaceholderSource(sector string, rng *rand.Rand) *PlaceholderSource {
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &PlaceholderSource{Sector: sector, rng: rng}
}

func (s *PlaceholderSource) Lookup(ctx context.Context, product string) (MarketData, error) {
	return s.LookupInSector(ctx, product, s.Sector)
}

// LookupInSector draws from the priors of sector instead of s.Sector.
func (s *PlaceholderSource) LookupInSector(_ context.Context, product, sector string) (MarketData, error) {
	pr := PriorForSector(sector)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 2 + s.rng.IntN(3)
	perm := s.rng.Perm(len(placeholderCompetitors))
	competitors := make([]string, 0, n)
	for _, i := range perm[:n] {
		competitors = append(competitors, placeholderCompetitors[i])
	}

	return MarketData{
		Product:         product,
		Sector:          pr.Sector,
		MarketSizeM:     math.Round(s.uniform(pr.MarketSizeRangeM)),
		CAGRPct:         round1(s.uniform(pr.CAGRRangePct)),
		DiscountRatePct: round1(s.uniform(pr.DiscountRangePct)),
		Competitors:     competitors,
		Provenance:      ProvenancePlaceholder,
		Notes:           fmt.Sprintf("randomized placeholder from %s sector priors", pr.Sector),
	}, nil
}

func (s *PlaceholderSource) uniform(r [2]float64) float64 {
	return r[0] + s.rng.Float64()*(r[1]-r[0])
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
