package marketdata

import (
	"context"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholderSourceDrawsFromSectorPriors(t *testing.T) {
	src := NewPlaceholderSource("semiconductor", rand.New(rand.NewPCG(1, 2)))
	pr := PriorForSector("semiconductor")
	for i := 0; i < 50; i++ {
		data, err := src.Lookup(context.Background(), "Chip")
		require.NoError(t, err)
		assert.Equal(t, "Chip", data.Product)
		assert.Equal(t, "semiconductor", data.Sector)
		assert.True(t, data.Placeholder())
		assert.GreaterOrEqual(t, data.MarketSizeM, pr.MarketSizeRangeM[0])
		assert.LessOrEqual(t, data.MarketSizeM, pr.MarketSizeRangeM[1])
		assert.GreaterOrEqual(t, data.CAGRPct, pr.CAGRRangePct[0])
		assert.LessOrEqual(t, data.CAGRPct, pr.CAGRRangePct[1])
		assert.GreaterOrEqual(t, data.DiscountRatePct, pr.DiscountRangePct[0])
		assert.LessOrEqual(t, data.DiscountRatePct, pr.DiscountRangePct[1])
		assert.GreaterOrEqual(t, len(data.Competitors), 2)
		assert.LessOrEqual(t, len(data.Competitors), 4)
		require.NoError(t, data.Validate())
	}
}

func TestPlaceholderSourceIsDeterministicForSeed(t *testing.T) {
	a, err := NewPlaceholderSource("software", rand.New(rand.NewPCG(7, 7))).Lookup(context.Background(), "x")
	require.NoError(t, err)
	b, err := NewPlaceholderSource("software", rand.New(rand.NewPCG(7, 7))).Lookup(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestPlaceholderSourceUnknownSectorUsesDefault(t *testing.T) {
	data, err := NewPlaceholderSource("astrology", nil).Lookup(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "default", data.Sector)
	assert.Contains(t, data.Notes, "default")
}

func TestSectorNamesSorted(t *testing.T) {
	names := SectorNames()
	require.Len(t, names, len(DefaultPriors))
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "default")
}

func TestPlaceholderSourceLookupInSectorOverridesDefault(t *testing.T) {
	src := NewPlaceholderSource("software", rand.New(rand.NewPCG(3, 4)))
	pr := PriorForSector("clean_energy")
	data, err := src.LookupInSector(context.Background(), "Turbine", "clean_energy")
	require.NoError(t, err)
	assert.Equal(t, "clean_energy", data.Sector)
	assert.GreaterOrEqual(t, data.MarketSizeM, pr.MarketSizeRangeM[0])
	assert.LessOrEqual(t, data.MarketSizeM, pr.MarketSizeRangeM[1])
}
