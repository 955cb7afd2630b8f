package royalty

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleParams() Params {
	return Params{
		RoyaltyRatePct:  5,
		EntryYear:       2026,
		TermYears:       10,
		MarketSizeM:     500,
		CAGRPct:         6,
		PenetrationMode: ModeConstant,
		PenetrationPct:  10,
	}
}

func TestProjectSingleYearKnownValue(t *testing.T) {
	p := sampleParams()
	p.TermYears = 1

	res, err := Project(p, RefinedCurve())
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, 2026, row.Year)
	assert.InDelta(t, 530.0, row.MarketSizeM, 1e-9)
	assert.InDelta(t, 53.0, row.PenetratedMarketM, 1e-9)
	assert.InDelta(t, 2.65, row.AnnualRoyaltyM, 1e-9)
	assert.InDelta(t, 2_650_000.0, res.TotalRoyaltyUSD, 1e-6)
	assert.InDelta(t, 2.65, res.TotalRoyaltyM(), 1e-9)
	assert.Equal(t, ClassBelowThreshold, res.Classification)
	assert.Nil(t, res.DiscountedRoyaltyUSD)
}

func TestProjectRowsAreContiguousYears(t *testing.T) {
	for _, term := range []int{1, 2, 9, 20, 35} {
		p := sampleParams()
		p.TermYears = term
		res, err := Project(p, RefinedCurve())
		require.NoError(t, err)
		require.Len(t, res.Rows, term)
		for i, row := range res.Rows {
			assert.Equal(t, p.EntryYear+i, row.Year)
		}
	}
}

func TestProjectConstantPenetrationRatio(t *testing.T) {
	p := sampleParams()
	p.PenetrationPct = 35
	res, err := Project(p, RefinedCurve())
	require.NoError(t, err)
	for _, row := range res.Rows {
		assert.InDelta(t, 0.35, row.PenetratedMarketM/row.MarketSizeM, 1e-12)
	}
}

func TestProjectCompoundsYearOverYear(t *testing.T) {
	p := sampleParams()
	p.TermYears = 20
	p.CAGRPct = 12.5
	res, err := Project(p, RefinedCurve())
	require.NoError(t, err)
	for i := 0; i < len(res.Rows)-1; i++ {
		want := res.Rows[i].MarketSizeM * 1.125
		assert.InEpsilon(t, want, res.Rows[i+1].MarketSizeM, 1e-12)
	}
}

func TestProjectTotalIsSumOfAnnualRoyalty(t *testing.T) {
	p := sampleParams()
	p.PenetrationMode = ModeShaped
	p.TermYears = 15
	res, err := Project(p, RefinedCurve())
	require.NoError(t, err)
	sum := 0.0
	for _, row := range res.Rows {
		sum += row.AnnualRoyaltyM
	}
	assert.InEpsilon(t, sum*1_000_000, res.TotalRoyaltyUSD, 1e-12)
}

func TestProjectFullPenetrationRoyaltyOnWholeMarket(t *testing.T) {
	p := sampleParams()
	p.PenetrationPct = 100
	res, err := Project(p, RefinedCurve())
	require.NoError(t, err)
	for _, row := range res.Rows {
		assert.InDelta(t, row.MarketSizeM, row.PenetratedMarketM, 1e-9)
		assert.InDelta(t, row.MarketSizeM*0.05, row.AnnualRoyaltyM, 1e-9)
	}
}

func TestProjectZeroDiscountEqualsTotal(t *testing.T) {
	p := sampleParams()
	p.DiscountRatePct = Float(0)
	res, err := Project(p, RefinedCurve())
	require.NoError(t, err)
	require.NotNil(t, res.DiscountedRoyaltyUSD)
	assert.Equal(t, res.TotalRoyaltyUSD, *res.DiscountedRoyaltyUSD)
}

func TestProjectDiscountedKnownValue(t *testing.T) {
	p := Params{
		RoyaltyRatePct:  10,
		EntryYear:       2030,
		TermYears:       3,
		MarketSizeM:     1,
		CAGRPct:         0,
		PenetrationMode: ModeConstant,
		PenetrationPct:  100,
		DiscountRatePct: Float(10),
	}
	res, err := Project(p, RefinedCurve())
	require.NoError(t, err)
	assert.InDelta(t, 300_000.0, res.TotalRoyaltyUSD, 1e-6)
	// 100000/1.1 + 100000/1.21 + 100000/1.331
	assert.InDelta(t, 248_685.2, *res.DiscountedRoyaltyUSD, 0.01)
}

func TestProjectDiscountNeverExceedsTotalForPositiveRate(t *testing.T) {
	p := sampleParams()
	p.DiscountRatePct = Float(8)
	res, err := Project(p, RefinedCurve())
	require.NoError(t, err)
	assert.Less(t, *res.DiscountedRoyaltyUSD, res.TotalRoyaltyUSD)
}

func TestProjectHighValueClassification(t *testing.T) {
	p := sampleParams()
	p.TermYears = 20
	p.PenetrationPct = 20
	res, err := Project(p, RefinedCurve())
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.TotalRoyaltyUSD, float64(HighValueThresholdUSD))
	assert.True(t, res.HighValue())
}

func TestClassifyThreshold(t *testing.T) {
	assert.Equal(t, ClassBelowThreshold, Classify(29_999_999))
	assert.Equal(t, ClassHighValue, Classify(30_000_000))
	assert.Equal(t, ClassHighValue, Classify(30_000_000.01))
	assert.Equal(t, ClassBelowThreshold, Classify(0))
}

func TestProjectRejectsInvalidParameters(t *testing.T) {
	cases := []struct {
		name  string
		mut   func(*Params)
		param string
	}{
		{name: "zero term", mut: func(p *Params) { p.TermYears = 0 }, param: "term_years"},
		{name: "negative term", mut: func(p *Params) { p.TermYears = -3 }, param: "term_years"},
		{name: "term too long", mut: func(p *Params) { p.TermYears = MaxTermYears + 1 }, param: "term_years"},
		{name: "zero market", mut: func(p *Params) { p.MarketSizeM = 0 }, param: "market_size_m"},
		{name: "negative market", mut: func(p *Params) { p.MarketSizeM = -1 }, param: "market_size_m"},
		{name: "zero rate", mut: func(p *Params) { p.RoyaltyRatePct = 0 }, param: "royalty_rate_pct"},
		{name: "penetration above 100", mut: func(p *Params) { p.PenetrationPct = 101 }, param: "penetration_pct"},
		{name: "negative penetration", mut: func(p *Params) { p.PenetrationPct = -1 }, param: "penetration_pct"},
		{name: "shaped zero initial", mut: func(p *Params) {
			p.PenetrationMode = ModeShaped
			p.PenetrationPct = 0
		}, param: "penetration_pct"},
		{name: "unknown mode", mut: func(p *Params) { p.PenetrationMode = "logistic" }, param: "penetration_mode"},
		{name: "cagr wipes market", mut: func(p *Params) { p.CAGRPct = -100 }, param: "cagr_pct"},
		{name: "bad discount", mut: func(p *Params) { p.DiscountRatePct = Float(-100) }, param: "discount_rate_pct"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := sampleParams()
			tc.mut(&p)
			res, err := Project(p, RefinedCurve())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidParameter))
			assert.Contains(t, InvalidParams(err), tc.param)
			assert.Empty(t, res.Rows)
		})
	}
}

func TestValidateReportsEveryInvalidParameter(t *testing.T) {
	p := sampleParams()
	p.TermYears = 0
	p.MarketSizeM = 0
	p.PenetrationPct = 150
	err := p.Validate()
	require.Error(t, err)
	assert.Equal(t, []string{"term_years", "market_size_m", "penetration_pct"}, InvalidParams(err))

	var pe *ParamError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "term_years", pe.Param)
	assert.Contains(t, err.Error(), "term_years=0")
}

func TestEmptyModeDefaultsToConstant(t *testing.T) {
	p := sampleParams()
	p.PenetrationMode = ""
	res, err := Project(p, RefinedCurve())
	require.NoError(t, err)
	assert.InDelta(t, 0.10, res.Rows[3].Penetration, 1e-12)
}

func TestProjectSequenceRejectsMismatchedSequence(t *testing.T) {
	p := sampleParams()
	_, err := ProjectSequence(p, Sequence{0.1, 0.2})
	require.ErrorIs(t, err, ErrInvalidParameter)

	seq := make(Sequence, p.TermYears)
	seq[4] = 1.2
	_, err = ProjectSequence(p, seq)
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Equal(t, []string{"penetration[4]"}, InvalidParams(err))
}

func TestProjectSequenceUsesSuppliedFractions(t *testing.T) {
	p := sampleParams()
	p.TermYears = 3
	res, err := ProjectSequence(p, Sequence{0, 0.5, 1})
	require.NoError(t, err)
	assert.Zero(t, res.Rows[0].AnnualRoyaltyM)
	assert.InDelta(t, res.Rows[1].MarketSizeM*0.5, res.Rows[1].PenetratedMarketM, 1e-9)
	assert.InDelta(t, res.Rows[2].MarketSizeM, res.Rows[2].PenetratedMarketM, 1e-9)
}

func TestProjectRejectsOverflowingResult(t *testing.T) {
	p := sampleParams()
	p.MarketSizeM = 1e300
	p.CAGRPct = 1000
	p.TermYears = 100

	_, err := Project(p, RefinedCurve())
	require.ErrorIs(t, err, ErrInvalidParameter)
	assert.Equal(t, []string{"market_size_m"}, InvalidParams(err))

	p.DiscountRatePct = Float(-99.9)
	p.MarketSizeM = 1e290
	p.CAGRPct = 0
	p.TermYears = 100
	_, err = Project(p, RefinedCurve())
	require.ErrorIs(t, err, ErrInvalidParameter)
}
