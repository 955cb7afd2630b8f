package royalty

// HighValueThresholdUSD is the total royalty at or above which an opportunity
// is classified as a high-value opportunity (HVO).
const HighValueThresholdUSD = 30_000_000

const (
	dollarsPerMillion = 1_000_000
	MaxTermYears      = 100
)

type PenetrationMode string

const (
	ModeConstant PenetrationMode = "constant"
	ModeShaped   PenetrationMode = "shaped"
)

type Classification string

const (
	ClassHighValue      Classification = "HIGH_VALUE"
	ClassBelowThreshold Classification = "BELOW_THRESHOLD"
)

// Params are the scalar inputs of one projection. Percentages are expressed
// as 0-100, market size in millions of dollars.
type Params struct {
	RoyaltyRatePct  float64         `json:"royalty_rate_pct"`
	EntryYear       int             `json:"entry_year"`
	TermYears       int             `json:"term_years"`
	MarketSizeM     float64         `json:"market_size_m"`
	CAGRPct         float64         `json:"cagr_pct"`
	PenetrationMode PenetrationMode `json:"penetration_mode"`
	PenetrationPct  float64         `json:"penetration_pct"`
	DiscountRatePct *float64        `json:"discount_rate_pct,omitempty"`
}

// Sequence holds one penetration fraction in [0,1] per projection year.
type Sequence []float64

type YearRecord struct {
	Year              int     `json:"year"`
	Penetration       float64 `json:"penetration"`
	MarketSizeM       float64 `json:"market_size_m"`
	PenetratedMarketM float64 `json:"penetrated_market_m"`
	AnnualRoyaltyM    float64 `json:"annual_royalty_m"`
}

type Result struct {
	Rows                 []YearRecord   `json:"rows"`
	TotalRoyaltyUSD      float64        `json:"total_royalty_usd"`
	DiscountedRoyaltyUSD *float64       `json:"discounted_royalty_usd,omitempty"`
	Classification       Classification `json:"classification"`
}

func (r Result) TotalRoyaltyM() float64 { return r.TotalRoyaltyUSD / dollarsPerMillion }

func (r Result) HighValue() bool { return r.Classification == ClassHighValue }

// Classify is a pure function of the undiscounted total in dollars.
func Classify(totalUSD float64) Classification {
	if totalUSD >= HighValueThresholdUSD {
		return ClassHighValue
	}
	return ClassBelowThreshold
}

func Float(v float64) *float64 { return &v }
