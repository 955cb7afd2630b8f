package analysis

import (
	"time"

	"github.com/joelkehle/techtransfer-royalty/internal/marketdata"
	"github.com/joelkehle/techtransfer-royalty/internal/royalty"
)

const Disclaimer = "This is a preliminary royalty projection, not a valuation or investment recommendation. " +
	"Results depend entirely on the assumptions entered and on market data that may be estimated or placeholder."

// Request is one analysis job. MarketSizeM and CAGRPct may be omitted when a
// product is named; they are then filled from market data. Penetration, when
// set, replaces the built curve with explicit yearly fractions. Sector is a
// hint passed to sources that understand one.
type Request struct {
	CaseID          string                  `json:"case_id,omitempty"`
	Product         string                  `json:"product,omitempty"`
	Sector          string                  `json:"sector,omitempty"`
	RoyaltyRatePct  float64                 `json:"royalty_rate_pct"`
	EntryYear       int                     `json:"entry_year"`
	TermYears       int                     `json:"term_years"`
	MarketSizeM     *float64                `json:"market_size_m,omitempty"`
	CAGRPct         *float64                `json:"cagr_pct,omitempty"`
	PenetrationMode royalty.PenetrationMode `json:"penetration_mode,omitempty"`
	PenetrationPct  float64                 `json:"penetration_pct"`
	Penetration     []float64               `json:"penetration,omitempty"`
	DiscountRatePct *float64                `json:"discount_rate_pct,omitempty"`
	CurveProfile    string                  `json:"curve_profile,omitempty"`
	LookupMarket    bool                    `json:"lookup_market_data,omitempty"`
	Ranges          *royalty.Ranges         `json:"ranges,omitempty"`
}

type Analysis struct {
	ID           string                            `json:"id"`
	CaseID       string                            `json:"case_id,omitempty"`
	Product      string                            `json:"product,omitempty"`
	CreatedAt    time.Time                         `json:"created_at"`
	Params       royalty.Params                    `json:"params"`
	CurveProfile string                            `json:"curve_profile,omitempty"`
	Penetration  royalty.Sequence                  `json:"penetration"`
	Custom       bool                              `json:"custom_penetration,omitempty"`
	Result       royalty.Result                    `json:"result"`
	Ranges       *royalty.Ranges                   `json:"ranges,omitempty"`
	Sensitivity  []royalty.SensitivityDriver       `json:"sensitivity,omitempty"`
	Scenarios    map[string]royalty.ScenarioOutput `json:"scenarios,omitempty"`
	MarketData   *marketdata.MarketData            `json:"market_data,omitempty"`
	Disclaimer   string                            `json:"disclaimer"`
}

// ProgressFn receives stage updates while an analysis runs.
type ProgressFn func(stage, message string)
