package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joelkehle/techtransfer-royalty/internal/analysis"
	"github.com/joelkehle/techtransfer-royalty/internal/report"
	"github.com/joelkehle/techtransfer-royalty/internal/royalty"
)

// Input bounds offered to interactive users. The engine itself accepts a
// wider domain.
var (
	rateBounds        = [2]float64{0.1, 20}
	termBounds        = [2]int{1, 35}
	minMarketM        = 1.0
	cagrBounds        = [2]float64{1, 20}
	penetrationBounds = [2]float64{1, 100}
)

type projectionFlags struct {
	rate        float64
	entryYear   int
	term        int
	market      float64
	cagr        float64
	mode        string
	penetration float64
	discount    float64
	product     string
	sector      string
	caseID      string
	lookup      bool
	sequence    []float64
}

func (f *projectionFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.Float64Var(&f.rate, "rate", 5, "royalty rate in percent")
	fs.IntVar(&f.entryYear, "entry-year", 2026, "first year of sales")
	fs.IntVar(&f.term, "term", 10, "royalty term in years")
	fs.Float64Var(&f.market, "market", 500, "initial market size in millions of USD")
	fs.Float64Var(&f.cagr, "cagr", 6, "market CAGR in percent")
	fs.StringVar(&f.mode, "mode", string(royalty.ModeShaped), "penetration mode (constant, shaped)")
	fs.Float64Var(&f.penetration, "penetration", 10, "market penetration in percent (initial value when shaped)")
	fs.Float64Var(&f.discount, "discount", 0, "discount rate in percent for a present value total")
	fs.StringVar(&f.product, "product", "", "product name used for market data lookup")
	fs.StringVar(&f.sector, "sector", "default", "sector for placeholder market data")
	fs.StringVar(&f.caseID, "case-id", "", "case identifier carried into the report")
	fs.BoolVar(&f.lookup, "lookup", false, "look up market data even when market and CAGR are given")
	fs.Float64SliceVar(&f.sequence, "sequence", nil, "explicit yearly penetration fractions, one per term year")
}

// request turns the flags into an analysis request. With a product named,
// market size and CAGR not set explicitly are left for market data.
func (f *projectionFlags) request(cmd *cobra.Command, profile string) (analysis.Request, error) {
	fs := cmd.Flags()
	req := analysis.Request{
		CaseID:          strings.TrimSpace(f.caseID),
		Product:         strings.TrimSpace(f.product),
		Sector:          f.sector,
		RoyaltyRatePct:  f.rate,
		EntryYear:       f.entryYear,
		TermYears:       f.term,
		PenetrationMode: royalty.PenetrationMode(strings.ToLower(strings.TrimSpace(f.mode))),
		PenetrationPct:  f.penetration,
		CurveProfile:    profile,
		LookupMarket:    f.lookup,
		Penetration:     f.sequence,
	}
	if req.Product == "" || fs.Changed("market") {
		req.MarketSizeM = royalty.Float(f.market)
	}
	if req.Product == "" || fs.Changed("cagr") {
		req.CAGRPct = royalty.Float(f.cagr)
	}
	if fs.Changed("discount") {
		req.DiscountRatePct = royalty.Float(f.discount)
	}
	if err := checkBounds(req); err != nil {
		return analysis.Request{}, err
	}
	return req, nil
}

func checkBounds(req analysis.Request) error {
	var errs []error
	outside := func(param string, value any, reason string) {
		errs = append(errs, &royalty.ParamError{Param: param, Value: value, Reason: reason})
	}
	if req.RoyaltyRatePct < rateBounds[0] || req.RoyaltyRatePct > rateBounds[1] {
		outside("royalty_rate_pct", req.RoyaltyRatePct, fmt.Sprintf("must be in [%g,%g]", rateBounds[0], rateBounds[1]))
	}
	if req.TermYears < termBounds[0] || req.TermYears > termBounds[1] {
		outside("term_years", req.TermYears, fmt.Sprintf("must be in [%d,%d]", termBounds[0], termBounds[1]))
	}
	if req.MarketSizeM != nil && *req.MarketSizeM < minMarketM {
		outside("market_size_m", *req.MarketSizeM, fmt.Sprintf("must be >= %g", minMarketM))
	}
	if req.CAGRPct != nil && (*req.CAGRPct < cagrBounds[0] || *req.CAGRPct > cagrBounds[1]) {
		outside("cagr_pct", *req.CAGRPct, fmt.Sprintf("must be in [%g,%g]", cagrBounds[0], cagrBounds[1]))
	}
	if req.PenetrationPct < penetrationBounds[0] || req.PenetrationPct > penetrationBounds[1] {
		outside("penetration_pct", req.PenetrationPct, fmt.Sprintf("must be in [%g,%g]", penetrationBounds[0], penetrationBounds[1]))
	}
	return errors.Join(errs...)
}

func (a *app) analyzer(sector string) *analysis.Analyzer {
	return analysis.New(a.profiles,
		analysis.WithSource(a.deps.NewSource(a.logger, sector)),
		analysis.WithLogger(a.logger),
		analysis.WithClock(a.deps.Now),
	)
}

func (a *app) projectCommand() *cobra.Command {
	flags := &projectionFlags{}
	var output string
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Run a royalty projection and print the yearly breakdown",
		Example: "  royalty project --rate 4 --market 1200 --cagr 8 --penetration 5 --term 12\n" +
			"  royalty project --product \"glucose patch\" --sector medical_device --output json",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req, err := flags.request(cmd, a.profile())
			if err != nil {
				return err
			}
			res, err := a.analyzer(req.Sector).Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch strings.ToLower(output) {
			case "", "table":
				return writeTable(out, res)
			case "json":
				return writeJSON(out, res)
			case "markdown", "md":
				_, err := io.WriteString(out, report.BuildMarkdown(res))
				return err
			default:
				return unknownOutput(output)
			}
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format (table, json, markdown)")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, a analysis.Analysis) error {
	res := a.Result
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tMARKET\tPENETRATION\tPENETRATED MARKET\tROYALTY")
	for _, row := range res.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
			row.Year,
			report.FormatMillions(row.MarketSizeM),
			report.FormatFraction(row.Penetration),
			report.FormatMillions(row.PenetratedMarketM),
			report.FormatMillions(row.AnnualRoyaltyM),
		)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(w, "\nTotal royalty: %s (%s)\n", report.FormatMillions(res.TotalRoyaltyM()), report.FormatUSD(res.TotalRoyaltyUSD))
	if res.DiscountedRoyaltyUSD != nil && a.Params.DiscountRatePct != nil {
		fmt.Fprintf(w, "Discounted at %s: %s\n", report.FormatPercent(*a.Params.DiscountRatePct), report.FormatUSD(*res.DiscountedRoyaltyUSD))
	}
	if md := a.MarketData; md != nil && md.Placeholder() {
		fmt.Fprintf(w, "WARNING: market inputs are randomized placeholder data for sector %s\n", md.Sector)
	}
	_, err := fmt.Fprintf(w, "%s\n", report.Banner(res.Classification))
	return err
}
