package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joelkehle/techtransfer-royalty/internal/marketdata"
	"github.com/joelkehle/techtransfer-royalty/internal/report"
)

func (a *app) lookupCommand() *cobra.Command {
	var (
		sector string
		output string
	)
	cmd := &cobra.Command{
		Use:   "lookup <product>",
		Short: "Look up market size, CAGR and discount rate for a product",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			product := strings.Join(args, " ")
			md, err := a.deps.NewSource(a.logger, sector).Lookup(cmd.Context(), product)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			switch strings.ToLower(output) {
			case "", "text":
				return writeMarketData(cmd, md)
			case "json":
				return writeJSON(w, md)
			default:
				return fmt.Errorf("unknown output %q (want text or json)", output)
			}
		},
	}
	cmd.Flags().StringVar(&sector, "sector", "default", "sector used when placeholder data is returned")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format (text, json)")
	return cmd
}

func writeMarketData(cmd *cobra.Command, md marketdata.MarketData) error {
	w := cmd.OutOrStdout()
	if md.Placeholder() {
		fmt.Fprintln(w, "WARNING: randomized placeholder data, not a market estimate")
	}
	fmt.Fprintf(w, "Product:       %s\n", md.Product)
	fmt.Fprintf(w, "Sector:        %s\n", md.Sector)
	fmt.Fprintf(w, "Market size:   %s\n", report.FormatMillions(md.MarketSizeM))
	fmt.Fprintf(w, "CAGR:          %s\n", report.FormatPercent(md.CAGRPct))
	fmt.Fprintf(w, "Discount rate: %s\n", report.FormatPercent(md.DiscountRatePct))
	if len(md.Competitors) > 0 {
		fmt.Fprintf(w, "Competitors:   %s\n", strings.Join(md.Competitors, ", "))
	}
	if md.Notes != "" {
		fmt.Fprintf(w, "Notes:         %s\n", md.Notes)
	}
	_, err := fmt.Fprintf(w, "Source:        %s\n", md.Provenance)
	return err
}

func (a *app) priorsCommand() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "priors [sector...]",
		Short: "List the per-sector ranges used for placeholder data and input hints",
		RunE: func(cmd *cobra.Command, args []string) error {
			names := args
			if len(names) == 0 {
				names = marketdata.SectorNames()
			}
			priors := make([]marketdata.SectorPriors, 0, len(names))
			for _, name := range names {
				if _, ok := marketdata.DefaultPriors[name]; !ok {
					return fmt.Errorf("unknown sector %q (known: %s)", name, strings.Join(marketdata.SectorNames(), ", "))
				}
				priors = append(priors, marketdata.PriorForSector(name))
			}

			w := cmd.OutOrStdout()
			switch strings.ToLower(output) {
			case "", "table":
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "SECTOR\tROYALTY\tCAGR\tDISCOUNT\tMARKET\tPENETRATION\tTERM\tDEAL")
				for _, p := range priors {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s-%s\t%s\t%d-%d yrs\t%s\n",
						p.Sector,
						pctRange(p.RoyaltyRangePct),
						pctRange(p.CAGRRangePct),
						pctRange(p.DiscountRangePct),
						report.FormatMillions(p.MarketSizeRangeM[0]), report.FormatMillions(p.MarketSizeRangeM[1]),
						pctRange(p.PenetrationRangePct),
						p.RoyaltyTermYears[0], p.RoyaltyTermYears[1],
						p.TypicalDealType,
					)
				}
				return tw.Flush()
			case "json":
				return writeJSON(w, priors)
			default:
				return fmt.Errorf("unknown output %q (want table or json)", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	return cmd
}

func pctRange(r [2]float64) string {
	return report.FormatPercent(r[0]) + "-" + report.FormatPercent(r[1])
}
