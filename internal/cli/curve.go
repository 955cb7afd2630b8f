package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/joelkehle/techtransfer-royalty/internal/report"
	"github.com/joelkehle/techtransfer-royalty/internal/royalty"
)

type curvePoint struct {
	Offset      int           `json:"offset"`
	Phase       royalty.Phase `json:"phase"`
	Penetration float64       `json:"penetration"`
}

func (a *app) curveCommand() *cobra.Command {
	var (
		term    int
		initial float64
		output  string
	)
	cmd := &cobra.Command{
		Use:   "curve",
		Short: "Print the shaped penetration curve for a term and initial penetration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name := strings.ToLower(strings.TrimSpace(a.profile()))
			if name == "" {
				name = a.profiles.DefaultProfile
			}
			curve, err := a.profiles.Get(name)
			if err != nil {
				return err
			}
			seq, err := curve.Shaped(term, initial/100)
			if err != nil {
				return err
			}
			points := make([]curvePoint, len(seq))
			for i, v := range seq {
				points[i] = curvePoint{Offset: i, Phase: royalty.PhaseAt(i), Penetration: v}
			}

			w := cmd.OutOrStdout()
			switch strings.ToLower(output) {
			case "", "table":
				fmt.Fprintf(w, "profile %s, peak %s, floor %s\n\n", name,
					report.FormatFraction(curve.Peak(initial/100)), report.FormatFraction(curve.Floor(initial/100)))
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "YEAR\tPHASE\tPENETRATION")
				for _, p := range points {
					fmt.Fprintf(tw, "%d\t%s\t%s\n", p.Offset+1, p.Phase, report.FormatFraction(p.Penetration))
				}
				return tw.Flush()
			case "json":
				return writeJSON(w, map[string]any{
					"profile":     name,
					"term_years":  term,
					"initial_pct": initial,
					"points":      points,
				})
			default:
				return fmt.Errorf("unknown output %q (want table or json)", output)
			}
		},
	}
	cmd.Flags().IntVar(&term, "term", 10, "number of years")
	cmd.Flags().Float64Var(&initial, "initial", 10, "initial penetration in percent")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format (table, json)")
	return cmd
}
