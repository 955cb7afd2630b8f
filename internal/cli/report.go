package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/joelkehle/techtransfer-royalty/internal/report"
)

func (a *app) reportCommand() *cobra.Command {
	flags := &projectionFlags{}
	var (
		format string
		out    string
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Run a projection and render it as a Markdown, HTML or PDF report",
		Example: "  royalty report --product \"sensor film\" --format html --out sensor.html\n" +
			"  royalty report --market 800 --cagr 5 --format pdf --out report.pdf",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := report.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == report.FormatPDF && out == "" {
				return errors.New("--out is required for pdf reports")
			}
			req, err := flags.request(cmd, a.profile())
			if err != nil {
				return err
			}
			res, err := a.analyzer(req.Sector).Analyze(cmd.Context(), req)
			if err != nil {
				return err
			}
			var pdf report.PDFRenderer
			if f == report.FormatPDF {
				pdf = a.pdfRenderer()
			}
			body, err := report.Render(cmd.Context(), res, f, pdf)
			if err != nil {
				return err
			}
			if out == "" {
				_, err := cmd.OutOrStdout().Write(body)
				return err
			}
			if err := os.WriteFile(out, body, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			a.logger.Info("report written", zap.String("path", out), zap.String("format", string(f)), zap.String("projection_id", res.ID))
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s report %s to %s\n", f, res.ID, out)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", string(report.FormatMarkdown), "report format (markdown, html, pdf)")
	cmd.Flags().StringVar(&out, "out", "", "output file (default stdout)")
	return cmd
}
