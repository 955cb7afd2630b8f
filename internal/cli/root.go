// Package cli implements the royalty command-line tool.
package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/joelkehle/techtransfer-royalty/internal/config"
	"github.com/joelkehle/techtransfer-royalty/internal/logging"
	"github.com/joelkehle/techtransfer-royalty/internal/marketdata"
	"github.com/joelkehle/techtransfer-royalty/internal/report"
)

// Version is injected via ldflags.
var Version = "dev"

const envPrefix = "ROYALTY"

// Deps are the collaborators commands reach outside the process through.
// Zero fields fall back to the production implementations.
type Deps struct {
	NewSource func(logger *zap.Logger, sector string) marketdata.Source
	PDF       report.PDFRenderer
	Now       func() time.Time
}

func DefaultDeps() Deps {
	return Deps{
		NewSource: func(logger *zap.Logger, sector string) marketdata.Source {
			return marketdata.NewDefaultSource(logger, nil, sector)
		},
	}
}

type app struct {
	deps     Deps
	v        *viper.Viper
	logger   *zap.Logger
	profiles config.CurveProfiles
}

// NewRootCommand builds the command tree. Global flags can also be set
// through ROYALTY_* variables, e.g. ROYALTY_LOG_LEVEL or ROYALTY_CURVE_FILE.
func NewRootCommand(deps Deps) *cobra.Command {
	if deps.NewSource == nil {
		deps.NewSource = DefaultDeps().NewSource
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	a := &app{deps: deps, v: viper.New(), logger: zap.NewNop()}
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "royalty",
		Short: "Project licensing royalty revenue for a technology",
		Long: "royalty projects annual royalty revenue for a licensed technology from market size,\n" +
			"growth, penetration and royalty rate, and flags high-value opportunities.",
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.String("curve-file", "", "YAML file with penetration curve profiles")
	pf.String("profile", "", "curve profile for shaped penetration (default from curve file)")
	pf.String("log-level", "warn", "log level (debug, info, warn, error)")
	pf.String("log-format", "console", "log format (console, json)")
	pf.String("chrome-path", "", "Chrome or Chromium binary used for PDF reports")
	_ = a.v.BindPFlags(pf)

	cmd.AddCommand(
		a.projectCommand(),
		a.reportCommand(),
		a.curveCommand(),
		a.lookupCommand(),
		a.priorsCommand(),
	)
	return cmd
}

func (a *app) init() error {
	logger, err := logging.New(logging.Config{
		Level:  a.v.GetString("log-level"),
		Format: a.v.GetString("log-format"),
	})
	if err != nil {
		return err
	}
	a.logger = logger

	profiles, err := config.LoadCurveProfiles(a.v.GetString("curve-file"))
	if err != nil {
		return err
	}
	a.profiles = profiles
	return nil
}

func (a *app) profile() string { return a.v.GetString("profile") }

func (a *app) pdfRenderer() report.PDFRenderer {
	if a.deps.PDF != nil {
		return a.deps.PDF
	}
	return report.NewChromiumPDFRenderer(a.v.GetString("chrome-path"), 0)
}

func unknownOutput(out string) error {
	return fmt.Errorf("unknown output %q (want table, json or markdown)", out)
}
