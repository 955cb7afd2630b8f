package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/joelkehle/techtransfer-royalty/internal/analysis"
	"github.com/joelkehle/techtransfer-royalty/internal/config"
	"github.com/joelkehle/techtransfer-royalty/internal/httpapi"
	"github.com/joelkehle/techtransfer-royalty/internal/logging"
	"github.com/joelkehle/techtransfer-royalty/internal/marketdata"
	"github.com/joelkehle/techtransfer-royalty/internal/report"
	"github.com/joelkehle/techtransfer-royalty/internal/telemetry"
)

func main() {
	cfg, err := config.LoadServerConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	addr := flag.String("addr", cfg.Addr, "listen address")
	curveFile := flag.String("curve-file", cfg.CurveFile, "YAML file with penetration curve profiles")
	flag.Parse()

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, *addr, *curveFile, logger); err != nil {
		logger.Error("royalty server stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.ServerConfig, addr, curveFile string, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.SetupTracing(ctx, "royalty-server")
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	profiles, err := config.LoadCurveProfiles(curveFile)
	if err != nil {
		return err
	}
	metrics := telemetry.NewMetrics()
	source := marketdata.NewDefaultSource(logger, metrics, cfg.Sector)
	analyzer := analysis.New(profiles,
		analysis.WithSource(source),
		analysis.WithLogger(logger),
		analysis.WithMetrics(metrics),
	)
	handler := httpapi.NewServer(httpapi.Config{
		Analyzer:      analyzer,
		Source:        source,
		PDF:           report.NewChromiumPDFRenderer(cfg.ChromePath, cfg.ReportTimeout),
		Metrics:       metrics,
		Logger:        logger,
		ReportTimeout: cfg.ReportTimeout,
	})

	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	logger.Info("royalty server listening",
		zap.String("addr", addr),
		zap.String("default_profile", profiles.DefaultProfile),
		zap.String("sector", cfg.Sector),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
