package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/joelkehle/techtransfer-royalty/internal/agent"
	"github.com/joelkehle/techtransfer-royalty/internal/analysis"
	"github.com/joelkehle/techtransfer-royalty/internal/config"
	"github.com/joelkehle/techtransfer-royalty/internal/logging"
	"github.com/joelkehle/techtransfer-royalty/internal/marketdata"
	"github.com/joelkehle/techtransfer-royalty/internal/telemetry"
)

func main() {
	cfg, err := config.LoadAgentConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	busURL := flag.String("bus-url", cfg.BusURL, "Bus base URL")
	agentID := flag.String("agent-id", cfg.AgentID, "Agent ID")
	flag.Parse()
	cfg.BusURL, cfg.AgentID = *busURL, *agentID

	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Error("royalty agent stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(cfg config.AgentConfig, logger *zap.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.SetupTracing(ctx, "royalty-agent")
	if err != nil {
		return err
	}
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = shutdownTracing(sctx)
	}()

	profiles, err := config.LoadCurveProfiles(cfg.CurveFile)
	if err != nil {
		return err
	}
	analyzer := analysis.New(profiles,
		analysis.WithSource(marketdata.NewDefaultSource(logger, nil, cfg.Sector)),
		analysis.WithLogger(logger),
	)
	a := agent.New(agent.Config{
		AgentID:           cfg.AgentID,
		PollWaitSec:       cfg.PollWaitSec,
		HeartbeatInterval: cfg.HeartbeatInterval,
	}, agent.NewClient(cfg.BusURL, cfg.AgentID, cfg.Secret), analyzer, logger)

	logger.Info("starting royalty agent", zap.String("bus_url", cfg.BusURL), zap.String("agent_id", cfg.AgentID))
	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
