package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/joelkehle/techtransfer-royalty/internal/logging"
)

// ServerConfig configures cmd/royalty-server.
type ServerConfig struct {
	Addr          string         `env:"ROYALTY_ADDR" envDefault:":8090"`
	CurveFile     string         `env:"ROYALTY_CURVE_FILE"`
	Sector        string         `env:"ROYALTY_DEFAULT_SECTOR" envDefault:"default"`
	ChromePath    string         `env:"ROYALTY_CHROME_PATH"`
	ReportTimeout time.Duration  `env:"ROYALTY_REPORT_TIMEOUT" envDefault:"60s"`
	Log           logging.Config `envPrefix:"ROYALTY_LOG_"`
}

// AgentConfig configures cmd/royalty-agent.
type AgentConfig struct {
	BusURL            string         `env:"BUS_URL" envDefault:"http://localhost:8080"`
	AgentID           string         `env:"ROYALTY_AGENT_ID" envDefault:"royalty-projection"`
	Secret            string         `env:"ROYALTY_AGENT_SECRET" envDefault:"royalty-projection-secret"`
	PollWaitSec       int            `env:"ROYALTY_POLL_WAIT_SEC" envDefault:"5"`
	HeartbeatInterval time.Duration  `env:"ROYALTY_HEARTBEAT_INTERVAL" envDefault:"60s"`
	CurveFile         string         `env:"ROYALTY_CURVE_FILE"`
	Sector            string         `env:"ROYALTY_DEFAULT_SECTOR" envDefault:"default"`
	Log               logging.Config `envPrefix:"ROYALTY_LOG_"`
}

// LoadDotEnv loads the given files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ParseEnv fills target from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func LoadServerConfig() (ServerConfig, error) {
	var cfg ServerConfig
	if err := LoadDotEnv(); err != nil {
		return cfg, err
	}
	err := ParseEnv(&cfg)
	return cfg, err
}

func LoadAgentConfig() (AgentConfig, error) {
	var cfg AgentConfig
	if err := LoadDotEnv(); err != nil {
		return cfg, err
	}
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	if cfg.PollWaitSec <= 0 {
		return cfg, fmt.Errorf("ROYALTY_POLL_WAIT_SEC must be > 0")
	}
	return cfg, nil
}
