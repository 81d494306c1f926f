// ABOUTME: Process configuration loaded from the environment and an optional .env file
// ABOUTME: Holds storage, logging, messaging timing, provider and web settings
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendCharm  = "charm"
	BackendMemory = "memory"
)

type Config struct {
	DataDir string `env:"LEADPIPE_DATA_DIR"`
	Backend string `env:"LEADPIPE_BACKEND" envDefault:"sqlite"`
	DBPath  string `env:"LEADPIPE_DB_PATH"`

	LogLevel string `env:"LEADPIPE_LOG_LEVEL" envDefault:"info"`
	LogFile  string `env:"LEADPIPE_LOG_FILE"`
	LogJSON  bool   `env:"LEADPIPE_LOG_JSON" envDefault:"false"`

	SendDelay       time.Duration `env:"LEADPIPE_SEND_DELAY" envDefault:"1s"`
	DeliveryDelay   time.Duration `env:"LEADPIPE_DELIVERY_DELAY" envDefault:"1s"`
	ConnectDelay    time.Duration `env:"LEADPIPE_CONNECT_DELAY" envDefault:"2s"`
	AutoReplyChance float64       `env:"LEADPIPE_AUTO_REPLY_CHANCE" envDefault:"0.5"`
	AutoReplyMin    time.Duration `env:"LEADPIPE_AUTO_REPLY_MIN" envDefault:"5s"`
	AutoReplyMax    time.Duration `env:"LEADPIPE_AUTO_REPLY_MAX" envDefault:"15s"`

	HTTPTimeout time.Duration `env:"LEADPIPE_HTTP_TIMEOUT" envDefault:"10s"`
	ProviderRPS float64       `env:"LEADPIPE_PROVIDER_RPS" envDefault:"5"`

	WebAddr string `env:"LEADPIPE_WEB_ADDR" envDefault:":8080"`

	// CharmHost overrides the host saved in charm-config.json.
	CharmHost string `env:"LEADPIPE_CHARM_HOST"`
}

// DefaultDataDir is where state lives when LEADPIPE_DATA_DIR is unset.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, "leadpipe")
}

// Load reads .env files (missing files are ignored) and then the environment.
// Variables already set in the environment take precedence over .env values.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no environment is set.
func Default() *Config {
	cfg := &Config{
		Backend:         BackendSQLite,
		LogLevel:        "info",
		SendDelay:       time.Second,
		DeliveryDelay:   time.Second,
		ConnectDelay:    2 * time.Second,
		AutoReplyChance: 0.5,
		AutoReplyMin:    5 * time.Second,
		AutoReplyMax:    15 * time.Second,
		HTTPTimeout:     10 * time.Second,
		ProviderRPS:     5,
		WebAddr:         ":8080",
	}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.DBPath == "" {
		switch c.Backend {
		case BackendBadger:
			c.DBPath = filepath.Join(c.DataDir, "badger")
		default:
			c.DBPath = filepath.Join(c.DataDir, "leadpipe.db")
		}
	}
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSQLite, BackendBadger, BackendCharm, BackendMemory:
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.AutoReplyChance < 0 || c.AutoReplyChance > 1 {
		return errors.New("auto reply chance must be between 0 and 1")
	}
	if c.AutoReplyMin < 0 || c.AutoReplyMin > c.AutoReplyMax {
		return errors.New("auto reply min delay must not exceed max delay")
	}
	if c.SendDelay < 0 || c.DeliveryDelay < 0 || c.ConnectDelay < 0 {
		return errors.New("delays must not be negative")
	}
	if c.ProviderRPS <= 0 {
		return errors.New("provider rate must be positive")
	}
	return nil
}
