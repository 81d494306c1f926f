// ABOUTME: Charm sync settings stored in the leadpipe data directory
// ABOUTME: Reads and writes charm-config.json holding the server host and auto-sync toggle

package charm

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/charm/kv"
)

const (
	// DefaultCharmHost is the self-hosted 2389 research server.
	DefaultCharmHost = "charm.2389.dev"

	// AppName names the charm KV database.
	AppName = "leadpipe"

	ConfigFileName = "charm-config.json"
)

// ErrNoConfigFile is returned by Save on a config that was not loaded from a
// data directory, such as the one a local badger client carries.
var ErrNoConfigFile = errors.New("charm config is not backed by a file")

// Config holds charm connection settings.
type Config struct {
	Host     string `json:"host,omitempty"`
	AutoSync bool   `json:"auto_sync"`

	// StaleThreshold is how old the local replica may get before a sync is due.
	StaleThreshold time.Duration `json:"stale_threshold,omitempty"`

	path string
}

func DefaultConfig() *Config {
	return &Config{
		Host:           DefaultCharmHost,
		AutoSync:       true,
		StaleThreshold: kv.DefaultStaleThreshold,
	}
}

// LoadConfig reads charm-config.json from dataDir. A missing or unparsable
// file yields defaults; either way the result saves back to dataDir.
func LoadConfig(dataDir string) (*Config, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	path := filepath.Join(dataDir, ConfigFileName)

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return withPath(DefaultConfig(), path), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return withPath(DefaultConfig(), path), nil //nolint:nilerr // a corrupt file is replaced on the next save
	}
	if cfg.Host == "" {
		cfg.Host = DefaultCharmHost
	}
	if cfg.StaleThreshold == 0 {
		cfg.StaleThreshold = kv.DefaultStaleThreshold
	}
	return withPath(cfg, path), nil
}

func withPath(cfg *Config, path string) *Config {
	cfg.path = path
	return cfg
}

// Path is the file Save writes to, or "" when there is none.
func (c *Config) Path() string {
	return c.path
}

// Save persists the config to the file it was loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		return ErrNoConfigFile
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0600)
}

// SetAutoSync enables or disables auto-sync and saves.
func (c *Config) SetAutoSync(enabled bool) error {
	c.AutoSync = enabled
	return c.Save()
}
