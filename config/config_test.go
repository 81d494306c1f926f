// ABOUTME: Tests for environment configuration loading
// ABOUTME: Covers defaults, overrides, .env files, and validation
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("LEADPIPE_DATA_DIR", t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	def := Default()
	assert.Equal(t, BackendSQLite, cfg.Backend)
	assert.Equal(t, def.SendDelay, cfg.SendDelay)
	assert.Equal(t, def.DeliveryDelay, cfg.DeliveryDelay)
	assert.Equal(t, 2*time.Second, cfg.ConnectDelay)
	assert.Equal(t, 0.5, cfg.AutoReplyChance)
	assert.Equal(t, 5*time.Second, cfg.AutoReplyMin)
	assert.Equal(t, 15*time.Second, cfg.AutoReplyMax)
	assert.Equal(t, ":8080", cfg.WebAddr)
	assert.Equal(t, filepath.Join(cfg.DataDir, "leadpipe.db"), cfg.DBPath)
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LEADPIPE_DATA_DIR", dir)
	t.Setenv("LEADPIPE_BACKEND", "badger")
	t.Setenv("LEADPIPE_SEND_DELAY", "250ms")
	t.Setenv("LEADPIPE_AUTO_REPLY_CHANCE", "0")
	t.Setenv("LEADPIPE_CHARM_HOST", "charm.example.com")

	cfg, err := Load(filepath.Join(dir, "missing.env"))
	require.NoError(t, err)
	assert.Equal(t, "charm.example.com", cfg.CharmHost)

	assert.Equal(t, BackendBadger, cfg.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.SendDelay)
	assert.Zero(t, cfg.AutoReplyChance)
	assert.Equal(t, filepath.Join(dir, "badger"), cfg.DBPath)
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("LEADPIPE_DATA_DIR", dir)
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("LEADPIPE_WEB_ADDR=127.0.0.1:9999\n"), 0600))
	// godotenv.Load sets the variable for the process; make sure it is cleared afterwards.
	t.Cleanup(func() { os.Unsetenv("LEADPIPE_WEB_ADDR") })

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9999", cfg.WebAddr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"unknown backend", func(c *Config) { c.Backend = "mongo" }},
		{"chance above one", func(c *Config) { c.AutoReplyChance = 1.5 }},
		{"negative chance", func(c *Config) { c.AutoReplyChance = -0.1 }},
		{"min above max", func(c *Config) { c.AutoReplyMin = time.Minute }},
		{"negative delay", func(c *Config) { c.SendDelay = -time.Second }},
		{"zero rps", func(c *Config) { c.ProviderRPS = 0 }},
	}

	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
