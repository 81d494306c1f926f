// ABOUTME: Tests for the local BadgerDB-backed charm client
// ABOUTME: Exercises get/set/delete, prefix listing, reset, and config round trip

package charm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/charm/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalClientGetSet(t *testing.T) {
	c := NewTestClient(t)

	_, err := c.Get([]byte("crm_leads"))
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, c.Set([]byte("crm_leads"), []byte(`[]`)))
	got, err := c.Get([]byte("crm_leads"))
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))

	require.NoError(t, c.Delete([]byte("crm_leads")))
	_, err = c.Get([]byte("crm_leads"))
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestLocalClientKeysWithPrefix(t *testing.T) {
	c := NewTestClient(t)

	require.NoError(t, c.Set([]byte("crm_funnels"), []byte(`[]`)))
	require.NoError(t, c.Set([]byte("crm_users"), []byte(`[]`)))
	require.NoError(t, c.Set([]byte("other"), []byte(`1`)))

	keys, err := c.KeysWithPrefix([]byte("crm_"))
	require.NoError(t, err)
	assert.Len(t, keys, 2)

	require.NoError(t, c.Reset())
	keys, err = c.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLocalClientIsLocal(t *testing.T) {
	c := NewTestClient(t)
	assert.True(t, c.IsLocal())
	assert.False(t, c.IsConnected())
	assert.NoError(t, c.Sync())
}

func TestConfigRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "leadpipe")

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultCharmHost, cfg.Host)
	assert.True(t, cfg.AutoSync)
	assert.Equal(t, filepath.Join(dir, ConfigFileName), cfg.Path())

	cfg.Host = "charm.example.com"
	require.NoError(t, cfg.SetAutoSync(false))

	loaded, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, "charm.example.com", loaded.Host)
	assert.False(t, loaded.AutoSync)
	assert.Equal(t, kv.DefaultStaleThreshold, loaded.StaleThreshold)
}

func TestConfigCorruptFileFallsBack(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("{not json"), 0600))

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)
	assert.Equal(t, DefaultCharmHost, cfg.Host)
	require.NoError(t, cfg.Save(), "the corrupt file is replaced")
}

func TestLocalClientHasNoConfigFile(t *testing.T) {
	c := NewTestClient(t)
	assert.Empty(t, c.Config().Path())
	assert.ErrorIs(t, c.Config().SetAutoSync(true), ErrNoConfigFile)
	assert.ErrorIs(t, SetAutoSyncCommand(c, []string{"--enable"}), ErrNoConfigFile)
}
