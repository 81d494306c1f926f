// ABOUTME: Tests for logger construction
// ABOUTME: Checks level parsing and file output
package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadpipe/config"
)

func TestNewLevels(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "debug"
	l, closer, err := New(cfg)
	require.NoError(t, err)
	defer closer.Close()
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())

	cfg.LogLevel = "nonsense"
	l, _, err = New(cfg)
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}

func TestNewWritesToFile(t *testing.T) {
	cfg := config.Default()
	cfg.LogFile = filepath.Join(t.TempDir(), "logs", "leadpipe.log")
	cfg.LogJSON = true

	l, closer, err := New(cfg)
	require.NoError(t, err)
	l.WithField("component", "test").Info("hello")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
	assert.Contains(t, string(data), `"component":"test"`)
}
