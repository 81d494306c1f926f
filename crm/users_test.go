// ABOUTME: Tests for user records and provider configuration storage
// ABOUTME: Covers lookups, connection flag and profile updates
package crm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/leadpipe/models"
	"github.com/harperreed/leadpipe/notify"
	"github.com/harperreed/leadpipe/store"
)

func TestUserByEmail(t *testing.T) {
	env := newTestEnv(t)

	u, err := env.repo.UserByEmail("  ADMIN@example.com ")
	require.NoError(t, err)
	assert.Equal(t, "1", u.ID)

	_, err = env.repo.UserByEmail("nobody@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetWhatsappConnected(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.repo.SetWhatsappConnected("1", true))
	u, _ := env.repo.User("1")
	assert.True(t, u.WhatsappConnected)
	assert.Equal(t, notify.Notification{Level: notify.Success, Message: "WhatsApp connected successfully"}, env.rec.Last())

	require.NoError(t, env.repo.SetWhatsappConnected("1", false))
	assert.Equal(t, "WhatsApp disconnected", env.rec.Last().Message)

	assert.ErrorIs(t, env.repo.SetWhatsappConnected("9", true), ErrUserNotFound)
}

func TestUpdateUserKeepsConnectionFlag(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.repo.SetWhatsappConnected("2", true))

	u, err := env.repo.UpdateUser(models.User{ID: "2", Name: "Renamed", Email: "user@example.com", Role: models.RoleUser})
	require.NoError(t, err)
	assert.True(t, u.WhatsappConnected)
	assert.Equal(t, "Renamed", env.repo.UserName("2"))

	_, err = env.repo.UpdateUser(models.User{ID: "2"})
	assert.ErrorIs(t, err, ErrEmptyName)
}

func TestProviderConfigStorage(t *testing.T) {
	env := newTestEnv(t)
	assert.Nil(t, env.repo.ProviderConfig())

	env.repo.SetProviderConfig(models.ProviderConfig{APIURL: "http://wa", Provider: models.ProviderVenom, Enabled: true})
	cfg := env.repo.ProviderConfig()
	require.NotNil(t, cfg)
	assert.Equal(t, "http://wa", cfg.APIURL)

	cfg.APIURL = "mutated"
	assert.Equal(t, "http://wa", env.repo.ProviderConfig().APIURL)

	require.NoError(t, env.repo.Flush())
	var stored models.ProviderConfig
	ok, err := env.store.Load(store.KeyProviderConfig, &stored)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, models.ProviderVenom, stored.Provider)
}
