package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequiredEnv sets the minimum environment for Load to succeed.
func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("S3I_CLIENT_ID", "thing-1")
	t.Setenv("S3I_CLIENT_SECRET", "sekrit")
	t.Setenv("STORE_PATH", filepath.Join(t.TempDir(), "inbox.db"))
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "thing-1", cfg.ClientID)
	assert.Equal(t, "sekrit", cfg.ClientSecret)
	assert.Empty(t, cfg.MessageQueue)
	assert.Empty(t, cfg.EventQueue)
	assert.Empty(t, cfg.IdPURL)
	assert.Empty(t, cfg.BrokerURL)
	assert.Equal(t, 30*time.Second, cfg.FetchInterval)
	assert.Equal(t, "development", cfg.Environment)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_MissingClientID(t *testing.T) {
	t.Setenv("S3I_CLIENT_ID", "")
	t.Setenv("S3I_CLIENT_SECRET", "sekrit")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3I_CLIENT_ID")
}

func TestLoad_MissingClientSecret(t *testing.T) {
	t.Setenv("S3I_CLIENT_ID", "thing-1")
	t.Setenv("S3I_CLIENT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S3I_CLIENT_SECRET")
}

func TestLoad_ParsesFetchInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FETCH_INTERVAL", "2m30s")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute+30*time.Second, cfg.FetchInterval)
}

func TestLoad_RejectsNonPositiveInterval(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("FETCH_INTERVAL", "0s")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FETCH_INTERVAL")
}

func TestLoad_QueueOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("S3I_MESSAGE_QUEUE", "custom/msg")
	t.Setenv("S3I_EVENT_QUEUE", "custom/evt")
	t.Setenv("S3I_IDP_URL", "https://idp.example.test/token")
	t.Setenv("S3I_BROKER_URL", "https://broker.example.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "custom/msg", cfg.MessageQueue)
	assert.Equal(t, "custom/evt", cfg.EventQueue)
	assert.Equal(t, "https://idp.example.test/token", cfg.IdPURL)
	assert.Equal(t, "https://broker.example.test", cfg.BrokerURL)
}

func TestLoad_StorePathResolvedAbsolute(t *testing.T) {
	t.Setenv("S3I_CLIENT_ID", "thing-1")
	t.Setenv("S3I_CLIENT_SECRET", "sekrit")
	t.Setenv("STORE_PATH", "relative/inbox.db")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(cfg.StorePath))
}

func TestLoad_ProductionEnvironment(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
}
