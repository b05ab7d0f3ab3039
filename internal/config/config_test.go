package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "https://api.coingecko.com/api/v3", cfg.CoinGeckoBaseURL)
	assert.Equal(t, 5, cfg.MaxConcurrentFetches)
	assert.Equal(t, "@every 6h", cfg.RiskSweepSchedule)
	assert.False(t, cfg.DevMode)
	assert.False(t, cfg.Backup.Enabled)

	// Data dir resolves to an absolute path.
	assert.True(t, len(cfg.DataDir) > 0 && cfg.DataDir[0] == '/')
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WARDEN_PORT", "9999")
	t.Setenv("WARDEN_LOG_LEVEL", "debug")
	t.Setenv("WARDEN_DEV_MODE", "true")
	t.Setenv("WARDEN_MAX_CONCURRENT_FETCHES", "12")
	t.Setenv("WARDEN_RISK_SWEEP_SCHEDULE", "@hourly")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, 12, cfg.MaxConcurrentFetches)
	assert.Equal(t, "@hourly", cfg.RiskSweepSchedule)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("WARDEN_PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_BackupConfig(t *testing.T) {
	t.Setenv("WARDEN_BACKUP_ENABLED", "true")
	t.Setenv("WARDEN_BACKUP_ENDPOINT", "https://example.r2.cloudflarestorage.com")
	t.Setenv("WARDEN_BACKUP_BUCKET", "warden-backups")
	t.Setenv("WARDEN_BACKUP_SCHEDULE", "@weekly")
	t.Setenv("WARDEN_BACKUP_RETENTION", "14")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Backup.Enabled)
	assert.Equal(t, "warden-backups", cfg.Backup.Bucket)
	assert.Equal(t, "@weekly", cfg.Backup.Schedule)
	assert.Equal(t, 14, cfg.Backup.Retention)
}
