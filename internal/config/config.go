// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for all databases (always absolute)
	CoinGeckoBaseURL string // Market data provider base URL
	LogLevel         string
	Port             int
	DevMode          bool

	// MaxConcurrentFetches caps the per-asset market data fan-out during
	// portfolio risk assessment.
	MaxConcurrentFetches int

	// RiskSweepSchedule is the cron expression for the periodic portfolio
	// risk reassessment job. Empty disables the sweep.
	RiskSweepSchedule string

	Backup *BackupConfig
}

// BackupConfig holds off-site backup configuration for the SQLite databases.
// The target is any S3-compatible store (AWS S3, Cloudflare R2, MinIO).
type BackupConfig struct {
	Enabled         bool
	Endpoint        string // Custom endpoint URL; empty uses the default AWS resolver
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	Schedule        string // Cron expression, e.g. "@daily"
	Retention       int    // Number of backups to keep
}

// Load reads configuration from the environment, with .env file support for
// local development. Values have sensible defaults so a bare environment
// still produces a runnable dev configuration.
func Load() (*Config, error) {
	// Load .env if present; missing file is fine
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("WARDEN_PORT", "8090"))
	if err != nil {
		return nil, fmt.Errorf("invalid WARDEN_PORT: %w", err)
	}

	maxFetches, err := strconv.Atoi(getEnv("WARDEN_MAX_CONCURRENT_FETCHES", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid WARDEN_MAX_CONCURRENT_FETCHES: %w", err)
	}
	if maxFetches < 1 {
		return nil, fmt.Errorf("WARDEN_MAX_CONCURRENT_FETCHES must be >= 1, got %d", maxFetches)
	}

	dataDir := getEnv("WARDEN_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}

	retention, err := strconv.Atoi(getEnv("WARDEN_BACKUP_RETENTION", "7"))
	if err != nil {
		return nil, fmt.Errorf("invalid WARDEN_BACKUP_RETENTION: %w", err)
	}

	cfg := &Config{
		DataDir:              absDataDir,
		CoinGeckoBaseURL:     getEnv("WARDEN_COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		LogLevel:             getEnv("WARDEN_LOG_LEVEL", "info"),
		Port:                 port,
		DevMode:              getEnv("WARDEN_DEV_MODE", "false") == "true",
		MaxConcurrentFetches: maxFetches,
		RiskSweepSchedule:    getEnv("WARDEN_RISK_SWEEP_SCHEDULE", "@every 6h"),
		Backup: &BackupConfig{
			Enabled:         getEnv("WARDEN_BACKUP_ENABLED", "false") == "true",
			Endpoint:        os.Getenv("WARDEN_BACKUP_ENDPOINT"),
			Region:          getEnv("WARDEN_BACKUP_REGION", "auto"),
			Bucket:          os.Getenv("WARDEN_BACKUP_BUCKET"),
			AccessKeyID:     os.Getenv("WARDEN_BACKUP_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("WARDEN_BACKUP_SECRET_ACCESS_KEY"),
			Schedule:        getEnv("WARDEN_BACKUP_SCHEDULE", "@daily"),
			Retention:       retention,
		},
	}

	if cfg.Backup.Enabled && cfg.Backup.Bucket == "" {
		return nil, fmt.Errorf("WARDEN_BACKUP_BUCKET is required when backups are enabled")
	}

	return cfg, nil
}

// getEnv retrieves an environment variable value, returning a fallback if the
// variable is not set or is empty.
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
