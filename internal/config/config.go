package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	DatabaseURL string
	HTTPPort    string
	AdminAPIKey string

	// Card-catalog API (credentials injected server-side, never sent to clients)
	CardAPIURL    string
	CardAPIKey    string
	CardAPITeamID string

	// Sealed-product pricing API
	SealedAPIURL string
	SealedAPIKey string

	// CSV pricing mirror
	MirrorAPIURL string

	// Image search
	ImageAPIURL string
	ImageAPIKey string

	// Pricing policy
	StaleThreshold   time.Duration
	FetchDelay       time.Duration
	FetchTimeout     time.Duration
	BatchConcurrency int
	RetryMax         int

	// Sync policy
	CatalogSyncMaxAge  time.Duration
	PricingSyncMaxAge  time.Duration
	CSVSyncMaxAge      time.Duration
	SyncWorkerInterval time.Duration

	// Collection snapshots
	SnapshotWorkerInterval time.Duration

	// Google Sheets export (optional)
	SheetsSpreadsheetID string
	SheetsCredentials   string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		DatabaseURL: envOrDefaultWarn("DATABASE_URL", ""),
		HTTPPort:    envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey: envOrDefault("ADMIN_API_KEY", ""),

		CardAPIURL:    envOrDefault("CARD_API_URL", "https://api.pokemontcg.io/v2"),
		CardAPIKey:    envOrDefault("CARD_API_KEY", ""),
		CardAPITeamID: envOrDefault("CARD_API_TEAM_ID", ""),

		SealedAPIURL: envOrDefault("SEALED_API_URL", "https://api.pricecharting.com"),
		SealedAPIKey: envOrDefault("SEALED_API_KEY", ""),

		MirrorAPIURL: envOrDefault("MIRROR_API_URL", "https://tcgcsv.com/tcgplayer"),

		ImageAPIURL: envOrDefault("IMAGE_API_URL", ""),
		ImageAPIKey: envOrDefault("IMAGE_API_KEY", ""),

		StaleThreshold:   envOrDefaultDuration("PRICING_STALE_THRESHOLD", 12*time.Hour),
		FetchDelay:       envOrDefaultDuration("PRICING_FETCH_DELAY", 500*time.Millisecond),
		FetchTimeout:     envOrDefaultDuration("PRICING_FETCH_TIMEOUT", 10*time.Second),
		BatchConcurrency: envOrDefaultInt("PRICING_BATCH_CONCURRENCY", 5),
		RetryMax:         envOrDefaultInt("UPSTREAM_RETRY_MAX", 3),

		CatalogSyncMaxAge:  envOrDefaultDuration("CATALOG_SYNC_MAX_AGE", 12*time.Hour),
		PricingSyncMaxAge:  envOrDefaultDuration("PRICING_SYNC_MAX_AGE", 24*time.Hour),
		CSVSyncMaxAge:      envOrDefaultDuration("CSV_SYNC_MAX_AGE", 12*time.Hour),
		SyncWorkerInterval: envOrDefaultDuration("SYNC_WORKER_INTERVAL", 1*time.Hour),

		SnapshotWorkerInterval: envOrDefaultDuration("SNAPSHOT_WORKER_INTERVAL", 24*time.Hour),

		SheetsSpreadsheetID: envOrDefault("SHEETS_SPREADSHEET_ID", ""),
		SheetsCredentials:   envOrDefault("SHEETS_CREDENTIALS_JSON", ""),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}
