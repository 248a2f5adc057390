// Package config collects runtime configuration from PORTALEX_* environment
// variables, with sane defaults for local development.
package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// HTTP
	ListenAddr string

	// Storage: "memory", "sqlite", "postgres" or "postgrespool".
	StorageDriver string
	StorageDSN    string

	// Extraction
	PerJobTimeout  time.Duration
	RunTimeout     time.Duration
	MaxRetries     uint64
	RetryBaseDelay time.Duration
	CacheTTL       time.Duration

	// Worker
	RefreshInterval time.Duration
	CronSpec        string

	// Observability
	SentryDSN string
	LogLevel  string
}

// FromEnv builds a Config from environment variables, with sane defaults.
func FromEnv() Config {
	return Config{
		ListenAddr:      envStr("PORTALEX_LISTEN_ADDR", ":8080"),
		StorageDriver:   envStr("PORTALEX_STORAGE_DRIVER", "memory"),
		StorageDSN:      envStr("PORTALEX_STORAGE_DSN", "portalex.db"),
		PerJobTimeout:   envDur("PORTALEX_PER_JOB_TIMEOUT", 20*time.Second),
		RunTimeout:      envDur("PORTALEX_RUN_TIMEOUT", 60*time.Second),
		MaxRetries:      envUint("PORTALEX_MAX_RETRIES", 2),
		RetryBaseDelay:  envDur("PORTALEX_RETRY_BASE_DELAY", 500*time.Millisecond),
		CacheTTL:        envDur("PORTALEX_CACHE_TTL", 15*time.Minute),
		RefreshInterval: envDur("PORTALEX_REFRESH_INTERVAL", 6*time.Hour),
		CronSpec:        envStr("PORTALEX_CRON_SPEC", ""),
		SentryDSN:       os.Getenv("PORTALEX_SENTRY_DSN"),
		LogLevel:        envStr("PORTALEX_LOG_LEVEL", "info"),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envDur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func envUint(key string, def uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
