// Package main provides the entry point for the portalex CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/enerluz/portalex/internal/config"
)

var (
	// Version is set at build time.
	Version = "dev"
	// Commit is set at build time.
	Commit = "none"
	// BuildDate is set at build time.
	BuildDate = "unknown"
)

var (
	cfg       config.Config
	logFormat string
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()
	cfg = config.FromEnv()

	rootCmd := &cobra.Command{
		Use:   "portalex",
		Short: "Distributor portal tariff extraction service",
		Long: `portalex extracts electricity tariff offers from heterogeneous
distributor portals and normalizes them into a canonical schema for the
comparison application.

Features:
  - One adapter per distributor portal (HTML, JSON API, PDF sheet)
  - Concurrent fault-isolated extraction with typed failures
  - TTL result cache and persistent offer snapshots
  - Prometheus metrics and webhook/email alerting`,
	}

	rootCmd.PersistentFlags().StringVar(&cfg.ListenAddr, "listen-addr", cfg.ListenAddr, "HTTP listen address")
	rootCmd.PersistentFlags().StringVar(&cfg.StorageDriver, "storage-driver", cfg.StorageDriver, "Storage driver (memory, sqlite, postgres, postgrespool)")
	rootCmd.PersistentFlags().StringVar(&cfg.StorageDSN, "storage-dsn", cfg.StorageDSN, "Storage connection string")
	rootCmd.PersistentFlags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "json", "Log format (json, console)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(workerCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogger() zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var logger zerolog.Logger
	if logFormat == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}

	return logger
}

// setupSentry initializes error reporting when a DSN is configured. The
// returned func flushes pending events on shutdown.
func setupSentry(logger zerolog.Logger) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:     cfg.SentryDSN,
		Release: Version,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("sentry init failed")
		return func() {}
	}
	return func() { sentry.Flush(2 * time.Second) }
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("portalex\n")
			fmt.Printf("  Version:    %s\n", Version)
			fmt.Printf("  Commit:     %s\n", Commit)
			fmt.Printf("  Build Date: %s\n", BuildDate)
		},
	}
}
