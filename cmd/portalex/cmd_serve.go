package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/enerluz/portalex/internal/alerting"
	"github.com/enerluz/portalex/internal/api"
	"github.com/enerluz/portalex/internal/extract"
	"github.com/enerluz/portalex/internal/notification"
	"github.com/enerluz/portalex/internal/storage"
	"github.com/enerluz/portalex/pkg/portals"
	_ "github.com/enerluz/portalex/pkg/portals/distributors/all"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the extraction HTTP service",
		Long:  "Starts the HTTP API serving the portal catalog, on-demand extraction, offer reads, metrics and health endpoints.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			flush := setupSentry(logger)
			defer flush()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			st, err := storage.Open(ctx, storage.Config{
				Driver:  cfg.StorageDriver,
				DSN:     cfg.StorageDSN,
				Portals: portalCatalog(),
			})
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer st.Close()

			alerter := alerting.New(alerting.ConfigFromEnv(), logger)
			svc := extract.NewWithStorage(logger, extract.Options{
				PerJobTimeout:  cfg.PerJobTimeout,
				RunTimeout:     cfg.RunTimeout,
				MaxRetries:     cfg.MaxRetries,
				RetryBaseDelay: cfg.RetryBaseDelay,
				CacheTTL:       cfg.CacheTTL,
				Alerter:        alerter,
			}, st)
			notif := notification.NewService(st)

			srv := &http.Server{
				Addr:    cfg.ListenAddr,
				Handler: api.NewServer(svc, st, notif, logger).Mux(),
			}

			logger.Info().
				Str("version", Version).
				Str("addr", cfg.ListenAddr).
				Str("driver", cfg.StorageDriver).
				Strs("distributors", portals.Codes()).
				Msg("starting extraction service")

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error().Err(err).Msg("HTTP server error")
					cancel()
				}
			}()

			select {
			case sig := <-sigCh:
				logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
			case <-ctx.Done():
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer shutdownCancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("HTTP server shutdown error")
			}

			logger.Info().Msg("shutdown complete")
			return nil
		},
	}
}

// portalCatalog converts the registered portals into storage seed rows.
func portalCatalog() []storage.Portal {
	var out []storage.Portal
	for _, info := range portals.Infos() {
		out = append(out, storage.Portal{
			Code:        info.Code,
			Name:        info.Name,
			URL:         info.URL,
			Description: info.Description,
		})
	}
	return out
}
