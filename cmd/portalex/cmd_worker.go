package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/enerluz/portalex/internal/cron"
	_ "github.com/enerluz/portalex/pkg/portals/distributors/all"
)

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Start the periodic refresh worker",
		Long:  "Starts the worker that periodically re-extracts every registered distributor, guarded by an advisory lock for multi-instance deployments.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			flush := setupSentry(logger)
			defer flush()

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			err := cron.Run(ctx, cfg, logger)
			if err == context.Canceled {
				logger.Info().Msg("worker stopped")
				return nil
			}
			return err
		},
	}
}
