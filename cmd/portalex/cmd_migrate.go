package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/enerluz/portalex/internal/migrate"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Run schema migrations for the snapshot store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			switch args[0] {
			case "up":
				return migrate.Up(ctx, cfg.StorageDriver, cfg.StorageDSN)
			case "down":
				return migrate.Down(ctx, cfg.StorageDriver, cfg.StorageDSN)
			case "status":
				return migrate.Status(ctx, cfg.StorageDriver, cfg.StorageDSN)
			default:
				return fmt.Errorf("unknown migrate action %q", args[0])
			}
		},
	}
	return cmd
}
