package main

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/enerluz/portalex/internal/extract"
	"github.com/enerluz/portalex/pkg/portals"
	_ "github.com/enerluz/portalex/pkg/portals/distributors/all"
)

func extractCmd() *cobra.Command {
	var (
		codes        string
		accessTariff string
		powerKW      float64
		consumption  float64
		postalCode   string
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Run a one-time extraction and print the results as JSON",
		Long:  "Extracts tariff offers from the requested distributor portals once and writes the run to stdout. Useful for testing adapters.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger()
			flush := setupSentry(logger)
			defer flush()

			requested := portals.Codes()
			if codes != "" {
				requested = nil
				for _, c := range strings.Split(codes, ",") {
					if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
						requested = append(requested, c)
					}
				}
			}

			svc := extract.New(logger, extract.Options{
				PerJobTimeout:  cfg.PerJobTimeout,
				RunTimeout:     cfg.RunTimeout,
				MaxRetries:     cfg.MaxRetries,
				RetryBaseDelay: cfg.RetryBaseDelay,
			})

			run := svc.ExtractMany(context.Background(), requested, portals.Query{
				AccessTariff:         accessTariff,
				ContractedPowerKW:    powerKW,
				AnnualConsumptionKWh: consumption,
				PostalCode:           postalCode,
			})

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(run)
		},
	}

	cmd.Flags().StringVar(&codes, "codes", "", "Comma-separated distributor codes (defaults to all registered)")
	cmd.Flags().StringVar(&accessTariff, "atr", "", "Access tariff filter (e.g. 2.0TD)")
	cmd.Flags().Float64Var(&powerKW, "potencia", 0, "Contracted power in kW")
	cmd.Flags().Float64Var(&consumption, "consumo", 0, "Annual consumption in kWh")
	cmd.Flags().StringVar(&postalCode, "cp", "", "Postal code")

	return cmd
}
