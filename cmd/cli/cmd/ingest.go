// Package cmd - CLI command: cloud-pricing ingest
package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cloud-pricing/db/ingestion"
	"cloud-pricing/internal/currency"
	"cloud-pricing/internal/logging"
)

var ingestServices []string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch vendor pricing catalogs and merge-upsert them into the store",
	Long: `Download the current AWS bulk pricing offer files and merge their
products and prices into the catalog. A service whose offer file cannot be
fetched is skipped; the run fails only when every service fails.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringSliceVar(&ingestServices, "services", nil,
		"service codes to ingest (default: the built-in service list)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	engine := ingestion.NewEngine(store).
		WithConverter(currency.NewConverter(currency.NewHTTPSource()))

	result, err := engine.Run(ctx, ingestion.NewAWSSource(ingestServices...))
	if err != nil {
		return err
	}
	logging.Info("ingestion finished",
		zap.String("run_id", result.RunID),
		zap.Int("loaded", result.Loaded),
		zap.Int("failed", len(result.Failed)))
	return nil
}
