// Package cmd - CLI command: cloud-pricing spot
package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"cloud-pricing/db/ingestion"
	"cloud-pricing/internal/errors"
)

var spotFile string

var spotCmd = &cobra.Command{
	Use:   "spot",
	Short: "Merge parsed spot price points into existing compute products",
	RunE:  runSpot,
}

func init() {
	rootCmd.AddCommand(spotCmd)
	spotCmd.Flags().StringVar(&spotFile, "file", "", "JSON file with parsed spot price points")
	spotCmd.MarkFlagRequired("file")
}

func runSpot(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(spotFile)
	if err != nil {
		return errors.Wrap(errors.TypeConfig, "reading spot price file", err)
	}
	var points []ingestion.SpotPrice
	if err := json.Unmarshal(data, &points); err != nil {
		return errors.Wrap(errors.TypeValidation, "parsing spot price file", err)
	}

	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	// Spot points already carry USD amounts, so no converter is needed.
	return ingestion.NewEngine(store).ApplySpotPrices(ctx, points)
}
