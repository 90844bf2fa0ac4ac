// Package cmd - CLI command: cloud-pricing setup
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"cloud-pricing/db/mongo"
	"cloud-pricing/db/postgres"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the catalog tables and indexes for the configured backend",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	store, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	switch s := store.(type) {
	case *postgres.Store:
		return s.Setup(ctx)
	case *mongo.Store:
		return s.EnsureIndexes(ctx)
	default:
		return nil
	}
}
