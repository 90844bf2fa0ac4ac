// Package cmd - CLI command: cloud-pricing load
package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"cloud-pricing/db/postgres"
	"cloud-pricing/internal/config"
	"cloud-pricing/internal/errors"
)

var loadPath string

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Reload the whole catalog from *.csv.gz data files",
	Long: `Replace the live product table with a freshly loaded one.

Rows are streamed into a staging table, indexes are built after the load,
and the staging table is swapped live inside a single transaction. A failed
reload leaves the previously live table untouched.`,
	RunE: runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
	loadCmd.Flags().StringVar(&loadPath, "path", "", "location of *.csv.gz files (default: configured data dir)")
}

func runLoad(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if cfg.Backend != config.BackendPostgres {
		return errors.Newf(errors.TypeConfig, "load requires the postgres backend, got %q", cfg.Backend)
	}

	path := loadPath
	if path == "" {
		path = cfg.DataDir
	}

	ctx := context.Background()
	store, err := postgres.Open(ctx, cfg.PostgresURI)
	if err != nil {
		return err
	}
	defer store.Close(ctx)

	return store.Reload(ctx, path)
}
