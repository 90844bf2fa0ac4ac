// Package cmd provides the CLI commands for cloud-pricing.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cloud-pricing/db"
	"cloud-pricing/db/mongo"
	"cloud-pricing/db/postgres"
	"cloud-pricing/internal/config"
	"cloud-pricing/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cloud-pricing",
	Short: "Maintain and query the cloud product/price catalog",
	Long: `cloud-pricing maintains a catalog of cloud-vendor product and price
records and serves filtered queries over it.

Examples:
  cloud-pricing setup
  cloud-pricing load --path ./data/products
  cloud-pricing spot --file ./data/spot.json`,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./cloud-pricing.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	config.Set(cfg)

	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logging: %v\n", err)
	}
}

// openStore constructs the configured catalog store.
func openStore(ctx context.Context) (db.CatalogStore, error) {
	cfg := config.Get()
	switch cfg.Backend {
	case config.BackendMongo:
		return mongo.NewStore(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return postgres.Open(ctx, cfg.PostgresURI)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("cloud-pricing version 0.1.0")
	},
}
