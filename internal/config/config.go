// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"

	"cloud-pricing/internal/errors"
	"cloud-pricing/internal/logging"
)

// Backend selects the catalog storage implementation.
type Backend string

const (
	// BackendPostgres is the relational catalog store
	BackendPostgres Backend = "postgres"

	// BackendMongo is the document-oriented catalog store
	BackendMongo Backend = "mongo"
)

// Config is the main application configuration
type Config struct {
	// Backend selects the catalog store implementation
	Backend Backend `json:"backend"`

	// PostgresURI is the relational store connection string
	PostgresURI string `json:"postgres_uri"`

	// MongoURI is the document store connection string
	MongoURI string `json:"mongo_uri"`

	// MongoDatabase is the document store database name
	MongoDatabase string `json:"mongo_database"`

	// DataDir holds the downloaded product data files
	DataDir string `json:"data_dir"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Backend:       BackendPostgres,
		PostgresURI:   "postgresql://postgres:@localhost:5432/cloud_pricing",
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "cloud_pricing",
		DataDir:       "./data/products",
		Logging:       logging.DefaultConfig(),
	}
}

// Load loads configuration from an optional file, then applies environment
// overrides. A missing file falls back to defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, errors.Wrap(errors.TypeConfig, "reading config file", err)
		}
		if err == nil {
			if err := json.Unmarshal(data, config); err != nil {
				return nil, errors.Wrap(errors.TypeConfig, "parsing config file", err)
			}
		}
	}

	config.applyEnv()
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PRICING_BACKEND"); v != "" {
		c.Backend = Backend(v)
	}
	if v := os.Getenv("POSTGRES_URI"); v != "" {
		c.PostgresURI = v
	}
	if v := os.Getenv("MONGODB_URI"); v != "" {
		c.MongoURI = v
	}
	if v := os.Getenv("MONGODB_DATABASE"); v != "" {
		c.MongoDatabase = v
	}
	if v := os.Getenv("PRICING_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) validate() error {
	switch c.Backend {
	case BackendPostgres, BackendMongo:
		return nil
	default:
		return errors.Newf(errors.TypeConfig, "unknown backend %q", c.Backend)
	}
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
