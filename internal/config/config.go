// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Prefix is prepended to every variable name.
const Prefix = "FITCORE_"

// Catalog drivers.
const (
	DriverMemory   = "memory"
	DriverFS       = "fs"
	DriverS3       = "s3"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the process configuration.
type Config struct {
	Catalog CatalogConfig `envPrefix:"CATALOG_"`
	// ScriptDir holds Lua procedures loaded at engine start; empty disables
	// scripting.
	ScriptDir        string `env:"SCRIPT_DIR"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat        string `env:"LOG_FORMAT" envDefault:"json"`
	MetricsNamespace string `env:"METRICS_NAMESPACE" envDefault:"fitcore"`
}

// CatalogConfig selects and configures the catalog source.
type CatalogConfig struct {
	Driver      string   `env:"DRIVER" envDefault:"fs"`
	FSRoot      string   `env:"FS_ROOT" envDefault:"./catalog"`
	Key         string   `env:"KEY" envDefault:"catalog.json"`
	SQLitePath  string   `env:"SQLITE_PATH" envDefault:"fitcore.db"`
	PostgresDSN string   `env:"POSTGRES_DSN"`
	S3          S3Config `envPrefix:"S3_"`
}

// S3Config addresses the bucket holding catalog dumps.
type S3Config struct {
	Bucket          string `env:"BUCKET"`
	Region          string `env:"REGION" envDefault:"us-east-1"`
	Endpoint        string `env:"ENDPOINT"`
	PathStyle       bool   `env:"PATH_STYLE"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
}

// Load parses the process environment.
func Load() (Config, error) {
	return parse(env.Options{Prefix: Prefix})
}

// LoadFrom parses vars instead of the process environment.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Prefix: Prefix, Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks driver specific requirements.
func (c Config) Validate() error {
	switch c.Catalog.Driver {
	case DriverMemory, DriverFS, DriverSQLite, DriverPostgres:
	case DriverS3:
		if c.Catalog.S3.Bucket == "" {
			return fmt.Errorf("%sCATALOG_S3_BUCKET required for s3 driver", Prefix)
		}
	default:
		return fmt.Errorf("unknown catalog driver %q", c.Catalog.Driver)
	}
	return nil
}
