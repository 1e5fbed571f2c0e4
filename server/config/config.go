package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the engine's runtime options. Values resolve in the
// usual order: flags, then CFRENGINE_* environment variables, then the
// config file, then defaults.
type Config struct {
	InputDir      string `mapstructure:"input_dir"`
	StoreDir      string `mapstructure:"store_dir"`
	MetricsDBPath string `mapstructure:"metrics_db_path"`
	Workers       int    `mapstructure:"workers"`
	WriteRetries  int    `mapstructure:"write_retries"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		InputDir:      "bulk",
		StoreDir:      "json_cfr",
		MetricsDBPath: "metrics.db",
		Workers:       4,
		WriteRetries:  2,
	}
}

// Load resolves the effective configuration from viper's current state.
func Load() (Config, error) {
	cfg := Default()

	viper.SetDefault("input_dir", cfg.InputDir)
	viper.SetDefault("store_dir", cfg.StoreDir)
	viper.SetDefault("metrics_db_path", cfg.MetricsDBPath)
	viper.SetDefault("workers", cfg.Workers)
	viper.SetDefault("write_retries", cfg.WriteRetries)

	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.WriteRetries < 0 {
		cfg.WriteRetries = 0
	}

	return cfg, nil
}
