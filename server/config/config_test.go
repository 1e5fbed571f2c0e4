package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("store_dir", "/tmp/store")
	viper.Set("workers", 8)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/store", cfg.StoreDir)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "bulk", cfg.InputDir)
}

func TestLoadClampsWorkers(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("workers", 0)
	viper.Set("write_retries", -3)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 0, cfg.WriteRetries)
}
