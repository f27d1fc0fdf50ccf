package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Setenv("UEX_TOKEN", "")
	t.Setenv("UEX_BASE_URL", "")
	t.Setenv("MINING_DATA_DIR", "")
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 0.2, cfg.Mining.BaseConsumptionRate)
	assert.Equal(t, 0.182, cfg.Mining.BreakabilityFactor)
	assert.Equal(t, 0.1, cfg.Mining.CurveStep)
	assert.Equal(t, "https://api.uexcorp.uk/2.0", cfg.UEX.BaseURL)
	assert.Len(t, cfg.Categories, 3)
	assert.Len(t, cfg.Tiers, 18)
	assert.Equal(t, 3, cfg.Tiers["Rieger-C3 Module"])
	assert.Equal(t, 0.2, cfg.Allocator().BaseConsumptionRate)
}

func TestLoadConfigMissingFile(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigOverlaysDefaults(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "laser-power.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mining:
  base_consumption_rate: 0.25
data_dir: /srv/mining
tiers:
  Custom Module: 2
  FLTR Module: 3
logging:
  level: debug
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 0.25, cfg.Mining.BaseConsumptionRate)
	assert.Equal(t, 0.182, cfg.Mining.BreakabilityFactor)
	assert.Equal(t, "/srv/mining", cfg.DataDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.UEX.Concurrency)

	assert.Equal(t, 2, cfg.Tiers["Custom Module"])
	assert.Equal(t, 3, cfg.Tiers["FLTR Module"])
	assert.Equal(t, 2, cfg.Tiers["Vaux-C2 Module"])
	assert.Len(t, cfg.Tiers, 19)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("UEX_TOKEN", "env-token")
	t.Setenv("UEX_BASE_URL", "http://localhost:9999")
	t.Setenv("MINING_DATA_DIR", "/tmp/uex")

	path := filepath.Join(t.TempDir(), "laser-power.yaml")
	require.NoError(t, os.WriteFile(path, []byte("uex:\n  token: file-token\n"), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-token", cfg.UEX.Token)
	assert.Equal(t, "http://localhost:9999", cfg.UEX.BaseURL)
	assert.Equal(t, "/tmp/uex", cfg.DataDir)
}

func TestLoadConfigErrors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("mining: [1, 2\n"), 0o644))
	_, err := LoadConfig(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("mining:\n  base_consumption_rate: -1\n"), 0o644))
	_, err = LoadConfig(invalid)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_consumption_rate")

	_, err = LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"breakability factor", func(c *Config) { c.Mining.BreakabilityFactor = 0 }, "breakability_factor"},
		{"curve step too large", func(c *Config) { c.Mining.CurveStep = 101 }, "curve_step"},
		{"curve step zero", func(c *Config) { c.Mining.CurveStep = 0 }, "curve_step"},
		{"concurrency", func(c *Config) { c.UEX.Concurrency = 0 }, "concurrency"},
		{"timeout", func(c *Config) { c.UEX.Timeout = "later" }, "timeout"},
		{"no categories", func(c *Config) { c.Categories = nil }, "no categories"},
		{"unnamed category", func(c *Config) { c.Categories = []Category{{ID: 1}} }, "has no name"},
		{"duplicate id", func(c *Config) {
			c.Categories = []Category{{ID: 1, Name: "a"}, {ID: 1, Name: "b"}}
		}, "duplicate category"},
		{"duplicate name", func(c *Config) {
			c.Categories = []Category{{ID: 1, Name: "a"}, {ID: 2, Name: "a"}}
		}, "duplicate category"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfigSaveRoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "nested", "laser-power.yaml")

	cfg := DefaultConfig()
	cfg.Mining.CurveStep = 0.5
	cfg.Categories = append(cfg.Categories, Category{ID: 31, Name: "mining_heads"})
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "token")
}
