package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable the tools read. Zero-value fields in a config
// file keep their defaults.
type Config struct {
	Mining     MiningConfig   `yaml:"mining"`
	UEX        UEXConfig      `yaml:"uex"`
	Categories []Category     `yaml:"categories"`
	DataDir    string         `yaml:"data_dir"`
	Tiers      map[string]int `yaml:"tiers"`
	Logging    LoggingConfig  `yaml:"logging"`
}

// MiningConfig holds the game-balance constants.
type MiningConfig struct {
	// BaseConsumptionRate is energy consumed per unit mass per unit resistance factor.
	BaseConsumptionRate float64 `yaml:"base_consumption_rate"`
	// BreakabilityFactor converts power to breakable mass on the curve.
	BreakabilityFactor float64 `yaml:"breakability_factor"`
	// CurveStep is the resistance increment, in percent, between curve points.
	CurveStep float64 `yaml:"curve_step"`
}

// UEXConfig points the fetcher at the item API.
type UEXConfig struct {
	BaseURL     string `yaml:"base_url"`
	Token       string `yaml:"token,omitempty"`
	Timeout     string `yaml:"timeout"`
	Concurrency int    `yaml:"concurrency"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the reference constants and the three mining categories.
func DefaultConfig() *Config {
	return &Config{
		Mining: MiningConfig{
			BaseConsumptionRate: 0.2,
			BreakabilityFactor:  0.182,
			CurveStep:           0.1,
		},
		UEX: UEXConfig{
			BaseURL:     "https://api.uexcorp.uk/2.0",
			Timeout:     "30s",
			Concurrency: 3,
		},
		Categories: []Category{
			{ID: 28, Name: CategoryGadgets},
			{ID: 29, Name: CategoryLaserheads},
			{ID: 30, Name: CategoryModules},
		},
		DataDir: "data",
		Tiers: map[string]int{
			"FLTR Module":        1,
			"FLTR-L Module":      2,
			"FLTR-XL Module":     3,
			"Focus Module":       1,
			"Focus II Module":    2,
			"Focus III Module":   3,
			"Rieger Module":      1,
			"Rieger-C2 Module":   2,
			"Rieger-C3 Module":   3,
			"Torrent Module":     1,
			"Torrent II Module":  2,
			"Torrent III Module": 3,
			"Vaux Module":        1,
			"Vaux-C2 Module":     2,
			"Vaux-C3 Module":     3,
			"XTR Module":         1,
			"XTR-L Module":       2,
			"XTR-XL Module":      3,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// LoadConfig reads a YAML config over the defaults. A missing file yields the
// defaults. Environment overrides are applied last.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the config as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("UEX_TOKEN"); v != "" {
		c.UEX.Token = v
	}
	if v := os.Getenv("UEX_BASE_URL"); v != "" {
		c.UEX.BaseURL = v
	}
	if v := os.Getenv("MINING_DATA_DIR"); v != "" {
		c.DataDir = v
	}
}

// Validate rejects configs the tools cannot run with.
func (c *Config) Validate() error {
	if !finite(c.Mining.BaseConsumptionRate) || c.Mining.BaseConsumptionRate <= 0 {
		return fmt.Errorf("config: mining.base_consumption_rate must be > 0, got %v", c.Mining.BaseConsumptionRate)
	}
	if !finite(c.Mining.BreakabilityFactor) || c.Mining.BreakabilityFactor <= 0 {
		return fmt.Errorf("config: mining.breakability_factor must be > 0, got %v", c.Mining.BreakabilityFactor)
	}
	if !finite(c.Mining.CurveStep) || c.Mining.CurveStep <= 0 || c.Mining.CurveStep > 100 {
		return fmt.Errorf("config: mining.curve_step must be in (0, 100], got %v", c.Mining.CurveStep)
	}
	if c.UEX.Concurrency < 1 {
		return fmt.Errorf("config: uex.concurrency must be >= 1, got %d", c.UEX.Concurrency)
	}
	if _, err := c.UEX.timeout(); err != nil {
		return fmt.Errorf("config: uex.timeout: %w", err)
	}
	if len(c.Categories) == 0 {
		return errors.New("config: no categories")
	}
	ids := make(map[int]bool, len(c.Categories))
	names := make(map[string]bool, len(c.Categories))
	for _, cat := range c.Categories {
		if cat.Name == "" {
			return fmt.Errorf("config: category %d has no name", cat.ID)
		}
		if ids[cat.ID] || names[cat.Name] {
			return fmt.Errorf("config: duplicate category %d %q", cat.ID, cat.Name)
		}
		ids[cat.ID] = true
		names[cat.Name] = true
	}
	return nil
}

func (u UEXConfig) timeout() (time.Duration, error) {
	if u.Timeout == "" {
		return 30 * time.Second, nil
	}
	return time.ParseDuration(u.Timeout)
}

// Allocator builds the allocator at the configured consumption rate.
func (c *Config) Allocator() Allocator {
	return NewAllocator(c.Mining.BaseConsumptionRate)
}
