// Package config handles tool configuration loading and management.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/quarrylabs/terramold/pkg/geo"
	"github.com/quarrylabs/terramold/pkg/pipeline"
)

// Config holds all tool settings: the model parameters plus the
// app-level concerns around them.
type Config struct {
	Bounds  BoundsConfig    `yaml:"bounds"`
	Model   pipeline.Params `yaml:"model"`
	Output  OutputConfig    `yaml:"output"`
	Logging LoggingConfig   `yaml:"logging"`
}

// BoundsConfig is the geographic box to produce.
type BoundsConfig struct {
	MinLat float64 `yaml:"min_lat"`
	MinLon float64 `yaml:"min_lon"`
	MaxLat float64 `yaml:"max_lat"`
	MaxLon float64 `yaml:"max_lon"`
}

// GeoBounds converts to the pipeline's bounds type.
func (b BoundsConfig) GeoBounds() geo.GeoBounds {
	return geo.GeoBounds{MinLat: b.MinLat, MinLon: b.MinLon, MaxLat: b.MaxLat, MaxLon: b.MaxLon}
}

// OutputConfig holds export destinations. Empty paths skip the format.
type OutputConfig struct {
	STLPath   string `yaml:"stl_path"`
	ThreeMF   string `yaml:"threemf_path"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Bounds: BoundsConfig{
			MinLat: 50.400, MinLon: 30.500,
			MaxLat: 50.409, MaxLon: 30.514,
		},
		Model: pipeline.DefaultParams(),
		Output: OutputConfig{
			ThreeMF: "model.3mf",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads configuration with priority: defaults < file. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading config from %s", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %s", path)
	}
	cfg.Model.Clamp()
	return cfg, nil
}
