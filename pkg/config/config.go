// Package config provides configuration loading and management for
// dicomto3d. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Processing parameters
	Processing struct {
		// TargetSpacing is the uniform resampling grid spacing in mm.
		TargetSpacing struct {
			X float64 `yaml:"x"`
			Y float64 `yaml:"y"`
			Z float64 `yaml:"z"`
		} `yaml:"targetSpacing"`

		// Threshold is the iso-surface level in Hounsfield units.
		Threshold float64 `yaml:"threshold"`

		// Step is the surface extraction stride in voxels.
		Step int `yaml:"step"`
	} `yaml:"processing"`

	// Snapshot parameters
	Snapshot struct {
		// Dir is where intermediate volume snapshots are kept.
		Dir string `yaml:"dir"`

		// Enabled turns the snapshot cache on.
		Enabled bool `yaml:"enabled"`
	} `yaml:"snapshot"`

	// Viewer parameters for slice sheet extraction
	Viewer struct {
		// WindowCenter and WindowWidth set the Hounsfield display window.
		WindowCenter float64 `yaml:"windowCenter"`
		WindowWidth  float64 `yaml:"windowWidth"`
	} `yaml:"viewer"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output.
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.TargetSpacing.X = 1.0
	cfg.Processing.TargetSpacing.Y = 1.0
	cfg.Processing.TargetSpacing.Z = 1.0
	cfg.Processing.Threshold = 300
	cfg.Processing.Step = 1

	cfg.Snapshot.Dir = "snapshots"
	cfg.Snapshot.Enabled = true

	cfg.Viewer.WindowCenter = 300
	cfg.Viewer.WindowWidth = 2000

	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the
// specified path.
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
