// Package config provides configuration loading and management for rbfinterp.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"rbfinterp/pkg/errs"
)

// SolverConfig controls the iterative solver and its domain-decomposition
// preconditioner
type SolverConfig struct {
	// MaxIterations is the iteration budget of the outer solver; exceeding
	// it is reported as a not-converged error
	MaxIterations int `yaml:"maxIterations"`

	// FineGridSize is the maximum number of centers owned by a fine grid
	FineGridSize int `yaml:"fineGridSize"`

	// CoarseGridSize is the number of centers sampled into the coarse grid
	CoarseGridSize int `yaml:"coarseGridSize"`

	// GridOverlap enlarges each fine grid's neighborhood radius by this ratio
	GridOverlap float64 `yaml:"gridOverlap"`

	// DirectSolveThreshold is the center count up to which a single grid
	// covering every center is used
	DirectSolveThreshold int `yaml:"directSolveThreshold"`

	// NumWorkers bounds the goroutines used for grid solves and kernel sums
	NumWorkers int `yaml:"numWorkers"`
}

// FitterConfig controls the growth of the active set in the incremental
// and inequality fitters
type FitterConfig struct {
	// GrowthRatio is the fraction of the current center count added per step
	GrowthRatio float64 `yaml:"growthRatio"`

	// MinPointsToAdd is the minimum number of violators added per step
	MinPointsToAdd int `yaml:"minPointsToAdd"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	Solver SolverConfig `yaml:"solver"`

	Fitter FitterConfig `yaml:"fitter"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging of solver iterations
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Solver = DefaultSolverConfig()
	cfg.Fitter = DefaultFitterConfig()

	cfg.Output.Verbose = false

	return cfg
}

// DefaultSolverConfig returns the default solver parameters
func DefaultSolverConfig() SolverConfig {
	return SolverConfig{
		MaxIterations:        256,
		FineGridSize:         256,
		CoarseGridSize:       512,
		GridOverlap:          0.5,
		DirectSolveThreshold: 1024,
		NumWorkers:           runtime.NumCPU(), // Use all available cores by default
	}
}

// DefaultFitterConfig returns the default active-set growth parameters
func DefaultFitterConfig() FitterConfig {
	return FitterConfig{
		GrowthRatio:    0.5,
		MinPointsToAdd: 16,
	}
}

// Validate reports every invalid field at once
func (c SolverConfig) Validate() error {
	var err error
	if c.MaxIterations < 1 {
		err = multierr.Append(err, errs.InvalidArgument("solver.maxIterations must be >= 1, got %d", c.MaxIterations))
	}
	if c.FineGridSize < 1 {
		err = multierr.Append(err, errs.InvalidArgument("solver.fineGridSize must be >= 1, got %d", c.FineGridSize))
	}
	if c.CoarseGridSize < 0 {
		err = multierr.Append(err, errs.InvalidArgument("solver.coarseGridSize must be >= 0, got %d", c.CoarseGridSize))
	}
	if c.GridOverlap < 0 {
		err = multierr.Append(err, errs.InvalidArgument("solver.gridOverlap must be >= 0, got %g", c.GridOverlap))
	}
	if c.DirectSolveThreshold < 0 {
		err = multierr.Append(err, errs.InvalidArgument("solver.directSolveThreshold must be >= 0, got %d", c.DirectSolveThreshold))
	}
	if c.NumWorkers < 1 {
		err = multierr.Append(err, errs.InvalidArgument("solver.numWorkers must be >= 1, got %d", c.NumWorkers))
	}
	return err
}

// Validate reports every invalid field at once
func (c FitterConfig) Validate() error {
	var err error
	if c.GrowthRatio < 0 {
		err = multierr.Append(err, errs.InvalidArgument("fitter.growthRatio must be >= 0, got %g", c.GrowthRatio))
	}
	if c.MinPointsToAdd < 1 {
		err = multierr.Append(err, errs.InvalidArgument("fitter.minPointsToAdd must be >= 1, got %d", c.MinPointsToAdd))
	}
	return err
}

// Validate checks every section
func (c *Config) Validate() error {
	return multierr.Combine(c.Solver.Validate(), c.Fitter.Validate())
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, errs.IO(err, "error reading config file %s", configPath)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errs.IO(err, "error creating config directory")
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errs.IO(err, "error writing config file")
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
