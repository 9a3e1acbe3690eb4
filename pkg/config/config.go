// Package config provides configuration loading and management for ternarystats.
// It handles loading configuration from YAML files and environment variables
// and turns it into analysis parameters.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"ternarystats/internal/models"
	"ternarystats/pkg/analysis"
	"ternarystats/pkg/metrics"
)

// Output formats accepted by Output.Format.
const (
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Analysis parameters
	Analysis struct {
		// BlockAFs lists the block-averaging factors applied to every image
		BlockAFs []int `yaml:"blockAFs" mapstructure:"blockAFs"`

		// PatchSizes lists the patch shapes analyzed at every factor
		PatchSizes []models.PatchSize `yaml:"patchSizes" mapstructure:"patchSizes"`

		// NLevels is the number of quantization levels
		NLevels int `yaml:"nLevels" mapstructure:"nLevels"`

		// Overlapping extracts one patch per valid pixel instead of a tiling
		Overlapping bool `yaml:"overlapping" mapstructure:"overlapping"`

		// MinPatchUsed is the minimum fraction of valid pixels per patch
		MinPatchUsed float64 `yaml:"minPatchUsed" mapstructure:"minPatchUsed"`
	} `yaml:"analysis" mapstructure:"analysis"`

	// Processing parameters
	Processing struct {
		// NumWorkers is how many images are analyzed concurrently
		NumWorkers int `yaml:"numWorkers" mapstructure:"numWorkers"`

		// PatchWorkers is how many goroutines evaluate the patches of one image
		PatchWorkers int `yaml:"patchWorkers" mapstructure:"patchWorkers"`

		// ImageTimeout limits the time spent on a single image (0 disables it)
		ImageTimeout time.Duration `yaml:"imageTimeout" mapstructure:"imageTimeout"`
	} `yaml:"processing" mapstructure:"processing"`

	// Output parameters
	Output struct {
		// Format is the feature table format, csv or yaml
		Format string `yaml:"format" mapstructure:"format"`

		// Covariance also writes the per-object feature covariance
		Covariance bool `yaml:"covariance" mapstructure:"covariance"`

		// IntermediaryDir receives quantized images and patch overlays when set
		IntermediaryDir string `yaml:"intermediaryDir" mapstructure:"intermediaryDir"`

		// MetricsFile receives a Prometheus textfile dump when set
		MetricsFile string `yaml:"metricsFile" mapstructure:"metricsFile"`
	} `yaml:"output" mapstructure:"output"`

	// Logging parameters
	Logging struct {
		// Level is the minimum level logged (trace, debug, info, warn, error)
		Level string `yaml:"level" mapstructure:"level"`

		// JSON switches from console output to JSON lines
		JSON bool `yaml:"json" mapstructure:"json"`
	} `yaml:"logging" mapstructure:"logging"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Analysis.BlockAFs = []int{1}
	cfg.Analysis.PatchSizes = []models.PatchSize{models.SquarePatch(32)}
	cfg.Analysis.NLevels = 3
	cfg.Analysis.Overlapping = false
	cfg.Analysis.MinPatchUsed = 0.5

	cfg.Processing.NumWorkers = runtime.NumCPU()
	cfg.Processing.PatchWorkers = 1
	cfg.Processing.ImageTimeout = 0

	cfg.Output.Format = FormatCSV

	cfg.Logging.Level = "info"

	return cfg
}

// Validate checks the configuration and returns a models.ConfigurationError
// describing the first problem found.
func (c *Config) Validate() error {
	if err := c.ToParams(zerolog.Nop(), nil).Validate(); err != nil {
		return err
	}
	switch c.Output.Format {
	case FormatCSV, FormatYAML:
	default:
		return models.NewConfigurationError("output.format", "unknown format %q, want %s or %s", c.Output.Format, FormatCSV, FormatYAML)
	}
	return nil
}

// ToParams converts the configuration into analysis parameters.
func (c *Config) ToParams(log zerolog.Logger, collector *metrics.Collector) analysis.Params {
	return analysis.Params{
		BlockAFs:     append([]int(nil), c.Analysis.BlockAFs...),
		PatchSizes:   append([]models.PatchSize(nil), c.Analysis.PatchSizes...),
		NLevels:      c.Analysis.NLevels,
		Overlapping:  c.Analysis.Overlapping,
		MinPatchUsed: c.Analysis.MinPatchUsed,
		NumWorkers:   c.Processing.NumWorkers,
		PatchWorkers: c.Processing.PatchWorkers,
		ImageTimeout: c.Processing.ImageTimeout,
		Logger:       log,
		Metrics:      collector,
	}
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
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

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}
