package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name searched for when no file is given.
	ConfigFileName = "ternarystats"

	// EnvPrefix is the prefix for environment variables, e.g.
	// TERNARYSTATS_ANALYSIS_NLEVELS.
	EnvPrefix = "TERNARYSTATS"
)

// Loader merges defaults, an optional YAML file, environment variables and
// bound command-line flags, in increasing order of precedence.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader with its own viper instance.
func NewLoader() *Loader {
	return &Loader{v: viper.New()}
}

// BindFlag binds a command-line flag to a configuration key such as
// "output.format". Only flags the user actually set override the file.
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag for key %s", key)
	}
	return l.v.BindPFlag(key, flag)
}

// Load reads configFile, or searches the standard locations when it is
// empty, and returns the validated configuration.
func (l *Loader) Load(configFile string) (*Config, error) {
	l.setDefaults()
	l.setupEnvironmentVariables()

	if configFile != "" {
		if _, err := os.Stat(configFile); err != nil {
			return nil, fmt.Errorf("config file %s: %w", configFile, err)
		}
		l.v.SetConfigFile(configFile)
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		for _, path := range SearchPaths() {
			l.v.AddConfigPath(path)
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// ConfigFileUsed returns the path of the file read by Load, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// SearchPaths returns the directories searched for ternarystats.yaml.
func SearchPaths() []string {
	paths := []string{"."}
	if configDir, ok := os.LookupEnv("XDG_CONFIG_HOME"); ok {
		paths = append(paths, filepath.Join(configDir, "ternarystats"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "ternarystats"))
	}
	return append(paths, "/etc/ternarystats")
}

func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults registers every key so environment variables can override keys
// missing from the file.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	l.v.SetDefault("analysis.blockAFs", d.Analysis.BlockAFs)
	l.v.SetDefault("analysis.patchSizes", d.Analysis.PatchSizes)
	l.v.SetDefault("analysis.nLevels", d.Analysis.NLevels)
	l.v.SetDefault("analysis.overlapping", d.Analysis.Overlapping)
	l.v.SetDefault("analysis.minPatchUsed", d.Analysis.MinPatchUsed)

	l.v.SetDefault("processing.numWorkers", d.Processing.NumWorkers)
	l.v.SetDefault("processing.patchWorkers", d.Processing.PatchWorkers)
	l.v.SetDefault("processing.imageTimeout", d.Processing.ImageTimeout)

	l.v.SetDefault("output.format", d.Output.Format)
	l.v.SetDefault("output.covariance", d.Output.Covariance)
	l.v.SetDefault("output.intermediaryDir", d.Output.IntermediaryDir)
	l.v.SetDefault("output.metricsFile", d.Output.MetricsFile)

	l.v.SetDefault("logging.level", d.Logging.Level)
	l.v.SetDefault("logging.json", d.Logging.JSON)
}
