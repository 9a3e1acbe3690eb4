package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ternarystats/internal/models"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []int{1}, cfg.Analysis.BlockAFs)
	assert.Equal(t, 3, cfg.Analysis.NLevels)
	assert.Equal(t, FormatCSV, cfg.Output.Format)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no factors", func(c *Config) { c.Analysis.BlockAFs = nil }},
		{"zero patch", func(c *Config) { c.Analysis.PatchSizes = []models.PatchSize{{}} }},
		{"one level", func(c *Config) { c.Analysis.NLevels = 1 }},
		{"coverage", func(c *Config) { c.Analysis.MinPatchUsed = 1.5 }},
		{"format", func(c *Config) { c.Output.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), models.ErrConfiguration)
		})
	}
}

func TestToParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Analysis.BlockAFs = []int{1, 2, 4}
	cfg.Analysis.Overlapping = true
	cfg.Processing.NumWorkers = 3
	cfg.Processing.ImageTimeout = time.Minute

	p := cfg.ToParams(zerolog.Nop(), nil)
	assert.Equal(t, []int{1, 2, 4}, p.BlockAFs)
	assert.True(t, p.Overlapping)
	assert.Equal(t, 3, p.NumWorkers)
	assert.Equal(t, time.Minute, p.ImageTimeout)

	// the params own their slices
	p.BlockAFs[0] = 9
	assert.Equal(t, 1, cfg.Analysis.BlockAFs[0])
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ternarystats.yaml")
	cfg := DefaultConfig()
	cfg.Analysis.PatchSizes = []models.PatchSize{{Rows: 8, Cols: 16}}
	cfg.Processing.ImageTimeout = 90 * time.Second
	cfg.Output.Covariance = true
	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoaderReadsFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	content := `
analysis:
  blockAFs: [1, 2]
  patchSizes:
    - rows: 16
      cols: 16
  nLevels: 5
output:
  format: yaml
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("TERNARYSTATS_PROCESSING_NUMWORKERS", "7")
	t.Setenv("TERNARYSTATS_PROCESSING_IMAGETIMEOUT", "45s")

	loader := NewLoader()
	cfg, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, loader.ConfigFileUsed())
	assert.Equal(t, []int{1, 2}, cfg.Analysis.BlockAFs)
	assert.Equal(t, []models.PatchSize{models.SquarePatch(16)}, cfg.Analysis.PatchSizes)
	assert.Equal(t, 5, cfg.Analysis.NLevels)
	assert.Equal(t, FormatYAML, cfg.Output.Format)
	assert.Equal(t, 7, cfg.Processing.NumWorkers)
	assert.Equal(t, 45*time.Second, cfg.Processing.ImageTimeout)
	assert.InDelta(t, 0.5, cfg.Analysis.MinPatchUsed, 0)
}

func TestLoaderFlagOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output:\n  format: yaml\n"), 0o644))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("format", FormatCSV, "")
	require.NoError(t, flags.Parse([]string{"--format", "csv"}))

	loader := NewLoader()
	require.NoError(t, loader.BindFlag("output.format", flags.Lookup("format")))
	cfg, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, cfg.Output.Format)
}

func TestLoaderRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("analysis:\n  nLevels: 1\n"), 0o644))

	_, err := NewLoader().Load(path)
	assert.ErrorIs(t, err, models.ErrConfiguration)

	_, err = NewLoader().Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoaderWithoutFileUsesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	defer func() { _ = os.Chdir(wd) }()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := NewLoader().Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Analysis.PatchSizes, cfg.Analysis.PatchSizes)
	assert.Equal(t, "info", cfg.Logging.Level)
}
