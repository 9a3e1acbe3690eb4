package cmd

import (
	"bytes"
	"context"
	"encoding/csv"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ternarystats/pkg/config"
)

// execute runs the command line with args and returns its stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// writeScene writes a 16x16 grayscale noise image and returns its path.
func writeScene(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 16, 16))
	state := uint32(12345)
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			state = state*1664525 + 1013904223
			img.SetGray(x, y, color.Gray{Y: uint8(state >> 24)})
		}
	}
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(img, path))
	return path
}

// writeConfig writes an analysis configuration with 4x4 tiles at full
// resolution.
func writeConfig(t *testing.T, dir string) string {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Analysis.PatchSizes[0].Rows = 4
	cfg.Analysis.PatchSizes[0].Cols = 4
	cfg.Analysis.MinPatchUsed = 1
	cfg.Processing.NumWorkers = 2
	path := filepath.Join(dir, "ternarystats.yaml")
	require.NoError(t, config.SaveConfig(cfg, path))
	return path
}

func TestRootCommandHelp(t *testing.T) {
	stdout, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "Available Commands:")
	for _, name := range []string{"analyze", "config", "version"} {
		assert.Contains(t, stdout, name)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, stderr, err := execute(t, "--invalid-flag")
	require.Error(t, err)
	assert.Contains(t, stderr, "unknown flag")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(stdout, "ternarystats dev"), stdout)
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg", "ternarystats.yaml")
	stdout, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, path)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfig().Analysis, cfg.Analysis)
}

func TestConfigShowAppliesFlags(t *testing.T) {
	dir := t.TempDir()
	stdout, _, err := execute(t, "config", "show", "--config", writeConfig(t, dir), "--log-level", "debug")
	require.NoError(t, err)
	assert.Contains(t, stdout, "level: debug")
	assert.Contains(t, stdout, "minPatchUsed: 1")
}

func TestAnalyzeWritesCSV(t *testing.T) {
	dir := t.TempDir()
	scene := writeScene(t, dir, "scene.png")
	output := filepath.Join(dir, "out", "features.csv")
	metricsFile := filepath.Join(dir, "metrics.prom")
	intermediary := filepath.Join(dir, "intermediary")

	_, stderr, err := execute(t, "analyze", scene,
		"--config", writeConfig(t, dir),
		"--output", output,
		"--covariance",
		"--metrics-file", metricsFile,
		"--intermediary-dir", intermediary,
	)
	require.NoError(t, err, stderr)
	assert.Contains(t, stderr, "analysis complete")

	f, err := os.Open(output)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1+16)
	assert.Equal(t, "image_index", records[0][0])
	assert.Equal(t, "gamma[0]", records[0][13])
	assert.Equal(t, scene, records[1][1])

	moments, err := os.ReadFile(filepath.Join(dir, "out", "features_moments.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(moments), "n: 16")

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `ternarystats_images_total{status="ok"} 1`)

	_, err = os.Stat(filepath.Join(intermediary, "000_scene_af1.png"))
	assert.NoError(t, err)
}

func TestAnalyzeWithMaskDirYAML(t *testing.T) {
	dir := t.TempDir()
	scene := writeScene(t, dir, "scene.png")

	maskDir := filepath.Join(dir, "masks")
	mask := image.NewGray(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 8; x++ {
			mask.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	require.NoError(t, os.MkdirAll(maskDir, 0o755))
	require.NoError(t, imaging.Save(mask, filepath.Join(maskDir, "scene.png")))

	stdout, _, err := execute(t, "analyze", scene,
		"--config", writeConfig(t, dir),
		"--mask-dir", maskDir,
		"--format", "yaml",
	)
	require.NoError(t, err)
	assert.Equal(t, 8, strings.Count(stdout, "object: 1"))
	assert.Contains(t, stdout, "insufficientCoverage: 8")
}

func TestAnalyzeRejectsBadConfiguration(t *testing.T) {
	dir := t.TempDir()
	scene := writeScene(t, dir, "scene.png")

	_, _, err := execute(t, "analyze", scene, "--config", writeConfig(t, dir), "--format", "xml")
	assert.ErrorContains(t, err, "output.format")

	_, _, err = execute(t, "analyze")
	assert.Error(t, err)
}

func TestAnalyzeMissingImage(t *testing.T) {
	dir := t.TempDir()
	_, _, err := execute(t, "analyze", filepath.Join(dir, "absent.png"), "--config", writeConfig(t, dir))
	assert.ErrorContains(t, err, "absent.png")
}
