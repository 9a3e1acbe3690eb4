package cmd

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ternarystats/internal/models"
	"ternarystats/pkg/analysis"
	"ternarystats/pkg/btc"
	"ternarystats/pkg/config"
	"ternarystats/pkg/export"
	"ternarystats/pkg/imgproc"
	"ternarystats/pkg/metrics"
	"ternarystats/pkg/visualization"
)

type analyzeOptions struct {
	maskDir string
	output  string
}

func newAnalyzeCommand(global *globalOptions) *cobra.Command {
	opts := &analyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze [images...]",
		Short: "Compute patch features for a set of images",
		Long: `Analyze loads every image, block-averages and quantizes it, and writes one
feature row per accepted patch. With --mask-dir each image is paired with the
mask of the same base name; only patches covered by the mask are kept.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(cmd, map[string]string{
				"output.format":          "format",
				"output.covariance":      "covariance",
				"output.metricsFile":     "metrics-file",
				"output.intermediaryDir": "intermediary-dir",
				"processing.numWorkers":  "workers",
			})
			if err != nil {
				return err
			}
			return runAnalyze(cmd, cfg, opts, args)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.maskDir, "mask-dir", "", "directory holding one mask per image, matched by base name")
	flags.StringVarP(&opts.output, "output", "o", "-", "feature table destination (- for stdout)")
	flags.String("format", config.FormatCSV, "feature table format (csv or yaml)")
	flags.Bool("covariance", false, "also write the per-object feature covariance")
	flags.String("metrics-file", "", "write Prometheus metrics to this textfile")
	flags.String("intermediary-dir", "", "save quantized images with patch overlays here")
	flags.IntP("workers", "w", 0, "images analyzed concurrently (0 = one per CPU)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, cfg *config.Config, opts *analyzeOptions, images []string) error {
	log := newLogger(cmd, cfg)
	registry := prometheus.NewRegistry()

	params := cfg.ToParams(log, metrics.NewCollector(registry))
	params.Progress = analysis.LogProgress(log)

	var masks analysis.MaskSource
	if opts.maskDir != "" {
		masks = analysis.MaskDir(opts.maskDir)
	}

	extractor := btc.Ternary{}
	table, summary, err := analysis.AnalyzeImageSet(cmd.Context(), analysis.FileSource{Paths: images}, masks, extractor, params)
	if err != nil {
		log.Error().Err(err).Msg("analysis failed")
		return err
	}
	log.Info().
		Int("images", summary.Images).
		Int("patches", summary.Patches).
		Int("outOfBounds", summary.Rejections.OutOfBounds).
		Int("insufficientCoverage", summary.Rejections.InsufficientCoverage).
		Int("undefinedFeatures", summary.Rejections.UndefinedFeatures).
		Dur("elapsed", summary.Elapsed).
		Msg("analysis complete")

	labels := btc.Labels(cfg.Analysis.NLevels)
	if err := writeOutput(cmd.OutOrStdout(), opts.output, func(w io.Writer) error {
		if cfg.Output.Format == config.FormatYAML {
			return export.WriteYAML(w, table, labels)
		}
		return export.WriteCSV(w, table, labels)
	}); err != nil {
		return err
	}

	if cfg.Output.Covariance {
		byObject, err := analysis.CovarianceByObject(table)
		switch {
		case errors.Is(err, analysis.ErrTooFewSamples):
			log.Warn().Int("patches", table.Len()).Msg("too few patches for a covariance estimate")
		case err != nil:
			return err
		default:
			if err := writeOutput(cmd.OutOrStdout(), momentsPath(opts.output), func(w io.Writer) error {
				return export.WriteMoments(w, byObject, labels)
			}); err != nil {
				return err
			}
		}
	}

	if cfg.Output.IntermediaryDir != "" {
		if err := saveIntermediaries(cfg.Output.IntermediaryDir, images, masks, table, params, log); err != nil {
			return err
		}
	}

	if cfg.Output.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.Output.MetricsFile, registry); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

// writeOutput calls write with stdout for "-" and with a created file
// otherwise.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "" || path == "-" {
		return write(stdout)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

// momentsPath places the covariance next to the feature table.
func momentsPath(output string) string {
	if output == "" || output == "-" {
		return "-"
	}
	return strings.TrimSuffix(output, filepath.Ext(output)) + "_moments.yaml"
}

// saveIntermediaries renders, for every image and block-averaging factor,
// the quantized image with the accepted patches outlined.
func saveIntermediaries(dir string, images []string, masks analysis.MaskSource, table *analysis.Table, p analysis.Params, log zerolog.Logger) error {
	const scale = 4

	rects := make(map[[2]int][]image.Rectangle)
	for _, r := range table.Rows {
		key := [2]int{r.ImageIndex, r.BlockAF}
		size := image.Pt(r.PatchSize.Cols, r.PatchSize.Rows)
		rects[key] = append(rects[key], image.Rectangle{Min: r.Location, Max: r.Location.Add(size)})
	}

	for i, path := range images {
		img, err := imgproc.Load(path)
		if err != nil {
			return err
		}
		var mask *models.Mask
		if masks != nil {
			objects, err := masks.Objects(i, path)
			if err != nil {
				return err
			}
			if len(objects) > 0 {
				mask = objects[0].Mask
			}
		}

		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		for _, af := range p.BlockAFs {
			pp, err := analysis.Preprocess(img, mask, af, p.NLevels)
			if err != nil {
				return err
			}
			if pp.Empty() {
				continue
			}

			name := fmt.Sprintf("%03d_%s_af%d", i, base, af)
			out, err := visualization.NewViewer(pp.Quantized).SaveOverlay(dir, name, rects[[2]int{i, af}], scale)
			if err != nil {
				return err
			}
			log.Debug().Str("file", out).Msg("intermediary saved")
		}
	}
	return nil
}
