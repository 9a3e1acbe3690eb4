package analysis

import (
	"time"

	"github.com/rs/zerolog"

	"ternarystats/internal/models"
	"ternarystats/pkg/metrics"
	"ternarystats/pkg/patches"
)

// Params holds the analysis configuration. It is an immutable value passed
// into every stage; nothing in this package keeps a reference to a caller's
// mutable state.
type Params struct {
	// BlockAFs lists the block-averaging factors each image is analyzed at
	BlockAFs []int

	// PatchSizes lists the patch shapes analyzed at every factor
	PatchSizes []models.PatchSize

	// NLevels is the number of quantization levels
	NLevels int

	// Overlapping selects one patch per valid pixel instead of a tiling
	Overlapping bool

	// MinPatchUsed is the minimum fraction of valid pixels per patch
	MinPatchUsed float64

	// NumWorkers bounds the images analyzed concurrently (0 = one per CPU)
	NumWorkers int

	// PatchWorkers bounds the goroutines evaluating patches of one image
	PatchWorkers int

	// ImageTimeout limits the time spent on one image (0 = no limit)
	ImageTimeout time.Duration

	Logger   zerolog.Logger
	Metrics  *metrics.Collector
	Progress ProgressCallback
}

// DefaultParams returns a ternary analysis of 32×32 tiles at full
// resolution.
func DefaultParams() Params {
	return Params{
		BlockAFs:     []int{1},
		PatchSizes:   []models.PatchSize{models.SquarePatch(32)},
		NLevels:      3,
		MinPatchUsed: 0.5,
		Logger:       zerolog.Nop(),
	}
}

// Validate checks every option before any image is touched.
func (p Params) Validate() error {
	if len(p.BlockAFs) == 0 {
		return models.NewConfigurationError("blockAFs", "at least one block-averaging factor is required")
	}
	for _, af := range p.BlockAFs {
		if af < 1 {
			return models.NewConfigurationError("blockAFs", "factors must be positive, got %d", af)
		}
	}
	if len(p.PatchSizes) == 0 {
		return models.NewConfigurationError("patchSizes", "at least one patch size is required")
	}
	for _, size := range p.PatchSizes {
		if err := p.patchOptions(size).Validate(); err != nil {
			return err
		}
	}
	if p.NumWorkers < 0 {
		return models.NewConfigurationError("numWorkers", "must not be negative, got %d", p.NumWorkers)
	}
	if p.ImageTimeout < 0 {
		return models.NewConfigurationError("imageTimeout", "must not be negative, got %v", p.ImageTimeout)
	}
	return nil
}

// patchOptions derives the patch engine options for one patch size.
func (p Params) patchOptions(size models.PatchSize) patches.Options {
	return patches.Options{
		PatchSize:    size,
		NLevels:      p.NLevels,
		Overlapping:  p.Overlapping,
		MinPatchUsed: p.MinPatchUsed,
		Workers:      p.PatchWorkers,
		Logger:       p.Logger,
	}
}
