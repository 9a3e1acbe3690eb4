package patches

import (
	"math"

	"github.com/rs/zerolog"

	"ternarystats/internal/models"
)

// Options configures one patch analysis. It is passed by value and never
// modified.
type Options struct {
	// PatchSize is the shape of every extracted patch
	PatchSize models.PatchSize

	// NLevels is the number of quantization levels of the input image
	NLevels int

	// Overlapping selects one patch per valid pixel instead of a tiling
	Overlapping bool

	// MinPatchUsed is the minimum fraction of mask-valid pixels a patch
	// needs to be analyzed, in [0, 1]
	MinPatchUsed float64

	// Workers bounds the goroutines evaluating patches; values below 2
	// evaluate sequentially
	Workers int

	// Logger receives a debug event for every rejected patch
	Logger zerolog.Logger
}

// Validate checks option values. Every failure is a ConfigurationError.
func (o Options) Validate() error {
	if err := o.PatchSize.Validate(); err != nil {
		return err
	}
	if o.NLevels < 2 {
		return models.NewConfigurationError("nLevels", "need at least 2 levels, got %d", o.NLevels)
	}
	if math.IsNaN(o.MinPatchUsed) || o.MinPatchUsed < 0 || o.MinPatchUsed > 1 {
		return models.NewConfigurationError("minPatchUsed", "must lie in [0, 1], got %v", o.MinPatchUsed)
	}
	if o.Workers < 0 {
		return models.NewConfigurationError("workers", "must not be negative, got %d", o.Workers)
	}
	return nil
}
