// Package patches extracts fixed-size patches from a quantized image, rejects
// the ones without enough valid coverage and computes a feature vector for
// each survivor.
package patches

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/sourcegraph/conc/iter"
	"gonum.org/v1/gonum/mat"

	"ternarystats/internal/models"
	"ternarystats/pkg/btc"
	"ternarystats/pkg/imgproc"
)

type outcome int

const (
	accepted outcome = iota
	insufficientCoverage
	undefinedFeatures
)

func (o outcome) String() string {
	switch o {
	case accepted:
		return "accepted"
	case insufficientCoverage:
		return "insufficient coverage"
	case undefinedFeatures:
		return "undefined features"
	}
	return "unknown"
}

// evaluation is the fate of one candidate patch.
type evaluation struct {
	outcome     outcome
	features    []float64
	validPixels int
	err         error
}

// Analyze runs the patch engine over img.
//
// mask marks analyzable territory and may be finer than img; crop locates img
// inside mask (nil means the whole mask, or identity when mask is nil too).
// img is expected to hold quantization levels 0..opts.NLevels-1 with NaN for
// samples that are already invalid.
//
// All options are validated before any patch is touched. Rejected patches
// never cause an error; an image or mask without usable patches yields an
// empty ResultSet. Cancelling ctx stops the evaluation of further candidates
// and returns ctx.Err().
func Analyze(ctx context.Context, img mat.Matrix, mask *models.Mask, crop *image.Rectangle, ex btc.Extractor, opts Options) (*models.ResultSet, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if ex == nil {
		return nil, models.NewConfigurationError("extractor", "no feature extractor supplied")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	width := ex.Width(opts.NLevels)
	if width <= 0 {
		return nil, models.NewConfigurationError("extractor", "no features for %d levels", opts.NLevels)
	}

	rows, cols := 0, 0
	if !imgproc.IsEmpty(img) {
		rows, cols = img.Dims()
	}
	if crop == nil && mask != nil {
		mr, mc := mask.Dims()
		full := image.Rect(0, 0, mc, mr)
		crop = &full
	}
	mapper, err := NewMapper(crop, rows, cols)
	if err != nil {
		return nil, err
	}

	rs := &models.ResultSet{
		PatchSize:    opts.PatchSize,
		NLevels:      opts.NLevels,
		Overlapping:  opts.Overlapping,
		MinPatchUsed: opts.MinPatchUsed,
		FeatureWidth: width,
	}
	if rows == 0 || cols == 0 {
		return rs, nil
	}

	valid := ResampleMask(mask, mapper, rows, cols)
	corners, outOfBounds := Locate(rows, cols, opts.PatchSize, opts.Overlapping, valid)
	rs.Rejections.Candidates = len(corners) + outOfBounds
	rs.Rejections.OutOfBounds = outOfBounds

	eval := func(corner *image.Point) evaluation {
		if err := ctx.Err(); err != nil {
			return evaluation{err: err}
		}
		return evaluate(img, valid, *corner, ex, width, opts)
	}
	var evals []evaluation
	if opts.Workers > 1 {
		evals = iter.Mapper[image.Point, evaluation]{MaxGoroutines: opts.Workers}.Map(corners, eval)
	} else {
		evals = make([]evaluation, 0, len(corners))
		for i := range corners {
			ev := eval(&corners[i])
			evals = append(evals, ev)
			if ev.err != nil {
				break
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := opts.PatchSize
	for i, ev := range evals {
		if ev.err != nil {
			return nil, ev.err
		}
		corner := corners[i]
		if ev.outcome != accepted {
			// TODO: surface per-patch rejections to callers that want more than counts.
			opts.Logger.Debug().
				Int("row", corner.Y).
				Int("col", corner.X).
				Int("validPixels", ev.validPixels).
				Stringer("reason", ev.outcome).
				Msg("patch rejected")
			if ev.outcome == insufficientCoverage {
				rs.Rejections.InsufficientCoverage++
			} else {
				rs.Rejections.UndefinedFeatures++
			}
			continue
		}
		footprint := image.Rect(corner.X, corner.Y, corner.X+size.Cols, corner.Y+size.Rows)
		rs.Patches = append(rs.Patches, models.PatchRecord{
			Location:     corner,
			LocationOrig: mapper.ImageToMask(footprint),
			Features:     ev.features,
			ValidPixels:  ev.validPixels,
		})
	}

	opts.Logger.Debug().
		Int("candidates", rs.Rejections.Candidates).
		Int("accepted", len(rs.Patches)).
		Int("outOfBounds", rs.Rejections.OutOfBounds).
		Int("insufficientCoverage", rs.Rejections.InsufficientCoverage).
		Int("undefinedFeatures", rs.Rejections.UndefinedFeatures).
		Stringer("patchSize", size).
		Msg("patch analysis finished")
	return rs, nil
}

// evaluate applies both validity gates to the patch at corner and extracts
// its features when it passes the first.
func evaluate(img mat.Matrix, valid *models.Mask, corner image.Point, ex btc.Extractor, width int, opts Options) evaluation {
	size := opts.PatchSize
	patch := mat.NewDense(size.Rows, size.Cols, nil)
	count := 0
	for i := 0; i < size.Rows; i++ {
		for j := 0; j < size.Cols; j++ {
			if valid.At(corner.Y+i, corner.X+j) {
				count++
				patch.Set(i, j, img.At(corner.Y+i, corner.X+j))
			} else {
				patch.Set(i, j, math.NaN())
			}
		}
	}

	if float64(count)/float64(size.Pixels()) < opts.MinPatchUsed {
		return evaluation{outcome: insufficientCoverage, validPixels: count}
	}

	features := ex.Extract(patch, opts.NLevels)
	if len(features) != width {
		return evaluation{err: fmt.Errorf("extractor returned %d features, declared %d", len(features), width)}
	}
	for _, v := range features {
		if math.IsNaN(v) {
			return evaluation{outcome: undefinedFeatures, validPixels: count}
		}
	}
	return evaluation{outcome: accepted, features: features, validPixels: count}
}
