// Package analysis runs the patch engine over whole images, masked objects
// and image sets, and aggregates the resulting feature tables.
package analysis

import (
	"context"
	"image"

	"gonum.org/v1/gonum/mat"

	"ternarystats/internal/logger"
	"ternarystats/internal/models"
	"ternarystats/pkg/btc"
	"ternarystats/pkg/imgproc"
	"ternarystats/pkg/patches"
)

// Preprocessed is an image prepared for the patch engine at one
// block-averaging factor.
type Preprocessed struct {
	BlockAF int

	// Quantized holds the levels of the block-averaged image; it is empty
	// when the image is smaller than one block
	Quantized *mat.Dense

	// Thresholds are the level boundaries used for quantization
	Thresholds []float64

	// Crop is the footprint of Quantized in original image coordinates
	Crop image.Rectangle
}

// Empty reports whether nothing is left to analyze at this factor.
func (pp *Preprocessed) Empty() bool {
	return imgproc.IsEmpty(pp.Quantized)
}

// Preprocess crops img to a multiple of af, block-averages it and quantizes
// it into nLevels levels using only the pixels mask fully covers. mask stays
// at the resolution of img and may be nil.
func Preprocess(img mat.Matrix, mask *models.Mask, af, nLevels int) (*Preprocessed, error) {
	pp := &Preprocessed{BlockAF: af, Quantized: &mat.Dense{}}
	averaged := imgproc.BlockAverage(imgproc.CropToMultiple(img, af, af), af)
	if imgproc.IsEmpty(averaged) {
		return pp, nil
	}
	ar, ac := averaged.Dims()
	pp.Crop = image.Rect(0, 0, ac*af, ar*af)
	mapper, err := patches.NewMapper(&pp.Crop, ar, ac)
	if err != nil {
		return nil, err
	}
	pp.Quantized, pp.Thresholds = imgproc.Quantize(averaged, nLevels, patches.ResampleMask(mask, mapper, ar, ac))
	return pp, nil
}

// AnalyzeImage analyzes img at every block-averaging factor and patch size
// of p. mask, when given, must have the dimensions of img; it stays at full
// resolution while the image is averaged down, and the patch engine maps
// between the two. ctx is checked between stages and between patches.
func AnalyzeImage(ctx context.Context, img mat.Matrix, mask *models.Mask, ex btc.Extractor, p Params) (*Table, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if ex == nil {
		return nil, models.NewConfigurationError("extractor", "no feature extractor supplied")
	}
	table := NewTable(p.NLevels, ex.Width(p.NLevels))
	if imgproc.IsEmpty(img) {
		return table, nil
	}

	rows, cols := img.Dims()
	if mask != nil {
		if mr, mc := mask.Dims(); mr != rows || mc != cols {
			return nil, models.NewConfigurationError("mask", "mask is %dx%d, image is %dx%d", mr, mc, rows, cols)
		}
	}
	log := logger.Component(p.Logger, "analysis")

	for _, af := range p.BlockAFs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pp, err := Preprocess(img, mask, af, p.NLevels)
		if err != nil {
			return nil, err
		}
		if pp.Empty() {
			log.Debug().Int("blockAF", af).Int("rows", rows).Int("cols", cols).Msg("image smaller than one block")
			continue
		}
		ar, ac := pp.Quantized.Dims()
		log.Debug().
			Int("blockAF", af).
			Int("rows", ar).
			Int("cols", ac).
			Floats64("thresholds", pp.Thresholds).
			Msg("image quantized")

		for _, size := range p.PatchSizes {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			rs, err := patches.Analyze(ctx, pp.Quantized, mask, &pp.Crop, ex, p.patchOptions(size))
			if err != nil {
				return nil, err
			}
			p.Metrics.ObservePatches(rs.Len(), rs.Rejections)
			if err := table.Append(rs, Row{BlockAF: af}); err != nil {
				return nil, err
			}
		}
	}
	return table, nil
}

// AnalyzeObjects analyzes each object's region of img separately and tags
// the rows with the object ID.
func AnalyzeObjects(ctx context.Context, img mat.Matrix, objects []Object, ex btc.Extractor, p Params) (*Table, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if ex == nil {
		return nil, models.NewConfigurationError("extractor", "no feature extractor supplied")
	}
	table := NewTable(p.NLevels, ex.Width(p.NLevels))
	for _, obj := range objects {
		t, err := AnalyzeImage(ctx, img, obj.Mask, ex, p)
		if err != nil {
			return nil, err
		}
		for i := range t.Rows {
			t.Rows[i].ObjectID = obj.ID
		}
		if err := table.Concat(t); err != nil {
			return nil, err
		}
	}
	return table, nil
}
