package patches

import (
	"image"
	"math"

	"ternarystats/internal/models"
	"ternarystats/pkg/imgproc"
)

// coverageTolerance is how far a block-averaged mask cell may be from 1 and
// still count as fully valid.
const coverageTolerance = 1e-9

// Mapper translates image pixel coordinates into the coordinate frame of the
// mask (the original, finer frame the image was cropped and block-averaged
// from). Each image pixel covers a Step×Step block of mask cells.
type Mapper struct {
	// Step is the integer scale factor between image and mask
	Step int

	// Origin is the mask position of the image's top-left pixel
	Origin image.Point
}

// NewMapper derives the mapping for an image of rows×cols pixels located at
// crop in mask coordinates. A nil crop is the identity mapping. The row and
// column scale factors must agree; otherwise the scaling does not preserve
// the aspect ratio and a ConfigurationError is returned.
func NewMapper(crop *image.Rectangle, rows, cols int) (Mapper, error) {
	if crop == nil {
		return Mapper{Step: 1}, nil
	}
	if crop.Empty() {
		return Mapper{}, models.NewConfigurationError("maskCrop", "empty rectangle %v", *crop)
	}
	if rows == 0 || cols == 0 {
		return Mapper{Step: 1, Origin: crop.Min}, nil
	}

	rowStep := crop.Dy() / rows
	colStep := crop.Dx() / cols
	if rowStep != colStep {
		return Mapper{}, models.NewConfigurationError("maskCrop",
			"non-aspect-preserving scaling: row step %d, column step %d", rowStep, colStep)
	}
	if rowStep == 0 {
		return Mapper{}, models.NewConfigurationError("maskCrop",
			"crop %v is smaller than the %dx%d image", *crop, rows, cols)
	}
	return Mapper{Step: rowStep, Origin: crop.Min}, nil
}

// ImageToMask maps a rectangle of image pixels onto the mask cells it covers.
func (m Mapper) ImageToMask(r image.Rectangle) image.Rectangle {
	return image.Rect(
		m.Origin.X+r.Min.X*m.Step,
		m.Origin.Y+r.Min.Y*m.Step,
		m.Origin.X+r.Max.X*m.Step,
		m.Origin.Y+r.Max.Y*m.Step,
	)
}

// ResampleMask brings mask down to image resolution for a rows×cols image.
// A pixel is valid only when every mask cell it covers is valid; cells that
// fall outside the mask count as invalid. A nil mask is all valid.
func ResampleMask(mask *models.Mask, m Mapper, rows, cols int) *models.Mask {
	if mask == nil {
		return models.FullMask(rows, cols)
	}
	if rows == 0 || cols == 0 {
		return models.NewMask(rows, cols)
	}

	r := m.ImageToMask(image.Rect(0, 0, cols, rows))
	sub := mask.Sub(r.Min.Y, r.Min.X, r.Max.Y, r.Max.X)
	avg := imgproc.BlockAverage(sub.Dense(), m.Step)

	out := models.NewMask(rows, cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, math.Abs(avg.At(i, j)-1) <= coverageTolerance)
		}
	}
	return out
}
