package imgproc

import (
	"fmt"

	"github.com/disintegration/imaging"
	"gonum.org/v1/gonum/mat"

	// WebP is not among the formats imaging registers itself.
	_ "golang.org/x/image/webp"

	"ternarystats/internal/models"
)

// Load decodes the image at path and returns its luminance grid.
func Load(path string) (*mat.Dense, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}
	return FromImage(imaging.Grayscale(img)), nil
}

// LoadMask decodes a mask image: pixels brighter than mid-grey are valid.
func LoadMask(path string) (*models.Mask, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load mask %s: %w", path, err)
	}
	return MaskFromImage(imaging.Grayscale(img)), nil
}
