package imgproc

import (
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"

	"ternarystats/internal/models"
)

// FromImage converts img to a luminance grid in the 0-1 range.
func FromImage(img image.Image) *mat.Dense {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return &mat.Dense{}
	}

	out := mat.NewDense(height, width, nil)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			g := color.Gray16Model.Convert(img.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.Gray16)
			out.Set(y, x, float64(g.Y)/65535.0)
		}
	}
	return out
}

// MaskFromImage treats every pixel brighter than mid-grey as valid.
func MaskFromImage(img image.Image) *models.Mask {
	return models.MaskFromDense(FromImage(img), 0.5)
}

// ToImage renders m as a 16-bit grayscale image, stretching its finite range
// to full scale. NaN samples are drawn black.
func ToImage(m mat.Matrix) *image.Gray16 {
	if IsEmpty(m) {
		return image.NewGray16(image.Rect(0, 0, 0, 0))
	}
	rows, cols := m.Dims()
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	scale := 0.0
	if hi > lo {
		scale = 1 / (hi - lo)
	}

	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			img.SetGray16(j, i, color.Gray16{Y: uint16(math.Round((v - lo) * scale * 65535))})
		}
	}
	return img
}
