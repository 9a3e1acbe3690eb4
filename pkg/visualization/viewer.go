// Package visualization renders analysis grids and patch layouts for
// inspection.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"

	"ternarystats/pkg/imgproc"
)

// PatchColor is the default outline colour of overlaid patches.
var PatchColor = color.NRGBA{R: 255, G: 64, B: 32, A: 255}

// Viewer renders a 2D grid (an image, a block-averaged image or a quantized
// level map) and the patches taken from it.
type Viewer struct {
	// grid holds the values being viewed
	grid mat.Matrix

	// dimensions of the grid
	rows int
	cols int
}

// NewViewer creates a viewer over grid.
func NewViewer(grid mat.Matrix) *Viewer {
	rows, cols := 0, 0
	if !imgproc.IsEmpty(grid) {
		rows, cols = grid.Dims()
	}
	return &Viewer{grid: grid, rows: rows, cols: cols}
}

// Dims returns the grid dimensions.
func (v *Viewer) Dims() (rows, cols int) {
	return v.rows, v.cols
}

// ExtractRegion copies the sub-grid covered by r (X = column, Y = row). The
// region must lie inside the grid.
func (v *Viewer) ExtractRegion(r image.Rectangle) (*mat.Dense, error) {
	if r.Empty() {
		return nil, fmt.Errorf("region %v is empty", r)
	}
	if r.Min.X < 0 || r.Min.Y < 0 {
		return nil, fmt.Errorf("region %v starts outside the grid", r)
	}
	if r.Max.X > v.cols || r.Max.Y > v.rows {
		return nil, fmt.Errorf("region %v extends beyond the %dx%d grid", r, v.rows, v.cols)
	}
	return imgproc.Crop(v.grid, r), nil
}

// Render draws the grid with its value range stretched to full scale, each
// cell enlarged to scale×scale pixels.
func (v *Viewer) Render(scale int) *image.NRGBA {
	if scale < 1 {
		scale = 1
	}
	img := imaging.Clone(imgproc.ToImage(v.grid))
	if scale == 1 || v.rows == 0 {
		return img
	}
	return imaging.Resize(img, v.cols*scale, v.rows*scale, imaging.NearestNeighbor)
}

// OverlayPatches outlines every rectangle (in grid coordinates) on img, a
// rendering of the grid at the given scale.
func (v *Viewer) OverlayPatches(img *image.NRGBA, rects []image.Rectangle, scale int, c color.Color) {
	if scale < 1 {
		scale = 1
	}
	for _, r := range rects {
		r = image.Rect(r.Min.X*scale, r.Min.Y*scale, r.Max.X*scale, r.Max.Y*scale).Intersect(img.Bounds())
		if r.Empty() {
			continue
		}
		for x := r.Min.X; x < r.Max.X; x++ {
			img.Set(x, r.Min.Y, c)
			img.Set(x, r.Max.Y-1, c)
		}
		for y := r.Min.Y; y < r.Max.Y; y++ {
			img.Set(r.Min.X, y, c)
			img.Set(r.Max.X-1, y, c)
		}
	}
}

// Save writes img to filename, choosing the encoder from the extension:
// .tif/.tiff are written deflate-compressed, everything else goes through
// imaging (png, jpeg, gif, bmp).
func Save(img image.Image, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".tif", ".tiff":
		file, err := os.Create(filename)
		if err != nil {
			return err
		}
		if err := tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	default:
		return imaging.Save(img, filename, imaging.JPEGQuality(90))
	}
}

// SaveOverlay renders the grid with rects outlined and writes it to
// dir/name.png.
func (v *Viewer) SaveOverlay(dir, name string, rects []image.Rectangle, scale int) (string, error) {
	img := v.Render(scale)
	v.OverlayPatches(img, rects, scale, PatchColor)
	path := filepath.Join(dir, name+".png")
	if err := Save(img, path); err != nil {
		return "", fmt.Errorf("saving overlay %s: %w", path, err)
	}
	return path, nil
}
