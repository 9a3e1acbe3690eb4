package analysis

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/gonum/mat"

	"ternarystats/internal/models"
	"ternarystats/pkg/imgproc"
)

// ImageSource supplies the images of a set by position.
type ImageSource interface {
	Len() int
	Name(i int) string
	Image(i int) (*mat.Dense, error)
}

// FileSource loads images from disk.
type FileSource struct {
	Paths []string
}

func (s FileSource) Len() int { return len(s.Paths) }

func (s FileSource) Name(i int) string { return s.Paths[i] }

func (s FileSource) Image(i int) (*mat.Dense, error) {
	return imgproc.Load(s.Paths[i])
}

// MatrixSource serves images already held in memory.
type MatrixSource struct {
	Names  []string
	Images []*mat.Dense
}

func (s MatrixSource) Len() int { return len(s.Images) }

func (s MatrixSource) Name(i int) string {
	if i < len(s.Names) {
		return s.Names[i]
	}
	return fmt.Sprintf("image_%03d", i)
}

func (s MatrixSource) Image(i int) (*mat.Dense, error) { return s.Images[i], nil }

// GeneratorSource produces images on the fly.
type GeneratorSource struct {
	N        int
	Generate func(i int) (*mat.Dense, error)
}

func (s GeneratorSource) Len() int { return s.N }

func (s GeneratorSource) Name(i int) string { return fmt.Sprintf("generated_%03d", i) }

func (s GeneratorSource) Image(i int) (*mat.Dense, error) { return s.Generate(i) }

// Object is one masked region of an image.
type Object struct {
	ID   int
	Mask *models.Mask
}

// MaskSource supplies the objects of image i. No objects means the whole
// image is analyzed without a mask.
type MaskSource interface {
	Objects(i int, name string) ([]Object, error)
}

// MaskFunc adapts a function to MaskSource.
type MaskFunc func(i int, name string) ([]Object, error)

func (f MaskFunc) Objects(i int, name string) ([]Object, error) { return f(i, name) }

// maskExtensions are tried in order when looking up a mask file.
var maskExtensions = []string{".png", ".tif", ".tiff", ".bmp", ".gif", ".jpg", ".jpeg"}

// MaskDir pairs every image with the file in dir that has the same base name
// and one of the usual image extensions. Images without such a file are
// analyzed unmasked.
func MaskDir(dir string) MaskSource {
	return MaskFunc(func(_ int, name string) ([]Object, error) {
		base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		for _, ext := range maskExtensions {
			path := filepath.Join(dir, base+ext)
			if _, err := os.Stat(path); err != nil {
				continue
			}
			mask, err := imgproc.LoadMask(path)
			if err != nil {
				return nil, err
			}
			return []Object{{ID: 1, Mask: mask}}, nil
		}
		return nil, nil
	})
}
