package models

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"
)

// PatchSize is the shape of the patches extracted from an image.
type PatchSize struct {
	// Rows is the patch height in image pixels
	Rows int `yaml:"rows" json:"rows"`

	// Cols is the patch width in image pixels
	Cols int `yaml:"cols" json:"cols"`
}

// SquarePatch broadcasts a scalar patch size to a square.
func SquarePatch(n int) PatchSize {
	return PatchSize{Rows: n, Cols: n}
}

// Validate rejects non-positive patch dimensions.
func (p PatchSize) Validate() error {
	if p.Rows <= 0 || p.Cols <= 0 {
		return NewConfigurationError("patchSize", "dimensions must be positive, got %dx%d", p.Rows, p.Cols)
	}
	return nil
}

// Pixels returns the number of pixels in one patch.
func (p PatchSize) Pixels() int {
	return p.Rows * p.Cols
}

func (p PatchSize) String() string {
	return fmt.Sprintf("%dx%d", p.Rows, p.Cols)
}

// PatchRecord is one accepted patch.
type PatchRecord struct {
	// Location is the patch top-left corner in image coordinates
	// (X = column, Y = row)
	Location image.Point

	// LocationOrig is the patch footprint in mask/original coordinates
	LocationOrig image.Rectangle

	// Features is the feature vector returned by the extractor
	Features []float64

	// ValidPixels is the number of mask-valid pixels in the patch
	ValidPixels int
}

// Rejections counts candidate patches that did not make it into a ResultSet,
// by reason.
type Rejections struct {
	// Candidates is the number of patch corners the locator produced,
	// including ones discarded as out of bounds
	Candidates int `yaml:"candidates" json:"candidates"`

	// OutOfBounds counts overlapping-mode candidates whose patch would
	// leave the image
	OutOfBounds int `yaml:"outOfBounds" json:"outOfBounds"`

	// InsufficientCoverage counts patches below the minimum valid fraction
	InsufficientCoverage int `yaml:"insufficientCoverage" json:"insufficientCoverage"`

	// UndefinedFeatures counts patches whose feature vector contained NaN
	UndefinedFeatures int `yaml:"undefinedFeatures" json:"undefinedFeatures"`
}

// Add accumulates other into r.
func (r *Rejections) Add(other Rejections) {
	r.Candidates += other.Candidates
	r.OutOfBounds += other.OutOfBounds
	r.InsufficientCoverage += other.InsufficientCoverage
	r.UndefinedFeatures += other.UndefinedFeatures
}

// Total returns the number of rejected candidates.
func (r Rejections) Total() int {
	return r.OutOfBounds + r.InsufficientCoverage + r.UndefinedFeatures
}

// ResultSet is the output of one patch analysis: the accepted patches in
// locator order plus the parameters that produced them.
type ResultSet struct {
	PatchSize    PatchSize
	NLevels      int
	Overlapping  bool
	MinPatchUsed float64

	// FeatureWidth is the length of every feature vector in Patches
	FeatureWidth int

	Patches    []PatchRecord
	Rejections Rejections
}

// Len returns the number of accepted patches.
func (rs *ResultSet) Len() int {
	return len(rs.Patches)
}

// FeatureMatrix stacks the feature vectors into a Len×FeatureWidth matrix.
// It returns nil for an empty result.
func (rs *ResultSet) FeatureMatrix() *mat.Dense {
	if len(rs.Patches) == 0 || rs.FeatureWidth == 0 {
		return nil
	}
	m := mat.NewDense(len(rs.Patches), rs.FeatureWidth, nil)
	for i, p := range rs.Patches {
		m.SetRow(i, p.Features)
	}
	return m
}
