package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"ternarystats/internal/models"
)

// Row is one accepted patch together with where it came from.
type Row struct {
	ImageIndex int
	ImageName  string

	// ObjectID identifies the masked region the patch belongs to; 0 when
	// the image was analyzed as a whole
	ObjectID int

	BlockAF   int
	PatchSize models.PatchSize

	models.PatchRecord
}

// Table accumulates patch rows from many analyses. Its schema (level count
// and feature width) is fixed at construction; merging checks it instead of
// discovering fields on the fly.
type Table struct {
	NLevels      int
	FeatureWidth int
	Rows         []Row

	// Rejections sums the rejection counts of every appended ResultSet
	Rejections models.Rejections
}

// NewTable creates an empty table with the given schema.
func NewTable(nLevels, featureWidth int) *Table {
	return &Table{NLevels: nLevels, FeatureWidth: featureWidth}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

func (t *Table) checkSchema(nLevels, width int) error {
	if nLevels != t.NLevels || width != t.FeatureWidth {
		return fmt.Errorf("schema mismatch: table has %d levels and %d features, got %d levels and %d features",
			t.NLevels, t.FeatureWidth, nLevels, width)
	}
	return nil
}

// Append adds every patch of rs as a row, copying the provenance fields of
// meta onto each.
func (t *Table) Append(rs *models.ResultSet, meta Row) error {
	if err := t.checkSchema(rs.NLevels, rs.FeatureWidth); err != nil {
		return err
	}
	for _, p := range rs.Patches {
		row := meta
		row.PatchSize = rs.PatchSize
		row.PatchRecord = p
		t.Rows = append(t.Rows, row)
	}
	t.Rejections.Add(rs.Rejections)
	return nil
}

// Concat appends the rows of other by vertical stacking.
func (t *Table) Concat(other *Table) error {
	if err := t.checkSchema(other.NLevels, other.FeatureWidth); err != nil {
		return err
	}
	t.Rows = append(t.Rows, other.Rows...)
	t.Rejections.Add(other.Rejections)
	return nil
}

// FeatureMatrix stacks the feature vectors into a Len×FeatureWidth matrix.
// It returns nil for an empty table.
func (t *Table) FeatureMatrix() *mat.Dense {
	return featureMatrix(t.Rows, t.FeatureWidth)
}

func featureMatrix(rows []Row, width int) *mat.Dense {
	if len(rows) == 0 || width == 0 {
		return nil
	}
	m := mat.NewDense(len(rows), width, nil)
	for i, r := range rows {
		m.SetRow(i, r.Features)
	}
	return m
}
