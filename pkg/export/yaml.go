package export

import (
	"fmt"
	"image"
	"io"

	"gopkg.in/yaml.v3"

	"ternarystats/internal/models"
	"ternarystats/pkg/analysis"
)

// tableDoc is the YAML layout of a feature table.
type tableDoc struct {
	NLevels      int               `yaml:"nLevels"`
	FeatureWidth int               `yaml:"featureWidth"`
	Labels       []string          `yaml:"labels,omitempty,flow"`
	Rejections   models.Rejections `yaml:"rejections"`
	Rows         []rowDoc          `yaml:"rows"`
}

type rowDoc struct {
	ImageIndex  int              `yaml:"imageIndex"`
	Image       string           `yaml:"image,omitempty"`
	Object      int              `yaml:"object"`
	BlockAF     int              `yaml:"blockAF"`
	PatchSize   models.PatchSize `yaml:"patchSize,flow"`
	Row         int              `yaml:"row"`
	Col         int              `yaml:"col"`
	Orig        [4]int           `yaml:"orig,flow"` // min row, min col, max row, max col
	ValidPixels int              `yaml:"validPixels"`
	Features    []float64        `yaml:"features,flow"`
}

// WriteYAML writes t as a YAML document. labels are stored alongside the
// rows when they match the feature width.
func WriteYAML(w io.Writer, t *analysis.Table, labels []string) error {
	doc := tableDoc{
		NLevels:      t.NLevels,
		FeatureWidth: t.FeatureWidth,
		Rejections:   t.Rejections,
		Rows:         make([]rowDoc, len(t.Rows)),
	}
	if len(labels) == t.FeatureWidth {
		doc.Labels = labels
	}
	for i, r := range t.Rows {
		o := r.LocationOrig
		doc.Rows[i] = rowDoc{
			ImageIndex:  r.ImageIndex,
			Image:       r.ImageName,
			Object:      r.ObjectID,
			BlockAF:     r.BlockAF,
			PatchSize:   r.PatchSize,
			Row:         r.Location.Y,
			Col:         r.Location.X,
			Orig:        [4]int{o.Min.Y, o.Min.X, o.Max.Y, o.Max.X},
			ValidPixels: r.ValidPixels,
			Features:    r.Features,
		}
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding table: %w", err)
	}
	return enc.Close()
}

// ReadYAML reads a table written by WriteYAML, checking every row against
// the declared feature width.
func ReadYAML(r io.Reader) (*analysis.Table, error) {
	var doc tableDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding table: %w", err)
	}

	t := analysis.NewTable(doc.NLevels, doc.FeatureWidth)
	t.Rejections = doc.Rejections
	t.Rows = make([]analysis.Row, len(doc.Rows))
	for i, d := range doc.Rows {
		if len(d.Features) != doc.FeatureWidth {
			return nil, fmt.Errorf("row %d has %d features, table declares %d", i, len(d.Features), doc.FeatureWidth)
		}
		t.Rows[i] = analysis.Row{
			ImageIndex: d.ImageIndex,
			ImageName:  d.Image,
			ObjectID:   d.Object,
			BlockAF:    d.BlockAF,
			PatchSize:  d.PatchSize,
			PatchRecord: models.PatchRecord{
				Location:     image.Pt(d.Col, d.Row),
				LocationOrig: image.Rect(d.Orig[1], d.Orig[0], d.Orig[3], d.Orig[2]),
				Features:     d.Features,
				ValidPixels:  d.ValidPixels,
			},
		}
	}
	return t, nil
}

type momentsDoc struct {
	Labels  []string    `yaml:"labels,omitempty,flow"`
	Objects []objectDoc `yaml:"objects"`
}

type objectDoc struct {
	ID         int         `yaml:"id"`
	N          int         `yaml:"n"`
	Mean       []float64   `yaml:"mean,flow"`
	Covariance [][]float64 `yaml:"covariance"`
}

// WriteMoments writes per-object feature moments as YAML, objects in
// ascending ID order.
func WriteMoments(w io.Writer, byObject map[int]*analysis.Moments, labels []string) error {
	doc := momentsDoc{Labels: labels}
	for _, id := range analysis.ObjectIDs(byObject) {
		m := byObject[id]
		n := m.Cov.SymmetricDim()
		cov := make([][]float64, n)
		for i := range cov {
			cov[i] = make([]float64, n)
			for j := range cov[i] {
				cov[i][j] = m.Cov.At(i, j)
			}
		}
		doc.Objects = append(doc.Objects, objectDoc{ID: id, N: m.N, Mean: m.Mean, Covariance: cov})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding moments: %w", err)
	}
	return enc.Close()
}
