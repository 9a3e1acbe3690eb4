// Package export persists feature tables and their moments.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"ternarystats/pkg/analysis"
)

// baseColumns precede the feature columns in every CSV row.
var baseColumns = []string{
	"image_index", "image", "object", "block_af", "patch_rows", "patch_cols",
	"row", "col", "orig_min_row", "orig_min_col", "orig_max_row", "orig_max_col",
	"valid_pixels",
}

// WriteCSV writes t with one row per patch. labels name the feature columns;
// when they do not match the table width the columns are numbered instead.
func WriteCSV(w io.Writer, t *analysis.Table, labels []string) error {
	if len(labels) != t.FeatureWidth {
		labels = make([]string, t.FeatureWidth)
		for i := range labels {
			labels[i] = fmt.Sprintf("feature_%d", i)
		}
	}

	cw := csv.NewWriter(w)
	header := append(append([]string(nil), baseColumns...), labels...)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	record := make([]string, 0, len(header))
	for i, r := range t.Rows {
		o := r.LocationOrig
		record = append(record[:0],
			strconv.Itoa(r.ImageIndex),
			r.ImageName,
			strconv.Itoa(r.ObjectID),
			strconv.Itoa(r.BlockAF),
			strconv.Itoa(r.PatchSize.Rows),
			strconv.Itoa(r.PatchSize.Cols),
			strconv.Itoa(r.Location.Y),
			strconv.Itoa(r.Location.X),
			strconv.Itoa(o.Min.Y),
			strconv.Itoa(o.Min.X),
			strconv.Itoa(o.Max.Y),
			strconv.Itoa(o.Max.X),
			strconv.Itoa(r.ValidPixels),
		)
		for _, v := range r.Features {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv row %d: %w", i, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
