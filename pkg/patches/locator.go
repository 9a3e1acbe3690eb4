package patches

import (
	"image"

	"ternarystats/internal/models"
)

// Locate enumerates candidate patch corners (X = column, Y = row) for an
// image of rows×cols pixels.
//
// Without overlap the image is truncated to a multiple of the patch size and
// tiled; with overlap there is one candidate centred on every valid pixel,
// the corner being the centre minus half the patch size. Both orders are
// column-major: the row index varies fastest. Overlapping candidates that
// would leave the image are dropped and counted in outOfBounds.
func Locate(rows, cols int, size models.PatchSize, overlapping bool, valid *models.Mask) (corners []image.Point, outOfBounds int) {
	if !overlapping {
		gridRows, gridCols := rows/size.Rows, cols/size.Cols
		corners = make([]image.Point, 0, gridRows*gridCols)
		for gc := 0; gc < gridCols; gc++ {
			for gr := 0; gr < gridRows; gr++ {
				corners = append(corners, image.Pt(gc*size.Cols, gr*size.Rows))
			}
		}
		return corners, 0
	}

	offRows, offCols := size.Rows/2, size.Cols/2
	for j := 0; j < cols; j++ {
		for i := 0; i < rows; i++ {
			if valid != nil && !valid.At(i, j) {
				continue
			}
			corner := image.Pt(j-offCols, i-offRows)
			if corner.X < 0 || corner.Y < 0 || corner.Y+size.Rows > rows || corner.X+size.Cols > cols {
				outOfBounds++
				continue
			}
			corners = append(corners, corner)
		}
	}
	return corners, outOfBounds
}
