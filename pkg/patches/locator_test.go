package patches

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"

	"ternarystats/internal/models"
)

func TestLocateTilingColumnMajor(t *testing.T) {
	corners, oob := Locate(5, 7, models.SquarePatch(2), false, nil)
	assert.Zero(t, oob)
	assert.Equal(t, []image.Point{
		{X: 0, Y: 0}, {X: 0, Y: 2},
		{X: 2, Y: 0}, {X: 2, Y: 2},
		{X: 4, Y: 0}, {X: 4, Y: 2},
	}, corners)
}

func TestLocateTilingIgnoresMask(t *testing.T) {
	corners, _ := Locate(4, 4, models.SquarePatch(2), false, models.NewMask(4, 4))
	assert.Len(t, corners, 4)
}

func TestLocateOverlappingBounds(t *testing.T) {
	valid := models.NewMask(5, 5)
	valid.Set(0, 0, true)
	valid.Set(2, 2, true)

	corners, oob := Locate(5, 5, models.SquarePatch(3), true, valid)
	assert.Equal(t, 1, oob, "centre (0,0) would put the corner at (-1,-1)")
	assert.Equal(t, []image.Point{{X: 1, Y: 1}}, corners)
}

func TestLocateOverlappingAllValid(t *testing.T) {
	corners, oob := Locate(5, 5, models.SquarePatch(3), true, models.FullMask(5, 5))
	assert.Len(t, corners, 9)
	assert.Equal(t, 16, oob)
	assert.Equal(t, image.Pt(0, 0), corners[0])
	assert.Equal(t, image.Pt(0, 1), corners[1], "rows vary fastest")
}

func TestLocateOverlappingEvenSize(t *testing.T) {
	corners, _ := Locate(4, 4, models.PatchSize{Rows: 2, Cols: 4}, true, models.FullMask(4, 4))
	// centre offset is (1, 2): valid centres have rows 1..3 and col 2 only
	assert.Equal(t, []image.Point{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 0, Y: 2}}, corners)
}
