// Package imgproc holds the grid primitives feeding the patch engine:
// block averaging, cropping, quantization and image conversion.
package imgproc

import (
	"image"
	"math"

	"gonum.org/v1/gonum/mat"
)

// IsEmpty reports whether m has no elements.
func IsEmpty(m mat.Matrix) bool {
	if m == nil {
		return true
	}
	r, c := m.Dims()
	return r == 0 || c == 0
}

// BlockAverage downsamples m by averaging non-overlapping step×step blocks.
// Trailing rows and columns that do not fill a whole block are dropped. NaN
// samples propagate into the block they belong to.
func BlockAverage(m mat.Matrix, step int) *mat.Dense {
	if step < 1 {
		panic("imgproc: block averaging step must be positive")
	}
	if IsEmpty(m) {
		return &mat.Dense{}
	}
	rows, cols := m.Dims()
	outRows, outCols := rows/step, cols/step
	if outRows == 0 || outCols == 0 {
		return &mat.Dense{}
	}
	if step == 1 {
		return mat.DenseCopyOf(m)
	}

	out := mat.NewDense(outRows, outCols, nil)
	norm := 1 / float64(step*step)
	for i := 0; i < outRows; i++ {
		for j := 0; j < outCols; j++ {
			sum := 0.0
			for di := 0; di < step; di++ {
				for dj := 0; dj < step; dj++ {
					sum += m.At(i*step+di, j*step+dj)
				}
			}
			out.Set(i, j, sum*norm)
		}
	}
	return out
}

// CropToMultiple drops trailing rows and columns so the dimensions of m
// become multiples of rowStep and colStep.
func CropToMultiple(m mat.Matrix, rowStep, colStep int) *mat.Dense {
	rows, cols := m.Dims()
	return Crop(m, image.Rect(0, 0, cols-cols%colStep, rows-rows%rowStep))
}

// Crop copies the sub-grid covered by r (X = column, Y = row). The rectangle
// is clipped to the bounds of m.
func Crop(m mat.Matrix, r image.Rectangle) *mat.Dense {
	rows, cols := m.Dims()
	r = r.Intersect(image.Rect(0, 0, cols, rows))
	if r.Empty() {
		return &mat.Dense{}
	}
	out := mat.NewDense(r.Dy(), r.Dx(), nil)
	for i := 0; i < r.Dy(); i++ {
		for j := 0; j < r.Dx(); j++ {
			out.Set(i, j, m.At(r.Min.Y+i, r.Min.X+j))
		}
	}
	return out
}

// CountNaN returns the number of NaN elements in m.
func CountNaN(m mat.Matrix) int {
	if IsEmpty(m) {
		return 0
	}
	rows, cols := m.Dims()
	n := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.IsNaN(m.At(i, j)) {
				n++
			}
		}
	}
	return n
}
