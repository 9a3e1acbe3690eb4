package models

import (
	"gonum.org/v1/gonum/mat"
)

// Mask is a boolean grid marking analyzable territory. It may have the same
// resolution as the image it belongs to or a finer one (the image having been
// block-averaged), in which case a crop rectangle locates the image inside it.
type Mask struct {
	rows, cols int

	// data is stored row-major
	data []bool
}

// NewMask creates an all-false mask.
func NewMask(rows, cols int) *Mask {
	if rows < 0 || cols < 0 {
		panic("models: negative mask dimension")
	}
	return &Mask{rows: rows, cols: cols, data: make([]bool, rows*cols)}
}

// FullMask creates an all-true mask, the implicit mask of an image analyzed
// without one.
func FullMask(rows, cols int) *Mask {
	m := NewMask(rows, cols)
	for i := range m.data {
		m.data[i] = true
	}
	return m
}

// MaskFromDense marks every element strictly greater than threshold as valid.
// NaN elements are invalid.
func MaskFromDense(d mat.Matrix, threshold float64) *Mask {
	r, c := d.Dims()
	m := NewMask(r, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.data[i*c+j] = d.At(i, j) > threshold
		}
	}
	return m
}

// Dims returns the number of rows and columns.
func (m *Mask) Dims() (rows, cols int) {
	return m.rows, m.cols
}

// At reports whether (row, col) is valid. Out-of-range positions are invalid.
func (m *Mask) At(row, col int) bool {
	if row < 0 || col < 0 || row >= m.rows || col >= m.cols {
		return false
	}
	return m.data[row*m.cols+col]
}

// Set marks (row, col) as valid or invalid.
func (m *Mask) Set(row, col int, v bool) {
	if row < 0 || col < 0 || row >= m.rows || col >= m.cols {
		panic("models: mask index out of range")
	}
	m.data[row*m.cols+col] = v
}

// Count returns the number of valid cells.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.data {
		if v {
			n++
		}
	}
	return n
}

// Dense returns the mask as a 0/1 matrix, the form consumed by block
// averaging.
func (m *Mask) Dense() *mat.Dense {
	if m.rows == 0 || m.cols == 0 {
		return &mat.Dense{}
	}
	d := mat.NewDense(m.rows, m.cols, nil)
	for i := 0; i < m.rows; i++ {
		for j := 0; j < m.cols; j++ {
			if m.data[i*m.cols+j] {
				d.Set(i, j, 1)
			}
		}
	}
	return d
}

// Sub copies the rows [r0, r1) and columns [c0, c1) into a new mask. Cells
// falling outside m are false, which is how partial mask overlap is handled.
func (m *Mask) Sub(r0, c0, r1, c1 int) *Mask {
	out := NewMask(r1-r0, c1-c0)
	for i := r0; i < r1; i++ {
		for j := c0; j < c1; j++ {
			out.data[(i-r0)*out.cols+(j-c0)] = m.At(i, j)
		}
	}
	return out
}

// Clone returns a deep copy.
func (m *Mask) Clone() *Mask {
	out := &Mask{rows: m.rows, cols: m.cols, data: make([]bool, len(m.data))}
	copy(out.data, m.data)
	return out
}
