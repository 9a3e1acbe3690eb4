package imgproc

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"ternarystats/internal/models"
)

// Quantize maps m onto the levels 0..nLevels-1 using histogram equalization:
// the thresholds are the empirical k/nLevels quantiles of the samples that are
// not NaN and, when valid is non-nil, marked valid. A sample is assigned the
// number of thresholds it exceeds. NaN samples stay NaN.
//
// When no sample qualifies the result is all NaN and the thresholds are nil.
func Quantize(m mat.Matrix, nLevels int, valid *models.Mask) (*mat.Dense, []float64) {
	if nLevels < 2 {
		panic("imgproc: quantization needs at least two levels")
	}
	if IsEmpty(m) {
		return &mat.Dense{}, nil
	}
	rows, cols := m.Dims()

	samples := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || (valid != nil && !valid.At(i, j)) {
				continue
			}
			samples = append(samples, v)
		}
	}

	out := mat.NewDense(rows, cols, nil)
	if len(samples) == 0 {
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				out.Set(i, j, math.NaN())
			}
		}
		return out, nil
	}

	sort.Float64s(samples)
	thresholds := make([]float64, nLevels-1)
	for k := range thresholds {
		p := float64(k+1) / float64(nLevels)
		thresholds[k] = stat.Quantile(p, stat.Empirical, samples, nil)
	}

	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) {
				out.Set(i, j, v)
				continue
			}
			out.Set(i, j, float64(Level(v, thresholds)))
		}
	}
	return out, thresholds
}

// Level returns the number of thresholds v exceeds. thresholds must be sorted.
func Level(v float64, thresholds []float64) int {
	return sort.Search(len(thresholds), func(k int) bool { return v <= thresholds[k] })
}
