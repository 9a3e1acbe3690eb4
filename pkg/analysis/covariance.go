package analysis

import (
	"errors"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ErrTooFewSamples is returned when fewer than two feature rows are
// available for a covariance estimate.
var ErrTooFewSamples = errors.New("at least two feature rows are needed")

// Moments are the first and second moments of a set of feature vectors.
type Moments struct {
	// N is the number of feature rows
	N int

	// Mean is the per-feature mean
	Mean []float64

	// Cov is the unbiased feature covariance matrix
	Cov *mat.SymDense
}

// Covariance computes the moments over every row of t.
func Covariance(t *Table) (*Moments, error) {
	return moments(t.FeatureMatrix())
}

// CovarianceByObject computes the moments separately for the rows of each
// object. Objects with fewer than two rows are left out.
func CovarianceByObject(t *Table) (map[int]*Moments, error) {
	groups := make(map[int][]Row)
	for _, r := range t.Rows {
		groups[r.ObjectID] = append(groups[r.ObjectID], r)
	}

	out := make(map[int]*Moments, len(groups))
	for id, rows := range groups {
		m, err := moments(featureMatrix(rows, t.FeatureWidth))
		if errors.Is(err, ErrTooFewSamples) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out[id] = m
	}
	if len(out) == 0 {
		return nil, ErrTooFewSamples
	}
	return out, nil
}

// ObjectIDs returns the keys of a per-object moments map in ascending order.
func ObjectIDs(byObject map[int]*Moments) []int {
	ids := make([]int, 0, len(byObject))
	for id := range byObject {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func moments(features *mat.Dense) (*Moments, error) {
	if features == nil {
		return nil, ErrTooFewSamples
	}
	n, width := features.Dims()
	if n < 2 {
		return nil, ErrTooFewSamples
	}

	mean := make([]float64, width)
	col := make([]float64, n)
	for j := 0; j < width; j++ {
		mat.Col(col, j, features)
		mean[j] = stat.Mean(col, nil)
	}
	cov := mat.NewSymDense(width, nil)
	stat.CovarianceMatrix(cov, features, nil)
	return &Moments{N: n, Mean: mean, Cov: cov}, nil
}
