package models

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestMaskBasics(t *testing.T) {
	m := NewMask(3, 4)
	assert.Zero(t, m.Count())
	m.Set(1, 2, true)
	assert.True(t, m.At(1, 2))
	assert.False(t, m.At(2, 1))
	assert.False(t, m.At(-1, 0))
	assert.False(t, m.At(3, 0))
	assert.Panics(t, func() { m.Set(0, 4, true) })

	d := m.Dense()
	assert.Equal(t, 1.0, d.At(1, 2))
	assert.Equal(t, 0.0, mat.Sum(d)-1)

	clone := m.Clone()
	clone.Set(0, 0, true)
	assert.Equal(t, 1, m.Count())
	assert.Equal(t, 2, clone.Count())

	assert.Equal(t, 12, FullMask(3, 4).Count())
}

func TestMaskFromDense(t *testing.T) {
	d := mat.NewDense(2, 2, []float64{0.2, 0.5, 0.9, math.NaN()})
	m := MaskFromDense(d, 0.5)
	assert.False(t, m.At(0, 0))
	assert.False(t, m.At(0, 1))
	assert.True(t, m.At(1, 0))
	assert.False(t, m.At(1, 1))
}

func TestMaskSubPadsOutside(t *testing.T) {
	sub := FullMask(4, 4).Sub(2, 2, 6, 5)
	rows, cols := sub.Dims()
	require.Equal(t, 4, rows)
	require.Equal(t, 3, cols)
	assert.Equal(t, 4, sub.Count())
	assert.True(t, sub.At(1, 1))
	assert.False(t, sub.At(2, 0))
}

func TestPatchSize(t *testing.T) {
	assert.NoError(t, SquarePatch(3).Validate())
	assert.ErrorIs(t, PatchSize{Rows: 0, Cols: 3}.Validate(), ErrConfiguration)
	assert.Equal(t, 12, PatchSize{Rows: 3, Cols: 4}.Pixels())
	assert.Equal(t, "3x4", PatchSize{Rows: 3, Cols: 4}.String())
}

func TestRejections(t *testing.T) {
	r := Rejections{Candidates: 10, OutOfBounds: 1, InsufficientCoverage: 2}
	r.Add(Rejections{Candidates: 5, UndefinedFeatures: 3})
	assert.Equal(t, 15, r.Candidates)
	assert.Equal(t, 6, r.Total())
}

func TestResultSetFeatureMatrix(t *testing.T) {
	rs := &ResultSet{FeatureWidth: 2}
	assert.Nil(t, rs.FeatureMatrix())

	rs.Patches = []PatchRecord{{Features: []float64{1, 2}}, {Features: []float64{3, 4}}}
	m := rs.FeatureMatrix()
	assert.Equal(t, 2, rs.Len())
	assert.Equal(t, 4.0, m.At(1, 1))
}

func TestConfigurationError(t *testing.T) {
	err := fmt.Errorf("loading: %w", NewConfigurationError("nLevels", "must be at least %d", 2))
	assert.ErrorIs(t, err, ErrConfiguration)
	assert.EqualError(t, err, "loading: configuration error: nLevels: must be at least 2")

	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "nLevels", cfgErr.Field)
}
