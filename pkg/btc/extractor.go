// Package btc computes binary-correlation ("BTC") style texture statistics of
// quantized image patches.
//
// A patch holds integer levels 0..nLevels-1, possibly with NaN holes. The
// statistics are gathered over every 2×2 glider window whose four pixels are
// valid:
//
//	a b
//	c d
//
// For each of the ten simple statistics (gamma, four betas, four thetas and
// alpha) the distribution of the sum of the participating pixels modulo
// nLevels is estimated, and its first nLevels-1 probabilities are kept (the
// last one is redundant).
package btc

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Extractor turns a patch into a fixed-length feature vector.
type Extractor interface {
	// Width is the length of the vectors Extract returns for nLevels. It
	// must depend on nLevels only.
	Width(nLevels int) int

	// Extract computes the features of patch. Undefined statistics are
	// reported as NaN entries, never as errors.
	Extract(patch mat.Matrix, nLevels int) []float64
}

// Statistic is one glider configuration: the window pixels whose levels are
// summed.
type Statistic struct {
	Name string

	// Pixels indexes the window as 0=a, 1=b, 2=c, 3=d
	Pixels []int
}

// Statistics lists the ten simple statistics in feature order.
var Statistics = []Statistic{
	{Name: "gamma", Pixels: []int{0}},
	{Name: "beta_h", Pixels: []int{0, 1}},
	{Name: "beta_v", Pixels: []int{0, 2}},
	{Name: "beta_d", Pixels: []int{0, 3}},
	{Name: "beta_a", Pixels: []int{1, 2}},
	{Name: "theta_abc", Pixels: []int{0, 1, 2}},
	{Name: "theta_abd", Pixels: []int{0, 1, 3}},
	{Name: "theta_acd", Pixels: []int{0, 2, 3}},
	{Name: "theta_bcd", Pixels: []int{1, 2, 3}},
	{Name: "alpha", Pixels: []int{0, 1, 2, 3}},
}

// Ternary is the default Extractor. Despite the name it works for any number
// of levels of at least two.
type Ternary struct{}

// Width returns len(Statistics)*(nLevels-1).
func (Ternary) Width(nLevels int) int {
	if nLevels < 2 {
		return 0
	}
	return len(Statistics) * (nLevels - 1)
}

// Extract implements Extractor. Samples that are NaN or not an integer level
// in range invalidate every window they touch. A patch without a single valid
// window yields an all-NaN vector.
func (t Ternary) Extract(patch mat.Matrix, nLevels int) []float64 {
	width := t.Width(nLevels)
	out := make([]float64, width)
	if width == 0 {
		return out
	}

	counts := make([][]float64, len(Statistics))
	for s := range counts {
		counts[s] = make([]float64, nLevels)
	}

	rows, cols := patch.Dims()
	windows := 0
	var px [4]int
	for i := 0; i+1 < rows; i++ {
		for j := 0; j+1 < cols; j++ {
			if !level(patch.At(i, j), nLevels, &px[0]) ||
				!level(patch.At(i, j+1), nLevels, &px[1]) ||
				!level(patch.At(i+1, j), nLevels, &px[2]) ||
				!level(patch.At(i+1, j+1), nLevels, &px[3]) {
				continue
			}
			windows++
			for s, st := range Statistics {
				sum := 0
				for _, p := range st.Pixels {
					sum += px[p]
				}
				counts[s][sum%nLevels]++
			}
		}
	}

	if windows == 0 {
		for k := range out {
			out[k] = math.NaN()
		}
		return out
	}

	norm := 1 / float64(windows)
	for s := range Statistics {
		for k := 0; k < nLevels-1; k++ {
			out[s*(nLevels-1)+k] = counts[s][k] * norm
		}
	}
	return out
}

// level decodes a sample into an integer level, reporting whether it is one.
func level(v float64, nLevels int, dst *int) bool {
	if math.IsNaN(v) || v < 0 || v != math.Trunc(v) || v >= float64(nLevels) {
		return false
	}
	*dst = int(v)
	return true
}

// Labels returns the feature names in Extract order, e.g. "beta_h[1]" for
// the probability that a horizontal pair sums to 1 modulo nLevels.
func Labels(nLevels int) []string {
	if nLevels < 2 {
		return nil
	}
	labels := make([]string, 0, len(Statistics)*(nLevels-1))
	for _, st := range Statistics {
		for k := 0; k < nLevels-1; k++ {
			labels = append(labels, fmt.Sprintf("%s[%d]", st.Name, k))
		}
	}
	return labels
}
