// Package ridge is the bundled surrogate fitter: a weighted ridge
// regression with greedy or weight-based feature selection.
package ridge

import (
	"fmt"
	"log"
	"math"
	"sort"

	"github.com/cognicore/lumen/pkg/lumen/internalerr"
	"github.com/cognicore/lumen/pkg/lumen/surrogate"
)

// autoForwardLimit is the feature cap below which auto selection uses
// forward selection; above it the greedy search gets too expensive and
// highest-weights is used instead.
const autoForwardLimit = 6

// Fitter fits a weighted ridge regression on the neighborhood and
// reports the strongest coefficients. Sample weights come from the
// exponential kernel applied to the distance vector.
type Fitter struct {
	KernelWidth float64
	Alpha       float64 // ridge regularization strength
	Verbose     bool    // log intercept and local prediction per fit
}

// New creates a Fitter with the given kernel width and default
// regularization.
func New(kernelWidth float64) *Fitter {
	return &Fitter{KernelWidth: kernelWidth, Alpha: 1.0}
}

var _ surrogate.Fitter = (*Fitter)(nil)

// Fit implements surrogate.Fitter.
func (f *Fitter) Fit(data [][]float64, predictions [][]float64, distances []float64,
	label, maxFeatures int, mode surrogate.SelectionMode) ([]surrogate.WeightedFeature, error) {

	n := len(data)
	if n == 0 || len(predictions) != n || len(distances) != n {
		return nil, fmt.Errorf("%w: data, predictions and distances must have equal non-zero length",
			internalerr.ErrInvalidInput)
	}
	if label < 0 || label >= len(predictions[0]) {
		return nil, fmt.Errorf("%w: label %d out of range (%d classes)",
			internalerr.ErrInvalidInput, label, len(predictions[0]))
	}
	if maxFeatures <= 0 {
		return nil, fmt.Errorf("%w: max features must be positive, got %d",
			internalerr.ErrInvalidInput, maxFeatures)
	}

	k := len(data[0])
	weights := make([]float64, n)
	y := make([]float64, n)
	for i := range data {
		weights[i] = surrogate.ExponentialKernel(distances[i], f.KernelWidth)
		y[i] = predictions[i][label]
	}

	if mode == surrogate.SelectionAuto || mode == "" {
		if maxFeatures <= autoForwardLimit {
			mode = surrogate.SelectionForward
		} else {
			mode = surrogate.SelectionHighestWeights
		}
	}

	var selected []int
	var err error
	switch mode {
	case surrogate.SelectionNone:
		selected = allFeatures(k)
	case surrogate.SelectionForward:
		selected, err = f.forwardSelect(data, y, weights, k, maxFeatures)
	case surrogate.SelectionHighestWeights:
		selected, err = f.selectHighestWeights(data, y, weights, k, maxFeatures)
	case surrogate.SelectionLassoPath:
		return nil, fmt.Errorf("%w: lasso_path selection is not supported by the ridge fitter",
			internalerr.ErrInvalidInput)
	default:
		return nil, fmt.Errorf("%w: unknown selection mode %q", internalerr.ErrInvalidInput, mode)
	}
	if err != nil {
		return nil, err
	}

	coefs, intercept, err := f.fitRidge(data, y, weights, selected)
	if err != nil {
		return nil, err
	}

	if f.Verbose {
		local := intercept
		for i, col := range selected {
			local += coefs[i] * data[0][col]
		}
		log.Printf("ridge: label=%d intercept=%.6f local=%.6f actual=%.6f",
			label, intercept, local, y[0])
	}

	out := make([]surrogate.WeightedFeature, len(selected))
	for i, col := range selected {
		out[i] = surrogate.WeightedFeature{Feature: col, Weight: coefs[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].Weight) > math.Abs(out[j].Weight)
	})
	if len(out) > maxFeatures {
		out = out[:maxFeatures]
	}
	return out, nil
}

// forwardSelect greedily grows the feature set, at each step adding
// the feature whose inclusion minimizes the weighted residual sum of
// squares.
func (f *Fitter) forwardSelect(data [][]float64, y, weights []float64, k, maxFeatures int) ([]int, error) {
	limit := maxFeatures
	if k < limit {
		limit = k
	}

	var selected []int
	used := make([]bool, k)

	for len(selected) < limit {
		best := -1
		bestScore := math.Inf(1)
		for col := 0; col < k; col++ {
			if used[col] {
				continue
			}
			cand := append(append([]int(nil), selected...), col)
			coefs, intercept, err := f.fitRidge(data, y, weights, cand)
			if err != nil {
				continue
			}
			score := weightedRSS(data, y, weights, cand, coefs, intercept)
			if score < bestScore {
				best = col
				bestScore = score
			}
		}
		if best < 0 {
			break
		}
		used[best] = true
		selected = append(selected, best)
	}
	return selected, nil
}

// selectHighestWeights fits once on all features and keeps the
// maxFeatures columns with the largest absolute coefficients.
func (f *Fitter) selectHighestWeights(data [][]float64, y, weights []float64, k, maxFeatures int) ([]int, error) {
	if k <= maxFeatures {
		return allFeatures(k), nil
	}

	coefs, _, err := f.fitRidge(data, y, weights, allFeatures(k))
	if err != nil {
		return nil, err
	}

	order := allFeatures(k)
	sort.SliceStable(order, func(i, j int) bool {
		return math.Abs(coefs[order[i]]) > math.Abs(coefs[order[j]])
	})
	selected := order[:maxFeatures]
	sort.Ints(selected)
	return selected, nil
}

// fitRidge solves the weighted ridge normal equations over the given
// columns plus an unregularized intercept. Returns one coefficient per
// selected column.
func (f *Fitter) fitRidge(data [][]float64, y, weights []float64, cols []int) ([]float64, float64, error) {
	p := len(cols) + 1 // intercept first

	a := make([][]float64, p)
	for i := range a {
		a[i] = make([]float64, p)
	}
	b := make([]float64, p)

	row := make([]float64, p)
	for i := range data {
		w := weights[i]
		if w == 0 {
			continue
		}
		row[0] = 1
		for j, col := range cols {
			row[j+1] = data[i][col]
		}
		for r := 0; r < p; r++ {
			wr := w * row[r]
			for c := r; c < p; c++ {
				a[r][c] += wr * row[c]
			}
			b[r] += wr * y[i]
		}
	}
	for r := 0; r < p; r++ {
		for c := 0; c < r; c++ {
			a[r][c] = a[c][r]
		}
	}
	for j := 1; j < p; j++ {
		a[j][j] += f.Alpha
	}

	beta, err := solve(a, b)
	if err != nil {
		return nil, 0, err
	}
	return beta[1:], beta[0], nil
}

// weightedRSS is the weighted residual sum of squares of the fitted
// model, the score minimized by forward selection.
func weightedRSS(data [][]float64, y, weights []float64, cols []int, coefs []float64, intercept float64) float64 {
	var rss float64
	for i := range data {
		pred := intercept
		for j, col := range cols {
			pred += coefs[j] * data[i][col]
		}
		r := y[i] - pred
		rss += weights[i] * r * r
	}
	return rss
}

// solve performs Gaussian elimination with partial pivoting on a
// (destructively) and returns the solution of a x = b.
func solve(a [][]float64, b []float64) ([]float64, error) {
	n := len(a)
	for col := 0; col < n; col++ {
		pivot := col
		for r := col + 1; r < n; r++ {
			if math.Abs(a[r][col]) > math.Abs(a[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return nil, fmt.Errorf("%w: singular normal equations", internalerr.ErrInvalidInput)
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for r := col + 1; r < n; r++ {
			factor := a[r][col] / a[col][col]
			if factor == 0 {
				continue
			}
			for c := col; c < n; c++ {
				a[r][c] -= factor * a[col][c]
			}
			b[r] -= factor * b[col]
		}
	}

	x := make([]float64, n)
	for r := n - 1; r >= 0; r-- {
		sum := b[r]
		for c := r + 1; c < n; c++ {
			sum -= a[r][c] * x[c]
		}
		x[r] = sum / a[r][r]
	}
	return x, nil
}

func allFeatures(k int) []int {
	cols := make([]int, k)
	for i := range cols {
		cols[i] = i
	}
	return cols
}
