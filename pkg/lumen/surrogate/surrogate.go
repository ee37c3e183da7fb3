// Package surrogate defines the contract between the explanation
// engine and the local surrogate model that turns a perturbed
// neighborhood into per-label feature weights.
package surrogate

import "math"

// SelectionMode identifies the feature-selection strategy a fitter
// should apply before fitting its local model.
type SelectionMode string

const (
	SelectionAuto           SelectionMode = "auto"
	SelectionForward        SelectionMode = "forward_selection"
	SelectionLassoPath      SelectionMode = "lasso_path"
	SelectionHighestWeights SelectionMode = "highest_weights"
	SelectionNone           SelectionMode = "none"
)

// WeightedFeature is one entry of a local explanation: a feature id
// from the indexed document and its weight in the surrogate model.
type WeightedFeature struct {
	Feature int
	Weight  float64
}

// Fitter fits an interpretable local model on a neighborhood and
// returns at most maxFeatures weighted features for the given label
// column, ordered by decreasing absolute weight.
//
// data is the binary design matrix, predictions the classifier output
// matrix and distances the per-row distance to the original instance.
type Fitter interface {
	Fit(data [][]float64, predictions [][]float64, distances []float64,
		label, maxFeatures int, mode SelectionMode) ([]WeightedFeature, error)
}

// ExponentialKernel converts a distance into a sample weight:
// sqrt(exp(-(d/width)^2)). It is a pure function of its arguments so
// the width can live in configuration rather than in a closure.
func ExponentialKernel(distance, width float64) float64 {
	return math.Sqrt(math.Exp(-(distance * distance) / (width * width)))
}
