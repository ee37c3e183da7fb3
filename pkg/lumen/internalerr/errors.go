package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrInvalidFeatureID   = errors.New("invalid feature id")
	ErrEmptyNeighborhood  = errors.New("document has too few features to perturb")
	ErrPredictionContract = errors.New("prediction function violated its contract")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
)
