package linear

import "github.com/pkg/errors"

//////
// Errors.
//////

var (
	// ErrDimensionMismatch is returned when a batch does not match the feature
	// or target dimensionality fixed by the first update (or by Init), or when
	// the input and target batches have a different number of rows.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrSingularMatrix is returned by Finalize when the regularized normal
	// equations have no finite solution. Retry with a positive regularization.
	ErrSingularMatrix = errors.New("singular matrix")

	// ErrStaleWeights is returned by Predict when the weights are missing or
	// out of date with the accumulated statistics.
	ErrStaleWeights = errors.New("stale weights: call Finalize first")

	// ErrUninitialized is returned by Finalize when neither an update nor Init
	// has fixed the dimensions of the readout.
	ErrUninitialized = errors.New("readout dimensions are not initialized")

	// ErrInvalidRegularization is returned for negative regularization values.
	ErrInvalidRegularization = errors.New("regularization must be non-negative")
)
