package rcn

import (
	"fmt"

	"github.com/pkg/errors"
)

//////
// Errors.
//////

// ErrConfiguration is returned for malformed search steps, unknown parameter
// names and invalid parameter values.
var ErrConfiguration = errors.New("configuration error")

// FitError is returned when every candidate of a search step failed.
//
// Fields:
// - Step: Name of the failed step
// - Params: Assignment of the first failing candidate, in enumeration order
// - Err: Error of that candidate
// - All: Combined errors of every candidate (see go.uber.org/multierr)
type FitError struct {
	Step   string
	Params Params
	Err    error
	All    error
}

// Error implements the error interface.
func (e *FitError) Error() string {
	return fmt.Sprintf("step %q: all candidates failed, first failure (%s): %v", e.Step, e.Params, e.Err)
}

// Unwrap returns the error of the first failing candidate.
func (e *FitError) Unwrap() error {
	return e.Err
}

// configErrorf wraps ErrConfiguration with a formatted message.
func configErrorf(format string, args ...any) error {
	return errors.Wrapf(ErrConfiguration, format, args...)
}
