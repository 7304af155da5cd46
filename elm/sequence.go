package elm

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/thalesfsp/rcn"
)

//////
// Sequence-to-value helpers.
//////

// OutputStrategy reduces the per-step outputs of a sequence to one value.
type OutputStrategy int

const (
	// LastState takes the output of the last time step.
	LastState OutputStrategy = iota

	// MeanState averages the outputs over all time steps.
	MeanState
)

// RepeatTargets turns one target row per sequence into per-step targets, so
// that a sequence-to-value task can be trained like a sequence-to-sequence
// one. Row i of labels is repeated for every row of X[i].
func RepeatTargets(X []*mat.Dense, labels mat.Matrix) ([]*mat.Dense, error) {
	n, cols := labels.Dims()
	if n != len(X) {
		return nil, errors.Errorf("elm: %d labels for %d sequences", n, len(X))
	}

	Y := make([]*mat.Dense, len(X))

	for i, x := range X {
		rows, _ := x.Dims()
		if rows == 0 {
			Y[i] = &mat.Dense{}

			continue
		}

		row := mat.Row(nil, i, labels)

		y := mat.NewDense(rows, cols, nil)
		for t := 0; t < rows; t++ {
			y.SetRow(t, row)
		}

		Y[i] = y
	}

	return Y, nil
}

// PredictValues predicts every sequence with est and reduces each output to
// one row with strategy. Row i of the result belongs to X[i].
func PredictValues(est rcn.Estimator, X []*mat.Dense, strategy OutputStrategy) (*mat.Dense, error) {
	pred, err := est.Predict(X)
	if err != nil {
		return nil, err
	}

	var out *mat.Dense

	for i, p := range pred {
		rows, cols := p.Dims()
		if rows == 0 {
			return nil, errors.Errorf("elm: sequence %d is empty", i)
		}

		if out == nil {
			out = mat.NewDense(len(pred), cols, nil)
		}

		switch strategy {
		case LastState:
			out.SetRow(i, mat.Row(nil, rows-1, p))
		case MeanState:
			for j := 0; j < cols; j++ {
				out.Set(i, j, stat.Mean(mat.Col(nil, j, p), nil))
			}
		default:
			return nil, errors.Errorf("elm: unknown output strategy %d", strategy)
		}
	}

	return out, nil
}
