package elm

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/rcn"
	"github.com/thalesfsp/rcn/linear"
)

// ErrNotFitted is returned by Predict before the first Fit or PartialFit.
var ErrNotFitted = errors.New("elm: regressor is not fitted")

// Regressor is an Extreme Learning Machine for regression over sequences.
// Every sequence is passed through the hidden layer and accumulated into a
// ridge readout; the readout is solved once all sequences were seen.
//
// Usage example:
//
//	est, err := elm.NewRegressor(elm.DefaultParams(), logger)
//	if err != nil {
//	    return err
//	}
//
//	if err := est.Fit(X, Y); err != nil {
//	    return err
//	}
//
//	pred, err := est.Predict(X)
//
// A Regressor is not safe for concurrent training. Use WithParams to obtain
// independent copies.
type Regressor struct {
	params Params
	logger *zap.Logger

	hidden  *InputToNode
	readout *linear.IncrementalRegression
}

// NewRegressor returns an unfitted regressor. A nil logger discards logs.
func NewRegressor(p Params, logger *zap.Logger) (*Regressor, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Regressor{params: p, logger: logger}, nil
}

// Params implements rcn.Estimator.
func (r *Regressor) Params() rcn.Params {
	return r.params.Map()
}

// Typed returns the typed configuration.
func (r *Regressor) Typed() Params {
	return r.params
}

// WithParams implements rcn.Estimator. The receiver is left untouched.
func (r *Regressor) WithParams(p rcn.Params) (rcn.Estimator, error) {
	merged, err := r.params.With(p)
	if err != nil {
		return nil, err
	}

	return &Regressor{params: merged, logger: r.logger}, nil
}

// Fit discards previous training and trains on all sequences, solving the
// readout once at the end.
func (r *Regressor) Fit(X, Y []*mat.Dense) error {
	r.hidden, r.readout = nil, nil

	return r.PartialFit(X, Y, true)
}

// PartialFit continues training on more sequences. The first call fixes the
// input and target widths. When finalize is false the readout is left stale
// until Finalize or a later call with finalize set.
func (r *Regressor) PartialFit(X, Y []*mat.Dense, finalize bool) error {
	if len(X) != len(Y) {
		return errors.Errorf("elm: %d input sequences but %d target sequences", len(X), len(Y))
	}

	for i := range X {
		if err := r.accumulate(X[i], Y[i]); err != nil {
			return errors.Wrapf(err, "elm: sequence %d", i)
		}
	}

	r.logger.Debug("sequences accumulated",
		zap.Int("sequences", len(X)),
		zap.Int("samples", r.Samples()),
	)

	if !finalize {
		return nil
	}

	return r.Finalize()
}

// Finalize solves the readout with Alpha from everything seen so far.
func (r *Regressor) Finalize() error {
	if r.readout == nil {
		return ErrNotFitted
	}

	return errors.Wrap(r.readout.Finalize(r.params.Alpha), "elm: finalize")
}

// Predict implements rcn.Estimator.
func (r *Regressor) Predict(X []*mat.Dense) ([]*mat.Dense, error) {
	if r.readout == nil {
		return nil, ErrNotFitted
	}

	out := make([]*mat.Dense, len(X))

	for i, x := range X {
		if rows, _ := x.Dims(); rows == 0 {
			out[i] = &mat.Dense{}

			continue
		}

		h, err := r.hidden.Transform(x)
		if err != nil {
			return nil, errors.Wrapf(err, "elm: sequence %d", i)
		}

		out[i], err = r.readout.Predict(h)
		if err != nil {
			return nil, errors.Wrapf(err, "elm: sequence %d", i)
		}
	}

	return out, nil
}

// Samples returns the number of rows accumulated into the readout.
func (r *Regressor) Samples() int {
	if r.readout == nil {
		return 0
	}

	return r.readout.Samples()
}

// Readout exposes the trained readout, nil before training.
func (r *Regressor) Readout() *linear.IncrementalRegression {
	return r.readout
}

// accumulate pushes one sequence, chunked by ChunkSize, into the readout.
func (r *Regressor) accumulate(x, y *mat.Dense) error {
	if x == nil || y == nil {
		return errors.New("nil sequence")
	}

	rows, cols := x.Dims()
	yRows, yCols := y.Dims()

	if rows != yRows {
		return errors.Errorf("%d input rows but %d target rows", rows, yRows)
	}

	if rows == 0 {
		return nil
	}

	if r.readout == nil {
		if err := r.init(cols, yCols); err != nil {
			return err
		}
	}

	size := r.params.ChunkSize
	if size <= 0 || size > rows {
		size = rows
	}

	for start := 0; start < rows; start += size {
		end := start + size
		if end > rows {
			end = rows
		}

		h, err := r.hidden.Transform(x.Slice(start, end, 0, cols))
		if err != nil {
			return err
		}

		if err := r.readout.Update(h, y.Slice(start, end, 0, yCols)); err != nil {
			return err
		}
	}

	return nil
}

func (r *Regressor) init(nFeatures, nTargets int) error {
	hidden := NewInputToNode(r.params)
	if err := hidden.Fit(nFeatures); err != nil {
		return err
	}

	readout := linear.New(linear.Config{Alpha: r.params.Alpha, Logger: r.logger})
	if err := readout.Init(r.params.HiddenLayerSize, nTargets); err != nil {
		return err
	}

	r.hidden, r.readout = hidden, readout

	return nil
}
