package elm

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/rcn"
)

// Classifier is an Extreme Learning Machine for classification. Targets are
// single-column label sequences; they are one-hot encoded over the sorted
// class set and regressed by an embedded Regressor. Predict returns the
// label of the largest output.
//
// Usage example:
//
//	clf, err := elm.NewClassifier(elm.DefaultParams(), logger)
//	if err != nil {
//	    return err
//	}
//
//	if err := clf.Fit(X, labels); err != nil {
//	    return err
//	}
//
//	proba, err := clf.PredictProba(X)
type Classifier struct {
	reg     *Regressor
	classes []float64
}

// NewClassifier returns an unfitted classifier. A nil logger discards logs.
func NewClassifier(p Params, logger *zap.Logger) (*Classifier, error) {
	reg, err := NewRegressor(p, logger)
	if err != nil {
		return nil, err
	}

	return &Classifier{reg: reg}, nil
}

// Params implements rcn.Estimator.
func (c *Classifier) Params() rcn.Params {
	return c.reg.Params()
}

// Typed returns the typed configuration.
func (c *Classifier) Typed() Params {
	return c.reg.Typed()
}

// WithParams implements rcn.Estimator. The receiver is left untouched.
func (c *Classifier) WithParams(p rcn.Params) (rcn.Estimator, error) {
	est, err := c.reg.WithParams(p)
	if err != nil {
		return nil, err
	}

	return &Classifier{reg: est.(*Regressor)}, nil
}

// Classes returns the sorted class labels, nil before training.
func (c *Classifier) Classes() []float64 {
	return slices.Clone(c.classes)
}

// Fit discards previous training, takes the class set from Y and trains on
// all sequences.
func (c *Classifier) Fit(X, Y []*mat.Dense) error {
	classes, err := collectClasses(Y)
	if err != nil {
		return err
	}

	encoded, err := encodeLabels(Y, classes)
	if err != nil {
		return err
	}

	c.classes = classes

	return c.reg.Fit(X, encoded)
}

// PartialFit continues training on more sequences. The first call fixes the
// class set; labels outside of it are rejected by later calls.
func (c *Classifier) PartialFit(X, Y []*mat.Dense, finalize bool) error {
	classes := c.classes
	if classes == nil {
		var err error
		if classes, err = collectClasses(Y); err != nil {
			return err
		}
	}

	encoded, err := encodeLabels(Y, classes)
	if err != nil {
		return err
	}

	c.classes = classes

	return c.reg.PartialFit(X, encoded, finalize)
}

// Finalize solves the readout from everything seen so far.
func (c *Classifier) Finalize() error {
	return c.reg.Finalize()
}

// Predict implements rcn.Estimator. Every output is a single-column sequence
// of class labels.
func (c *Classifier) Predict(X []*mat.Dense) ([]*mat.Dense, error) {
	scores, err := c.reg.Predict(X)
	if err != nil {
		return nil, err
	}

	out := make([]*mat.Dense, len(scores))

	for i, s := range scores {
		rows, _ := s.Dims()
		if rows == 0 {
			out[i] = &mat.Dense{}

			continue
		}

		labels := mat.NewDense(rows, 1, nil)
		for t := 0; t < rows; t++ {
			labels.Set(t, 0, c.classes[floats.MaxIdx(s.RawRowView(t))])
		}

		out[i] = labels
	}

	return out, nil
}

// PredictProba returns one probability row per time step, columns ordered
// like Classes. Outputs are clipped at zero and normalized to sum to one; a
// row without positive outputs becomes uniform.
func (c *Classifier) PredictProba(X []*mat.Dense) ([]*mat.Dense, error) {
	scores, err := c.reg.Predict(X)
	if err != nil {
		return nil, err
	}

	for _, s := range scores {
		rows, _ := s.Dims()

		for t := 0; t < rows; t++ {
			row := s.RawRowView(t)

			for j, v := range row {
				if v < 0 {
					row[j] = 0
				}
			}

			if sum := floats.Sum(row); sum > 0 {
				floats.Scale(1/sum, row)
			} else {
				for j := range row {
					row[j] = 1 / float64(len(row))
				}
			}
		}
	}

	return scores, nil
}

// collectClasses returns the sorted distinct labels of Y.
func collectClasses(Y []*mat.Dense) ([]float64, error) {
	var classes []float64

	for i, y := range Y {
		if y == nil {
			return nil, errors.Errorf("elm: sequence %d is nil", i)
		}

		rows, cols := y.Dims()
		if rows == 0 {
			continue
		}

		if cols != 1 {
			return nil, errors.Errorf("elm: sequence %d has %d label columns, want 1", i, cols)
		}

		classes = append(classes, mat.Col(nil, 0, y)...)
	}

	if len(classes) == 0 {
		return nil, errors.New("elm: no labels")
	}

	slices.Sort(classes)

	return slices.Compact(classes), nil
}

// encodeLabels one-hot encodes every label sequence over classes.
func encodeLabels(Y []*mat.Dense, classes []float64) ([]*mat.Dense, error) {
	out := make([]*mat.Dense, len(Y))

	for i, y := range Y {
		if y == nil {
			return nil, errors.Errorf("elm: sequence %d is nil", i)
		}

		rows, cols := y.Dims()
		if rows == 0 {
			out[i] = &mat.Dense{}

			continue
		}

		if cols != 1 {
			return nil, errors.Errorf("elm: sequence %d has %d label columns, want 1", i, cols)
		}

		enc := mat.NewDense(rows, len(classes), nil)

		for t := 0; t < rows; t++ {
			k, ok := slices.BinarySearch(classes, y.At(t, 0))
			if !ok {
				return nil, errors.Errorf("elm: sequence %d has unknown label %v", i, y.At(t, 0))
			}

			enc.Set(t, k, 1)
		}

		out[i] = enc
	}

	return out, nil
}
