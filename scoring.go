package rcn

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//////
// Metrics and scorers.
//////

// Metric compares true and predicted targets, stacked over all sequences.
type Metric func(yTrue, yPred *mat.Dense) float64

// MakeScorer turns a metric into a Scorer. Metrics where lower is better are
// negated, so every Scorer follows the higher-is-better convention.
func MakeScorer(metric Metric, greaterIsBetter bool) Scorer {
	sign := 1.0
	if !greaterIsBetter {
		sign = -1
	}

	return func(est Estimator, X, Y []*mat.Dense) (float64, error) {
		pred, err := est.Predict(X)
		if err != nil {
			return math.NaN(), errors.Wrap(err, "predict")
		}

		if len(pred) != len(Y) {
			return math.NaN(), errors.Errorf("got %d predicted sequences for %d targets", len(pred), len(Y))
		}

		yTrue, yPred := StackRows(Y), StackRows(pred)
		if yTrue == nil || yPred == nil {
			return math.NaN(), errors.New("nothing to score")
		}

		tr, tc := yTrue.Dims()
		pr, pc := yPred.Dims()

		if tr != pr || tc != pc {
			return math.NaN(), errors.Errorf("prediction shape %dx%d does not match target shape %dx%d", pr, pc, tr, tc)
		}

		return sign * metric(yTrue, yPred), nil
	}
}

// The metrics below read the raw backing slice of a freshly allocated
// difference matrix, which is contiguous.

// MeanSquaredError averages the squared error over all rows and outputs.
func MeanSquaredError(yTrue, yPred *mat.Dense) float64 {
	var diff mat.Dense
	diff.Sub(yTrue, yPred)

	d := diff.RawMatrix().Data

	return floats.Dot(d, d) / float64(len(d))
}

// MeanAbsoluteError averages the absolute error over all rows and outputs.
func MeanAbsoluteError(yTrue, yPred *mat.Dense) float64 {
	var diff mat.Dense
	diff.Sub(yTrue, yPred)

	d := diff.RawMatrix().Data

	return floats.Norm(d, 1) / float64(len(d))
}

// R2Score is the coefficient of determination, averaged uniformly over
// outputs.
func R2Score(yTrue, yPred *mat.Dense) float64 {
	_, c := yTrue.Dims()

	var sum float64
	for j := 0; j < c; j++ {
		sum += stat.RSquaredFrom(mat.Col(nil, j, yPred), mat.Col(nil, j, yTrue), nil)
	}

	return sum / float64(c)
}

// AccuracyScore is the fraction of rows predicted exactly, every output
// included. For classifiers the outputs are single-column labels.
func AccuracyScore(yTrue, yPred *mat.Dense) float64 {
	rows, _ := yTrue.Dims()

	var hits int
	for i := 0; i < rows; i++ {
		if floats.Equal(yTrue.RawRowView(i), yPred.RawRowView(i)) {
			hits++
		}
	}

	return float64(hits) / float64(rows)
}

var (
	// NegMeanSquaredError is the negated mean squared error.
	NegMeanSquaredError = MakeScorer(MeanSquaredError, false)

	// NegMeanAbsoluteError is the negated mean absolute error.
	NegMeanAbsoluteError = MakeScorer(MeanAbsoluteError, false)

	// R2 is the coefficient of determination.
	R2 = MakeScorer(R2Score, true)

	// Accuracy is the fraction of exactly predicted rows.
	Accuracy = MakeScorer(AccuracyScore, true)
)

//////
// Registry, used by search plans to refer to scorers by name.
//////

var (
	scorersMu sync.RWMutex
	scorers   = map[string]Scorer{
		"neg_mean_squared_error":  NegMeanSquaredError,
		"neg_mean_absolute_error": NegMeanAbsoluteError,
		"r2":                      R2,
		"accuracy":                Accuracy,
	}
)

// RegisterScorer makes a scorer available to search plans under name.
func RegisterScorer(name string, s Scorer) error {
	if name == "" || s == nil {
		return configErrorf("scorer name and function are required")
	}

	scorersMu.Lock()
	defer scorersMu.Unlock()

	if _, ok := scorers[name]; ok {
		return configErrorf("scorer %q is already registered", name)
	}

	scorers[name] = s

	return nil
}

// ScorerByName returns a registered scorer.
func ScorerByName(name string) (Scorer, error) {
	scorersMu.RLock()
	defer scorersMu.RUnlock()

	s, ok := scorers[name]
	if !ok {
		return nil, configErrorf("unknown scorer %q", name)
	}

	return s, nil
}
