package rcn

import (
	"io"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

//////
// Estimator capability set.
//////

// Estimator is the capability set the search engine drives. Data is passed as
// parallel lists of sequences: X[i] holds the input rows (time steps) of the
// i-th sequence and Y[i] its target rows. Static datasets are a list of
// single-row sequences, see SplitRows.
//
// Implementations must treat their configuration as a value: WithParams
// returns a fresh, unfitted estimator and never mutates the receiver.
type Estimator interface {
	// Params returns the full hyper-parameter configuration.
	Params() Params

	// WithParams returns a new unfitted estimator whose configuration is the
	// receiver's merged with p. Unknown names or ill-typed values fail with
	// ErrConfiguration.
	WithParams(p Params) (Estimator, error)

	// Fit trains the estimator on all sequences.
	Fit(X, Y []*mat.Dense) error

	// Predict returns one output matrix per input sequence.
	Predict(X []*mat.Dense) ([]*mat.Dense, error)
}

// PartialFitter is implemented by estimators that can continue training on
// more sequences. When finalize is false the output weights are left stale
// until a later call with finalize set, or until Finalize.
type PartialFitter interface {
	PartialFit(X, Y []*mat.Dense, finalize bool) error
}

// Finalizer is implemented by estimators with a deferred weight solve.
type Finalizer interface {
	Finalize() error
}

// Clone returns a fresh, unfitted copy of e with the same configuration.
func Clone(e Estimator) (Estimator, error) {
	return e.WithParams(nil)
}

//////
// Search steps.
//////

// Strategy selects how a search step enumerates candidates.
type Strategy int

const (
	// Grid evaluates every combination of the cartesian product of the space.
	Grid Strategy = iota

	// Randomized evaluates a fixed budget of sampled combinations.
	Randomized

	// Bayesian evaluates a fixed budget of combinations chosen by a Gaussian
	// process surrogate and an acquisition function.
	Bayesian
)

// String implements fmt.Stringer.
func (s Strategy) String() string {
	switch s {
	case Grid:
		return "grid"
	case Randomized:
		return "randomized"
	case Bayesian:
		return "bayesian"
	default:
		return "unknown"
	}
}

// Dimension is one axis of a parameter space: either a finite ordered list of
// candidate values or a sampling distribution.
type Dimension struct {
	// Values is the finite ordered candidate list.
	Values []any

	// Distribution is used when Values is empty. Only randomized and bayesian
	// steps can sample from it.
	Distribution Distribution
}

// Choice returns a finite Dimension.
func Choice(values ...any) Dimension {
	return Dimension{Values: values}
}

// Sampled returns a Dimension backed by a distribution.
func Sampled(d Distribution) Dimension {
	return Dimension{Distribution: d}
}

// Finite reports whether the dimension is a finite list.
func (d Dimension) Finite() bool {
	return d.Distribution == nil
}

// Space maps hyper-parameter names to dimensions.
type Space map[string]Dimension

// Names returns the parameter names in sorted order. Candidate enumeration and
// sampling always follow this order.
func (s Space) Names() []string {
	p := make(Params, len(s))
	for k := range s {
		p[k] = nil
	}

	return p.Keys()
}

// StepOptions configures a single search step.
//
// Usage example:
//
//	opts := DefaultStepOptions()
//	opts.CV = TimeSeriesSplit{NSplits: 3}
//	opts.NJobs = 4
type StepOptions struct {
	// NIter is the candidate budget of randomized and bayesian steps.
	NIter int

	// Scoring rates a fitted estimator on validation data, higher is better.
	Scoring Scorer

	// CV splits the sequence index set into train and validation folds.
	CV Splitter

	// NJobs is the number of candidates (or, for bayesian steps, folds)
	// evaluated concurrently. Values below 1 mean 1.
	NJobs int

	// Verbose > 0 draws a progress bar on Config.Output, Verbose > 1 also
	// logs every candidate at Info level.
	Verbose int

	// Seed seeds the random generator of randomized and bayesian steps.
	Seed int64

	// InitialSamples is the number of random candidates a bayesian step
	// evaluates before consulting the surrogate model.
	InitialSamples int

	// NumCandidates is the number of random points a bayesian step rates with
	// the acquisition function per iteration.
	NumCandidates int

	// AcquisitionFunc chooses the next bayesian candidate. Defaults to UCB.
	AcquisitionFunc AcquisitionFunc

	// AcqParams parameterizes AcquisitionFunc. RandomState is derived from
	// Seed when nil.
	AcqParams AcquisitionParams
}

// SearchStep is one stage of a sequential search.
type SearchStep struct {
	// Name identifies the step in the result accessors. Must be unique.
	Name string

	// Strategy selects grid, randomized or bayesian enumeration.
	Strategy Strategy

	// Space is the parameter space searched by the step.
	Space Space

	// Options configures budget, scoring, splitting and parallelism.
	Options StepOptions
}

//////
// Results.
//////

// CandidateResult is one row of a step's result table.
type CandidateResult struct {
	// Params is the candidate's own assignment, without the inherited
	// parameters of earlier steps.
	Params Params

	// SplitScores holds the validation score of each fold.
	SplitScores []float64

	// MeanScore and StdScore summarize SplitScores. NaN for failed candidates.
	MeanScore float64
	StdScore  float64

	// Rank is 1 for the best mean score. Failed candidates rank last.
	Rank int

	// FitDuration is the wall time spent fitting and scoring all folds.
	FitDuration time.Duration

	// Err is non-nil if any fold failed.
	Err error
}

// CVResults is the full result table of a step, in enumeration order.
type CVResults []CandidateResult

// Clone returns a deep copy of the table.
func (r CVResults) Clone() CVResults {
	if r == nil {
		return nil
	}

	out := make(CVResults, len(r))
	for i, c := range r {
		c.Params = c.Params.Clone()
		c.SplitScores = append([]float64(nil), c.SplitScores...)
		out[i] = c
	}

	return out
}

// SearchResult is the outcome of one completed step. It is never modified
// after the step completes; accessors hand out deep copies.
type SearchResult struct {
	Name       string
	Strategy   Strategy
	BestIndex  int
	BestParams Params
	BestScore  float64
	CVResults  CVResults
}

// Clone returns a deep copy of the result.
func (r SearchResult) Clone() SearchResult {
	r.BestParams = r.BestParams.Clone()
	r.CVResults = r.CVResults.Clone()

	return r
}

//////
// Engine configuration.
//////

// ProgressUpdate represents the current state of a step.
type ProgressUpdate struct {
	// Step is the name of the running step.
	Step string

	// Phase is "InitialSampling" or "Optimization" for bayesian steps and
	// "Evaluation" otherwise.
	Phase string

	// CurrentIteration counts evaluated candidates of the step.
	CurrentIteration int

	// TotalIterations is the number of candidates of the step.
	TotalIterations int

	// CurrentParams holds the candidate just evaluated.
	CurrentParams Params

	// CurrentBestParams holds the best candidate of the step so far.
	CurrentBestParams Params

	// CurrentBestScore holds the best mean score of the step so far.
	CurrentBestScore float64

	// LastScore holds the mean score of the candidate just evaluated.
	LastScore float64
}

// Config holds the engine-wide configuration.
type Config struct {
	// Logger receives step and candidate diagnostics.
	Logger *zap.Logger

	// ProgressChan receives updates after every evaluated candidate. Updates
	// are dropped when the channel is full. If nil, no updates are sent.
	ProgressChan chan<- ProgressUpdate

	// Output is where progress bars are drawn for verbose steps.
	Output io.Writer
}

//////
// Collaborators.
//////

// Distribution samples a parameter value.
type Distribution interface {
	Sample(rng *rand.Rand) any
}

// Fold is a pair of train and validation index sets.
type Fold struct {
	Train      []int
	Validation []int
}

// Splitter produces cross-validation folds over n sequences.
type Splitter interface {
	Split(n int) ([]Fold, error)
}

// Scorer rates a fitted estimator on X, Y. Higher is better.
type Scorer func(est Estimator, X, Y []*mat.Dense) (float64, error)
