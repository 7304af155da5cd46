package rcn

import (
	"math"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//////
// Exported functionalities.
//////

// DefaultConfig returns a default engine configuration.
func DefaultConfig() Config {
	return Config{
		Logger:       zap.NewNop(),
		ProgressChan: nil, // Default to no progress updates.
		Output:       os.Stderr,
	}
}

// DefaultStepOptions returns default step options: negated mean squared error
// over a 5-fold split, a budget of 10 candidates and sequential evaluation.
func DefaultStepOptions() StepOptions {
	return StepOptions{
		NIter:           10,
		Scoring:         NegMeanSquaredError,
		CV:              KFold{NSplits: 5},
		NJobs:           1,
		InitialSamples:  5,
		NumCandidates:   50,
		AcquisitionFunc: UCB,
		AcqParams: AcquisitionParams{
			Beta:      2.0,
			Xi:        0.01,
			BestSoFar: math.MaxFloat64,
		},
	}
}

// SequentialSearch runs an ordered list of search steps against a base
// estimator. Each step searches its own parameter space on top of the winners
// of all previous steps; after the last step one estimator is refit with the
// accumulated winners on the complete training data.
//
// Usage example:
//
//	steps := []SearchStep{
//	    {
//	        Name:     "scaling",
//	        Strategy: Grid,
//	        Space:    Space{"input_scaling": Choice(0.1, 0.5, 1.0)},
//	        Options:  DefaultStepOptions(),
//	    },
//	    {
//	        Name:     "regularization",
//	        Strategy: Randomized,
//	        Space:    Space{"alpha": Sampled(LogUniform{Min: 1e-6, Max: 1e-1})},
//	        Options:  DefaultStepOptions(),
//	    },
//	}
//
//	search, err := NewSequentialSearch(base, steps, DefaultConfig())
//	if err != nil {
//	    return err
//	}
//
//	if err := search.Fit(X, Y); err != nil {
//	    return err
//	}
//
//	best := search.BestEstimator()
//
// Thread safety:
// - Accessors are safe to call concurrently with each other
// - Fit must not be called concurrently on the same instance
// - The base estimator is never mutated; every evaluation works on a fresh
// estimator built with WithParams
type SequentialSearch struct {
	mu sync.RWMutex

	base   Estimator
	steps  []SearchStep
	config Config
	runID  string

	results       []SearchResult
	bestParams    Params
	bestEstimator Estimator
}

// NewSequentialSearch validates the steps against the base estimator and
// returns an engine ready to Fit. Zero-valued step options are replaced by
// their DefaultStepOptions counterparts.
//
// Returns:
// - error: ErrConfiguration for empty or duplicate step names, empty spaces
// or dimensions, distributions in grid steps, parameter names the base
// estimator does not know, or invalid budgets
func NewSequentialSearch(base Estimator, steps []SearchStep, config Config) (*SequentialSearch, error) {
	if base == nil {
		return nil, configErrorf("base estimator is required")
	}

	if len(steps) == 0 {
		return nil, configErrorf("at least one search step is required")
	}

	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	if config.Output == nil {
		config.Output = os.Stderr
	}

	known := base.Params()
	seen := make(map[string]struct{}, len(steps))
	normalized := make([]SearchStep, 0, len(steps))

	for i, step := range steps {
		if step.Name == "" {
			return nil, configErrorf("step %d has no name", i)
		}

		if _, ok := seen[step.Name]; ok {
			return nil, configErrorf("duplicate step name %q", step.Name)
		}

		seen[step.Name] = struct{}{}

		s, err := normalizeStep(step, known)
		if err != nil {
			return nil, errors.Wrapf(err, "step %q", step.Name)
		}

		normalized = append(normalized, s)
	}

	return &SequentialSearch{
		base:       base,
		steps:      normalized,
		config:     config,
		runID:      uuid.NewString(),
		bestParams: Params{},
	}, nil
}

// Fit runs every step in order and refits the best estimator on all of X, Y.
//
// Parameters:
// - X: Input sequences, rows are time steps
// - Y: Target sequences, parallel to X
//
// Returns:
// - error: ErrConfiguration for invalid data or folds, a wrapped *FitError if
// every candidate of a step failed, or the refit error
//
// Important notes:
// - A failing step stops the run; results of completed steps stay available
// - Candidate failures are logged and do not stop sibling candidates
func (s *SequentialSearch) Fit(X, Y []*mat.Dense) error {
	if err := checkData(X, Y); err != nil {
		return err
	}

	s.mu.Lock()
	s.results = nil
	s.bestParams = Params{}
	s.bestEstimator = nil
	s.mu.Unlock()

	logger := s.config.Logger.With(zap.String("run_id", s.runID))

	// Fold over the steps: the state is the accumulated best assignment.
	state := Params{}

	for i, step := range s.steps {
		result, err := s.runStep(logger, state, step, X, Y)
		if err != nil {
			logger.Error("step failed",
				zap.Int("step", i),
				zap.String("name", step.Name),
				zap.Error(err),
			)

			return errors.Wrapf(err, "step %q", step.Name)
		}

		state = state.Merge(result.BestParams)

		s.mu.Lock()
		s.results = append(s.results, result)
		s.bestParams = state.Clone()
		s.mu.Unlock()
	}

	best, err := s.base.WithParams(state)
	if err != nil {
		return errors.Wrap(err, "refit")
	}

	if err := safeCall(func() error { return best.Fit(X, Y) }); err != nil {
		return errors.Wrap(err, "refit")
	}

	s.mu.Lock()
	s.bestEstimator = best
	s.mu.Unlock()

	logger.Info("search finished", zap.Stringer("best_params", state))

	return nil
}

// Predict delegates to the best estimator.
func (s *SequentialSearch) Predict(X []*mat.Dense) ([]*mat.Dense, error) {
	best := s.BestEstimator()
	if best == nil {
		return nil, errors.New("search has not been fitted")
	}

	return best.Predict(X)
}

// BestEstimator returns the estimator refit on the complete training data, or
// nil if Fit has not completed.
func (s *SequentialSearch) BestEstimator() Estimator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bestEstimator
}

// BestParams returns the accumulated winning assignment of all completed
// steps.
func (s *SequentialSearch) BestParams() Params {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.bestParams.Clone()
}

// AllBestParams maps each completed step to its winning assignment.
func (s *SequentialSearch) AllBestParams() map[string]Params {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Params, len(s.results))
	for _, r := range s.results {
		out[r.Name] = r.BestParams.Clone()
	}

	return out
}

// AllBestScore maps each completed step to its winning mean score.
func (s *SequentialSearch) AllBestScore() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64, len(s.results))
	for _, r := range s.results {
		out[r.Name] = r.BestScore
	}

	return out
}

// AllCVResults maps each completed step to its full result table.
func (s *SequentialSearch) AllCVResults() map[string]CVResults {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]CVResults, len(s.results))
	for _, r := range s.results {
		out[r.Name] = r.CVResults.Clone()
	}

	return out
}

// Results returns the result log in step order.
func (s *SequentialSearch) Results() []SearchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SearchResult, len(s.results))
	for i, r := range s.results {
		out[i] = r.Clone()
	}

	return out
}

// Steps returns the normalized steps.
func (s *SequentialSearch) Steps() []SearchStep {
	return append([]SearchStep(nil), s.steps...)
}

// RunID identifies this engine in logs and archives.
func (s *SequentialSearch) RunID() string {
	return s.runID
}

//////
// Step execution.
//////

// stepRun carries what the candidates of one step share. None of it is
// mutated while candidates are evaluated.
type stepRun struct {
	step      SearchStep
	inherited Params
	folds     []Fold
	X, Y      []*mat.Dense
	logger    *zap.Logger
	tracker   *progressTracker
}

func (s *SequentialSearch) runStep(logger *zap.Logger, inherited Params, step SearchStep, X, Y []*mat.Dense) (SearchResult, error) {
	folds, err := step.Options.CV.Split(len(X))
	if err != nil {
		return SearchResult{}, err
	}

	logger = logger.With(zap.String("step", step.Name))
	logger.Info("step started",
		zap.Stringer("strategy", step.Strategy),
		zap.Int("folds", len(folds)),
		zap.Stringer("inherited", inherited),
	)

	run := &stepRun{
		step:      step,
		inherited: inherited,
		folds:     folds,
		X:         X,
		Y:         Y,
		logger:    logger,
	}

	var results CVResults

	switch step.Strategy {
	case Grid:
		candidates, err := gridCandidates(step.Space)
		if err != nil {
			return SearchResult{}, err
		}

		results = s.evaluateAll(run, candidates)

	case Randomized:
		rng := rand.New(rand.NewSource(step.Options.Seed))

		candidates, clipped := randomCandidates(step.Space, step.Options.NIter, rng)
		if clipped {
			logger.Warn("budget exceeds grid size, evaluating the full grid",
				zap.Int("n_iter", step.Options.NIter),
				zap.Int("grid_size", len(candidates)),
			)
		}

		results = s.evaluateAll(run, candidates)

	case Bayesian:
		results = s.bayesianSearch(run)

	default:
		return SearchResult{}, configErrorf("unknown strategy %d", step.Strategy)
	}

	rankResults(results)

	best := selectBest(results)
	if best < 0 {
		return SearchResult{}, newFitError(step.Name, results)
	}

	result := SearchResult{
		Name:       step.Name,
		Strategy:   step.Strategy,
		BestIndex:  best,
		BestParams: results[best].Params.Clone(),
		BestScore:  results[best].MeanScore,
		CVResults:  results,
	}

	logger.Info("step finished",
		zap.Stringer("best_params", result.BestParams),
		zap.Float64("best_score", result.BestScore),
		zap.Int("candidates", len(results)),
	)

	return result, nil
}

// evaluateAll cross-validates candidates in parallel, one worker per
// candidate.
func (s *SequentialSearch) evaluateAll(run *stepRun, candidates []Params) CVResults {
	run.tracker = newProgressTracker(s.config, run.step, len(candidates), run.logger)
	defer run.tracker.finish()

	return parallelMap(candidates, run.step.Options.NJobs, func(_ int, c Params) CandidateResult {
		r := s.evaluate(run, c, 1)
		run.tracker.observe("Evaluation", r)

		return r
	})
}

// evaluate cross-validates one candidate. Every fold fits its own estimator,
// built from the base with the inherited and candidate parameters.
func (s *SequentialSearch) evaluate(run *stepRun, candidate Params, foldWorkers int) CandidateResult {
	start := time.Now()
	params := run.inherited.Merge(candidate)

	type outcome struct {
		score float64
		err   error
	}

	outcomes := parallelMap(run.folds, foldWorkers, func(k int, fold Fold) outcome {
		var score float64

		err := safeCall(func() error {
			est, err := s.base.WithParams(params)
			if err != nil {
				return err
			}

			if err := est.Fit(subset(run.X, fold.Train), subset(run.Y, fold.Train)); err != nil {
				return errors.Wrap(err, "fit")
			}

			score, err = run.step.Options.Scoring(est, subset(run.X, fold.Validation), subset(run.Y, fold.Validation))
			if err != nil {
				return errors.Wrap(err, "score")
			}

			if math.IsNaN(score) {
				return errors.New("score is NaN")
			}

			return nil
		})

		if err != nil {
			return outcome{score: math.NaN(), err: errors.Wrapf(err, "fold %d", k)}
		}

		return outcome{score: score}
	})

	result := CandidateResult{
		Params:      candidate,
		SplitScores: make([]float64, len(outcomes)),
		MeanScore:   math.NaN(),
		StdScore:    math.NaN(),
	}

	for k, o := range outcomes {
		result.SplitScores[k] = o.score

		if o.err != nil && result.Err == nil {
			result.Err = o.err
		}
	}

	result.FitDuration = time.Since(start)

	if result.Err != nil {
		run.logger.Warn("candidate failed",
			zap.Stringer("params", candidate),
			zap.Error(result.Err),
		)

		return result
	}

	result.MeanScore, result.StdScore = stat.PopMeanStdDev(result.SplitScores, nil)

	run.logger.Debug("candidate scored",
		zap.Stringer("params", candidate),
		zap.Float64s("split_scores", result.SplitScores),
		zap.Float64("mean_score", result.MeanScore),
		zap.Duration("fit_duration", result.FitDuration),
	)

	return result
}

//////
// Helpers.
//////

// normalizeStep validates a step and fills zero-valued options with defaults.
func normalizeStep(step SearchStep, known Params) (SearchStep, error) {
	if len(step.Space) == 0 {
		return step, configErrorf("parameter space is empty")
	}

	space := make(Space, len(step.Space))

	for name, d := range step.Space {
		if !known.Has(name) {
			return step, configErrorf("estimator has no parameter %q", name)
		}

		if d.Finite() && len(d.Values) == 0 {
			return step, configErrorf("parameter %q has no candidate values", name)
		}

		switch step.Strategy {
		case Grid:
			if !d.Finite() {
				return step, configErrorf("grid search cannot enumerate the distribution of %q", name)
			}
		case Bayesian:
			if _, ok := d.Distribution.(unitMapper); !d.Finite() && !ok {
				return step, configErrorf("bayesian search cannot map the distribution of %q", name)
			}
		case Randomized:
		default:
			return step, configErrorf("unknown strategy %d", step.Strategy)
		}

		space[name] = Dimension{
			Values:       append([]any(nil), d.Values...),
			Distribution: d.Distribution,
		}
	}

	step.Space = space

	defaults := DefaultStepOptions()
	opts := step.Options

	if opts.NIter < 0 {
		return step, configErrorf("NIter must be positive, got %d", opts.NIter)
	}

	if opts.NIter == 0 {
		opts.NIter = defaults.NIter
	}

	if opts.Scoring == nil {
		opts.Scoring = defaults.Scoring
	}

	if opts.CV == nil {
		opts.CV = defaults.CV
	}

	if opts.NJobs < 1 {
		opts.NJobs = 1
	}

	if opts.InitialSamples <= 0 {
		opts.InitialSamples = defaults.InitialSamples
	}

	if opts.NumCandidates <= 0 {
		opts.NumCandidates = defaults.NumCandidates
	}

	if opts.AcquisitionFunc == nil {
		opts.AcquisitionFunc = defaults.AcquisitionFunc
	}

	if opts.AcqParams.Beta == 0 {
		opts.AcqParams.Beta = defaults.AcqParams.Beta
	}

	if opts.AcqParams.Xi == 0 {
		opts.AcqParams.Xi = defaults.AcqParams.Xi
	}

	step.Options = opts

	return step, nil
}

// selectBest returns the index of the greatest mean score, the first one on
// ties, or -1 if every candidate failed.
func selectBest(results CVResults) int {
	best := -1

	for i, r := range results {
		if r.Err != nil || math.IsNaN(r.MeanScore) {
			continue
		}

		if best < 0 || r.MeanScore > results[best].MeanScore {
			best = i
		}
	}

	return best
}

// rankResults assigns 1-based ranks by descending mean score. Equal scores
// share the lowest rank; failed candidates rank last.
func rankResults(results CVResults) {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}

	failed := func(i int) bool {
		return results[i].Err != nil || math.IsNaN(results[i].MeanScore)
	}

	slices.SortStableFunc(order, func(a, b int) int {
		switch fa, fb := failed(a), failed(b); {
		case fa && fb:
			return 0
		case fa:
			return 1
		case fb:
			return -1
		}

		switch ma, mb := results[a].MeanScore, results[b].MeanScore; {
		case ma > mb:
			return -1
		case ma < mb:
			return 1
		default:
			return 0
		}
	})

	for pos, i := range order {
		switch {
		case failed(i):
			results[i].Rank = len(results)
		case pos > 0 && !failed(order[pos-1]) && results[order[pos-1]].MeanScore == results[i].MeanScore:
			results[i].Rank = results[order[pos-1]].Rank
		default:
			results[i].Rank = pos + 1
		}
	}
}

func newFitError(step string, results CVResults) error {
	fitErr := &FitError{Step: step}

	for _, r := range results {
		if r.Err == nil {
			continue
		}

		if fitErr.Err == nil {
			fitErr.Err = r.Err
			fitErr.Params = r.Params
		}

		fitErr.All = multierr.Append(fitErr.All, errors.Wrapf(r.Err, "candidate (%s)", r.Params))
	}

	if fitErr.Err == nil {
		fitErr.Err = errors.New("no candidates were evaluated")
	}

	return fitErr
}

// safeCall runs fn and turns a panic into an error, so a misbehaving
// candidate cannot take down its siblings.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()

	return fn()
}
