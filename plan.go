package rcn

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//////
// YAML search plans.
//////

// Plan is the YAML representation of a list of search steps.
//
// Example:
//
//	steps:
//	  - name: scaling
//	    strategy: grid
//	    space:
//	      input_scaling: {values: [0.1, 0.5, 1.0]}
//	    cv: {kind: timeseries, n_splits: 3}
//	  - name: regularization
//	    strategy: randomized
//	    n_iter: 20
//	    seed: 42
//	    space:
//	      alpha: {distribution: loguniform, min: 1.0e-6, max: 1.0e-1}
type Plan struct {
	Steps []PlanStep `yaml:"steps"`
}

// PlanStep is the YAML representation of a SearchStep.
type PlanStep struct {
	Name           string                   `yaml:"name"`
	Strategy       string                   `yaml:"strategy"`
	Space          map[string]PlanDimension `yaml:"space"`
	NIter          int                      `yaml:"n_iter"`
	Scoring        string                   `yaml:"scoring"`
	CV             *PlanCV                  `yaml:"cv"`
	NJobs          int                      `yaml:"n_jobs"`
	Verbose        int                      `yaml:"verbose"`
	Seed           int64                    `yaml:"seed"`
	InitialSamples int                      `yaml:"initial_samples"`
	NumCandidates  int                      `yaml:"num_candidates"`
	Acquisition    string                   `yaml:"acquisition"`
	Beta           float64                  `yaml:"beta"`
	Xi             float64                  `yaml:"xi"`
}

// PlanDimension is either a list of values or a named distribution.
// Distributions: uniform, loguniform, normal (mu, sigma), randint.
type PlanDimension struct {
	Values       []any   `yaml:"values"`
	Distribution string  `yaml:"distribution"`
	Min          float64 `yaml:"min"`
	Max          float64 `yaml:"max"`
	Mu           float64 `yaml:"mu"`
	Sigma        float64 `yaml:"sigma"`
}

// PlanCV selects a splitter: kfold, timeseries or shuffle.
type PlanCV struct {
	Kind     string  `yaml:"kind"`
	NSplits  int     `yaml:"n_splits"`
	Shuffle  bool    `yaml:"shuffle"`
	Seed     int64   `yaml:"seed"`
	TestSize float64 `yaml:"test_size"`
}

// LoadPlan decodes a YAML plan and converts it into search steps. Unknown
// YAML fields are rejected.
func LoadPlan(r io.Reader) ([]SearchStep, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var plan Plan
	if err := dec.Decode(&plan); err != nil {
		return nil, errors.Wrapf(ErrConfiguration, "decode plan: %v", err)
	}

	return plan.SearchSteps()
}

// SearchSteps converts the plan into search steps.
func (p Plan) SearchSteps() ([]SearchStep, error) {
	steps := make([]SearchStep, 0, len(p.Steps))

	for i, ps := range p.Steps {
		step, err := ps.searchStep()
		if err != nil {
			return nil, errors.Wrapf(err, "plan step %d (%s)", i, ps.Name)
		}

		steps = append(steps, step)
	}

	return steps, nil
}

func (ps PlanStep) searchStep() (SearchStep, error) {
	step := SearchStep{
		Name:  ps.Name,
		Space: make(Space, len(ps.Space)),
	}

	switch strings.ToLower(ps.Strategy) {
	case "", "grid":
		step.Strategy = Grid
	case "randomized", "random":
		step.Strategy = Randomized
	case "bayesian", "bayes":
		step.Strategy = Bayesian
	default:
		return step, configErrorf("unknown strategy %q", ps.Strategy)
	}

	for name, pd := range ps.Space {
		d, err := pd.dimension()
		if err != nil {
			return step, errors.Wrapf(err, "parameter %q", name)
		}

		step.Space[name] = d
	}

	opts := DefaultStepOptions()
	opts.NIter = ps.NIter
	opts.NJobs = ps.NJobs
	opts.Verbose = ps.Verbose
	opts.Seed = ps.Seed
	opts.InitialSamples = ps.InitialSamples
	opts.NumCandidates = ps.NumCandidates

	if ps.Beta != 0 {
		opts.AcqParams.Beta = ps.Beta
	}

	if ps.Xi != 0 {
		opts.AcqParams.Xi = ps.Xi
	}

	if ps.Scoring != "" {
		scorer, err := ScorerByName(ps.Scoring)
		if err != nil {
			return step, err
		}

		opts.Scoring = scorer
	}

	if ps.CV != nil {
		splitter, err := ps.CV.splitter()
		if err != nil {
			return step, err
		}

		opts.CV = splitter
	}

	switch strings.ToLower(ps.Acquisition) {
	case "", "ucb":
		opts.AcquisitionFunc = UCB
	case "pi":
		opts.AcquisitionFunc = ProbabilityOfImprovement
	case "ei":
		opts.AcquisitionFunc = ExpectedImprovement
	case "thompson":
		opts.AcquisitionFunc = ThompsonSampling
	default:
		return step, configErrorf("unknown acquisition function %q", ps.Acquisition)
	}

	step.Options = opts

	return step, nil
}

func (pd PlanDimension) dimension() (Dimension, error) {
	if len(pd.Values) > 0 {
		if pd.Distribution != "" {
			return Dimension{}, configErrorf("both values and a distribution are set")
		}

		return Choice(pd.Values...), nil
	}

	switch strings.ToLower(pd.Distribution) {
	case "uniform":
		if pd.Max <= pd.Min {
			return Dimension{}, configErrorf("uniform needs min < max")
		}

		return Sampled(Uniform{Min: pd.Min, Max: pd.Max}), nil
	case "loguniform":
		if pd.Min <= 0 || pd.Max <= pd.Min {
			return Dimension{}, configErrorf("loguniform needs 0 < min < max")
		}

		return Sampled(LogUniform{Min: pd.Min, Max: pd.Max}), nil
	case "normal":
		if pd.Sigma <= 0 {
			return Dimension{}, configErrorf("normal needs sigma > 0")
		}

		return Sampled(Normal{Mu: pd.Mu, Sigma: pd.Sigma}), nil
	case "randint":
		if pd.Max < pd.Min {
			return Dimension{}, configErrorf("randint needs min <= max")
		}

		return Sampled(ParameterRange[int]{Min: int(pd.Min), Max: int(pd.Max)}), nil
	case "":
		return Dimension{}, configErrorf("no values and no distribution")
	default:
		return Dimension{}, configErrorf("unknown distribution %q", pd.Distribution)
	}
}

func (pc PlanCV) splitter() (Splitter, error) {
	switch strings.ToLower(pc.Kind) {
	case "", "kfold":
		n := pc.NSplits
		if n == 0 {
			n = 5
		}

		return KFold{NSplits: n, Shuffle: pc.Shuffle, Seed: pc.Seed}, nil
	case "timeseries":
		n := pc.NSplits
		if n == 0 {
			n = 5
		}

		return TimeSeriesSplit{NSplits: n}, nil
	case "shuffle":
		n := pc.NSplits
		if n == 0 {
			n = 10
		}

		testSize := pc.TestSize
		if testSize == 0 {
			testSize = 0.1
		}

		return ShuffleSplit{NSplits: n, TestSize: testSize, Seed: pc.Seed}, nil
	default:
		return nil, configErrorf("unknown cv kind %q", pc.Kind)
	}
}
