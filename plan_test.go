package rcn

import (
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPlan = `
steps:
  - name: scaling
    strategy: grid
    space:
      input_scaling: {values: [0.1, 0.5, 1.0]}
      activation: {values: [tanh, relu]}
    cv: {kind: timeseries, n_splits: 3}
    n_jobs: 2
  - name: regularization
    strategy: randomized
    n_iter: 20
    seed: 42
    scoring: r2
    space:
      alpha: {distribution: loguniform, min: 1.0e-6, max: 1.0e-1}
  - name: size
    strategy: bayesian
    n_iter: 8
    initial_samples: 3
    acquisition: ei
    xi: 0.05
    space:
      hidden_layer_size: {distribution: randint, min: 50, max: 500}
`

func TestLoadPlan(t *testing.T) {
	steps, err := LoadPlan(strings.NewReader(testPlan))
	require.NoError(t, err)
	require.Len(t, steps, 3)

	grid := steps[0]
	assert.Equal(t, "scaling", grid.Name)
	assert.Equal(t, Grid, grid.Strategy)
	assert.Equal(t, []any{0.1, 0.5, 1.0}, grid.Space["input_scaling"].Values)
	assert.Equal(t, []any{"tanh", "relu"}, grid.Space["activation"].Values)
	assert.Equal(t, TimeSeriesSplit{NSplits: 3}, grid.Options.CV)
	assert.Equal(t, 2, grid.Options.NJobs)

	random := steps[1]
	assert.Equal(t, Randomized, random.Strategy)
	assert.Equal(t, 20, random.Options.NIter)
	assert.Equal(t, int64(42), random.Options.Seed)
	assert.Equal(t, LogUniform{Min: 1e-6, Max: 1e-1}, random.Space["alpha"].Distribution)
	assert.Equal(t, KFold{NSplits: 5}, random.Options.CV)

	bayes := steps[2]
	assert.Equal(t, Bayesian, bayes.Strategy)
	assert.Equal(t, 3, bayes.Options.InitialSamples)
	assert.Equal(t, 0.05, bayes.Options.AcqParams.Xi)
	assert.Equal(t, 2.0, bayes.Options.AcqParams.Beta)
	assert.Equal(t, ParameterRange[int]{Min: 50, Max: 500}, bayes.Space["hidden_layer_size"].Distribution)
}

func TestLoadPlanErrors(t *testing.T) {
	tests := map[string]string{
		"unknown field":        "steps:\n  - name: a\n    stratgy: grid\n",
		"unknown strategy":     "steps:\n  - name: a\n    strategy: annealing\n    space: {x: {values: [1]}}\n",
		"unknown distribution": "steps:\n  - name: a\n    space: {x: {distribution: beta}}\n",
		"empty dimension":      "steps:\n  - name: a\n    space: {x: {}}\n",
		"values and dist":      "steps:\n  - name: a\n    space: {x: {values: [1], distribution: uniform, min: 0, max: 1}}\n",
		"bad loguniform":       "steps:\n  - name: a\n    space: {x: {distribution: loguniform, min: 0, max: 1}}\n",
		"unknown scorer":       "steps:\n  - name: a\n    scoring: accuracy\n    space: {x: {values: [1]}}\n",
		"unknown cv":           "steps:\n  - name: a\n    cv: {kind: loo}\n    space: {x: {values: [1]}}\n",
		"unknown acquisition":  "steps:\n  - name: a\n    acquisition: kg\n    space: {x: {values: [1]}}\n",
	}

	for name, plan := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadPlan(strings.NewReader(plan))
			assert.True(t, errors.Is(err, ErrConfiguration), "got %v", err)
		})
	}
}
