package rcn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBayesianSearch(t *testing.T) {
	X, Y := sequences(10, 1, 0)

	run := func(acq AcquisitionFunc, progressChan chan ProgressUpdate) *SequentialSearch {
		config := DefaultConfig()
		config.ProgressChan = progressChan

		search, err := NewSequentialSearch(newScaleEstimator(), []SearchStep{{
			Name:     "bayes",
			Strategy: Bayesian,
			Space:    Space{"input_scaling": Sampled(Uniform{Min: 0, Max: 2})},
			Options: StepOptions{
				NIter:           8,
				InitialSamples:  3,
				NumCandidates:   20,
				Seed:            11,
				AcquisitionFunc: acq,
			},
		}}, config)
		require.NoError(t, err)

		require.NoError(t, search.Fit(X, Y))

		return search
	}

	for name, acq := range map[string]AcquisitionFunc{
		"ucb":      UCB,
		"pi":       ProbabilityOfImprovement,
		"ei":       ExpectedImprovement,
		"thompson": ThompsonSampling,
	} {
		t.Run(name, func(t *testing.T) {
			progressChan := make(chan ProgressUpdate, 8)

			first, second := run(acq, progressChan), run(acq, nil)
			close(progressChan)

			results := first.AllCVResults()["bayes"]
			require.Len(t, results, 8)

			best := math.Inf(-1)
			for i, r := range results {
				assert.NoError(t, r.Err)
				assert.Equal(t, r.Params, second.AllCVResults()["bayes"][i].Params)

				best = math.Max(best, r.MeanScore)
			}

			assert.Equal(t, best, first.AllBestScore()["bayes"])

			phases := map[string]int{}
			for update := range progressChan {
				phases[update.Phase]++
			}

			assert.Equal(t, 3, phases["InitialSampling"])
			assert.Equal(t, 5, phases["Optimization"])
		})
	}
}

func TestDecodePoint(t *testing.T) {
	space := Space{
		"act":   Choice("identity", "tanh", "relu"),
		"alpha": Sampled(Uniform{Min: 0, Max: 10}),
	}
	names := space.Names()

	params, encoded := decodePoint(space, names, []float64{0.1, 0.25})
	assert.Equal(t, "identity", params["act"])
	assert.InDelta(t, 2.5, params["alpha"], 1e-12)
	assert.InDelta(t, 1.0/6, encoded[0], 1e-12)
	assert.InDelta(t, 0.25, encoded[1], 1e-12)

	params, encoded = decodePoint(space, names, []float64{0.99, 0.5})
	assert.Equal(t, "relu", params["act"])
	assert.InDelta(t, 5.0/6, encoded[0], 1e-12)
}

func TestGaussianProcess(t *testing.T) {
	gp := newGaussianProcess()

	// Prior.
	mean, variance := gp.Predict([]float64{0.5})
	assert.Equal(t, 0.0, mean)
	assert.Equal(t, 1.0, variance)

	gp.Update([]float64{0.2}, 1)
	gp.Update([]float64{0.8}, 3)

	mean, variance = gp.Predict([]float64{0.2})
	assert.InDelta(t, 1, mean, 1e-3)
	assert.Less(t, variance, 1e-3)

	_, far := gp.Predict([]float64{0.5})
	assert.Greater(t, far, variance)

	// The same point observed twice still factorizes.
	gp.Update([]float64{0.2}, 1.1)
	mean, _ = gp.Predict([]float64{0.2})
	assert.InDelta(t, 1.05, mean, 0.05)

	assert.Equal(t, 1.0, gp.RBFKernel([]float64{0.3, 0.3}, []float64{0.3, 0.3}))
	assert.Panics(t, func() { gp.RBFKernel([]float64{1}, []float64{1, 2}) })
}

func TestAcquisitionFunctions(t *testing.T) {
	params := AcquisitionParams{Beta: 2, Xi: 0.01, BestSoFar: 1, RandomState: rand.New(rand.NewSource(1))}

	assert.InDelta(t, 0.5-2*0.5, UCB(0.5, 0.25, params), 1e-12)

	// A lower predicted loss is more promising for every function.
	for name, acq := range map[string]AcquisitionFunc{
		"ucb": UCB,
		"pi":  ProbabilityOfImprovement,
		"ei":  ExpectedImprovement,
	} {
		assert.Less(t, acq(0, 0.1, params), acq(2, 0.1, params), name)
	}

	pi := ProbabilityOfImprovement(0, 0.1, params)
	assert.GreaterOrEqual(t, pi, -1.0)
	assert.LessOrEqual(t, pi, 0.0)

	// Zero variance does not divide by zero.
	assert.False(t, math.IsNaN(ExpectedImprovement(0.5, 0, params)))

	ts := ThompsonSampling(1, 0, params)
	assert.Equal(t, 1.0, ts)
}
