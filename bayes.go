package rcn

import (
	"math"
	"math/rand"

	"go.uber.org/zap"
)

// bayesianSearch evaluates NIter candidates of a bayesian step.
//
// How it works:
// 1. Evaluates InitialSamples random candidates to build the initial model
// 2. For each remaining iteration:
//   - Draws NumCandidates random points of the unit hypercube
//   - Uses the Gaussian Process to predict the loss at each point
//   - Uses AcquisitionFunc to select the most promising point
//   - Cross-validates the selected candidate, folds in parallel
//   - Updates the model with the observed loss
//
// Every dimension is placed on [0, 1]: finite lists by bucket, distributions
// through their CDF. Failed candidates are recorded but not fed to the model.
func (s *SequentialSearch) bayesianSearch(run *stepRun) CVResults {
	opts := run.step.Options
	names := run.step.Space.Names()

	rng := rand.New(rand.NewSource(opts.Seed))

	acqParams := opts.AcqParams
	if acqParams.RandomState == nil {
		acqParams.RandomState = rand.New(rand.NewSource(opts.Seed + 1))
	}

	initial := opts.InitialSamples
	if initial > opts.NIter {
		initial = opts.NIter
	}

	run.tracker = newProgressTracker(s.config, run.step, opts.NIter, run.logger)
	defer run.tracker.finish()

	gp := newGaussianProcess()
	bestLoss := math.MaxFloat64
	results := make(CVResults, 0, opts.NIter)

	for i := 0; i < opts.NIter; i++ {
		phase := "InitialSampling"

		var point []float64

		if i < initial {
			point = randomPoint(rng, len(names))
		} else {
			phase = "Optimization"

			// Update acquisition function with current best loss.
			acqParams.BestSoFar = bestLoss
			bestAcquisition := math.Inf(1)

			for j := 0; j < opts.NumCandidates; j++ {
				candidate := randomPoint(rng, len(names))

				mean, variance := gp.Predict(candidate)

				if acquisition := opts.AcquisitionFunc(mean, variance, acqParams); acquisition < bestAcquisition || point == nil {
					bestAcquisition = acquisition
					point = candidate
				}
			}
		}

		params, encoded := decodePoint(run.step.Space, names, point)

		r := s.evaluate(run, params, opts.NJobs)
		results = append(results, r)

		if r.Err == nil {
			loss := -r.MeanScore

			gp.Update(encoded, loss)

			if loss < bestLoss {
				bestLoss = loss
			}
		}

		run.logger.Debug("bayesian iteration",
			zap.String("phase", phase),
			zap.Int("iteration", i+1),
			zap.Float64("best_loss", bestLoss),
		)

		run.tracker.observe(phase, r)
	}

	return results
}

// randomPoint draws a point of the open unit hypercube.
func randomPoint(rng *rand.Rand, dims int) []float64 {
	p := make([]float64, dims)
	for i := range p {
		p[i] = openUnit(rng)
	}

	return p
}

// decodePoint maps a unit-hypercube point onto an assignment. The returned
// encoding snaps finite dimensions to the center of their bucket, so that
// equal assignments share one point of the surrogate.
func decodePoint(space Space, names []string, point []float64) (Params, []float64) {
	params := make(Params, len(names))
	encoded := make([]float64, len(names))

	for k, name := range names {
		d := space[name]
		u := point[k]

		if d.Finite() {
			n := len(d.Values)

			idx := int(u * float64(n))
			if idx >= n {
				idx = n - 1
			}

			params[name] = d.Values[idx]
			encoded[k] = (float64(idx) + 0.5) / float64(n)

			continue
		}

		mapper := d.Distribution.(unitMapper)
		params[name] = mapper.fromUnit(u)

		if e, ok := mapper.toUnit(params[name]); ok {
			encoded[k] = e
		} else {
			encoded[k] = u
		}
	}

	return params, encoded
}
