package rcn

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"
)

//////
// Acquisition functions for bayesian search steps.
//
// A bayesian step minimizes the loss (the negated validation score). Every
// acquisition function returns lower values for more promising points.
//////

// AcquisitionFunc rates a candidate from the surrogate's predicted loss mean
// and variance.
//
// Implementation notes for custom acquisition functions:
// - Should handle edge cases (zero variance, extreme means)
// - Must be safe for concurrent use
// - Should return lower values for more promising points
type AcquisitionFunc func(mean, variance float64, params AcquisitionParams) float64

// AcquisitionParams holds parameters used by the acquisition functions.
type AcquisitionParams struct {
	// Beta controls the exploration-exploitation trade-off of UCB. Higher
	// values explore uncertain areas more. Typical values range from 0.1 to
	// 5.0, with 2.0 being a good default.
	Beta float64

	// Xi is the minimum improvement PI and EI ask for. Typical values range
	// from 0.01 to 0.1.
	Xi float64

	// BestSoFar is the lowest loss observed so far. Updated by the step before
	// every acquisition round.
	BestSoFar float64

	// RandomState is the generator used by Thompson Sampling. When nil, a
	// bayesian step seeds one from its own seed.
	RandomState *rand.Rand
}

// UCB implements the (lower) confidence bound: mean - Beta·σ.
//
// Example:
//
//	params := AcquisitionParams{Beta: 2.0}
//	value := UCB(0.5, 0.2, params)
func UCB(mean, variance float64, params AcquisitionParams) float64 {
	return mean - params.Beta*math.Sqrt(variance)
}

// ProbabilityOfImprovement returns the negated probability that a point's loss
// falls below BestSoFar - Xi.
func ProbabilityOfImprovement(mean, variance float64, params AcquisitionParams) float64 {
	sigma := math.Sqrt(math.Max(variance, 1e-12))

	z := (params.BestSoFar - params.Xi - mean) / sigma

	return -distuv.UnitNormal.CDF(z)
}

// ExpectedImprovement returns the negated expected improvement of a point over
// BestSoFar - Xi.
func ExpectedImprovement(mean, variance float64, params AcquisitionParams) float64 {
	sigma := math.Sqrt(math.Max(variance, 1e-12))

	improvement := params.BestSoFar - params.Xi - mean
	z := improvement / sigma

	return -(improvement*distuv.UnitNormal.CDF(z) + sigma*distuv.UnitNormal.Prob(z))
}

// ThompsonSampling draws a loss from the posterior at the point.
func ThompsonSampling(mean, variance float64, params AcquisitionParams) float64 {
	return mean + math.Sqrt(variance)*params.RandomState.NormFloat64()
}
