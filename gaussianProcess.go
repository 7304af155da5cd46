package rcn

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//////
// Const, vars, types.
//////

// gaussianProcess implements a thread-safe Gaussian Process regression model
// over points of the unit hypercube. A bayesian search step uses it to predict
// the loss (negated score) of untested candidates from the evaluated ones.
//
// Fields:
// - mu: RWMutex for thread-safe access to all fields
// - X: Observed points (each point is a slice of float64 in [0, 1])
// - Y: Observed losses at each point
// - sigma: Kernel width parameter controlling the smoothness of interpolation
// - noise: Observation noise added to the kernel diagonal
//
// The posterior is recomputed on every Update: observations are standardized,
// the kernel matrix is factorized with a Cholesky decomposition and
// alpha = K⁻¹·y is cached for Predict.
//
// Memory usage:
// - O(n²) where n is the number of observations.
type gaussianProcess struct {
	mu sync.RWMutex

	X [][]float64
	Y []float64

	sigma float64
	noise float64

	chol  *mat.Cholesky
	alpha *mat.VecDense
	yMean float64
	yStd  float64
}

//////
// Factory.
//////

// newGaussianProcess creates a new Gaussian Process with default parameters.
//
// Default values:
// - sigma: 0.25 (kernel width on the unit hypercube)
// - noise: 1e-6
func newGaussianProcess() *gaussianProcess {
	return &gaussianProcess{
		sigma: 0.25,
		noise: 1e-6,
		yStd:  1,
	}
}

//////
// Methods.
//////

// RBFKernel implements the Radial Basis Function (Gaussian) kernel.
//
// Mathematical formula:
//
//	k(x1, x2) = exp(-sum((x1 - x2)^2) / (2 * sigma^2))
//
// Important notes:
// - Panics if input vectors have different lengths
// - Returns 1.0 for identical points
func (gp *gaussianProcess) RBFKernel(x1, x2 []float64) float64 {
	if len(x1) != len(x2) {
		panic("input vectors must have the same length")
	}

	var sum float64

	for i := range x1 {
		diff := x1[i] - x2[i]

		sum += diff * diff
	}

	return math.Exp(-sum / (2 * gp.sigma * gp.sigma))
}

// Predict returns the posterior mean and variance of the loss at x. Without
// observations it returns the prior (0, 1).
func (gp *gaussianProcess) Predict(x []float64) (mean, variance float64) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()

	if len(gp.X) == 0 || gp.chol == nil {
		return 0, 1
	}

	n := len(gp.X)

	k := mat.NewVecDense(n, nil)
	for i := range gp.X {
		k.SetVec(i, gp.RBFKernel(x, gp.X[i]))
	}

	standardized := mat.Dot(k, gp.alpha)

	var v mat.VecDense
	if err := gp.chol.SolveVecTo(&v, k); err != nil && !acceptableCondition(err) {
		return gp.yMean, gp.yStd * gp.yStd
	}

	variance = 1 - mat.Dot(k, &v)
	if variance < 1e-12 {
		variance = 1e-12
	}

	return standardized*gp.yStd + gp.yMean, variance * gp.yStd * gp.yStd
}

// Update adds an observation and recomputes the posterior.
func (gp *gaussianProcess) Update(x []float64, y float64) {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	// Create deep copy of input to prevent external modifications.
	newX := make([]float64, len(x))
	copy(newX, x)

	gp.X = append(gp.X, newX)
	gp.Y = append(gp.Y, y)

	gp.refit()
}

// refit recomputes the cached posterior. Caller holds gp.mu.
func (gp *gaussianProcess) refit() {
	n := len(gp.X)

	gp.yMean, gp.yStd = stat.PopMeanStdDev(gp.Y, nil)
	if gp.yStd == 0 || math.IsNaN(gp.yStd) {
		gp.yStd = 1
	}

	ys := mat.NewVecDense(n, nil)
	for i, y := range gp.Y {
		ys.SetVec(i, (y-gp.yMean)/gp.yStd)
	}

	// Increase the jitter until the kernel matrix is numerically positive
	// definite, e.g. when the same point was observed twice.
	for jitter := gp.noise; jitter < 1; jitter *= 10 {
		k := mat.NewSymDense(n, nil)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				k.SetSym(i, j, gp.RBFKernel(gp.X[i], gp.X[j]))
			}
			k.SetSym(i, i, 1+jitter)
		}

		var chol mat.Cholesky
		if !chol.Factorize(k) {
			continue
		}

		var alpha mat.VecDense
		if err := chol.SolveVecTo(&alpha, ys); err != nil && !acceptableCondition(err) {
			continue
		}

		gp.chol = &chol
		gp.alpha = &alpha

		return
	}

	gp.chol, gp.alpha = nil, nil
}

// acceptableCondition reports whether err is only an ill-conditioning warning.
func acceptableCondition(err error) bool {
	cond, ok := err.(mat.Condition)

	return ok && !math.IsInf(float64(cond), 1)
}
