package rcn

import (
	"math"
	"math/rand"

	"golang.org/x/exp/constraints"
	"gonum.org/v1/gonum/stat/distuv"
)

//////
// Distributions for randomized and bayesian steps.
//
// Continuous draws use inverse-transform sampling through distuv quantile
// functions, so a sample depends only on the step's seeded generator.
//////

// ParameterRange defines a uniform range for a numeric hyperparameter.
//
// Type Parameter:
//   - T: The numeric type for this parameter range (int or float64)
//
// Fields:
// - Min: The minimum (inclusive) value
// - Max: The maximum (inclusive) value
//
// Usage:
//
//	// Hidden layer sizes from 50 to 500
//	sizes := Sampled(ParameterRange[int]{Min: 50, Max: 500})
//
//	// Spectral radius from 0.1 to 1.2
//	radius := Sampled(ParameterRange[float64]{Min: 0.1, Max: 1.2})
type ParameterRange[T constraints.Integer | constraints.Float] struct {
	Min T
	Max T
}

// Sample implements Distribution.
func (r ParameterRange[T]) Sample(rng *rand.Rand) any {
	return r.fromUnit(rng.Float64())
}

func (r ParameterRange[T]) fromUnit(u float64) any {
	switch any(r.Min).(type) {
	case float32, float64:
		return T(float64(r.Min) + u*(float64(r.Max)-float64(r.Min)))
	default:
		// For integer types, map u onto Max-Min+1 equal buckets.
		span := float64(r.Max) - float64(r.Min) + 1
		offset := math.Floor(u * span)
		if offset >= span {
			offset = span - 1
		}

		return T(float64(r.Min) + offset)
	}
}

// toUnit inverts fromUnit. Integer values map to the center of their bucket.
func (r ParameterRange[T]) toUnit(v any) (float64, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}

	switch any(r.Min).(type) {
	case float32, float64:
		if r.Max == r.Min {
			return 0, true
		}

		return (f - float64(r.Min)) / (float64(r.Max) - float64(r.Min)), true
	default:
		span := float64(r.Max) - float64(r.Min) + 1

		return (f - float64(r.Min) + 0.5) / span, true
	}
}

// Uniform is the continuous uniform distribution on [Min, Max).
type Uniform struct {
	Min float64
	Max float64
}

// Sample implements Distribution.
func (u Uniform) Sample(rng *rand.Rand) any {
	return u.fromUnit(rng.Float64())
}

func (u Uniform) fromUnit(p float64) any {
	return distuv.Uniform{Min: u.Min, Max: u.Max}.Quantile(p)
}

func (u Uniform) toUnit(v any) (float64, bool) {
	f, ok := toFloat(v)
	if !ok || u.Max == u.Min {
		return 0, ok
	}

	return distuv.Uniform{Min: u.Min, Max: u.Max}.CDF(f), true
}

// LogUniform samples values whose logarithm is uniform on
// [log(Min), log(Max)). Suited to regularization strengths and scalings that
// span orders of magnitude. Min and Max must be positive.
type LogUniform struct {
	Min float64
	Max float64
}

// Sample implements Distribution.
func (l LogUniform) Sample(rng *rand.Rand) any {
	return l.fromUnit(rng.Float64())
}

func (l LogUniform) fromUnit(p float64) any {
	return math.Exp(distuv.Uniform{Min: math.Log(l.Min), Max: math.Log(l.Max)}.Quantile(p))
}

func (l LogUniform) toUnit(v any) (float64, bool) {
	f, ok := toFloat(v)
	if !ok || f <= 0 || l.Max == l.Min {
		return 0, ok
	}

	return distuv.Uniform{Min: math.Log(l.Min), Max: math.Log(l.Max)}.CDF(math.Log(f)), true
}

// Normal is the normal distribution with mean Mu and standard deviation Sigma.
type Normal struct {
	Mu    float64
	Sigma float64
}

// Sample implements Distribution.
func (n Normal) Sample(rng *rand.Rand) any {
	return n.fromUnit(openUnit(rng))
}

func (n Normal) fromUnit(p float64) any {
	return distuv.Normal{Mu: n.Mu, Sigma: n.Sigma}.Quantile(p)
}

func (n Normal) toUnit(v any) (float64, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}

	return distuv.Normal{Mu: n.Mu, Sigma: n.Sigma}.CDF(f), true
}

// unitMapper is implemented by distributions that a bayesian step can place
// on the unit interval.
type unitMapper interface {
	fromUnit(u float64) any
	toUnit(v any) (float64, bool)
}

// openUnit draws from (0, 1), avoiding infinite quantiles at 0.
func openUnit(rng *rand.Rand) float64 {
	for {
		if u := rng.Float64(); u > 0 {
			return u
		}
	}
}
