package elm

import "math"

// Activation names the non-linearity of the hidden layer.
type Activation string

const (
	Identity    Activation = "identity"
	Tanh        Activation = "tanh"
	Logistic    Activation = "logistic"
	ReLU        Activation = "relu"
	BoundedReLU Activation = "bounded_relu"
)

func (a Activation) valid() bool {
	return a.fn() != nil
}

func (a Activation) fn() func(float64) float64 {
	switch a {
	case Identity:
		return func(x float64) float64 { return x }
	case Tanh:
		return math.Tanh
	case Logistic:
		return func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
	case ReLU:
		return func(x float64) float64 { return math.Max(0, x) }
	case BoundedReLU:
		return func(x float64) float64 { return math.Min(math.Max(0, x), 1) }
	default:
		return nil
	}
}
