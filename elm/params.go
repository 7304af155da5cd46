// Package elm implements Extreme Learning Machines: a fixed, randomly
// initialized hidden layer followed by an incrementally trained ridge readout
// (see package linear). Regressor and Classifier satisfy the rcn.Estimator
// capability set, so their hyper-parameters can be searched with
// rcn.SequentialSearch.
package elm

import (
	"math"

	"github.com/pkg/errors"

	"github.com/thalesfsp/rcn"
)

// Parameter names, as used in search spaces and plans.
const (
	KeyHiddenLayerSize = "hidden_layer_size"
	KeyActivation      = "activation"
	KeyInputScaling    = "input_scaling"
	KeyBiasScaling     = "bias_scaling"
	KeyAlpha           = "alpha"
	KeyChunkSize       = "chunk_size"
	KeyRandomState     = "random_state"
)

// Params is the typed hyper-parameter record of a Regressor or Classifier.
type Params struct {
	// HiddenLayerSize is the number of hidden nodes.
	HiddenLayerSize int

	// Activation is applied to every hidden node, see Activation.
	Activation Activation

	// InputScaling scales the uniform [-1, 1] input weights.
	InputScaling float64

	// BiasScaling scales the uniform [-1, 1] bias weights.
	BiasScaling float64

	// Alpha is the ridge regularization of the readout.
	Alpha float64

	// ChunkSize, when positive, feeds sequences to the readout in chunks of
	// at most ChunkSize rows.
	ChunkSize int

	// RandomState seeds the hidden layer weights.
	RandomState int64
}

// DefaultParams returns the default configuration: 500 relu nodes, unit
// scalings, alpha 1e-4, no chunking and random state 42.
func DefaultParams() Params {
	return Params{
		HiddenLayerSize: 500,
		Activation:      ReLU,
		InputScaling:    1,
		BiasScaling:     1,
		Alpha:           1e-4,
		ChunkSize:       0,
		RandomState:     42,
	}
}

// Map returns p as an untyped rcn.Params.
func (p Params) Map() rcn.Params {
	return rcn.Params{
		KeyHiddenLayerSize: p.HiddenLayerSize,
		KeyActivation:      string(p.Activation),
		KeyInputScaling:    p.InputScaling,
		KeyBiasScaling:     p.BiasScaling,
		KeyAlpha:           p.Alpha,
		KeyChunkSize:       p.ChunkSize,
		KeyRandomState:     p.RandomState,
	}
}

// With returns p overridden by the untyped values of m, validated.
//
// Returns:
// - error: rcn.ErrConfiguration for unknown names, ill-typed or invalid
// values
func (p Params) With(m rcn.Params) (Params, error) {
	for _, key := range m.Keys() {
		var ok bool

		switch key {
		case KeyHiddenLayerSize:
			p.HiddenLayerSize, ok = m.Int(key)
		case KeyActivation:
			var s string
			s, ok = m.Str(key)
			p.Activation = Activation(s)
		case KeyInputScaling:
			p.InputScaling, ok = m.Float(key)
		case KeyBiasScaling:
			p.BiasScaling, ok = m.Float(key)
		case KeyAlpha:
			p.Alpha, ok = m.Float(key)
		case KeyChunkSize:
			p.ChunkSize, ok = m.Int(key)
		case KeyRandomState:
			var seed int
			seed, ok = m.Int(key)
			p.RandomState = int64(seed)
		default:
			return p, errors.Wrapf(rcn.ErrConfiguration, "elm: unknown parameter %q", key)
		}

		if !ok {
			return p, errors.Wrapf(rcn.ErrConfiguration, "elm: parameter %q has invalid type %T", key, m[key])
		}
	}

	return p, p.Validate()
}

// Validate checks value ranges.
func (p Params) Validate() error {
	switch {
	case p.HiddenLayerSize < 1:
		return errors.Wrapf(rcn.ErrConfiguration, "elm: hidden_layer_size must be positive, got %d", p.HiddenLayerSize)
	case !p.Activation.valid():
		return errors.Wrapf(rcn.ErrConfiguration, "elm: unknown activation %q", p.Activation)
	case math.IsNaN(p.InputScaling) || math.IsInf(p.InputScaling, 0):
		return errors.Wrapf(rcn.ErrConfiguration, "elm: input_scaling must be finite, got %v", p.InputScaling)
	case math.IsNaN(p.BiasScaling) || math.IsInf(p.BiasScaling, 0):
		return errors.Wrapf(rcn.ErrConfiguration, "elm: bias_scaling must be finite, got %v", p.BiasScaling)
	case !(p.Alpha >= 0) || math.IsInf(p.Alpha, 1):
		return errors.Wrapf(rcn.ErrConfiguration, "elm: alpha must be finite and non-negative, got %v", p.Alpha)
	case p.ChunkSize < 0:
		return errors.Wrapf(rcn.ErrConfiguration, "elm: chunk_size must not be negative, got %d", p.ChunkSize)
	}

	return nil
}
