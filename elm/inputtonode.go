package elm

import (
	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// InputToNode is the fixed hidden layer of an ELM:
//
//	H = f(X·W·InputScaling + b·BiasScaling)
//
// where W and b are drawn once from U(-1, 1), seeded by RandomState.
type InputToNode struct {
	HiddenLayerSize int
	Activation      Activation
	InputScaling    float64
	BiasScaling     float64
	RandomState     int64

	weights *mat.Dense
	bias    []float64
}

// NewInputToNode returns an unfitted hidden layer configured from p.
func NewInputToNode(p Params) *InputToNode {
	return &InputToNode{
		HiddenLayerSize: p.HiddenLayerSize,
		Activation:      p.Activation,
		InputScaling:    p.InputScaling,
		BiasScaling:     p.BiasScaling,
		RandomState:     p.RandomState,
	}
}

// Fit draws the weights for inputs with nFeatures columns. Input weights are
// drawn row by row, then the bias.
func (n *InputToNode) Fit(nFeatures int) error {
	if nFeatures < 1 {
		return errors.Errorf("input to node: need at least one feature, got %d", nFeatures)
	}

	if !n.Activation.valid() {
		return errors.Errorf("input to node: unknown activation %q", n.Activation)
	}

	dist := distuv.Uniform{Min: -1, Max: 1, Src: rand.NewSource(uint64(n.RandomState))}

	w := mat.NewDense(nFeatures, n.HiddenLayerSize, nil)
	for i := 0; i < nFeatures; i++ {
		for j := 0; j < n.HiddenLayerSize; j++ {
			w.Set(i, j, dist.Rand()*n.InputScaling)
		}
	}

	bias := make([]float64, n.HiddenLayerSize)
	for j := range bias {
		bias[j] = dist.Rand() * n.BiasScaling
	}

	n.weights, n.bias = w, bias

	return nil
}

// Fitted reports whether the weights were drawn.
func (n *InputToNode) Fitted() bool {
	return n.weights != nil
}

// NFeatures returns the input width the layer was fitted for.
func (n *InputToNode) NFeatures() int {
	if n.weights == nil {
		return 0
	}

	r, _ := n.weights.Dims()

	return r
}

// Transform returns the hidden layer state of every row of x.
func (n *InputToNode) Transform(x mat.Matrix) (*mat.Dense, error) {
	if n.weights == nil {
		return nil, errors.New("input to node: not fitted")
	}

	rows, cols := x.Dims()
	if cols != n.NFeatures() {
		return nil, errors.Errorf("input to node: fitted for %d features, got %d", n.NFeatures(), cols)
	}

	if rows == 0 {
		return &mat.Dense{}, nil
	}

	var h mat.Dense
	h.Mul(x, n.weights)

	f := n.Activation.fn()
	h.Apply(func(_, j int, v float64) float64 {
		return f(v + n.bias[j])
	}, &h)

	return &h, nil
}
