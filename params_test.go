package rcn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestParamsMergeDoesNotMutate(t *testing.T) {
	base := Params{"alpha": 1e-4, "activation": "tanh"}

	merged := base.Merge(Params{"alpha": 1e-2, "hidden_layer_size": 50})

	assert.Equal(t, Params{"alpha": 1e-4, "activation": "tanh"}, base)
	assert.Equal(t, Params{"alpha": 1e-2, "activation": "tanh", "hidden_layer_size": 50}, merged)

	assert.Equal(t, "activation=tanh, alpha=0.01, hidden_layer_size=50", merged.String())
	assert.Equal(t, []string{"activation", "alpha", "hidden_layer_size"}, merged.Keys())

	assert.NotNil(t, Params(nil).Clone())
}

func TestParamsAccessors(t *testing.T) {
	p := Params{"a": 3.0, "b": 2.5, "c": 7, "d": "relu"}

	n, ok := p.Int("a")
	assert.True(t, ok)
	assert.Equal(t, 3, n)

	_, ok = p.Int("b")
	assert.False(t, ok)

	f, ok := p.Float("c")
	assert.True(t, ok)
	assert.Equal(t, 7.0, f)

	_, ok = p.Float("d")
	assert.False(t, ok)

	s, ok := p.Str("d")
	assert.True(t, ok)
	assert.Equal(t, "relu", s)

	_, ok = p.Str("missing")
	assert.False(t, ok)
}

func TestSplitAndStackRows(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewDense(3, 1, []float64{7, 8, 9})

	X, Y := SplitRows(x, y)
	require.Len(t, X, 3)
	require.Len(t, Y, 3)

	assert.Equal(t, []float64{3, 4}, X[1].RawRowView(0))
	assert.Equal(t, []float64{9}, Y[2].RawRowView(0))

	assert.True(t, mat.Equal(x, StackRows(X)))
	assert.True(t, mat.Equal(y, StackRows(Y)))

	assert.Nil(t, StackRows(nil))
}
