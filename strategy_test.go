package rcn

import (
	"fmt"
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridCandidatesOrder(t *testing.T) {
	space := Space{
		"b": Choice("x", "y", "z"),
		"a": Choice(1, 2),
	}

	assert.Equal(t, 6, gridSize(space))

	candidates, err := gridCandidates(space)
	require.NoError(t, err)
	require.Len(t, candidates, 6)

	// Sorted names, last one varying fastest.
	assert.Equal(t, Params{"a": 1, "b": "x"}, candidates[0])
	assert.Equal(t, Params{"a": 1, "b": "y"}, candidates[1])
	assert.Equal(t, Params{"a": 2, "b": "x"}, candidates[3])
	assert.Equal(t, Params{"a": 2, "b": "z"}, candidates[5])
}

func TestGridSizeWithDistribution(t *testing.T) {
	space := Space{
		"a": Choice(1, 2),
		"b": Sampled(Uniform{Min: 0, Max: 1}),
	}

	assert.Equal(t, -1, gridSize(space))

	_, err := gridCandidates(space)
	assert.Error(t, err)
}

func TestGridCandidatesTooLarge(t *testing.T) {
	space := Space{}
	for i := 0; i < 64; i++ {
		space[fmt.Sprintf("p%02d", i)] = Choice(0, 1)
	}

	assert.Equal(t, math.MaxInt, gridSize(space))

	_, err := gridCandidates(space)
	assert.True(t, errors.Is(err, ErrConfiguration), "got %v", err)
}

func TestRandomCandidatesFromFiniteSpace(t *testing.T) {
	space := Space{
		"a": Choice(1, 2, 3),
		"b": Choice(10, 20),
	}

	candidates, clipped := randomCandidates(space, 4, rand.New(rand.NewSource(1)))
	assert.False(t, clipped)
	require.Len(t, candidates, 4)

	seen := map[string]bool{}
	for _, c := range candidates {
		seen[c.String()] = true
	}

	// Drawn without replacement.
	assert.Len(t, seen, 4)

	candidates, clipped = randomCandidates(space, 50, rand.New(rand.NewSource(1)))
	assert.True(t, clipped)
	assert.Len(t, candidates, 6)
}

func TestRandomCandidatesFromDistributions(t *testing.T) {
	space := Space{
		"alpha":  Sampled(LogUniform{Min: 1e-6, Max: 1e-1}),
		"hidden": Sampled(ParameterRange[int]{Min: 50, Max: 60}),
		"act":    Choice("tanh", "relu"),
	}

	first, _ := randomCandidates(space, 20, rand.New(rand.NewSource(5)))
	second, _ := randomCandidates(space, 20, rand.New(rand.NewSource(5)))

	assert.Equal(t, first, second)

	for _, c := range first {
		alpha, ok := c.Float("alpha")
		require.True(t, ok)
		assert.GreaterOrEqual(t, alpha, 1e-6*(1-1e-9))
		assert.LessOrEqual(t, alpha, 1e-1)

		hidden, ok := c["hidden"].(int)
		require.True(t, ok)
		assert.GreaterOrEqual(t, hidden, 50)
		assert.LessOrEqual(t, hidden, 60)

		assert.Contains(t, []any{"tanh", "relu"}, c["act"])
	}
}

func TestSampleWithoutReplacement(t *testing.T) {
	rng := rand.New(rand.NewSource(2))

	for _, k := range []int{1, 3, 50, 100} {
		out := sampleWithoutReplacement(100, k, rng)
		assert.Len(t, out, k)

		seen := map[int]bool{}
		for _, i := range out {
			assert.GreaterOrEqual(t, i, 0)
			assert.Less(t, i, 100)
			seen[i] = true
		}

		assert.Len(t, seen, k)
	}
}

func TestParameterRangeUnitMapping(t *testing.T) {
	ints := ParameterRange[int]{Min: 1, Max: 3}

	assert.Equal(t, 1, ints.fromUnit(0))
	assert.Equal(t, 2, ints.fromUnit(0.5))
	assert.Equal(t, 3, ints.fromUnit(0.999))
	assert.Equal(t, 3, ints.fromUnit(1))

	floats := ParameterRange[float64]{Min: 2, Max: 4}
	assert.Equal(t, 3.0, floats.fromUnit(0.5))

	u, ok := floats.toUnit(3.0)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, u, 1e-12)

	// Integers encode to the center of their bucket and decode back.
	u, ok = ints.toUnit(2)
	assert.True(t, ok)
	assert.InDelta(t, 0.5, u, 1e-12)

	for v := 1; v <= 3; v++ {
		u, ok := ints.toUnit(v)
		require.True(t, ok)
		assert.InDelta(t, (float64(v-1)+0.5)/3, u, 1e-12)
		assert.Equal(t, v, ints.fromUnit(u))
	}

	single := ParameterRange[int]{Min: 5, Max: 5}
	u, ok = single.toUnit(5)
	assert.True(t, ok)
	assert.Equal(t, 5, single.fromUnit(u))
}

func TestDistributionUnitRoundTrip(t *testing.T) {
	mappers := map[string]unitMapper{
		"uniform":    Uniform{Min: -1, Max: 3},
		"loguniform": LogUniform{Min: 1e-4, Max: 1},
		"normal":     Normal{Mu: 1, Sigma: 2},
	}

	for name, m := range mappers {
		t.Run(name, func(t *testing.T) {
			for _, p := range []float64{0.1, 0.5, 0.9} {
				u, ok := m.toUnit(m.fromUnit(p))
				assert.True(t, ok)
				assert.InDelta(t, p, u, 1e-9)
			}
		})
	}

	median, ok := Normal{Mu: 1, Sigma: 2}.fromUnit(0.5).(float64)
	require.True(t, ok)
	assert.InDelta(t, 1, median, 1e-12)

	mid, ok := LogUniform{Min: 1e-4, Max: 1}.fromUnit(0.5).(float64)
	require.True(t, ok)
	assert.InDelta(t, 1e-2, mid, 1e-12)
}

func TestNormalSampleIsFinite(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	n := Normal{Mu: 0, Sigma: 1}

	for i := 0; i < 1000; i++ {
		v := n.Sample(rng).(float64)
		assert.False(t, math.IsInf(v, 0) || math.IsNaN(v))
	}
}
