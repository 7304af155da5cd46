package linear

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// integerBatch returns small integer-valued matrices so that every sum of
// products is exact in float64.
func integerBatch(rng *rand.Rand, rows, features, targets int) (*mat.Dense, *mat.Dense) {
	x := mat.NewDense(rows, features, nil)
	y := mat.NewDense(rows, targets, nil)

	for i := 0; i < rows; i++ {
		for j := 0; j < features; j++ {
			x.Set(i, j, float64(rng.Intn(7)-3))
		}

		for j := 0; j < targets; j++ {
			y.Set(i, j, float64(rng.Intn(5)-2))
		}
	}

	return x, y
}

func TestUpdateIsAdditive(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	x1, y1 := integerBatch(rng, 7, 3, 2)
	x2, y2 := integerBatch(rng, 11, 3, 2)

	var xAll, yAll mat.Dense
	xAll.Stack(x1, x2)
	yAll.Stack(y1, y2)

	split := New(Config{})
	require.NoError(t, split.Update(x1, y1))
	require.NoError(t, split.Update(x2, y2))

	single := New(Config{})
	require.NoError(t, single.Update(&xAll, &yAll))

	aSplit, bSplit := split.Statistics()
	aSingle, bSingle := single.Statistics()

	assert.True(t, mat.Equal(aSplit, aSingle))
	assert.True(t, mat.Equal(bSplit, bSingle))
	assert.Equal(t, 18, split.Samples())
}

func TestStatisticsAreSymmetricPSD(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	x, y := integerBatch(rng, 20, 4, 1)

	r := New(Config{})
	require.NoError(t, r.Update(x, y))

	a, _ := r.Statistics()
	require.NotNil(t, a)

	var eig mat.EigenSym
	require.True(t, eig.Factorize(a, false))

	for _, v := range eig.Values(nil) {
		assert.GreaterOrEqual(t, v, -1e-9)
	}

	// Bias entry counts the rows.
	assert.Equal(t, 20.0, a.At(4, 4))
}

func TestRecoverKnownLinearMap(t *testing.T) {
	rng := rand.New(rand.NewSource(3))

	const (
		samples  = 100
		features = 5
	)

	wStar := []float64{1.5, -2, 0.25, 3, -0.75}
	bias := 0.5

	x := mat.NewDense(samples, features, nil)
	y := mat.NewDense(samples, 1, nil)

	for i := 0; i < samples; i++ {
		var v float64
		for j := 0; j < features; j++ {
			x.Set(i, j, rng.NormFloat64())
			v += x.At(i, j) * wStar[j]
		}
		y.Set(i, 0, v+bias)
	}

	r := New(Config{})

	// Feed it as variable-length chunks.
	for _, bounds := range [][2]int{{0, 13}, {13, 60}, {60, 61}, {61, 100}} {
		require.NoError(t, r.Update(x.Slice(bounds[0], bounds[1], 0, features), y.Slice(bounds[0], bounds[1], 0, 1)))
	}

	require.NoError(t, r.Finalize(0))

	coef := r.Coef()
	for j := 0; j < features; j++ {
		assert.InDelta(t, wStar[j], coef.At(j, 0), 1e-8)
	}

	assert.InDelta(t, bias, r.Intercept()[0], 1e-8)

	pred, err := r.Predict(x)
	require.NoError(t, err)

	for i := 0; i < samples; i++ {
		assert.InDelta(t, y.At(i, 0), pred.At(i, 0), 1e-8)
	}
}

func TestFinalizeIsIdempotent(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	x, y := integerBatch(rng, 30, 4, 3)

	r := New(Config{})
	require.NoError(t, r.Update(x, y))

	require.NoError(t, r.Finalize(0.1))
	first := r.Weights()

	require.NoError(t, r.Finalize(0.1))
	second := r.Weights()

	assert.True(t, mat.Equal(first, second))
}

func TestRegularizationShrinksWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	x, y := integerBatch(rng, 40, 3, 1)

	r := New(Config{})
	require.NoError(t, r.Update(x, y))

	previous := math.Inf(1)

	for _, alpha := range []float64{1e-3, 1, 10, 1e3, 1e6} {
		require.NoError(t, r.Finalize(alpha))

		norm := mat.Norm(r.Weights(), 2)
		assert.Less(t, norm, previous, "alpha=%v", alpha)

		previous = norm
	}

	require.NoError(t, r.Finalize(1e15))
	assert.InDelta(t, 0, mat.Norm(r.Weights(), 2), 1e-9)
}

func TestStateMachine(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	x, y := integerBatch(rng, 10, 2, 1)

	r := New(Config{})
	assert.Equal(t, Empty, r.State())

	_, err := r.Predict(x)
	assert.ErrorIs(t, err, ErrStaleWeights)

	require.NoError(t, r.Update(x, y))
	assert.Equal(t, Accumulating, r.State())

	_, err = r.Predict(x)
	assert.ErrorIs(t, err, ErrStaleWeights)

	require.NoError(t, r.Finalize(0.01))
	assert.Equal(t, Finalized, r.State())

	_, err = r.Predict(x)
	require.NoError(t, err)

	require.NoError(t, r.Update(x, y))
	assert.Equal(t, Stale, r.State())

	_, err = r.Predict(x)
	assert.ErrorIs(t, err, ErrStaleWeights)

	require.NoError(t, r.Finalize(0.01))
	assert.Equal(t, Finalized, r.State())
}

func TestAllowStalePredict(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	x, y := integerBatch(rng, 10, 2, 1)

	r := New(Config{AllowStale: true})
	require.NoError(t, r.Update(x, y))

	// Never finalized: lenient mode has nothing to fall back on.
	_, err := r.Predict(x)
	assert.ErrorIs(t, err, ErrStaleWeights)

	require.NoError(t, r.Finalize(0.01))
	before, err := r.Predict(x)
	require.NoError(t, err)

	x2, y2 := integerBatch(rng, 5, 2, 1)
	require.NoError(t, r.Update(x2, y2))
	assert.Equal(t, Stale, r.State())

	after, err := r.Predict(x)
	require.NoError(t, err)
	assert.True(t, mat.Equal(before, after))
}

func TestEagerUpdateKeepsWeightsFresh(t *testing.T) {
	rng := rand.New(rand.NewSource(8))
	x1, y1 := integerBatch(rng, 10, 2, 1)
	x2, y2 := integerBatch(rng, 10, 2, 1)

	r := New(Config{Alpha: 0.5, Eager: true})
	require.NoError(t, r.Update(x1, y1))
	assert.Equal(t, Finalized, r.State())

	require.NoError(t, r.Update(x2, y2))
	assert.Equal(t, Finalized, r.State())

	eager := r.Weights()

	lazy := New(Config{})
	require.NoError(t, lazy.Update(x1, y1))
	require.NoError(t, lazy.Update(x2, y2))
	require.NoError(t, lazy.Finalize(0.5))

	assert.True(t, mat.EqualApprox(eager, lazy.Weights(), 1e-12))
}

func TestEagerUpdateNeverFailsNumerically(t *testing.T) {
	x := mat.NewDense(3, 2, []float64{0, 1, 0, 2, 0, 3})
	y := mat.NewDense(3, 1, []float64{1, 2, 3})

	r := New(Config{Eager: true})
	require.NoError(t, r.Update(x, y))
	assert.Equal(t, Accumulating, r.State())
}

func TestZeroRowUpdateIsNoop(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	x, y := integerBatch(rng, 6, 3, 1)

	r := New(Config{})
	require.NoError(t, r.Update(&mat.Dense{}, &mat.Dense{}))
	assert.Equal(t, Empty, r.State())

	require.NoError(t, r.Update(x, y))
	aBefore, bBefore := r.Statistics()

	require.NoError(t, r.Update(&mat.Dense{}, &mat.Dense{}))
	aAfter, bAfter := r.Statistics()

	assert.True(t, mat.Equal(aBefore, aAfter))
	assert.True(t, mat.Equal(bBefore, bAfter))
	assert.Equal(t, Accumulating, r.State())
}

func TestFinalizeOnEmpty(t *testing.T) {
	r := New(Config{})
	assert.ErrorIs(t, r.Finalize(1), ErrUninitialized)

	require.NoError(t, r.Init(4, 2))
	require.NoError(t, r.Finalize(1))

	w := r.Weights()
	rows, cols := w.Dims()
	assert.Equal(t, 5, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, 0.0, mat.Norm(w, 2))

	r.Reset()
	require.NoError(t, r.Init(4, 2))
	assert.ErrorIs(t, r.Finalize(0), ErrSingularMatrix)
}

func TestDimensionMismatch(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	x, y := integerBatch(rng, 6, 3, 1)
	xWide, yWide := integerBatch(rng, 6, 4, 1)
	_, yTwo := integerBatch(rng, 6, 3, 2)

	r := New(Config{})
	require.NoError(t, r.Update(x, y))

	assert.ErrorIs(t, r.Update(xWide, yWide), ErrDimensionMismatch)
	assert.ErrorIs(t, r.Update(x, yTwo), ErrDimensionMismatch)
	assert.ErrorIs(t, r.Update(x.Slice(0, 2, 0, 3), y), ErrDimensionMismatch)

	require.NoError(t, r.Finalize(0.1))
	_, err := r.Predict(xWide)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestSingularWithoutRegularization(t *testing.T) {
	// The first feature is always zero, so A has a zero row and column.
	x := mat.NewDense(4, 2, []float64{0, 1, 0, 2, 0, 3, 0, 4})
	y := mat.NewDense(4, 1, []float64{1, 2, 3, 4})

	r := New(Config{})
	require.NoError(t, r.Update(x, y))

	assert.ErrorIs(t, r.Finalize(0), ErrSingularMatrix)
	assert.Equal(t, Accumulating, r.State())

	require.NoError(t, r.Finalize(1e-6))
	assert.Equal(t, Finalized, r.State())

	assert.ErrorIs(t, r.Finalize(-1), ErrInvalidRegularization)
}

func TestPartialFitPostponesSolve(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	x1, y1 := integerBatch(rng, 8, 2, 1)
	x2, y2 := integerBatch(rng, 8, 2, 1)

	r := New(Config{Alpha: 0.1})
	require.NoError(t, r.PartialFit(x1, y1, false))
	assert.Equal(t, Accumulating, r.State())

	require.NoError(t, r.PartialFit(x2, y2, true))
	assert.Equal(t, Finalized, r.State())

	var xAll, yAll mat.Dense
	xAll.Stack(x1, x2)
	yAll.Stack(y1, y2)

	batch := New(Config{Alpha: 0.1})
	require.NoError(t, batch.Fit(&xAll, &yAll))

	assert.True(t, mat.EqualApprox(r.Weights(), batch.Weights(), 1e-12))
}
