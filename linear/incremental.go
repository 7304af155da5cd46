package linear

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

//////
// Const, vars, types.
//////

// State is the lifecycle state of an IncrementalRegression.
type State int

const (
	// Empty means no rows have been accumulated yet.
	Empty State = iota

	// Accumulating means rows were accumulated but weights were never solved.
	Accumulating

	// Finalized means the weights are consistent with the accumulated
	// statistics.
	Finalized

	// Stale means rows were accumulated after the last Finalize.
	Stale
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Accumulating:
		return "accumulating"
	case Finalized:
		return "finalized"
	case Stale:
		return "stale"
	default:
		return "unknown"
	}
}

// Config controls the behaviour of an IncrementalRegression.
type Config struct {
	// Alpha is the ridge regularization used by Fit, PartialFit and eager
	// updates. Zero means ordinary least squares.
	Alpha float64

	// Eager re-solves the weights after every Update, so the readout is
	// continuously usable for prediction.
	Eager bool

	// AllowStale lets Predict use the last solved weights while the readout is
	// Stale instead of failing with ErrStaleWeights.
	AllowStale bool

	// Logger receives diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger
}

// IncrementalRegression is a ridge regression readout that is trained from a
// stream of batches. It only keeps the sufficient statistics
//
//	A = Σ xaᵀ·xa    (size (d+1)×(d+1))
//	B = Σ xaᵀ·y     (size (d+1)×t)
//
// where xa is an input row augmented with a trailing constant 1, so any number
// of variable-length sequences can be accumulated without holding their rows.
// Weights are solved from (A + αI)·W = B by Finalize.
//
// Thread safety:
//   - All methods are guarded by an RWMutex
//   - Accumulation is meant to be driven by a single writer; interleaving
//     Update calls from several goroutines is safe but the resulting order of
//     floating-point additions is not deterministic
type IncrementalRegression struct {
	mu sync.RWMutex

	config Config

	nFeatures int
	nTargets  int
	samples   int

	a *mat.SymDense
	b *mat.Dense
	w *mat.Dense

	state State
}

//////
// Factory.
//////

// New returns an empty IncrementalRegression. Its dimensions are fixed by the
// first non-empty Update or by Init.
func New(config Config) *IncrementalRegression {
	if config.Logger == nil {
		config.Logger = zap.NewNop()
	}

	return &IncrementalRegression{config: config}
}

//////
// Methods.
//////

// Init reinitializes the readout with declared dimensions and zero
// accumulators. The readout is Empty afterwards, and Finalize with a positive
// regularization yields the zero weight matrix.
func (r *IncrementalRegression) Init(nFeatures, nTargets int) error {
	if nFeatures < 0 || nTargets < 1 {
		return errors.Wrapf(ErrDimensionMismatch, "invalid dimensions %dx%d", nFeatures, nTargets)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.allocate(nFeatures, nTargets)

	return nil
}

// Reset drops the accumulated statistics, the weights and the dimensions.
func (r *IncrementalRegression) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nFeatures, r.nTargets, r.samples = 0, 0, 0
	r.a, r.b, r.w = nil, nil, nil
	r.state = Empty
}

// Update adds the contribution of a batch to the sufficient statistics.
//
// Parameters:
// - x: Input batch, one row per sample
// - y: Target batch with the same number of rows as x
//
// Returns:
// - error: ErrDimensionMismatch if the batch does not fit the readout
//
// Important notes:
// - A zero-row batch is a no-op
// - Update never fails for numerical reasons; in eager mode a failed solve is
// logged and leaves the readout Stale
func (r *IncrementalRegression) Update(x, y mat.Matrix) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.update(x, y)
}

// Finalize solves (A + alpha·I)·W = B and stores W. It may be called again
// after further updates to recompute the weights from everything seen so far.
// Without an Update or Init the dimensions are unknown and Finalize fails
// with ErrUninitialized; after Init alone it yields zero weights.
func (r *IncrementalRegression) Finalize(alpha float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.finalize(alpha)
}

// PartialFit accumulates a batch and, when finalize is true, solves the
// weights with the configured Alpha. Postponing the solve until the last batch
// is the cheap way to train over many sequences.
func (r *IncrementalRegression) PartialFit(x, y mat.Matrix, finalize bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.update(x, y); err != nil {
		return err
	}

	if !finalize {
		return nil
	}

	return r.finalize(r.config.Alpha)
}

// Fit discards previous statistics, accumulates one batch and solves the
// weights with the configured Alpha.
func (r *IncrementalRegression) Fit(x, y mat.Matrix) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nFeatures, r.nTargets, r.samples = 0, 0, 0
	r.a, r.b, r.w = nil, nil, nil
	r.state = Empty

	if err := r.update(x, y); err != nil {
		return err
	}

	return r.finalize(r.config.Alpha)
}

// Predict returns augmented(x)·W.
func (r *IncrementalRegression) Predict(x mat.Matrix) (*mat.Dense, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	switch {
	case r.state == Finalized:
	case r.state == Stale && r.config.AllowStale && r.w != nil:
	default:
		return nil, errors.Wrapf(ErrStaleWeights, "readout is %s", r.state)
	}

	rows, cols := x.Dims()
	if rows == 0 {
		return &mat.Dense{}, nil
	}

	if cols != r.nFeatures {
		return nil, errors.Wrapf(ErrDimensionMismatch, "got %d features, want %d", cols, r.nFeatures)
	}

	out := mat.NewDense(rows, r.nTargets, nil)
	out.Mul(augment(x), r.w)

	return out, nil
}

// State returns the lifecycle state.
func (r *IncrementalRegression) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state
}

// Samples returns the number of rows accumulated since the last reset.
func (r *IncrementalRegression) Samples() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.samples
}

// Dims returns the feature and target dimensionality, zero when unknown.
func (r *IncrementalRegression) Dims() (nFeatures, nTargets int) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.nFeatures, r.nTargets
}

// Statistics returns copies of the accumulators A and B, or nil matrices when
// the dimensions are not known yet.
func (r *IncrementalRegression) Statistics() (*mat.SymDense, *mat.Dense) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.a == nil {
		return nil, nil
	}

	a := mat.NewSymDense(r.a.SymmetricDim(), nil)
	a.CopySym(r.a)

	return a, mat.DenseCopyOf(r.b)
}

// Weights returns a copy of the full (d+1)×t weight matrix, the last row being
// the intercept. It is nil before the first Finalize.
func (r *IncrementalRegression) Weights() *mat.Dense {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.w == nil {
		return nil
	}

	return mat.DenseCopyOf(r.w)
}

// Coef returns a copy of the d×t coefficient block of the weights.
func (r *IncrementalRegression) Coef() *mat.Dense {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.w == nil || r.nFeatures == 0 {
		return nil
	}

	return mat.DenseCopyOf(r.w.Slice(0, r.nFeatures, 0, r.nTargets))
}

// Intercept returns a copy of the intercept row of the weights.
func (r *IncrementalRegression) Intercept() []float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.w == nil {
		return nil
	}

	return mat.Row(nil, r.nFeatures, r.w)
}

//////
// Internals. Callers hold r.mu.
//////

func (r *IncrementalRegression) allocate(nFeatures, nTargets int) {
	r.nFeatures = nFeatures
	r.nTargets = nTargets
	r.samples = 0
	r.a = mat.NewSymDense(nFeatures+1, nil)
	r.b = mat.NewDense(nFeatures+1, nTargets, nil)
	r.w = nil
	r.state = Empty
}

func (r *IncrementalRegression) update(x, y mat.Matrix) error {
	xr, xc := x.Dims()
	yr, yc := y.Dims()

	if xr == 0 && yr == 0 {
		return nil
	}

	if xr != yr {
		return errors.Wrapf(ErrDimensionMismatch, "%d input rows but %d target rows", xr, yr)
	}

	if r.a == nil {
		if yc == 0 {
			return errors.Wrap(ErrDimensionMismatch, "targets have no columns")
		}

		r.allocate(xc, yc)
	}

	if xc != r.nFeatures {
		return errors.Wrapf(ErrDimensionMismatch, "got %d features, want %d", xc, r.nFeatures)
	}

	if yc != r.nTargets {
		return errors.Wrapf(ErrDimensionMismatch, "got %d targets, want %d", yc, r.nTargets)
	}

	xa := augment(x)

	r.a.SymRankK(r.a, 1, xa.T())

	var xty mat.Dense
	xty.Mul(xa.T(), y)
	r.b.Add(r.b, &xty)

	r.samples += xr

	switch r.state {
	case Empty:
		r.state = Accumulating
	case Finalized:
		r.state = Stale
	}

	if r.config.Eager {
		if err := r.finalize(r.config.Alpha); err != nil {
			r.config.Logger.Debug("eager solve failed",
				zap.Int("samples", r.samples),
				zap.Error(err),
			)
		}
	}

	return nil
}

func (r *IncrementalRegression) finalize(alpha float64) error {
	if alpha < 0 || math.IsNaN(alpha) {
		return errors.Wrapf(ErrInvalidRegularization, "got %v", alpha)
	}

	if r.a == nil {
		return ErrUninitialized
	}

	w, err := solveRidge(r.a, r.b, alpha)
	if err != nil {
		return err
	}

	r.w = w
	r.state = Finalized

	return nil
}

//////
// Helpers.
//////

// augment returns x with a trailing column of ones.
func augment(x mat.Matrix) *mat.Dense {
	rows, cols := x.Dims()

	xa := mat.NewDense(rows, cols+1, nil)
	if cols > 0 {
		xa.Slice(0, rows, 0, cols).(*mat.Dense).Copy(x)
	}

	for i := 0; i < rows; i++ {
		xa.Set(i, cols, 1)
	}

	return xa
}

// solveRidge solves (a + alpha·I)·W = b. Cholesky is tried first since the
// system is symmetric positive semi-definite; LU is the fallback.
func solveRidge(a *mat.SymDense, b *mat.Dense, alpha float64) (*mat.Dense, error) {
	n := a.SymmetricDim()
	_, t := b.Dims()

	k := mat.NewSymDense(n, nil)
	k.CopySym(a)

	for i := 0; i < n; i++ {
		k.SetSym(i, i, k.At(i, i)+alpha)
	}

	w := mat.NewDense(n, t, nil)

	var chol mat.Cholesky
	if chol.Factorize(k) {
		if err := chol.SolveTo(w, b); acceptable(err) && finite(w) {
			return w, nil
		}
	}

	var lu mat.LU
	lu.Factorize(k)

	if err := lu.SolveTo(w, false, b); !acceptable(err) {
		return nil, errors.Wrapf(ErrSingularMatrix, "alpha=%v: %v", alpha, err)
	}

	if !finite(w) {
		return nil, errors.Wrapf(ErrSingularMatrix, "alpha=%v: non-finite solution", alpha)
	}

	return w, nil
}

// acceptable reports whether a solver error still left a usable solution.
// Ill-conditioning is reported through mat.Condition but the solution is
// computed regardless.
func acceptable(err error) bool {
	if err == nil {
		return true
	}

	var cond mat.Condition
	if errors.As(err, &cond) {
		return !math.IsInf(float64(cond), 1)
	}

	return false
}

func finite(m *mat.Dense) bool {
	raw := m.RawMatrix()

	for i := 0; i < raw.Rows; i++ {
		for _, v := range raw.Data[i*raw.Stride : i*raw.Stride+raw.Cols] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}

	return true
}
