package rcn

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

//////
// Helper functions.
//////

// SplitRows turns a static dataset into a list of single-row sequences, the
// representation the engine uses for non-sequential data.
//
// Parameters:
// - x: Inputs, one row per sample
// - y: Targets with the same number of rows as x
//
// Returns:
// - X, Y: One 1×d and one 1×t matrix per sample
func SplitRows(x, y mat.Matrix) (X, Y []*mat.Dense) {
	rows, _ := x.Dims()

	X = make([]*mat.Dense, rows)
	Y = make([]*mat.Dense, rows)

	for i := 0; i < rows; i++ {
		X[i] = rowOf(x, i)
		Y[i] = rowOf(y, i)
	}

	return X, Y
}

// StackRows concatenates sequences row-wise into a single matrix. It returns
// nil for an empty list.
func StackRows(seqs []*mat.Dense) *mat.Dense {
	var rows, cols int
	for _, s := range seqs {
		r, c := s.Dims()
		if r > 0 {
			rows += r
			cols = c
		}
	}

	if rows == 0 || cols == 0 {
		return nil
	}

	out := mat.NewDense(rows, cols, nil)

	offset := 0
	for _, s := range seqs {
		r, _ := s.Dims()
		if r == 0 {
			continue
		}

		out.Slice(offset, offset+r, 0, cols).(*mat.Dense).Copy(s)
		offset += r
	}

	return out
}

func rowOf(m mat.Matrix, i int) *mat.Dense {
	_, cols := m.Dims()

	return mat.NewDense(1, cols, mat.Row(nil, i, m))
}

// subset returns the sequences at idx. The matrices are shared, not copied.
func subset(seqs []*mat.Dense, idx []int) []*mat.Dense {
	out := make([]*mat.Dense, len(idx))
	for i, j := range idx {
		out[i] = seqs[j]
	}

	return out
}

// checkData validates that X and Y are parallel, non-empty sequence lists with
// matching row counts.
func checkData(X, Y []*mat.Dense) error {
	if len(X) == 0 {
		return configErrorf("no training sequences")
	}

	if len(X) != len(Y) {
		return configErrorf("%d input sequences but %d target sequences", len(X), len(Y))
	}

	for i := range X {
		if X[i] == nil || Y[i] == nil {
			return configErrorf("sequence %d is nil", i)
		}

		xr, _ := X[i].Dims()
		yr, _ := Y[i].Dims()

		if xr != yr {
			return errors.Wrapf(ErrConfiguration, "sequence %d has %d input rows but %d target rows", i, xr, yr)
		}
	}

	return nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case int32:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint64:
		return float64(t), true
	case uint32:
		return float64(t), true
	default:
		return 0, false
	}
}

func toInt(v any) (int, bool) {
	switch t := v.(type) {
	case int:
		return t, true
	case int64:
		return int(t), true
	case int32:
		return int(t), true
	case uint:
		return int(t), true
	case uint64:
		return int(t), true
	case uint32:
		return int(t), true
	case float64:
		if t == math.Trunc(t) {
			return int(t), true
		}
	case float32:
		if float64(t) == math.Trunc(float64(t)) {
			return int(t), true
		}
	}

	return 0, false
}
