package main

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/thalesfsp/rcn"
)

// loadCSV reads a numeric CSV whose last targets columns are the targets.
// Without a sequence column every row becomes a single-row sequence.
func loadCSV(r io.Reader, targets int, sequenceColumn, header bool) (X, Y []*mat.Dense, err error) {
	if targets < 1 {
		return nil, nil, errors.Errorf("need at least one target column, got %d", targets)
	}

	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, nil, err
	}

	if header && len(records) > 0 {
		records = records[1:]
	}

	if len(records) == 0 {
		return nil, nil, errors.New("no data rows")
	}

	skip := 0
	if sequenceColumn {
		skip = 1
	}

	width := len(records[0]) - skip
	features := width - targets

	if features < 1 {
		return nil, nil, errors.Errorf("%d columns leave no feature columns for %d targets", len(records[0]), targets)
	}

	x := mat.NewDense(len(records), features, nil)
	y := mat.NewDense(len(records), targets, nil)

	for i, rec := range records {
		for j, field := range rec[skip:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "row %d column %d", i+1, j+skip+1)
			}

			if j < features {
				x.Set(i, j, v)
			} else {
				y.Set(i, j-features, v)
			}
		}
	}

	if !sequenceColumn {
		X, Y = rcn.SplitRows(x, y)

		return X, Y, nil
	}

	start := 0
	for i := 1; i <= len(records); i++ {
		if i < len(records) && records[i][0] == records[start][0] {
			continue
		}

		X = append(X, mat.DenseCopyOf(x.Slice(start, i, 0, features)))
		Y = append(Y, mat.DenseCopyOf(y.Slice(start, i, 0, targets)))
		start = i
	}

	return X, Y, nil
}
