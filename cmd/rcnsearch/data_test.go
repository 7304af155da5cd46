package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCSVRows(t *testing.T) {
	data := "x1,x2,y\n1,2,3\n4,5,9\n"

	X, Y, err := loadCSV(strings.NewReader(data), 1, false, true)
	require.NoError(t, err)
	require.Len(t, X, 2)

	assert.Equal(t, []float64{4, 5}, X[1].RawRowView(0))
	assert.Equal(t, []float64{9}, Y[1].RawRowView(0))
}

func TestLoadCSVSequences(t *testing.T) {
	data := "a,1,10\na,2,20\nb,3,30\nc,4,40\nc,5,50\nc,6,60\n"

	X, Y, err := loadCSV(strings.NewReader(data), 1, true, false)
	require.NoError(t, err)
	require.Len(t, X, 3)

	rows := make([]int, len(X))
	for i, x := range X {
		rows[i], _ = x.Dims()
	}

	assert.Equal(t, []int{2, 1, 3}, rows)
	assert.Equal(t, []float64{60}, Y[2].RawRowView(2))
}

func TestLoadCSVErrors(t *testing.T) {
	_, _, err := loadCSV(strings.NewReader("1,2\n"), 2, false, false)
	assert.Error(t, err)

	_, _, err = loadCSV(strings.NewReader("1,x\n"), 1, false, false)
	assert.Error(t, err)

	_, _, err = loadCSV(strings.NewReader("h1,h2\n"), 1, false, true)
	assert.Error(t, err)

	_, _, err = loadCSV(strings.NewReader("1,2\n"), 0, false, false)
	assert.Error(t, err)
}
