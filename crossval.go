package rcn

import (
	"math"
	"math/rand"
)

//////
// Cross-validation splitters. Indices address sequences, so a sequence is
// never cut across a train and a validation set.
//////

// KFold splits the index set into NSplits consecutive folds; each fold is used
// once for validation while the remaining folds form the training set. The
// first n%NSplits folds hold one extra index.
type KFold struct {
	NSplits int

	// Shuffle permutes the indices with a generator seeded by Seed before
	// splitting.
	Shuffle bool
	Seed    int64
}

// Split implements Splitter.
func (k KFold) Split(n int) ([]Fold, error) {
	if k.NSplits < 2 {
		return nil, configErrorf("kfold: NSplits must be at least 2, got %d", k.NSplits)
	}

	if k.NSplits > n {
		return nil, configErrorf("kfold: cannot split %d sequences into %d folds", n, k.NSplits)
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}

	if k.Shuffle {
		rng := rand.New(rand.NewSource(k.Seed))
		rng.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
	}

	folds := make([]Fold, 0, k.NSplits)

	start := 0
	for f := 0; f < k.NSplits; f++ {
		size := n / k.NSplits
		if f < n%k.NSplits {
			size++
		}

		stop := start + size

		validation := append([]int(nil), indices[start:stop]...)

		train := make([]int, 0, n-size)
		train = append(train, indices[:start]...)
		train = append(train, indices[stop:]...)

		folds = append(folds, Fold{Train: train, Validation: validation})

		start = stop
	}

	return folds, nil
}

// TimeSeriesSplit produces NSplits order-respecting folds: every validation
// set follows its training set, and training sets grow with each fold.
type TimeSeriesSplit struct {
	NSplits int
}

// Split implements Splitter.
func (t TimeSeriesSplit) Split(n int) ([]Fold, error) {
	if t.NSplits < 1 {
		return nil, configErrorf("time series split: NSplits must be at least 1, got %d", t.NSplits)
	}

	if t.NSplits+1 > n {
		return nil, configErrorf("time series split: cannot split %d sequences into %d folds", n, t.NSplits+1)
	}

	testSize := n / (t.NSplits + 1)
	folds := make([]Fold, 0, t.NSplits)

	for start := n - t.NSplits*testSize; start < n; start += testSize {
		folds = append(folds, Fold{
			Train:      seq(0, start),
			Validation: seq(start, start+testSize),
		})
	}

	return folds, nil
}

// ShuffleSplit draws NSplits independent random train/validation partitions.
// TestSize is the validation fraction in (0, 1).
type ShuffleSplit struct {
	NSplits  int
	TestSize float64
	Seed     int64
}

// Split implements Splitter.
func (s ShuffleSplit) Split(n int) ([]Fold, error) {
	if s.NSplits < 1 {
		return nil, configErrorf("shuffle split: NSplits must be at least 1, got %d", s.NSplits)
	}

	if s.TestSize <= 0 || s.TestSize >= 1 {
		return nil, configErrorf("shuffle split: TestSize must be in (0, 1), got %v", s.TestSize)
	}

	nTest := int(math.Ceil(s.TestSize * float64(n)))
	if nTest >= n {
		return nil, configErrorf("shuffle split: no training sequences left out of %d", n)
	}

	rng := rand.New(rand.NewSource(s.Seed))
	folds := make([]Fold, 0, s.NSplits)

	for i := 0; i < s.NSplits; i++ {
		perm := rng.Perm(n)
		folds = append(folds, Fold{
			Train:      perm[nTest:],
			Validation: perm[:nTest],
		})
	}

	return folds, nil
}

func seq(start, stop int) []int {
	out := make([]int, 0, stop-start)
	for i := start; i < stop; i++ {
		out = append(out, i)
	}

	return out
}
