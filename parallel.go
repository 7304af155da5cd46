package rcn

import "github.com/sourcegraph/conc/pool"

// parallelMap applies fn to every item with at most workers concurrent
// goroutines and returns the results in item order. Items must be
// independent: fn may not share mutable state across items.
func parallelMap[T, R any](items []T, workers int, fn func(i int, item T) R) []R {
	out := make([]R, len(items))

	if workers < 1 {
		workers = 1
	}

	if workers == 1 || len(items) < 2 {
		for i, item := range items {
			out[i] = fn(i, item)
		}

		return out
	}

	p := pool.New().WithMaxGoroutines(workers)

	for i, item := range items {
		p.Go(func() {
			out[i] = fn(i, item)
		})
	}

	p.Wait()

	return out
}
