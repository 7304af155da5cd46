package rcn

import (
	"math"
	"math/rand"
)

//////
// Candidate enumeration for grid and randomized steps.
//////

// gridSize returns the number of combinations of a finite space, or -1 if the
// space has a distribution dimension. The size saturates at math.MaxInt.
func gridSize(space Space) int {
	total := 1

	for _, name := range space.Names() {
		d := space[name]
		if !d.Finite() {
			return -1
		}

		if total > math.MaxInt/len(d.Values) {
			return math.MaxInt
		}

		total *= len(d.Values)
	}

	return total
}

// gridAt decodes the i-th combination of a finite space. Names are taken in
// sorted order with the last name varying fastest.
func gridAt(space Space, names []string, i int) Params {
	p := make(Params, len(names))

	for k := len(names) - 1; k >= 0; k-- {
		values := space[names[k]].Values
		p[names[k]] = values[i%len(values)]
		i /= len(values)
	}

	return p
}

// gridCandidates enumerates the full cartesian product of a finite space.
func gridCandidates(space Space) ([]Params, error) {
	total := gridSize(space)
	if total < 0 {
		return nil, configErrorf("grid search needs finite dimensions only")
	}

	if total == math.MaxInt {
		return nil, configErrorf("grid too large")
	}

	names := space.Names()
	out := make([]Params, total)

	for i := range out {
		out[i] = gridAt(space, names, i)
	}

	return out, nil
}

// randomCandidates draws nIter assignments from space. If every dimension is
// finite the draws are made without replacement and the budget is clipped to
// the grid size; the clipped budget is returned alongside.
func randomCandidates(space Space, nIter int, rng *rand.Rand) ([]Params, bool) {
	names := space.Names()

	if total := gridSize(space); total >= 0 {
		clipped := false
		if nIter > total {
			nIter = total
			clipped = true
		}

		out := make([]Params, 0, nIter)
		for _, i := range sampleWithoutReplacement(total, nIter, rng) {
			out = append(out, gridAt(space, names, i))
		}

		return out, clipped
	}

	out := make([]Params, nIter)
	for i := range out {
		out[i] = sampleSpace(space, names, rng)
	}

	return out, false
}

// sampleSpace draws one assignment, visiting names in sorted order so that a
// seed always yields the same sequence of draws.
func sampleSpace(space Space, names []string, rng *rand.Rand) Params {
	p := make(Params, len(names))

	for _, name := range names {
		d := space[name]
		if d.Finite() {
			p[name] = d.Values[rng.Intn(len(d.Values))]
		} else {
			p[name] = d.Distribution.Sample(rng)
		}
	}

	return p
}

// sampleWithoutReplacement returns k distinct integers from [0, n).
func sampleWithoutReplacement(n, k int, rng *rand.Rand) []int {
	if 2*k >= n {
		return rng.Perm(n)[:k]
	}

	seen := make(map[int]struct{}, k)
	out := make([]int, 0, k)

	for len(out) < k {
		i := rng.Intn(n)
		if _, ok := seen[i]; ok {
			continue
		}

		seen[i] = struct{}{}
		out = append(out, i)
	}

	return out
}
