package vocabmatch

import (
	"cmp"
	"slices"
)

// Pair is a candidate match between images I and J, with I < J.
type Pair struct {
	I, J int
}

// PairSet is a set of candidate pairs.
type PairSet struct {
	m map[Pair]struct{}
}

// NewPairSet creates an empty set.
func NewPairSet() *PairSet {
	return &PairSet{m: make(map[Pair]struct{})}
}

// Add inserts (i, j). It returns false and leaves the set unchanged unless i < j.
func (s *PairSet) Add(i, j int) bool {
	if i >= j || i < 0 {
		return false
	}
	s.m[Pair{I: i, J: j}] = struct{}{}
	return true
}

// Contains reports whether (i, j) is in the set.
func (s *PairSet) Contains(i, j int) bool {
	_, ok := s.m[Pair{I: i, J: j}]
	return ok
}

// Len returns the number of pairs.
func (s *PairSet) Len() int {
	return len(s.m)
}

// Sorted returns the pairs ordered by I, then J.
func (s *PairSet) Sorted() []Pair {
	out := make([]Pair, 0, len(s.m))
	for p := range s.m {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Pair) int {
		if c := cmp.Compare(a.I, b.I); c != 0 {
			return c
		}
		return cmp.Compare(a.J, b.J)
	})
	return out
}
