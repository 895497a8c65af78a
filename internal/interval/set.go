// Package interval provides a set of half-open intervals with endpoints in
// any integer type, backed by an ordered B-tree keyed by interval end.
package interval

import (
	"fmt"

	"github.com/tidwall/btree"
	"golang.org/x/exp/constraints"
)

// Set is a set of half-open intervals [start, end). Overlapping and
// adjacent intervals are coalesced on insert.
//
// A zero Set is ready to use.
type Set[K constraints.Integer] struct {
	// Keys are interval ends; values are the matching starts. Intervals in
	// the tree are always disjoint and non-adjacent.
	tree btree.Map[K, K]
}

// Insert adds [start, end) to the set, coalescing with any interval it
// overlaps or touches.
func (s *Set[K]) Insert(start, end K) {
	if start > end {
		panic(fmt.Sprintf("interval: start (%v) > end (%v)", start, end))
	}

	// Swallow every interval whose end is >= start and whose start is
	// <= end; they all become part of the inserted one.
	iter := s.tree.Iter()
	for ok := iter.Seek(start); ok; ok = iter.Next() {
		if iter.Value() > end {
			break
		}
		start = min(start, iter.Value())
		end = max(end, iter.Key())
	}
	// Deleting while iterating invalidates the iterator; collect first.
	var swallowed []K
	iter = s.tree.Iter()
	for ok := iter.Seek(start); ok; ok = iter.Next() {
		if iter.Value() > end {
			break
		}
		swallowed = append(swallowed, iter.Key())
	}
	for _, key := range swallowed {
		s.tree.Delete(key)
	}

	s.tree.Set(end, start)
}

// Intersects reports whether [start, end) overlaps any interval in the set.
// Zero-width queries test whether the position falls inside an interval;
// interval ends are excluded, matching half-open semantics.
func (s *Set[K]) Intersects(start, end K) bool {
	iter := s.tree.Iter()
	// The candidate is the interval with the least end > start.
	if !iter.Seek(start) {
		return false
	}
	if iter.Key() == start {
		if !iter.Next() {
			return false
		}
	}
	return iter.Value() < end || (start == end && iter.Value() <= start && iter.Key() > start)
}

// Len returns the number of disjoint intervals in the set.
func (s *Set[K]) Len() int {
	return s.tree.Len()
}

// All calls yield for each disjoint interval in ascending order.
func (s *Set[K]) All(yield func(start, end K) bool) {
	s.tree.Scan(func(end, start K) bool {
		return yield(start, end)
	})
}

// Format implements [fmt.Formatter].
func (s *Set[K]) Format(f fmt.State, verb rune) {
	fmt.Fprint(f, "{")
	first := true
	s.tree.Scan(func(end, start K) bool {
		if !first {
			fmt.Fprint(f, ", ")
		}
		first = false
		fmt.Fprintf(f, "[%v, %v)", start, end)
		return true
	})
	fmt.Fprint(f, "}")
}
