// Package rangemap implements a generic sorted interval container keyed
// by address. It backs both the segment (VM->file-offset) and
// permission indices of the Mach-O core-file loader: a flat slice of
// half-open [Base, End) ranges, built by repeated Append, put into
// address order by Sort, and queried by binary search.
//
// The container does no coalescing on its own. A caller that appends
// entries in address order can merge adjacent ranges in place by
// mutating the pointer returned from Back before appending the next
// entry; see corefile.Load for the one place that does this.
package rangemap

import (
	"cmp"
	"sort"
)

// Entry is a half-open interval [Base, End) with an attached value.
type Entry[A cmp.Ordered, V any] struct {
	Base  A
	End   A
	Value V
}

// Contains reports whether a falls in [e.Base, e.End).
func (e Entry[A, V]) Contains(a A) bool {
	return a >= e.Base && a < e.End
}

// Map is a sorted, non-self-coalescing interval container.
type Map[A cmp.Ordered, V any] struct {
	entries []Entry[A, V]
}

// Append pushes entry onto the end of the map without maintaining sort
// order. Call Sort once appending is done if entries did not arrive in
// address order.
func (m *Map[A, V]) Append(e Entry[A, V]) {
	m.entries = append(m.entries, e)
}

// Sort stably orders all entries by Base.
func (m *Map[A, V]) Sort() {
	sort.SliceStable(m.entries, func(i, j int) bool {
		return m.entries[i].Base < m.entries[j].Base
	})
}

// Back returns a mutable pointer to the most recently appended entry, or
// nil if the map is empty. Coalescing callers extend this entry in
// place instead of calling Append.
func (m *Map[A, V]) Back() *Entry[A, V] {
	if len(m.entries) == 0 {
		return nil
	}
	return &m.entries[len(m.entries)-1]
}

// Size returns the number of entries.
func (m *Map[A, V]) Size() int {
	return len(m.entries)
}

// At returns the entry at index i.
func (m *Map[A, V]) At(i int) Entry[A, V] {
	return m.entries[i]
}

// FindContains returns the entry whose half-open range contains a.
func (m *Map[A, V]) FindContains(a A) (Entry[A, V], bool) {
	i := m.lowerBound(a)
	if i < len(m.entries) && m.entries[i].Contains(a) {
		return m.entries[i], true
	}
	return zero[A, V](), false
}

// FindContainsOrFollows returns the entry whose range contains a, or
// failing that, the entry with the smallest Base greater than a.
func (m *Map[A, V]) FindContainsOrFollows(a A) (Entry[A, V], bool) {
	i := m.lowerBound(a)
	if i < len(m.entries) {
		return m.entries[i], true
	}
	return zero[A, V](), false
}

// lowerBound returns the index of the first entry whose End is strictly
// greater than a. Entries must be sorted and non-overlapping for this to
// be meaningful, which is the invariant both call sites maintain.
func (m *Map[A, V]) lowerBound(a A) int {
	return sort.Search(len(m.entries), func(i int) bool {
		return m.entries[i].End > a
	})
}

func zero[A cmp.Ordered, V any]() Entry[A, V] {
	return Entry[A, V]{}
}
