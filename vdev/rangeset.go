// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vdev

import "sort"

// RangeSeg is a half-open byte interval [Start, End).
type RangeSeg struct {
	Start uint64
	End   uint64
}

// Size returns the segment's length in bytes.
func (r RangeSeg) Size() uint64 {
	if r.End <= r.Start {
		return 0
	}
	return r.End - r.Start
}

// Empty reports whether the segment has zero length.
func (r RangeSeg) Empty() bool { return r.End <= r.Start }

// RangeTree is a sorted, auto-coalescing set of disjoint byte ranges. It
// stands in for the source's AVL-tree-backed range_tree_t: this module's
// corpus offers no interval-tree library (see DESIGN.md), so it is built
// directly on a sorted slice, which is the idiomatic and entirely sufficient
// choice at the segment counts a single metaslab or trim pass produces.
//
// ms_allocatable and ms_trim (§3.1, GLOSSARY) are both represented as a
// *RangeTree; a TrimArgs' working tree (ta.trim_tree) is too.
type RangeTree struct {
	segs []RangeSeg
}

// NewRangeTree returns an empty tree.
func NewRangeTree() *RangeTree {
	return &RangeTree{}
}

// IsEmpty reports whether the tree holds no ranges.
func (t *RangeTree) IsEmpty() bool {
	return len(t.segs) == 0
}

// Segments returns the tree's segments in ascending order. The slice is
// owned by the tree; callers must not mutate it.
func (t *RangeTree) Segments() []RangeSeg {
	return t.segs
}

// SumSize returns the total number of bytes held across all segments.
func (t *RangeTree) SumSize() uint64 {
	var total uint64
	for _, s := range t.segs {
		total += s.Size()
	}
	return total
}

// Add inserts [start, start+size), merging with any overlapping or
// adjacent existing segments.
func (t *RangeTree) Add(start, size uint64) {
	if size == 0 {
		return
	}
	t.add(RangeSeg{Start: start, End: start + size})
}

func (t *RangeTree) add(seg RangeSeg) {
	i := sort.Search(len(t.segs), func(i int) bool { return t.segs[i].End >= seg.Start })
	j := i
	for j < len(t.segs) && t.segs[j].Start <= seg.End {
		if t.segs[j].Start < seg.Start {
			seg.Start = t.segs[j].Start
		}
		if t.segs[j].End > seg.End {
			seg.End = t.segs[j].End
		}
		j++
	}
	out := append([]RangeSeg{}, t.segs[:i]...)
	out = append(out, seg)
	out = append(out, t.segs[j:]...)
	t.segs = out
}

// Find reports whether [start, start+size) is entirely contained within a
// single segment of the tree — the containment check §3.3 invariant 4 and
// the manual worker's assertion in add_range (§4.2 step 1) both rely on.
func (t *RangeTree) Find(start, size uint64) bool {
	end := start + size
	i := sort.Search(len(t.segs), func(i int) bool { return t.segs[i].End > start })
	if i >= len(t.segs) {
		return false
	}
	return t.segs[i].Start <= start && t.segs[i].End >= end
}

// Remove deletes [start, start+size) from the tree, splitting a segment if
// the removed range falls in its interior.
func (t *RangeTree) Remove(start, size uint64) {
	if size == 0 {
		return
	}
	end := start + size
	var out []RangeSeg
	for _, s := range t.segs {
		switch {
		case s.End <= start || s.Start >= end:
			out = append(out, s)
		default:
			if s.Start < start {
				out = append(out, RangeSeg{Start: s.Start, End: start})
			}
			if s.End > end {
				out = append(out, RangeSeg{Start: end, End: s.End})
			}
		}
	}
	t.segs = out
}

// Walk invokes f for every segment in ascending order.
func (t *RangeTree) Walk(f func(start, size uint64)) {
	for _, s := range t.segs {
		f(s.Start, s.Size())
	}
}

// Vacate empties the tree in place, exactly as ms_trim is vacated once its
// contents have been walked into a trim job (§4.4 step 5, §4.5 step 5).
func (t *RangeTree) Vacate() {
	t.segs = nil
}

// Swap exchanges this tree's contents with other's contents. Autotrim uses
// this to atomically detach a metaslab's accumulated ms_trim set while the
// metaslab resumes collecting into what was, until this call, an empty tree
// (§4.5 step 5, §3.3 invariant 5, §8 property 6).
func (t *RangeTree) Swap(other *RangeTree) {
	t.segs, other.segs = other.segs, t.segs
}
