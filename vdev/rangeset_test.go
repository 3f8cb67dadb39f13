// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vdev

import "testing"

func TestRangeTreeAddMerges(t *testing.T) {
	tr := NewRangeTree()
	tr.Add(0, 10)
	tr.Add(10, 10)
	tr.Add(30, 10)

	segs := tr.Segments()
	if len(segs) != 2 {
		t.Fatalf("expected 2 segments after merge, got %d: %v", len(segs), segs)
	}
	if segs[0] != (RangeSeg{0, 20}) {
		t.Errorf("expected merged [0,20), got %v", segs[0])
	}
	if segs[1] != (RangeSeg{30, 40}) {
		t.Errorf("expected [30,40), got %v", segs[1])
	}
}

func TestRangeTreeFind(t *testing.T) {
	tr := NewRangeTree()
	tr.Add(100, 50)

	if !tr.Find(110, 10) {
		t.Error("expected containment")
	}
	if tr.Find(140, 20) {
		t.Error("expected no containment across boundary")
	}
	if tr.Find(0, 10) {
		t.Error("expected no containment for disjoint range")
	}
}

func TestRangeTreeRemoveSplits(t *testing.T) {
	tr := NewRangeTree()
	tr.Add(0, 100)
	tr.Remove(40, 20)

	segs := tr.Segments()
	if len(segs) != 2 {
		t.Fatalf("expected split into 2 segments, got %d: %v", len(segs), segs)
	}
	if segs[0] != (RangeSeg{0, 40}) || segs[1] != (RangeSeg{60, 100}) {
		t.Errorf("unexpected split result: %v", segs)
	}
}

func TestRangeTreeSwapAndVacate(t *testing.T) {
	a := NewRangeTree()
	a.Add(0, 10)
	b := NewRangeTree()

	a.Swap(b)
	if !a.IsEmpty() {
		t.Error("expected a empty after swap")
	}
	if b.IsEmpty() || b.SumSize() != 10 {
		t.Error("expected b to hold the swapped range")
	}

	b.Vacate()
	if !b.IsEmpty() {
		t.Error("expected b empty after vacate")
	}
}

func TestRangeTreeSumSize(t *testing.T) {
	tr := NewRangeTree()
	tr.Add(0, 10)
	tr.Add(100, 5)
	if got := tr.SumSize(); got != 15 {
		t.Errorf("expected sum 15, got %d", got)
	}
}
