// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vdev

import "testing"

func TestLeafInflightCounters(t *testing.T) {
	l := NewLeaf(NewGuid(), "/dev/sdx")

	l.IncInflight(TrimManual)
	l.IncInflight(TrimAuto)
	l.IncInflight(TrimAuto)

	if got := l.Inflight(TrimManual); got != 1 {
		t.Errorf("manual inflight = %d, want 1", got)
	}
	if got := l.Inflight(TrimAuto); got != 2 {
		t.Errorf("auto inflight = %d, want 2", got)
	}
	if got := l.TotalInflight(); got != 3 {
		t.Errorf("total inflight = %d, want 3", got)
	}

	l.DecInflight(TrimAuto)
	if got := l.TotalInflight(); got != 2 {
		t.Errorf("total inflight after dec = %d, want 2", got)
	}
}

func TestLeafShouldStop(t *testing.T) {
	l := NewLeaf(NewGuid(), "/dev/sdx")
	if l.ShouldStop() {
		t.Fatal("fresh leaf should not request stop")
	}

	l.TrimMu.Lock()
	l.ExitWanted = true
	l.TrimMu.Unlock()
	if !l.ShouldStop() {
		t.Error("expected ShouldStop once ExitWanted is set")
	}

	l.TrimMu.Lock()
	l.ExitWanted = false
	l.TrimMu.Unlock()
	l.Detached = true
	if !l.ShouldStop() {
		t.Error("expected ShouldStop once Detached is set")
	}
}

func TestLeafShouldStopWhenParentRemoving(t *testing.T) {
	l := NewLeaf(NewGuid(), "/dev/sdx")
	g := NewTopGroup(NewGuid())
	g.Removing = true
	l.Parent = g

	if !l.ShouldStop() {
		t.Error("expected ShouldStop when parent top group is being removed")
	}
}
