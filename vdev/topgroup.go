// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vdev

import (
	"sync"

	"github.com/coldvault/poold/co"
)

// TopGroup is a top-level vdev: either a single leaf promoted to the top of
// its own redundancy group, or a mirror/raidz group spanning several leaves
// (§3.1, GLOSSARY). Autotrim is driven per top group, not per leaf, since a
// raidz group's metaslabs span all of its children at once (§4.5).
type TopGroup struct {
	Guid Guid

	Writeable bool
	Removing  bool // vdev_remove in progress: workers must unwind (§3.3 invariant 2)
	IsLeaf    bool // true when this top group is itself a single op-leaf

	Leaves     []*Leaf
	Metaslabs  []*Metaslab

	// AutotrimMu/AutotrimCond guard AutotrimEnabled/ExitWanted/Worker;
	// AutotrimCond is broadcast on stop requests and on worker exit. The
	// worker paces its passes with a sleep, not by waiting on it (§4.5).
	AutotrimMu   sync.Mutex
	AutotrimCond *sync.Cond

	AutotrimEnabled    bool
	AutotrimExitWanted bool
	AutotrimWorker     Worker

	// AutotrimExited fires each time AutotrimWorker transitions from
	// non-nil to nil, under AutotrimMu; see Leaf.WorkerExited.
	AutotrimExited co.Signal
}

// NewTopGroup returns an empty top group with its lock wired.
func NewTopGroup(guid Guid) *TopGroup {
	g := &TopGroup{Guid: guid, Writeable: true}
	g.AutotrimCond = sync.NewCond(&g.AutotrimMu)
	return g
}

// OpLeaves returns the top group's children that actually perform I/O,
// i.e. excludes any leaf that is itself non-concrete or lacks trim
// capability (§4.5 step 1's iteration over "each leaf of the top group").
func (g *TopGroup) OpLeaves() []*Leaf {
	out := make([]*Leaf, 0, len(g.Leaves))
	for _, l := range g.Leaves {
		if l.Concrete && l.OpLeaf && l.HasTrimCapability {
			out = append(out, l)
		}
	}
	return out
}

// ShouldStopAutotrim reports whether the autotrim worker attached to this
// top group should unwind at its next check point (§4.5 step 2).
func (g *TopGroup) ShouldStopAutotrim() bool {
	g.AutotrimMu.Lock()
	exitWanted := g.AutotrimExitWanted
	enabled := g.AutotrimEnabled
	g.AutotrimMu.Unlock()
	return exitWanted || !enabled || !g.Writeable || g.Removing
}
