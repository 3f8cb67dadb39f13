// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trim

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/coldvault/poold/log"
	"github.com/coldvault/poold/trimstore"
	"github.com/coldvault/poold/txg"
	"github.com/coldvault/poold/vdev"
)

// ErrNotEligible is returned by VdevTrim when the leaf fails one of the
// preconditions listed in §4.6 (writeable concrete op-leaf, no worker
// already attached, not detached, parent not removing, no pending exit).
var ErrNotEligible = errors.New("trim: leaf is not eligible to start trimming")

// ErrUnknownLeaf is returned by Progress when leafGuid isn't in the catalog.
var ErrUnknownLeaf = errors.New("trim: unknown leaf guid")

// Controller is the Lifecycle Controller (C6, §4.6): the only component
// that spawns or tears down manual/autotrim workers, and the sole writer
// of a leaf's trim_state transitions.
type Controller struct {
	Allocator  Allocator
	Translator Translator
	Governor   *Governor
	Store      *trimstore.Store
	Catalog    trimstore.Catalog
	Coord      txg.Coordinator
	ConfigLock ConfigLock
	Params     *Params
	Events     EventBus
	History    HistoryLog
	Log        log.Logger
}

func (c *Controller) logger() log.Logger {
	if c.Log != nil {
		return c.Log
	}
	return log.WithContext("pkg", "trim")
}

// VdevTrim starts a manual trim of leaf within top (§4.6 "vdev_trim").
func (c *Controller) VdevTrim(leaf *vdev.Leaf, top *vdev.TopGroup, rate, partial, secure uint64) error {
	leaf.TrimMu.Lock()
	eligible := leaf.Writeable && leaf.Concrete && leaf.OpLeaf &&
		leaf.Worker == nil && !leaf.Detached && !leaf.ExitWanted &&
		!(leaf.Parent != nil && leaf.Parent.Removing)
	leaf.TrimMu.Unlock()
	if !eligible {
		return ErrNotEligible
	}

	c.changeState(leaf, vdev.StateActive, rate, partial, secure)

	w := NewManualWorker(leaf, top, c.Allocator, c.Translator, c.Governor, c.Store, c.Coord, c.ConfigLock, c.Params, c.Events, c.History, c.Log)

	leaf.TrimMu.Lock()
	leaf.ExitWanted = false
	leaf.Worker = w
	leaf.TrimMu.Unlock()

	w.Start()
	return nil
}

// VdevTrimStop requests that leaf's worker unwind toward targetState,
// which must be Suspended or Canceled (§4.6 "vdev_trim_stop"). If list is
// non-nil, leaf is appended to it for a later batched VdevTrimStopWait;
// otherwise this call blocks until the worker handle clears.
func (c *Controller) VdevTrimStop(leaf *vdev.Leaf, targetState vdev.State, list *[]*vdev.Leaf) {
	leaf.TrimMu.Lock()
	hasWorker := leaf.Worker != nil
	leaf.TrimMu.Unlock()

	if !hasWorker && targetState != vdev.StateCanceled {
		return
	}

	c.changeState(leaf, targetState, 0, 0, 0)

	leaf.TrimMu.Lock()
	leaf.ExitWanted = true
	leaf.TrimMu.Unlock()
	leaf.TrimCond.Broadcast()

	if list != nil {
		*list = append(*list, leaf)
		return
	}
	c.waitWorkerExit(leaf)
}

// waitWorkerExit blocks until leaf's worker handle clears, via the
// WorkerExited signal the worker fires under TrimMu right as it nils the
// handle (trim/manual.go) — registering the waiter under the same lock as
// the nil check rules out missing a Broadcast that lands between the two.
// It then clears ExitWanted, so a later VdevTrim finds the leaf eligible.
func (c *Controller) waitWorkerExit(leaf *vdev.Leaf) {
	leaf.TrimMu.Lock()
	if leaf.Worker != nil {
		w := leaf.WorkerExited.NewWaiter()
		leaf.TrimMu.Unlock()
		<-w.C()
		leaf.TrimMu.Lock()
	}
	leaf.ExitWanted = false
	leaf.TrimMu.Unlock()
}

// Progress reports a leaf's current trim state and estimated bytes
// done/total (§4.2 "vdev_trim_calculate_progress"), resolved from the
// catalog by guid so a caller can ask for zpool-status-style reporting
// whether or not a worker is currently attached to the leaf — idle,
// suspended, or mid-run all answer the same way.
func (c *Controller) Progress(leafGuid vdev.Guid) (bytesDone, bytesEst uint64, state vdev.State, err error) {
	leaf, ok := c.Catalog.LookupByGuid(leafGuid)
	if !ok {
		return 0, 0, vdev.StateNone, ErrUnknownLeaf
	}

	leaf.TrimMu.Lock()
	state = leaf.State
	top := leaf.Parent
	leaf.TrimMu.Unlock()

	if top == nil {
		return 0, 0, state, nil
	}

	bytesDone, bytesEst, err = CalculateProgress(leaf, top.Metaslabs, c.Translator, c.Allocator, childCountOf(top))
	if err != nil {
		return 0, 0, state, err
	}
	return bytesDone, bytesEst, state, nil
}

// VdevTrimStopWait blocks until every leaf in list has cleared its worker
// handle (§4.6 "vdev_trim_stop_wait").
func (c *Controller) VdevTrimStopWait(list []*vdev.Leaf) {
	for _, leaf := range list {
		c.waitWorkerExit(leaf)
	}
}

// VdevTrimStopAll stops every op-leaf of subtree toward targetState and
// waits for all of them, then waits a txg sync so the persisted state is
// durable before returning (§4.6 "stop_all").
func (c *Controller) VdevTrimStopAll(subtree *vdev.TopGroup, targetState vdev.State) {
	var list []*vdev.Leaf
	for _, leaf := range subtree.OpLeaves() {
		c.VdevTrimStop(leaf, targetState, &list)
	}
	c.VdevTrimStopWait(list)
	c.Coord.WaitSynced(c.Coord.Open())
}

// VdevTrimRestart re-derives each op-leaf's runtime trim state from the
// leaf attribute store at pool-import time, resuming any leaf that was
// Active when the pool was last open (§4.6 "restart").
func (c *Controller) VdevTrimRestart(subtree *vdev.TopGroup) error {
	for _, leaf := range subtree.OpLeaves() {
		state, actionTime, err := c.Store.LoadState(leaf.Guid)
		if err != nil {
			// ZapOther (§7): leaf remains in its prior runtime state
			// but is not resumed.
			c.logger().Error("restart: failed to read persisted state", "leaf", leaf.Guid, "err", err)
			continue
		}

		leaf.TrimMu.Lock()
		leaf.State = state
		leaf.ActionTime = actionTime
		leaf.TrimMu.Unlock()

		switch state {
		case vdev.StateActive:
			leaf.TrimMu.Lock()
			hasWorker := leaf.Worker != nil
			leaf.TrimMu.Unlock()

			if !leaf.Writeable || subtree.Removing || hasWorker {
				continue
			}
			c.loadOnly(leaf)

			leaf.TrimMu.Lock()
			rate, partial, secure := leaf.Rate, boolToU64(leaf.Partial), boolToU64(leaf.Secure)
			leaf.TrimMu.Unlock()

			if err := c.VdevTrim(leaf, subtree, rate, partial, secure); err != nil {
				return fmt.Errorf("trim: restart leaf %v: %w", leaf.Guid, err)
			}
		default:
			// Suspended, Canceled, Complete, None, or offline: just
			// reload the runtime progress fields for reporting.
			c.loadOnly(leaf)
		}
	}
	return nil
}

func (c *Controller) loadOnly(leaf *vdev.Leaf) {
	p, err := c.Store.Load(leaf.Guid)
	if err != nil {
		return
	}
	leaf.TrimMu.Lock()
	leaf.LastOffset = p.LastOffset
	leaf.Rate = p.Rate
	leaf.Partial = p.Partial
	leaf.Secure = p.Secure
	leaf.TrimMu.Unlock()
}

func boolToU64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Autotrim starts the autotrim worker on every writeable, non-removing top
// group in groups that doesn't already have one attached (§4.6 "autotrim").
func (c *Controller) Autotrim(groups []*vdev.TopGroup) {
	for _, top := range groups {
		top.AutotrimMu.Lock()
		eligible := top.Writeable && !top.Removing && top.AutotrimWorker == nil
		top.AutotrimMu.Unlock()
		if !eligible {
			continue
		}

		w := NewAutotrimWorker(top, c.Allocator, c.Translator, c.Governor, c.Params, c.ConfigLock, c.Log)

		top.AutotrimMu.Lock()
		top.AutotrimEnabled = true
		top.AutotrimExitWanted = false
		top.AutotrimWorker = w
		top.AutotrimMu.Unlock()

		w.Start()
	}
}

// AutotrimStopWait signals top's autotrim worker to exit and blocks until
// its handle clears (§4.6 "autotrim_stop_wait").
func (c *Controller) AutotrimStopWait(top *vdev.TopGroup) {
	top.AutotrimMu.Lock()
	top.AutotrimExitWanted = true
	top.AutotrimEnabled = false
	top.AutotrimMu.Unlock()
	top.AutotrimCond.Broadcast()

	c.waitAutotrimExit(top)

	top.AutotrimMu.Lock()
	top.AutotrimExitWanted = false
	top.AutotrimMu.Unlock()
}

// waitAutotrimExit blocks until top's autotrim worker handle clears, via the
// AutotrimExited signal the worker fires under AutotrimMu right as it nils
// the handle (trim/autotrim.go); see waitWorkerExit for why the waiter must
// be registered under the same lock as the nil check.
func (c *Controller) waitAutotrimExit(top *vdev.TopGroup) {
	top.AutotrimMu.Lock()
	if top.AutotrimWorker == nil {
		top.AutotrimMu.Unlock()
		return
	}
	w := top.AutotrimExited.NewWaiter()
	top.AutotrimMu.Unlock()
	<-w.C()
}

// AutotrimStopAll stops every group's autotrim worker, signaling all of
// them before waiting on any so they unwind concurrently. The join across
// groups uses an errgroup instead of a second sequential loop, since a
// pool's top-level groups are independent and one slow-to-unwind group
// shouldn't delay noticing that the others have already cleared.
func (c *Controller) AutotrimStopAll(groups []*vdev.TopGroup) {
	for _, top := range groups {
		top.AutotrimMu.Lock()
		top.AutotrimExitWanted = true
		top.AutotrimEnabled = false
		top.AutotrimMu.Unlock()
		top.AutotrimCond.Broadcast()
	}

	var g errgroup.Group
	for _, top := range groups {
		top := top
		g.Go(func() error {
			c.waitAutotrimExit(top)
			top.AutotrimMu.Lock()
			top.AutotrimExitWanted = false
			top.AutotrimMu.Unlock()
			return nil
		})
	}
	g.Wait()
}

// AutotrimRestart re-applies Autotrim at pool-import time. This module has
// no separate persisted "autotrim property" store of its own (that knob
// lives on the pool object, out of scope per §1); restart is therefore the
// same eligibility sweep as a fresh Autotrim call.
func (c *Controller) AutotrimRestart(groups []*vdev.TopGroup) {
	c.Autotrim(groups)
}

// changeState is §4.6 "change_state": the single place that mutates a
// leaf's persisted trim_state and its three operator-supplied knobs.
func (c *Controller) changeState(leaf *vdev.Leaf, newState vdev.State, rate, partial, secure uint64) {
	leaf.TrimMu.Lock()
	if newState == leaf.State {
		leaf.TrimMu.Unlock()
		return
	}
	switch newState {
	case vdev.StateActive, vdev.StateSuspended, vdev.StateCanceled, vdev.StateComplete:
	default:
		leaf.TrimMu.Unlock()
		panic("trim: change_state given unknown state")
	}

	prev := leaf.State
	if prev != vdev.StateSuspended {
		leaf.ActionTime = time.Now().Unix()
	}

	if newState == vdev.StateActive && prev == vdev.StateComplete {
		// First-time defaults: a plain Go bool has no sentinel, so
		// NeedsReset carries the "ignore whatever load() would
		// otherwise fold in" signal for Partial/Secure; LastOffset
		// uses the numeric sentinel the progress store already keys
		// its own reset-to-zero logic on (§4.1 schedule_progress).
		leaf.LastOffset = vdev.ResetSentinel
		leaf.Rate = 0
		leaf.Partial = false
		leaf.Secure = false
		leaf.NeedsReset = true
	}

	if newState == vdev.StateActive {
		if rate != 0 {
			leaf.Rate = rate
		}
		if partial != 0 {
			leaf.Partial = true
		}
		if secure != 0 {
			leaf.Secure = true
		}
	}

	resumed := prev == vdev.StateSuspended
	leaf.State = newState
	guid := leaf.Guid
	leaf.TrimMu.Unlock()

	txgNum := c.Coord.Open()
	c.Store.ScheduleProgress(c.Coord, c.Catalog, guid, txgNum)

	if c.Events != nil {
		c.Events.Notify(eventFor(newState, resumed), guid)
	}
	if c.History != nil {
		c.History.Logf("trim: leaf %s %s -> %s", guid, prev, newState)
	}
}

func eventFor(newState vdev.State, resumed bool) vdev.Event {
	switch newState {
	case vdev.StateActive:
		if resumed {
			return vdev.EventTrimResume
		}
		return vdev.EventTrimStart
	case vdev.StateSuspended:
		return vdev.EventTrimSuspend
	case vdev.StateCanceled:
		return vdev.EventTrimCancel
	case vdev.StateComplete:
		return vdev.EventTrimFinish
	default:
		panic("trim: change_state given unknown state")
	}
}
