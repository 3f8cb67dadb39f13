// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trim

import (
	"time"

	"github.com/coldvault/poold/log"
	"github.com/coldvault/poold/trimstats"
	"github.com/coldvault/poold/trimstore"
	"github.com/coldvault/poold/txg"
	"github.com/coldvault/poold/vdev"
)

// ManualWorker is the manual TRIM worker (C4, §4.4): one instance runs per
// leaf, walking that leaf's metaslabs in order and driving them through the
// governor until the leaf is fully trimmed, suspended, canceled, or the
// device goes away.
type ManualWorker struct {
	Leaf     *vdev.Leaf
	TopGroup *vdev.TopGroup

	Allocator  Allocator
	Translator Translator
	Governor   *Governor
	Store      *trimstore.Store
	Coord      txg.Coordinator
	ConfigLock ConfigLock
	Params     *Params
	Events     EventBus
	History    HistoryLog
	Log        log.Logger

	done chan struct{}
}

// NewManualWorker returns a ManualWorker ready to Start.
func NewManualWorker(leaf *vdev.Leaf, top *vdev.TopGroup, alloc Allocator, xlat Translator, gov *Governor, store *trimstore.Store, coord txg.Coordinator, cfg ConfigLock, params *Params, events EventBus, history HistoryLog, logger log.Logger) *ManualWorker {
	if logger == nil {
		logger = log.WithContext("pkg", "trim", "leaf", leaf.Guid.String())
	}
	return &ManualWorker{
		Leaf: leaf, TopGroup: top,
		Allocator: alloc, Translator: xlat, Governor: gov, Store: store, Coord: coord,
		ConfigLock: cfg, Params: params, Events: events, History: history, Log: logger,
		done: make(chan struct{}),
	}
}

// Done implements vdev.Worker.
func (w *ManualWorker) Done() <-chan struct{} { return w.done }

// Start launches the worker's loop on its own goroutine, mirroring
// thread_create(vdev_trim_thread) (§4.4, §6 "Threading").
func (w *ManualWorker) Start() {
	go w.run()
}

func (w *ManualWorker) childCount() int {
	return childCountOf(w.TopGroup)
}

func (w *ManualWorker) run() {
	leaf := w.Leaf

	// Step 1: wait for a txg sync so change_state's just-written settings
	// are visible.
	w.Coord.WaitSynced(w.Coord.Open())

	// Step 2: acquire pool config as reader for the metaslab scan below.
	w.ConfigLock.RLock()

	// Step 3: reset in-memory runtime, then load() overwrites from store.
	leaf.TrimMu.Lock()
	leaf.LastOffset, leaf.Rate, leaf.Partial, leaf.Secure = 0, 0, false, false
	leaf.TrimMu.Unlock()

	if err := w.loadProgress(); err != nil {
		w.Log.Error("load persisted progress failed, continuing from zero", "err", err)
	}

	// Step 4: build TrimArgs' bounds, with the Secure override.
	leaf.TrimMu.Lock()
	secure := leaf.Secure
	leaf.TrimMu.Unlock()

	flags := vdev.Flags(0)
	extentMin := w.Params.ExtentBytesMin()
	extentMax := w.Params.ExtentBytesMax()
	if secure {
		flags |= vdev.FlagSecure
		extentMin = w.Params.MinBlockSize()
	}

	metaslabs := append([]*vdev.Metaslab(nil), w.TopGroup.Metaslabs...)
	lastCount := len(metaslabs)

	var runErr error
loop:
	for _, ms := range metaslabs {
		if leaf.Detached {
			break
		}

		if n := len(w.TopGroup.Metaslabs); n != lastCount {
			lastCount = n
			if done, est, err := CalculateProgress(leaf, w.TopGroup.Metaslabs, w.Translator, w.Allocator, w.childCount()); err == nil {
				leaf.TrimMu.Lock()
				leaf.BytesDone, leaf.BytesEst = done, est
				leaf.TrimMu.Unlock()
			}
		}

		w.Allocator.Disable(ms)
		if err := w.Allocator.Load(ms); err != nil {
			w.Allocator.Enable(ms, false)
			panic("trim: metaslab_load failed: " + err.Error())
		}
		ms.Mu.Lock()

		if !ms.HasSpaceMap && leaf.Partial {
			ms.Mu.Unlock()
			w.Allocator.Enable(ms, false)
			continue
		}

		ta := vdev.NewTrimArgs(leaf, ms, vdev.TrimManual, flags, extentMin, extentMax)
		ta.StartTime = time.Now()
		ms.Allocatable.Walk(func(start, size uint64) {
			AddRange(ta, w.Translator, start, size)
		})
		ms.Trim.Vacate()
		ms.Mu.Unlock()

		w.ConfigLock.RUnlock()
		err := w.issueRanges(ta)
		w.Allocator.Enable(ms, true)
		w.ConfigLock.RLock()

		ta.Tree.Vacate()

		if err != nil {
			runErr = err
			break loop
		}
	}
	w.ConfigLock.RUnlock()

	// Step 6: wait for every in-flight manual I/O on this leaf to settle.
	leaf.IOMu.Lock()
	for leaf.Inflight(vdev.TrimManual) > 0 {
		leaf.IOCond.Wait()
	}
	leaf.IOMu.Unlock()

	// Step 7: if nothing stopped us, the run completed every metaslab.
	leaf.TrimMu.Lock()
	if runErr == nil && !leaf.ExitWanted && leaf.Writeable {
		leaf.State = vdev.StateComplete
	}
	guid := leaf.Guid
	state := leaf.State
	leaf.TrimMu.Unlock()

	txgNum := w.Coord.Open()
	w.Store.ScheduleProgress(w.Coord, catalogOf(w.Governor), guid, txgNum)
	if w.Events != nil && state == vdev.StateComplete && runErr == nil {
		w.Events.Notify(vdev.EventTrimFinish, guid)
	}
	if w.History != nil {
		w.History.Logf("trim: leaf %s worker exiting, state=%s", guid, state)
	}

	// Step 8: wait a sync so the just-scheduled persistence is durable,
	// then clear the worker handle.
	w.Coord.WaitSynced(txgNum)

	leaf.TrimMu.Lock()
	leaf.Worker = nil
	leaf.TrimCond.Broadcast()
	leaf.WorkerExited.Broadcast()
	leaf.TrimMu.Unlock()

	close(w.done)
}

func catalogOf(g *Governor) trimstore.Catalog { return g.Catalog }

// loadProgress is §4.1 "load(leaf)": read persisted LastOffset/Rate/
// Partial/Secure and fold them into the leaf's runtime state, then compute
// the initial progress estimate.
func (w *ManualWorker) loadProgress() error {
	leaf := w.Leaf
	p, err := w.Store.Load(leaf.Guid)
	if err != nil {
		return err
	}

	leaf.TrimMu.Lock()
	// NeedsReset means change_state just reactivated this leaf out of
	// Complete: the runtime Rate/Partial/Secure it set (defaults, or the
	// caller's explicit overrides) take precedence over whatever is still
	// sitting in the store from the finished run. LastOffset is exempt —
	// the progress store's own sentinel handling already collapses it to
	// zero by the time this runs, via the wait-for-sync at step 1.
	leaf.LastOffset = p.LastOffset
	if !leaf.NeedsReset {
		if p.Rate != 0 {
			leaf.Rate = p.Rate
		}
		leaf.Partial = p.Partial
		leaf.Secure = p.Secure
	}
	leaf.NeedsReset = false
	leaf.TrimMu.Unlock()

	done, est, err := CalculateProgress(leaf, w.TopGroup.Metaslabs, w.Translator, w.Allocator, w.childCount())
	if err != nil {
		return err
	}
	leaf.TrimMu.Lock()
	leaf.BytesDone, leaf.BytesEst = done, est
	leaf.TrimMu.Unlock()
	return nil
}

// issueRanges is "vdev_trim_ranges": the splitting rule from §4.4's final
// paragraph, plus the skip-small accounting from §4.4 step 5.
func (w *ManualWorker) issueRanges(ta *vdev.TrimArgs) error {
	for _, seg := range ta.Tree.Segments() {
		size := seg.Size()
		if size < ta.ExtentBytesMin {
			w.Governor.Stats.Record(ta.Type, trimstats.OutcomeSkipped, size)
			continue
		}

		max := ta.ExtentBytesMax
		writesRequired := (size-1)/max + 1
		for i := uint64(0); i < writesRequired; i++ {
			offset := seg.Start + i*max + vdev.LabelStartSize
			length := size - i*max
			if length > max {
				length = max
			}
			if err := w.Governor.IssueRange(ta, offset, length); err != nil {
				return err
			}
		}
	}
	return nil
}
