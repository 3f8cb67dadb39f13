// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trim

import (
	"time"

	"github.com/coldvault/poold/log"
	"github.com/coldvault/poold/trimstats"
	"github.com/coldvault/poold/vdev"
)

// AutotrimWorker is the autotrim worker (C5, §4.5): one instance runs per
// top-level group, sweeping a rotating subset of its metaslabs each pass
// and draining each one's recently-freed range set into TRIMs on every
// eligible child leaf. Unlike the manual worker, it persists no progress.
type AutotrimWorker struct {
	TopGroup *vdev.TopGroup

	Allocator  Allocator
	Translator Translator
	Governor   *Governor
	Params     *Params
	ConfigLock ConfigLock
	Log        log.Logger

	// Tick is the scheduling-tick duration (§4.5 "hz") to sleep after a
	// pass that issued no I/O before trying the next one. Tests shrink it.
	Tick time.Duration

	shift uint64
	done  chan struct{}
}

// NewAutotrimWorker returns an AutotrimWorker ready to Start.
func NewAutotrimWorker(top *vdev.TopGroup, alloc Allocator, xlat Translator, gov *Governor, params *Params, cfg ConfigLock, logger log.Logger) *AutotrimWorker {
	if logger == nil {
		logger = log.WithContext("pkg", "trim", "topgroup", top.Guid.String())
	}
	return &AutotrimWorker{
		TopGroup: top, Allocator: alloc, Translator: xlat, Governor: gov, Params: params,
		ConfigLock: cfg, Log: logger, Tick: 100 * time.Millisecond,
		done: make(chan struct{}),
	}
}

// Done implements vdev.Worker.
func (w *AutotrimWorker) Done() <-chan struct{} { return w.done }

// Start launches the worker's loop on its own goroutine, mirroring
// thread_create(vdev_autotrim_thread) (§4.5, §6 "Threading").
func (w *AutotrimWorker) Start() {
	go w.run()
}

func (w *AutotrimWorker) eligibleLeaves() []*vdev.Leaf {
	var out []*vdev.Leaf
	for _, l := range w.TopGroup.OpLeaves() {
		if !l.Detached && l.Writeable && !l.HasManualWorker() {
			out = append(out, l)
		}
	}
	return out
}

func (w *AutotrimWorker) run() {
	top := w.TopGroup

	for !top.ShouldStopAutotrim() {
		stride := w.Params.TxgBatch()
		issuedAny := false

		for i, ms := range top.Metaslabs {
			if uint64(i)%stride != w.shift%stride {
				continue
			}
			if w.visitMetaslab(ms) {
				issuedAny = true
			}
		}
		w.shift++

		if top.ShouldStopAutotrim() {
			break
		}
		if !issuedAny {
			time.Sleep(w.Tick)
		}
	}

	// Shutdown: wait for every child's auto in-flight count to reach 0.
	for _, leaf := range top.OpLeaves() {
		leaf.IOMu.Lock()
		for leaf.Inflight(vdev.TrimAuto) > 0 {
			leaf.IOCond.Wait()
		}
		leaf.IOMu.Unlock()
	}

	top.AutotrimMu.Lock()
	stoppedBecauseOff := !top.AutotrimEnabled
	top.AutotrimMu.Unlock()

	if stoppedBecauseOff {
		for _, ms := range top.Metaslabs {
			ms.Mu.Lock()
			ms.Trim.Vacate()
			ms.Mu.Unlock()
		}
	}

	top.AutotrimMu.Lock()
	top.AutotrimWorker = nil
	top.AutotrimCond.Broadcast()
	top.AutotrimExited.Broadcast()
	top.AutotrimMu.Unlock()

	close(w.done)
}

// visitMetaslab is §4.5's per-metaslab steps 1-11.
func (w *AutotrimWorker) visitMetaslab(ms *vdev.Metaslab) bool {
	w.ConfigLock.RLock()
	w.Allocator.Disable(ms)

	if ms.Disabled() > 1 {
		w.Allocator.Enable(ms, false)
		w.ConfigLock.RUnlock()
		return false
	}

	ms.Mu.Lock()
	empty := !ms.HasSpaceMap || ms.Trim.IsEmpty()
	ms.Mu.Unlock()
	if empty {
		w.Allocator.Enable(ms, false)
		w.ConfigLock.RUnlock()
		return false
	}

	if err := w.Allocator.Load(ms); err != nil {
		w.Allocator.Enable(ms, false)
		w.ConfigLock.RUnlock()
		panic("trim: metaslab_load failed: " + err.Error())
	}

	// Swap out ms_trim atomically: the metaslab immediately resumes
	// accumulating frees into what is, from this point, an empty tree.
	ms.Mu.Lock()
	trimTree := vdev.NewRangeTree()
	ms.Trim.Swap(trimTree)
	stillEmpty := ms.Trim.IsEmpty()
	ms.Mu.Unlock()
	if !stillEmpty {
		panic("trim: ms_trim non-empty immediately after swap")
	}

	extentMax := w.Params.ExtentBytesMax()
	extentMin := w.Params.ExtentBytesMin()

	childArgs := make(map[*vdev.Leaf]*vdev.TrimArgs)
	for _, leaf := range w.eligibleLeaves() {
		ta := vdev.NewTrimArgs(leaf, ms, vdev.TrimAuto, 0, extentMin, extentMax)
		ta.StartTime = time.Now()
		trimTree.Walk(func(start, size uint64) {
			AddRange(ta, w.Translator, start, size)
		})
		if !ta.Tree.IsEmpty() {
			childArgs[leaf] = ta
		}
	}

	w.ConfigLock.RUnlock()

	issued := false
	for leaf, ta := range childArgs {
		if leaf.HasManualWorker() {
			continue
		}
		if err := w.issueRanges(ta); err == nil {
			issued = true
		}
	}

	w.ConfigLock.RLock()
	w.Allocator.Enable(ms, issued)
	w.ConfigLock.RUnlock()

	return issued
}

// issueRanges mirrors the manual worker's splitting rule, with no skip
// accounting distinction required beyond what the governor's stats already
// label by type (Auto vs Manual).
func (w *AutotrimWorker) issueRanges(ta *vdev.TrimArgs) error {
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
