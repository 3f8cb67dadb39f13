// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trim

import (
	"errors"
	"sync"
	"time"

	"github.com/holiman/uint256"

	"github.com/coldvault/poold/trimstats"
	"github.com/coldvault/poold/trimstore"
	"github.com/coldvault/poold/txg"
	"github.com/coldvault/poold/vdev"
)

// ErrInterrupted is returned by Governor.IssueRange when should_stop became
// true before the I/O was submitted (§4.3 step 9, §7 "Interrupted").
var ErrInterrupted = errors.New("trim: interrupted")

// ConfigLock is the pool config lock's reader-side contract (§5 "Pool
// config lock"); *sync.RWMutex satisfies it directly.
type ConfigLock interface {
	RLock()
	RUnlock()
}

// Governor is the I/O Governor (C3, §4.3): it rate-limits and queue-limits
// TRIM issue per leaf, stamps each issued chunk with a txg for progress
// checkpointing, and drives the on_done accounting.
type Governor struct {
	Params     *Params
	Issuer     Issuer
	Coord      txg.Coordinator
	Store      *trimstore.Store
	Catalog    trimstore.Catalog
	Stats      *trimstats.Stats
	ConfigLock ConfigLock
}

// measuredRate is §4.3's "measured_rate": bytes done times 1000 over
// elapsed milliseconds. The multiply is done in uint256 rather than
// float64 — unlike the block-bandwidth estimator's once-per-block update,
// this runs once per issued chunk, and BytesDone accumulates for the
// whole life of a multi-terabyte leaf's trim run, close enough to the
// uint64 ceiling that bytes*1000 can overflow a plain uint64 multiply.
func measuredRate(ta *vdev.TrimArgs) float64 {
	elapsedMs := time.Since(ta.StartTime).Milliseconds()
	if elapsedMs < 0 {
		elapsedMs = 0
	}
	num := new(uint256.Int).Mul(uint256.NewInt(ta.BytesDone), uint256.NewInt(1000))
	den := uint256.NewInt(uint64(elapsedMs) + 1)
	return float64(new(uint256.Int).Div(num, den).Uint64())
}

// condWaitTimeout waits on c, which is bounded to at most d: no cv_timedwait
// primitive exists on sync.Cond, so a one-shot timer plays the role of
// cv_timedwait_sig's deadline by broadcasting when it fires. c.L must be
// held on entry, exactly as sync.Cond.Wait requires.
func condWaitTimeout(c *sync.Cond, d time.Duration) {
	timer := time.AfterFunc(d, func() {
		c.L.Lock()
		c.Broadcast()
		c.L.Unlock()
	})
	c.Wait()
	timer.Stop()
}

// IssueRange governs and issues a single physical chunk (§4.3
// "vdev_trim_range"), blocking on the rate gate and then the queue gate
// before handing off to the Issuer.
func (g *Governor) IssueRange(ta *vdev.TrimArgs, start, size uint64) error {
	leaf := ta.Leaf

	leaf.IOMu.Lock()
	for leaf.Rate != 0 && !leaf.ShouldStop() && measuredRate(ta) > float64(leaf.Rate) {
		condWaitTimeout(leaf.IOCond, 10*time.Millisecond)
	}

	ta.BytesDone += size

	for leaf.TotalInflight() >= g.Params.QueueLimit() {
		leaf.IOCond.Wait()
	}
	leaf.IncInflight(ta.Type)
	leaf.IOMu.Unlock()

	g.ConfigLock.RLock()
	txgNum := g.Coord.Open()

	leaf.TrimMu.Lock()
	needsSchedule := ta.Type == vdev.TrimManual && leaf.TrimOffset[txgNum%vdev.TxgPipelineDepth] == 0
	shouldStop := leaf.ShouldStopLocked()
	if !shouldStop && ta.Type == vdev.TrimManual {
		leaf.TrimOffset[txgNum%vdev.TxgPipelineDepth] = start + size
	}
	leaf.TrimMu.Unlock()

	// ScheduleProgress's sync task re-acquires leaf.TrimMu when it fires,
	// which a coordinator that commits synchronously (as tests do) would
	// do right here: it must run with the lock above already released.
	if needsSchedule {
		g.Store.ScheduleProgress(g.Coord, g.Catalog, leaf.Guid, txgNum)
	}

	if shouldStop {
		g.ConfigLock.RUnlock()

		leaf.IOMu.Lock()
		leaf.DecInflight(ta.Type)
		leaf.IOCond.Broadcast()
		leaf.IOMu.Unlock()
		return ErrInterrupted
	}

	req := Request{Leaf: leaf, Offset: start, Size: size, Secure: ta.Secure(), Type: ta.Type, SubmittedAt: time.Now()}
	g.Issuer.Submit(req, func(res Result) {
		if ta.Type == vdev.TrimManual {
			g.onDoneManual(leaf, txgNum, res)
		} else {
			g.onDoneAuto(leaf, res)
		}
		g.ConfigLock.RUnlock()
	})

	return nil
}

func minU64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

// onDoneManual is §4.3 "on_done_manual(io)".
func (g *Governor) onDoneManual(leaf *vdev.Leaf, txgNum uint64, res Result) {
	leaf.IOMu.Lock()

	if errors.Is(res.Err, ErrNoSuchDevice) && !leaf.Writeable {
		leaf.TrimMu.Lock()
		slot := &leaf.TrimOffset[txgNum%vdev.TxgPipelineDepth]
		*slot = minU64(*slot, res.Request.Offset)
		leaf.TrimMu.Unlock()
	} else if res.Err != nil {
		g.Stats.Record(vdev.TrimManual, trimstats.OutcomeFailed, res.Request.Size)
	} else {
		g.Stats.Record(vdev.TrimManual, trimstats.OutcomeSuccess, res.Request.Size)
		g.Stats.RecordThroughput(vdev.TrimManual, res.Request.Size, time.Since(res.Request.SubmittedAt))
	}

	leaf.DecInflight(vdev.TrimManual)
	leaf.IOCond.Broadcast()
	leaf.IOMu.Unlock()
}

// onDoneAuto is §4.3 "on_done_auto(io)": identical accounting, no rewind.
func (g *Governor) onDoneAuto(leaf *vdev.Leaf, res Result) {
	leaf.IOMu.Lock()

	if res.Err != nil {
		g.Stats.Record(vdev.TrimAuto, trimstats.OutcomeFailed, res.Request.Size)
	} else {
		g.Stats.Record(vdev.TrimAuto, trimstats.OutcomeSuccess, res.Request.Size)
		g.Stats.RecordThroughput(vdev.TrimAuto, res.Request.Size, time.Since(res.Request.SubmittedAt))
	}

	leaf.DecInflight(vdev.TrimAuto)
	leaf.IOCond.Broadcast()
	leaf.IOMu.Unlock()
}
