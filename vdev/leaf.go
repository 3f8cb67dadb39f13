// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vdev

import (
	"sync"
	"sync/atomic"

	"github.com/coldvault/poold/co"
)

// Worker is the minimal handle a Leaf or TopGroup keeps on whichever
// goroutine is currently trimming it. The concrete types (manual and
// autotrim workers) live in package trim; vdev only needs to know whether
// one is attached, to enforce invariant 1 (§3.3) and to drive stop_wait.
type Worker interface {
	// Done returns a channel that closes once the worker has fully exited
	// (cleared its own handle), per §3.3 invariant 7.
	Done() <-chan struct{}
}

// Leaf is a persistent storage device participating in the pool (§3.1).
// Its persisted attributes (State, Rate, Partial, Secure, LastOffset,
// ActionTime) are the leaf attribute store's six keys (§3.2); everything
// else here is transient runtime state rebuilt from those six keys and
// from the pool topology on import (§4.6 restart).
type Leaf struct {
	Guid Guid
	Path string
	Parent *TopGroup

	Writeable         bool
	Detached          bool
	OpLeaf            bool // performs real I/O, as opposed to an intermediate container
	Concrete          bool // present and known-good, vs a placeholder/spare
	HasTrimCapability bool

	// TrimMu/TrimCond guard and signal the persisted fields below plus
	// Worker/ExitWanted. Acquired after the pool config lock and the
	// top-group autotrim lock, before the metaslab lock (§5 lock order).
	TrimMu   sync.Mutex
	TrimCond *sync.Cond

	// IOMu/IOCond are the leaf's I/O lock: the governor's rate and queue
	// gates wait on IOCond (§4.3). Innermost in the lock order (§5).
	IOMu   sync.Mutex
	IOCond *sync.Cond

	State      State
	Rate       uint64
	Partial    bool
	Secure     bool
	LastOffset uint64
	ActionTime int64 // unix seconds of the last state transition

	BytesDone uint64 // progress estimate: bytes already trimmed (§4.2)
	BytesEst  uint64 // progress estimate: total bytes to trim (§4.2)

	// NeedsReset replaces the source's U64_MAX sentinel reads for Rate/
	// Partial/Secure with an explicit flag, per the Design Notes' suggested
	// re-architecture: set when change_state reactivates a Complete leaf,
	// consumed by the manual worker's first load() to mean "ignore persisted
	// Rate/Partial/Secure". LastOffset is still loaded; its reset to zero
	// goes through ResetSentinel and the progress sync task instead.
	NeedsReset bool

	// TrimOffset holds one tentative last-offset per in-flight txg,
	// indexed by txg mod TxgPipelineDepth (§3.1, §4.1).
	TrimOffset [TxgPipelineDepth]uint64

	inflight [trimTypeCount]int32 // atomic; inflight[Manual]+inflight[Auto] <= queue_limit (§3.3 invariant 6)

	Worker       Worker
	ExitWanted   bool

	// WorkerExited fires each time Worker transitions from non-nil to nil,
	// under TrimMu — a waiter registered while Worker != nil is guaranteed
	// to observe the exit that follows, and can register again for the
	// next one if this leaf is resumed and stopped again later.
	WorkerExited co.Signal
}

// NewLeaf returns a Leaf with its locks wired and state defaulted to None.
func NewLeaf(guid Guid, path string) *Leaf {
	l := &Leaf{Guid: guid, Path: path, Writeable: true, Concrete: true, OpLeaf: true, HasTrimCapability: true}
	l.TrimCond = sync.NewCond(&l.TrimMu)
	l.IOCond = sync.NewCond(&l.IOMu)
	return l
}

// Inflight returns the current number of in-flight trim I/Os of the given type.
func (l *Leaf) Inflight(t TrimType) int32 {
	return atomic.LoadInt32(&l.inflight[t])
}

// IncInflight increments the per-type in-flight counter.
func (l *Leaf) IncInflight(t TrimType) {
	atomic.AddInt32(&l.inflight[t], 1)
}

// DecInflight decrements the per-type in-flight counter.
func (l *Leaf) DecInflight(t TrimType) {
	atomic.AddInt32(&l.inflight[t], -1)
}

// TotalInflight returns inflight[Manual]+inflight[Auto], the quantity the
// governor's queue gate bounds by queue_limit (§3.3 invariant 6).
func (l *Leaf) TotalInflight() int32 {
	return l.Inflight(TrimManual) + l.Inflight(TrimAuto)
}

// ShouldStop reports whether any worker operating on this leaf should
// unwind at its next check point (§4.3 should_stop).
func (l *Leaf) ShouldStop() bool {
	l.TrimMu.Lock()
	defer l.TrimMu.Unlock()
	return l.ShouldStopLocked()
}

// ShouldStopLocked is ShouldStop for a caller already holding TrimMu.
func (l *Leaf) ShouldStopLocked() bool {
	return l.ExitWanted || !l.Writeable || l.Detached || (l.Parent != nil && l.Parent.Removing)
}

// HasManualWorker reports whether a manual trim worker is currently
// attached — the check autotrim's per-child construction uses to skip a
// leaf another operation already owns (§4.5 step 6, §8 scenario S6).
func (l *Leaf) HasManualWorker() bool {
	l.TrimMu.Lock()
	defer l.TrimMu.Unlock()
	return l.Worker != nil
}
