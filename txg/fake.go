// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package txg

import "sync"

// Fake is a synchronous, in-memory Coordinator: Commit runs every task
// scheduled against a txg inline and immediately wakes any WaitSynced
// callers. It exists purely for tests — production wiring talks to the
// pool's real sync-task engine, which is out of scope here (§1).
type Fake struct {
	mu      sync.Mutex
	cond    *sync.Cond
	current uint64
	synced  map[uint64]bool
	tasks   map[uint64][]SyncTask
}

// NewFake returns a Fake with no txg yet opened.
func NewFake() *Fake {
	f := &Fake{synced: map[uint64]bool{}, tasks: map[uint64][]SyncTask{}}
	f.cond = sync.NewCond(&f.mu)
	return f
}

// Open advances and returns the current txg number.
func (f *Fake) Open() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current++
	return f.current
}

// ScheduleSyncTask queues fn to run on the next Commit of txg.
func (f *Fake) ScheduleSyncTask(txg uint64, fn SyncTask) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[txg] = append(f.tasks[txg], fn)
}

// WaitSynced blocks until Commit(txg) has run for this exact txg; a Commit
// of a later txg does not release it.
func (f *Fake) WaitSynced(txg uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for !f.synced[txg] {
		f.cond.Wait()
	}
}

// Commit runs every task scheduled against txg, in registration order,
// marks it synced, and wakes any blocked WaitSynced callers.
func (f *Fake) Commit(txg uint64) {
	f.mu.Lock()
	tasks := f.tasks[txg]
	delete(f.tasks, txg)
	f.mu.Unlock()

	for _, fn := range tasks {
		fn(txg)
	}

	f.mu.Lock()
	f.synced[txg] = true
	f.cond.Broadcast()
	f.mu.Unlock()
}

// IsSynced reports whether txg has already been committed.
func (f *Fake) IsSynced(txg uint64) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.synced[txg]
}
