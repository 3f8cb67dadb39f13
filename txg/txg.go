// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package txg is the contract for the transaction-group commit engine that
// the progress store and the lifecycle controller ride on. It is listed
// among this subsystem's external collaborators (§1, §6 "Collaborator
// interfaces consumed": dmu_tx_create_dd/assign/get_txg/commit,
// dsl_sync_task_nowait, txg_wait_synced) rather than implemented here; this
// package only pins down the narrow slice of that engine's behavior the
// TRIM coordinator actually depends on, plus an in-memory Fake good enough
// to drive deterministic tests.
package txg

// SyncTask is a closure scheduled to run in the context of a specific
// future txg commit (GLOSSARY "Sync task"). It is handed the txg number it
// ran under and returns an error only to satisfy callers that want to log
// one; the coordinator does not retry failed sync tasks.
type SyncTask func(txg uint64) error

// Coordinator is the transaction-group engine's contract as consumed by
// this subsystem: opening a txg to learn its number, scheduling a task to
// run when that txg (or a later one) syncs, and blocking until a given txg
// is durable.
type Coordinator interface {
	// Open begins (or joins) a transaction and returns the txg number it
	// was assigned, mirroring dmu_tx_assign(WAIT) / dmu_tx_get_txg.
	Open() uint64

	// ScheduleSyncTask registers fn to run once txg syncs, mirroring
	// dsl_sync_task_nowait. Scheduling never blocks the caller.
	ScheduleSyncTask(txg uint64, fn SyncTask)

	// WaitSynced blocks until txg has synced, mirroring txg_wait_synced.
	// Safe to call from multiple goroutines for the same or different txgs.
	WaitSynced(txg uint64)
}
