// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package txg

import (
	"testing"
	"time"
)

func TestFakeScheduleAndCommit(t *testing.T) {
	f := NewFake()
	txg := f.Open()

	var ran uint64
	f.ScheduleSyncTask(txg, func(got uint64) error {
		ran = got
		return nil
	})

	if f.IsSynced(txg) {
		t.Fatal("txg should not be synced before Commit")
	}

	f.Commit(txg)

	if ran != txg {
		t.Errorf("sync task ran with txg %d, want %d", ran, txg)
	}
	if !f.IsSynced(txg) {
		t.Error("expected txg synced after Commit")
	}
}

func TestFakeWaitSyncedBlocksUntilCommit(t *testing.T) {
	f := NewFake()
	txg := f.Open()

	done := make(chan struct{})
	go func() {
		f.WaitSynced(txg)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitSynced returned before Commit")
	case <-time.After(20 * time.Millisecond):
	}

	f.Commit(txg)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitSynced did not return after Commit")
	}
}
