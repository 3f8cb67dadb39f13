// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trimstore

import (
	"github.com/coldvault/poold/txg"
	"github.com/coldvault/poold/vdev"
)

// ScheduleProgress registers a sync task against coord, bound to txgNum,
// that persists leaf guid's progress once that txg syncs (§4.1
// "schedule_progress"). guid is captured by value, not the *vdev.Leaf
// pointer, so a leaf detached between scheduling and firing is simply not
// found by catalog and the task returns without touching anything — the
// guid-by-value contract in §9.
//
// change_state (C6) and the manual worker's first issue of a txg both call
// this; the sync task always persists the leaf's current runtime
// ActionTime, Rate, Partial, Secure, and State, and advances and persists
// LastOffset only when the txg's slot is non-zero or LastOffset holds the
// reset sentinel.
func (s *Store) ScheduleProgress(coord txg.Coordinator, catalog Catalog, guid vdev.Guid, txgNum uint64) {
	coord.ScheduleSyncTask(txgNum, func(_ uint64) error {
		leaf, ok := catalog.LookupByGuid(guid)
		if !ok {
			return nil
		}

		leaf.TrimMu.Lock()
		if !leaf.Concrete || (leaf.Parent != nil && leaf.Parent.Removing) {
			leaf.TrimMu.Unlock()
			return nil
		}

		slot := &leaf.TrimOffset[txgNum%vdev.TxgPipelineDepth]
		tentative := *slot
		*slot = 0
		advance := tentative != 0 || leaf.LastOffset == vdev.ResetSentinel
		if advance {
			leaf.LastOffset = tentative
		}

		lastOffset := leaf.LastOffset
		actionTime := leaf.ActionTime
		rate := leaf.Rate
		partial := leaf.Partial
		secure := leaf.Secure
		state := leaf.State
		leaf.TrimMu.Unlock()

		if advance {
			if err := s.writeUint64(guid, attrLastOffset, lastOffset); err != nil {
				return err
			}
		}
		if err := s.writeUint64(guid, attrActionTime, uint64(actionTime)); err != nil {
			return err
		}
		if err := s.writeUint64(guid, attrRate, rate); err != nil {
			return err
		}
		if err := s.writeUint64(guid, attrPartial, boolToUint64(partial)); err != nil {
			return err
		}
		if err := s.writeUint64(guid, attrSecure, boolToUint64(secure)); err != nil {
			return err
		}
		return s.writeUint64(guid, attrState, uint64(state))
	})
}
