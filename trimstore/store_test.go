// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trimstore

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coldvault/poold/kv"
	"github.com/coldvault/poold/txg"
	"github.com/coldvault/poold/vdev"
)

type mapCatalog map[vdev.Guid]*vdev.Leaf

func (m mapCatalog) LookupByGuid(guid vdev.Guid) (*vdev.Leaf, bool) {
	l, ok := m[guid]
	return l, ok
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	backing, err := kv.NewMem(kv.Options{})
	require.NoError(t, err)
	return New(backing)
}

func TestLoadDefaultsToZeroWhenMissing(t *testing.T) {
	s := newTestStore(t)
	p, err := s.Load(vdev.NewGuid())
	require.NoError(t, err)
	require.Equal(t, Progress{}, p)
}

func TestScheduleProgressAdvancesLastOffset(t *testing.T) {
	s := newTestStore(t)
	coord := txg.NewFake()
	leaf := vdev.NewLeaf(vdev.NewGuid(), "/dev/sda")
	leaf.Rate = 42
	leaf.Partial = true
	leaf.State = vdev.StateActive
	catalog := mapCatalog{leaf.Guid: leaf}

	tg := coord.Open()
	leaf.TrimOffset[tg%vdev.TxgPipelineDepth] = 1 << 20

	s.ScheduleProgress(coord, catalog, leaf.Guid, tg)
	coord.Commit(tg)

	p, err := s.Load(leaf.Guid)
	require.NoError(t, err)
	require.Equal(t, uint64(1<<20), p.LastOffset)
	require.Equal(t, uint64(42), p.Rate)
	require.True(t, p.Partial)

	state, _, err := s.LoadState(leaf.Guid)
	require.NoError(t, err)
	require.Equal(t, vdev.StateActive, state)
}

func TestScheduleProgressLeavesOffsetUntouchedWhenSlotZero(t *testing.T) {
	s := newTestStore(t)
	coord := txg.NewFake()
	leaf := vdev.NewLeaf(vdev.NewGuid(), "/dev/sda")
	leaf.LastOffset = 7
	catalog := mapCatalog{leaf.Guid: leaf}

	tg := coord.Open()
	s.ScheduleProgress(coord, catalog, leaf.Guid, tg)
	coord.Commit(tg)

	p, err := s.Load(leaf.Guid)
	require.NoError(t, err)
	require.Equal(t, uint64(0), p.LastOffset, "no slot progress and no sentinel means nothing should have been persisted yet")
}

func TestScheduleProgressResetSentinelWritesZero(t *testing.T) {
	s := newTestStore(t)
	coord := txg.NewFake()
	leaf := vdev.NewLeaf(vdev.NewGuid(), "/dev/sda")
	leaf.LastOffset = vdev.ResetSentinel
	catalog := mapCatalog{leaf.Guid: leaf}

	tg := coord.Open()
	s.ScheduleProgress(coord, catalog, leaf.Guid, tg)
	coord.Commit(tg)

	p, err := s.Load(leaf.Guid)
	require.NoError(t, err)
	require.Equal(t, uint64(0), p.LastOffset)
}

func TestScheduleProgressSkipsDetachedLeaf(t *testing.T) {
	s := newTestStore(t)
	coord := txg.NewFake()
	guid := vdev.NewGuid()
	catalog := mapCatalog{} // guid not present: leaf was freed before the task fired

	tg := coord.Open()
	s.ScheduleProgress(coord, catalog, guid, tg)
	coord.Commit(tg) // must not panic

	p, err := s.Load(guid)
	require.NoError(t, err)
	require.Equal(t, Progress{}, p)
}

func TestScheduleProgressSkipsRemovingTopGroup(t *testing.T) {
	s := newTestStore(t)
	coord := txg.NewFake()
	leaf := vdev.NewLeaf(vdev.NewGuid(), "/dev/sda")
	leaf.LastOffset = 5
	g := vdev.NewTopGroup(vdev.NewGuid())
	g.Removing = true
	leaf.Parent = g
	catalog := mapCatalog{leaf.Guid: leaf}

	tg := coord.Open()
	leaf.TrimOffset[tg%vdev.TxgPipelineDepth] = 99
	s.ScheduleProgress(coord, catalog, leaf.Guid, tg)
	coord.Commit(tg)

	p, err := s.Load(leaf.Guid)
	require.NoError(t, err)
	require.Equal(t, Progress{}, p, "removing top group must suppress the persist")
}
