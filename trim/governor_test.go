// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trim

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/coldvault/poold/kv"
	"github.com/coldvault/poold/trimstats"
	"github.com/coldvault/poold/trimstore"
	"github.com/coldvault/poold/txg"
	"github.com/coldvault/poold/vdev"
)

type mapCatalog map[vdev.Guid]*vdev.Leaf

func (m mapCatalog) LookupByGuid(guid vdev.Guid) (*vdev.Leaf, bool) {
	l, ok := m[guid]
	return l, ok
}

func newTestGovernor(t *testing.T, leaf *vdev.Leaf) (*Governor, *FakeIssuer) {
	t.Helper()
	backing, err := kv.NewMem(kv.Options{})
	require.NoError(t, err)
	issuer := NewFakeIssuer()
	return &Governor{
		Params:     NewParams(),
		Issuer:     issuer,
		Coord:      txg.NewFake(),
		Store:      trimstore.New(backing),
		Catalog:    mapCatalog{leaf.Guid: leaf},
		Stats:      trimstats.New(prometheus.NewRegistry()),
		ConfigLock: &sync.RWMutex{},
	}, issuer
}

func TestGovernorQueueGateBlocksUntilDrained(t *testing.T) {
	leaf := vdev.NewLeaf(vdev.NewGuid(), "/dev/sda")
	g, issuer := newTestGovernor(t, leaf)
	g.Params.SetQueueLimit(1)
	issuer.Hold(true)

	ta := vdev.NewTrimArgs(leaf, vdev.NewMetaslab(0, 0, 1<<30), vdev.TrimManual, 0, 0, 0)
	ta.StartTime = time.Now()

	require.NoError(t, g.IssueRange(ta, 0, 4096))
	if leaf.TotalInflight() != 1 {
		t.Fatalf("expected 1 inflight, got %d", leaf.TotalInflight())
	}

	second := make(chan error, 1)
	go func() { second <- g.IssueRange(ta, 4096, 4096) }()

	select {
	case <-second:
		t.Fatal("second IssueRange should have blocked on the queue gate")
	case <-time.After(50 * time.Millisecond):
	}

	require.True(t, issuer.ReleaseOne())

	select {
	case err := <-second:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("second IssueRange never unblocked after queue space freed")
	}

	issuer.ReleaseAll()
}

func TestGovernorInterruptedWhenExitWanted(t *testing.T) {
	leaf := vdev.NewLeaf(vdev.NewGuid(), "/dev/sda")
	g, _ := newTestGovernor(t, leaf)

	leaf.TrimMu.Lock()
	leaf.ExitWanted = true
	leaf.TrimMu.Unlock()

	ta := vdev.NewTrimArgs(leaf, vdev.NewMetaslab(0, 0, 1<<30), vdev.TrimManual, 0, 0, 0)
	ta.StartTime = time.Now()

	err := g.IssueRange(ta, 0, 4096)
	require.ErrorIs(t, err, ErrInterrupted)
	require.Equal(t, int32(0), leaf.TotalInflight())
}

func TestGovernorRewindsOnDeviceUnavailable(t *testing.T) {
	leaf := vdev.NewLeaf(vdev.NewGuid(), "/dev/sda")
	g, issuer := newTestGovernor(t, leaf)
	issuer.Hold(true)
	issuer.SetForceErr(ErrNoSuchDevice)

	ta := vdev.NewTrimArgs(leaf, vdev.NewMetaslab(0, 0, 1<<30), vdev.TrimManual, 0, 0, 0)
	ta.StartTime = time.Now()

	// Submitted while still writeable, so it is queued rather than
	// interrupted; the device then goes away before the completion fires.
	require.NoError(t, g.IssueRange(ta, 1000, 500))
	leaf.Writeable = false
	require.True(t, issuer.ReleaseOne())

	leaf.TrimMu.Lock()
	offset := leaf.TrimOffset[1]
	leaf.TrimMu.Unlock()
	require.Equal(t, uint64(1000), offset, "rewind should pull the slot back to the failing I/O's offset")
}
