// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trimstats

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestThroughputSeedsFromFirstSample(t *testing.T) {
	th := NewThroughput(prometheus.NewRegistry(), "test_bytes_per_second", "test")
	require.Equal(t, uint64(0), th.Value())

	v, updated := th.Update(1<<20, time.Second)
	require.True(t, updated)
	require.Equal(t, uint64(1<<20), v)
	require.Equal(t, uint64(1<<20), th.Value())
}

func TestThroughputLowPassSmoothsSpikes(t *testing.T) {
	th := NewThroughput(prometheus.NewRegistry(), "test_bytes_per_second2", "test")
	th.Update(1000, time.Second)

	// A single 16x spike should only move the estimate by ~1/16th, not
	// snap straight to the new sample.
	v, _ := th.Update(16000, time.Second)
	require.Less(t, v, uint64(2000))
	require.Greater(t, v, uint64(1000))
}

func TestThroughputIgnoresZeroElapsed(t *testing.T) {
	th := NewThroughput(prometheus.NewRegistry(), "test_bytes_per_second3", "test")
	_, updated := th.Update(1<<20, 0)
	require.False(t, updated)
	require.Equal(t, uint64(0), th.Value())
}
