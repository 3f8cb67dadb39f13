// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package trimstats implements spa_iostats_trim_add (§6): per-trim-type
// success/skipped/failed operation and byte counters, exported both as
// Prometheus metrics and as a synchronous in-memory snapshot for tests.
package trimstats

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/coldvault/poold/vdev"
)

// Outcome classifies a single accounted operation.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSkipped
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// TypeStats is one trim type's accumulated counters.
type TypeStats struct {
	SuccessOps, SuccessBytes uint64
	SkippedOps, SkippedBytes uint64
	FailedOps, FailedBytes   uint64
}

type counters struct {
	successOps, successBytes atomic.Uint64
	skippedOps, skippedBytes atomic.Uint64
	failedOps, failedBytes   atomic.Uint64
}

// Stats holds one counters set per trim type (Manual, Auto), per the
// supplemented iostat split spa_iostats_trim_add keeps between the two.
type Stats struct {
	byType     [2]counters
	throughput [2]*Throughput

	ops   *prometheus.CounterVec
	bytes *prometheus.CounterVec
}

// New returns a Stats with its Prometheus vectors registered against reg.
// Pass prometheus.NewRegistry() in tests to avoid touching the global
// default registry.
func New(reg prometheus.Registerer) *Stats {
	s := &Stats{
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poold",
			Subsystem: "trim",
			Name:      "ops_total",
			Help:      "TRIM operations by type and outcome.",
		}, []string{"type", "outcome"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "poold",
			Subsystem: "trim",
			Name:      "bytes_total",
			Help:      "TRIM bytes by type and outcome.",
		}, []string{"type", "outcome"}),
	}
	s.throughput[vdev.TrimManual] = NewThroughput(reg, "manual_bytes_per_second", "Smoothed manual TRIM throughput.")
	s.throughput[vdev.TrimAuto] = NewThroughput(reg, "auto_bytes_per_second", "Smoothed autotrim throughput.")
	reg.MustRegister(s.ops, s.bytes)
	return s
}

// RecordThroughput folds a completed operation's size and wall time into
// typ's smoothed bytes/sec estimate (§6 "spa_iostats_trim_add", extended
// with the pool's own bandwidth low-pass filter rather than a raw average,
// since a single stalled or unusually large TRIM shouldn't swing the
// reported rate).
func (s *Stats) RecordThroughput(typ vdev.TrimType, n uint64, elapsed time.Duration) {
	s.throughput[typ].Update(n, elapsed)
}

// Throughput returns typ's current smoothed bytes/sec estimate.
func (s *Stats) Throughput(typ vdev.TrimType) uint64 {
	return s.throughput[typ].Value()
}

// Record accounts n bytes of a single operation of the given type and
// outcome, updating both the Prometheus vectors and the in-memory snapshot.
func (s *Stats) Record(typ vdev.TrimType, outcome Outcome, n uint64) {
	s.ops.WithLabelValues(typ.String(), outcome.String()).Inc()
	s.bytes.WithLabelValues(typ.String(), outcome.String()).Add(float64(n))

	c := &s.byType[typ]
	switch outcome {
	case OutcomeSuccess:
		c.successOps.Add(1)
		c.successBytes.Add(n)
	case OutcomeSkipped:
		c.skippedOps.Add(1)
		c.skippedBytes.Add(n)
	case OutcomeFailed:
		c.failedOps.Add(1)
		c.failedBytes.Add(n)
	}
}

// Snapshot returns a point-in-time copy of the counters for typ.
func (s *Stats) Snapshot(typ vdev.TrimType) TypeStats {
	c := &s.byType[typ]
	return TypeStats{
		SuccessOps:   c.successOps.Load(),
		SuccessBytes: c.successBytes.Load(),
		SkippedOps:   c.skippedOps.Load(),
		SkippedBytes: c.skippedBytes.Load(),
		FailedOps:    c.failedOps.Load(),
		FailedBytes:  c.failedBytes.Load(),
	}
}
