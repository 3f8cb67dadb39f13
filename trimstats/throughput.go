// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trimstats

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Throughput tracks a smoothed bytes/sec figure for completed TRIM I/O,
// the same low-pass filter this pool's block-bandwidth estimator uses for
// gas/sec: a new sample either seeds the value outright or nudges it by
// 1/16th, so a single slow or fast operation can't swing the reported rate.
type Throughput struct {
	mu    sync.Mutex
	value uint64 // bytes/sec

	gauge prometheus.Gauge
}

// NewThroughput returns a Throughput whose current value is exported as a
// Prometheus gauge registered against reg.
func NewThroughput(reg prometheus.Registerer, name, help string) *Throughput {
	t := &Throughput{
		gauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "poold",
			Subsystem: "trim",
			Name:      name,
			Help:      help,
		}),
	}
	reg.MustRegister(t.gauge)
	return t
}

// Value returns the current smoothed bytes/sec estimate.
func (t *Throughput) Value() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Update folds n bytes completed over elapsed into the smoothed estimate.
// A zero elapsed is ignored rather than dividing by zero.
func (t *Throughput) Update(n uint64, elapsed time.Duration) (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if elapsed <= 0 {
		return t.value, false
	}

	newValue := uint64(float64(n) * float64(time.Second) / float64(elapsed))

	if t.value == 0 {
		t.value = newValue
	} else {
		t.value = uint64((float64(t.value)*15 + float64(newValue)) / 16)
	}
	t.gauge.Set(float64(t.value))
	return t.value, true
}
