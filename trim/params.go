// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package trim implements the TRIM coordinator's runtime components: the
// range translator and progress estimator (C2), the I/O governor (C3), the
// manual worker (C4), the autotrim worker (C5), and the lifecycle
// controller (C6). The progress store (C1) lives in package trimstore.
package trim

import "sync/atomic"

// Params holds the module-level tunables (§5 "Parameters"), each read and
// written as an atomically-accessed word — per §9's design note, these are
// process-wide values an operator may change while workers are running, not
// compile-time constants.
type Params struct {
	extentBytesMax atomic.Uint64
	extentBytesMin atomic.Uint64
	queueLimit     atomic.Int32
	txgBatch       atomic.Uint64
	minBlockSize   atomic.Uint64
}

// Default tunables, per §5.
const (
	DefaultExtentBytesMax = 128 << 20 // 128 MiB
	DefaultExtentBytesMin = 32 << 10  // 32 KiB
	DefaultQueueLimit     = 10
	DefaultTxgBatch       = 32
	DefaultMinBlockSize   = 4 << 10 // 4 KiB: pool_min_block_size, the Secure-TRIM floor override
)

// NewParams returns a Params initialized to the §5 defaults.
func NewParams() *Params {
	p := &Params{}
	p.extentBytesMax.Store(DefaultExtentBytesMax)
	p.extentBytesMin.Store(DefaultExtentBytesMin)
	p.queueLimit.Store(DefaultQueueLimit)
	p.txgBatch.Store(DefaultTxgBatch)
	p.minBlockSize.Store(DefaultMinBlockSize)
	return p
}

func (p *Params) ExtentBytesMax() uint64    { return p.extentBytesMax.Load() }
func (p *Params) SetExtentBytesMax(v uint64) { p.extentBytesMax.Store(v) }

func (p *Params) ExtentBytesMin() uint64    { return p.extentBytesMin.Load() }
func (p *Params) SetExtentBytesMin(v uint64) { p.extentBytesMin.Store(v) }

func (p *Params) QueueLimit() int32     { return p.queueLimit.Load() }
func (p *Params) SetQueueLimit(v int32) { p.queueLimit.Store(v) }

// TxgBatch returns max(stored, 1), matching §4.5's txgs_per_trim := max(param.txg_batch, 1).
func (p *Params) TxgBatch() uint64 {
	v := p.txgBatch.Load()
	if v < 1 {
		return 1
	}
	return v
}
func (p *Params) SetTxgBatch(v uint64) { p.txgBatch.Store(v) }

func (p *Params) MinBlockSize() uint64 { return p.minBlockSize.Load() }
func (p *Params) SetMinBlockSize(v uint64) { p.minBlockSize.Store(v) }
