// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vdev

import "sync"

// Metaslab is a fixed-size, contiguous logical region of a top-level group's
// address space (§3.1, GLOSSARY). The allocator that actually frees and
// allocates blocks within it is an out-of-scope collaborator (§1); this
// module only reads ms_allocatable/ms_trim and calls Disable/Enable/Load
// around the act of walking them.
type Metaslab struct {
	Mu sync.Mutex // ms_lock: held while Loaded/Allocatable/Trim are touched

	Index int    // position within the owning top group's ordered metaslab array
	Start uint64 // logical extent start
	Size  uint64 // logical extent length

	Loaded      bool
	HasSpaceMap bool // ms_sm != nil: false means "never had anything written to it"
	disabled    int  // metaslab_disable/_enable nesting count; guarded by Mu

	Allocatable *RangeTree // ms_allocatable: authoritative free-space set
	Trim        *RangeTree // ms_trim: recently-freed, not-yet-trimmed set
}

// NewMetaslab returns an empty, unloaded metaslab covering [start, start+size).
func NewMetaslab(index int, start, size uint64) *Metaslab {
	return &Metaslab{
		Index:       index,
		Start:       start,
		Size:        size,
		Allocatable: NewRangeTree(),
		Trim:        NewRangeTree(),
	}
}

// Disabled returns the metaslab's current disable nesting count — the
// autotrim worker skips a metaslab whose count is above one, i.e. one that
// another operation (manual trim or initialize) already has disabled
// (§4.5 step 3).
func (m *Metaslab) Disabled() int {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.disabled
}

// IncDisabled and DecDisabled track the metaslab_disable/_enable nesting
// count; the injected Allocator collaborator calls these around a worker's
// scan of the metaslab.
func (m *Metaslab) IncDisabled() {
	m.Mu.Lock()
	m.disabled++
	m.Mu.Unlock()
}

func (m *Metaslab) DecDisabled() {
	m.Mu.Lock()
	m.disabled--
	m.Mu.Unlock()
}

// SetLoaded marks the metaslab loaded (or not); used by Allocator
// implementations once they've populated Allocatable/Trim.
func (m *Metaslab) SetLoaded(loaded bool) {
	m.Mu.Lock()
	m.Loaded = loaded
	m.Mu.Unlock()
}

// FreeBytes returns the current sum of ms_allocatable, i.e. the metaslab's
// free space — used by the progress estimator (§4.2).
func (m *Metaslab) FreeBytes() uint64 {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Allocatable.SumSize()
}
