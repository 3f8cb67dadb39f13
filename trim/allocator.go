// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trim

import "github.com/coldvault/poold/vdev"

// Allocator is the metaslab allocator's contract as consumed by this
// subsystem (§1 "Out of scope", §6 "metaslab_load, metaslab_disable,
// metaslab_enable, metaslab_allocated_space"): loading a metaslab's range
// trees into memory, and the disable/enable pair that keeps the allocator
// from touching a metaslab a worker is mid-scan on.
type Allocator interface {
	// Load ensures ms.Allocatable and ms.Trim reflect on-disk state,
	// setting ms.Loaded. Returning a non-nil error is AllocatorFailure
	// (§7): the caller aborts via assertion, since it indicates a bug
	// elsewhere rather than a condition this subsystem can recover from.
	Load(ms *vdev.Metaslab) error

	// Disable increments the metaslab's disabled-nesting count, excluding
	// it from new allocations while a worker scans it.
	Disable(ms *vdev.Metaslab)

	// Enable decrements the nesting count. issued hints that a trim pass
	// touched the metaslab, so the allocator may want to refresh its view.
	Enable(ms *vdev.Metaslab, issued bool)
}

// FakeAllocator is an in-memory Allocator for tests: Load is a no-op other
// than setting Loaded (tests populate Allocatable/Trim directly), and
// Disable/Enable just drive the nesting counter.
type FakeAllocator struct{}

func (FakeAllocator) Load(ms *vdev.Metaslab) error {
	ms.SetLoaded(true)
	return nil
}

func (FakeAllocator) Disable(ms *vdev.Metaslab) {
	ms.IncDisabled()
}

func (FakeAllocator) Enable(ms *vdev.Metaslab, _ bool) {
	ms.DecDisabled()
}
