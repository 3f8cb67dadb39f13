// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package trim

import "github.com/coldvault/poold/vdev"

// Translator is the pool's logical-to-physical range mapper (§4.2
// "translate", a thin wrapper over vdev_xlate, §1 "Out of scope"). For a
// plain top-level leaf, logical and physical coincide; for a raidz child,
// the mapping may legitimately produce an empty range when the logical
// segment doesn't land on that child at all.
type Translator interface {
	Translate(leaf *vdev.Leaf, logical vdev.RangeSeg) vdev.RangeSeg
}

// IdentityTranslator implements Translator for leaves whose logical and
// physical address spaces coincide — every plain (non-raidz) top-level
// group in this implementation's test scenarios.
type IdentityTranslator struct{}

func (IdentityTranslator) Translate(_ *vdev.Leaf, logical vdev.RangeSeg) vdev.RangeSeg {
	return logical
}

// AddRange is the walk callback §4.2 "add_range" uses over ms_allocatable
// (manual) or the swapped ms_trim (auto): it translates a logical segment
// to physical, truncates it against the leaf's already-trimmed LastOffset
// for manual runs, and appends what remains to ta.Tree.
func AddRange(ta *vdev.TrimArgs, translator Translator, start, size uint64) {
	if !ta.Metaslab.Loaded {
		panic("trim: add_range called on an unloaded metaslab")
	}
	if !ta.Metaslab.Allocatable.Find(start, size) {
		panic("trim: range not present in ms_allocatable")
	}

	physical := translator.Translate(ta.Leaf, vdev.RangeSeg{Start: start, End: start + size})
	if physical.Empty() {
		return
	}

	if ta.Type == vdev.TrimManual {
		ta.Leaf.TrimMu.Lock()
		lastOffset := ta.Leaf.LastOffset
		ta.Leaf.TrimMu.Unlock()

		if physical.End <= lastOffset {
			return
		}
		if physical.Start < lastOffset && lastOffset < physical.End {
			physical.Start = lastOffset
		}
	}

	if physical.Size() > 0 {
		ta.Tree.Add(physical.Start, physical.Size())
	}
}

// childCountOf is §4.2's divisor for a raidz top group's per-child share of
// a metaslab's free bytes: every op-leaf shares the metaslab's space
// equally, so a plain (non-redundant) top group or a group with at most one
// op-leaf divides by 1.
func childCountOf(top *vdev.TopGroup) int {
	if top == nil || top.IsLeaf {
		return 1
	}
	if n := len(top.OpLeaves()); n > 1 {
		return n
	}
	return 1
}

// CalculateProgress estimates a leaf's manual-trim bytes-done/bytes-est
// (§4.2 "calculate_progress") by walking every metaslab of the owning top
// group. childCount divides free bytes for raidz groups; pass 1 for a
// plain leaf.
func CalculateProgress(leaf *vdev.Leaf, metaslabs []*vdev.Metaslab, translator Translator, allocator Allocator, childCount int) (done, est uint64, err error) {
	if childCount < 1 {
		childCount = 1
	}

	leaf.TrimMu.Lock()
	lastOffset := leaf.LastOffset
	leaf.TrimMu.Unlock()

	for _, ms := range metaslabs {
		physical := translator.Translate(leaf, vdev.RangeSeg{Start: ms.Start, End: ms.Start + ms.Size})
		if physical.Empty() {
			continue
		}

		msFree := ms.FreeBytes() / uint64(childCount)

		switch {
		case lastOffset <= physical.Start:
			est += msFree
		case lastOffset > physical.End:
			done += msFree
			est += msFree
		default:
			// The current metaslab: force-load and walk its free segments
			// individually to get a partial-completion estimate.
			if err := allocator.Load(ms); err != nil {
				return 0, 0, err
			}
			ms.Mu.Lock()
			segs := append([]vdev.RangeSeg(nil), ms.Allocatable.Segments()...)
			ms.Mu.Unlock()

			for _, seg := range segs {
				segPhys := translator.Translate(leaf, seg)
				if segPhys.Empty() {
					continue
				}
				size := segPhys.Size() / uint64(childCount)
				est += size
				switch {
				case segPhys.End <= lastOffset:
					done += size
				case segPhys.Start < lastOffset:
					done += (lastOffset - segPhys.Start) / uint64(childCount)
				}
			}
		}
	}

	return done, est, nil
}
