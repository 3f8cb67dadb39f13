// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vdev

import "time"

// TrimArgs bundles a single trim pass's working state: which leaf and
// metaslab it targets, the physical ranges it still has to issue, and the
// bookkeeping needed to report progress and honor the splitting rule
// (§3.1, §4.2, §4.4).
type TrimArgs struct {
	Leaf     *Leaf
	Metaslab *Metaslab
	Type     TrimType
	Flags    Flags

	// Tree holds the physical-offset ranges this pass issues, translated by
	// AddRange from the metaslab's ms_allocatable set (manual) or its
	// swapped-out ms_trim set (autotrim) (§4.2 translate). issueRanges walks
	// it without removing segments; the manual worker vacates it after the
	// pass.
	Tree *RangeTree

	StartTime time.Time

	BytesDone uint64 // cumulative bytes issued by this pass so far
	BytesEst  uint64 // this pass's share of the leaf-wide progress estimate

	// ExtentBytesMin/Max bound how issueRanges turns each physical range
	// into I/Os: ranges smaller than Min are skipped, longer ones are split
	// into chunks of at most Max (§4.4, §5 Parameters).
	ExtentBytesMin uint64
	ExtentBytesMax uint64
}

// NewTrimArgs returns a TrimArgs with an empty working tree, ready to have
// ranges translated into it.
func NewTrimArgs(leaf *Leaf, ms *Metaslab, typ TrimType, flags Flags, extentMin, extentMax uint64) *TrimArgs {
	return &TrimArgs{
		Leaf:           leaf,
		Metaslab:       ms,
		Type:           typ,
		Flags:          flags,
		Tree:           NewRangeTree(),
		ExtentBytesMin: extentMin,
		ExtentBytesMax: extentMax,
	}
}

// Secure reports whether this pass must issue secure (data-destroying)
// trims rather than ordinary discards.
func (a *TrimArgs) Secure() bool {
	return a.Flags&FlagSecure != 0
}
