// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package vdev

// State is a leaf's persisted manual-trim state (§3.2, §4.6).
type State uint64

const (
	StateNone State = iota
	StateActive
	StateCanceled
	StateSuspended
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateNone:
		return "none"
	case StateActive:
		return "active"
	case StateCanceled:
		return "canceled"
	case StateSuspended:
		return "suspended"
	case StateComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// TrimType distinguishes the two worker flavors that share a leaf's I/O
// queue-depth accounting (§3.3 invariant 6).
type TrimType int

const (
	TrimManual TrimType = iota
	TrimAuto
	trimTypeCount
)

func (t TrimType) String() string {
	if t == TrimManual {
		return "manual"
	}
	return "auto"
}

// Flags is a per-job bitfield; only Secure is defined (§3.1).
type Flags uint32

const (
	FlagSecure Flags = 1 << iota
)

// Event is a pool event emitted on a lifecycle state transition (§6).
type Event int

const (
	EventTrimStart Event = iota
	EventTrimResume
	EventTrimSuspend
	EventTrimCancel
	EventTrimFinish
)

func (e Event) String() string {
	switch e {
	case EventTrimStart:
		return "TrimStart"
	case EventTrimResume:
		return "TrimResume"
	case EventTrimSuspend:
		return "TrimSuspend"
	case EventTrimCancel:
		return "TrimCancel"
	case EventTrimFinish:
		return "TrimFinish"
	default:
		return "unknown"
	}
}

// ResetSentinel is U64_MAX: written into LastOffset to mean "reset to zero
// at the next progress sync" (§3.2, §4.6, §9). Rate/Partial/Secure are reset
// through Leaf.NeedsReset instead.
const ResetSentinel = ^uint64(0)

// TxgPipelineDepth mirrors TXG_SIZE: the number of in-flight transaction
// groups whose tentative offsets a leaf tracks simultaneously (§3.1).
const TxgPipelineDepth = 4

// LabelStartSize is the fixed reserved region at the front of a leaf that
// every trim offset is biased past, so the pool's identifying labels are
// never themselves trimmed (§4.4 "Splitting rule", GLOSSARY).
const LabelStartSize = 4 << 20 // 4 MiB, matching the real on-disk label reservation
