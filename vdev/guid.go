// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package vdev holds the data model shared by every trim component: leaf
// devices, top-level redundancy groups, metaslabs and their free-space range
// sets. It carries no behavior of its own beyond small accessors — the
// workers and controllers that act on these types live in package trim.
package vdev

import (
	"encoding/binary"

	"github.com/pborman/uuid"
)

// Guid is a leaf or top-level group's stable 64-bit identity. It outlives
// any in-memory pointer to the device: a sync task captures a Guid by value
// and resolves it through the pool catalog only when it actually runs,
// so a device freed between scheduling and firing is simply not found
// (§9, "Weak reference to a leaf across a sync boundary").
type Guid uint64

// NewGuid derives a pseudo-random 64-bit guid, folding a fresh UUIDv4 down
// to 8 bytes. Used by tests and by device-creation fixtures to mint
// plausible, globally-unique leaf/top-group identities without a central
// allocator.
func NewGuid() Guid {
	u := uuid.NewRandom()
	return Guid(binary.BigEndian.Uint64(u[:8]))
}

// String renders the guid the way pool tooling conventionally prints device
// identities: fixed-width hex.
func (g Guid) String() string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(g))
	const hex = "0123456789abcdef"
	out := make([]byte, 16)
	for i, b := range buf {
		out[i*2] = hex[b>>4]
		out[i*2+1] = hex[b&0xf]
	}
	return string(out)
}
