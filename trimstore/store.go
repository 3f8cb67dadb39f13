// Copyright (c) 2024 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package trimstore is the Progress Store (C1, §4.1): it reads and writes a
// leaf's six persisted TRIM attributes to the leaf attribute store (the
// "leaf ZAP", §1, GLOSSARY) via a sync task bound to a txg.
package trimstore

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/coldvault/poold/kv"
	"github.com/coldvault/poold/vdev"
)

var bucket = kv.Bucket("trim")

type attr byte

const (
	attrState attr = iota
	attrRate
	attrPartial
	attrSecure
	attrLastOffset
	attrActionTime
)

// Catalog resolves a leaf by its stable guid, the weak-reference contract a
// deferred sync task must use instead of a raw pointer (§9 "Weak reference
// to a leaf across a sync boundary"). A missing guid is not an error: the
// leaf may have been detached between scheduling and firing.
type Catalog interface {
	LookupByGuid(guid vdev.Guid) (*vdev.Leaf, bool)
}

// Progress is the six-key persisted layout of §3.2/§6 ("Persisted layout"),
// each stored as an 8-byte little-endian integer.
type Progress struct {
	State      vdev.State
	Rate       uint64
	Partial    bool
	Secure     bool
	LastOffset uint64
	ActionTime int64
}

// Store is the leaf attribute store, backed by any kv.Store — production
// wiring hands it the pool's on-disk LevelDB handle (kv.New); tests use
// kv.NewMem or kv.NewMemLevelDB.
type Store struct {
	kv kv.Store
}

// New returns a Store that namespaces its keys under backing via the
// "trim" bucket, so the same kv.Store can also serve unrelated callers.
func New(backing kv.Store) *Store {
	return &Store{kv: bucket.NewStore(backing)}
}

func attrKey(guid vdev.Guid, a attr) []byte {
	key := make([]byte, 9)
	binary.BigEndian.PutUint64(key, uint64(guid))
	key[8] = byte(a)
	return key
}

// ZapMissing (§7) maps a NotFound read to 0; any other read error is
// returned to the caller as ZapOther, per the same table.
func (s *Store) readUint64(guid vdev.Guid, a attr) (uint64, error) {
	v, err := s.kv.Get(attrKey(guid, a))
	if err != nil {
		if s.kv.IsNotFound(err) {
			return 0, nil
		}
		return 0, errors.Wrapf(err, "trimstore: read %v/%d", guid, a)
	}
	if len(v) != 8 {
		return 0, errors.Errorf("trimstore: corrupt value for %v/%d: length %d", guid, a, len(v))
	}
	return binary.LittleEndian.Uint64(v), nil
}

func (s *Store) writeUint64(guid vdev.Guid, a attr, val uint64) error {
	v := make([]byte, 8)
	binary.LittleEndian.PutUint64(v, val)
	return errors.Wrapf(s.kv.Put(attrKey(guid, a), v), "trimstore: write %v/%d", guid, a)
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// Load reads a leaf's persisted LastOffset, Rate, Partial, and Secure
// (§4.1 "load(leaf)"). Called for leaves in state Active or Suspended;
// callers in other states don't need this and may skip it.
func (s *Store) Load(guid vdev.Guid) (Progress, error) {
	var p Progress
	var err error
	if p.LastOffset, err = s.readUint64(guid, attrLastOffset); err != nil {
		return Progress{}, err
	}
	if p.Rate, err = s.readUint64(guid, attrRate); err != nil {
		return Progress{}, err
	}
	var raw uint64
	if raw, err = s.readUint64(guid, attrPartial); err != nil {
		return Progress{}, err
	}
	p.Partial = raw != 0
	if raw, err = s.readUint64(guid, attrSecure); err != nil {
		return Progress{}, err
	}
	p.Secure = raw != 0
	return p, nil
}

// LoadState reads the persisted State and ActionTime, used by restart
// (§4.6) to decide whether a leaf resumes.
func (s *Store) LoadState(guid vdev.Guid) (vdev.State, int64, error) {
	raw, err := s.readUint64(guid, attrState)
	if err != nil {
		return 0, 0, err
	}
	at, err := s.readUint64(guid, attrActionTime)
	if err != nil {
		return 0, 0, err
	}
	return vdev.State(raw), int64(at), nil
}
