// Copyright (c) 2021 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package kv defines the small key-value contract every persisted structure
// in this module is built on, and the stock backends (an in-process map, and
// LevelDB) that satisfy it. The trim subsystem's progress store (the "leaf
// attribute store") is built entirely on this package.
package kv

import "context"

// Range is a half-open byte-string key range, [Start, Limit).
type Range struct {
	Start []byte
	Limit []byte
}

// Getter reads keys.
type Getter interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
}

// Putter writes and removes keys.
type Putter interface {
	Put(key, val []byte) error
	Delete(key []byte) error
}

// GetPutter can both read and write.
type GetPutter interface {
	Getter
	Putter
}

// IsNotFounder classifies a Get/Has error as "key does not exist" versus a
// real I/O failure. This is how zap_lookup's NotFound contract (§4.1, §7) is
// expressed here: callers map IsNotFound errors to the zero value.
type IsNotFounder interface {
	IsNotFound(err error) bool
}

// Iterator walks a key range in order.
type Iterator interface {
	First() bool
	Last() bool
	Next() bool
	Prev() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Bulk batches a sequence of writes for a single, cheaper commit.
type Bulk interface {
	Putter
	EnableAutoFlush()
	Write() error
}

// Snapshot is a read-only, point-in-time view of a Store.
type Snapshot interface {
	Getter
	IsNotFounder
	Release()
}

// Store is the full backend contract: a GetPutter plus range deletion,
// iteration, batched writes and snapshots.
type Store interface {
	GetPutter
	IsNotFounder
	DeleteRange(ctx context.Context, r Range) error
	Iterate(r Range) Iterator
	Bulk() Bulk
	Snapshot() Snapshot
	Close() error
}
