// Copyright (c) 2021 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
)

// ErrNotFound is returned by the in-process Store for missing keys.
var ErrNotFound = errors.New("kv: not found")

// Options configures a backend. Fields not relevant to a given backend are
// ignored; the in-process Store ignores all of them.
type Options struct {
	Cache                  int // bytes of block cache (LevelDB only)
	OpenFilesCacheCapacity int // max open file descriptors (LevelDB only)
	WriteBuffer            int // bytes (LevelDB only)
	ReadOnly               bool
}

type memStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMem returns a Store backed by an in-process map. It never persists to
// disk; useful for tests and for the trim progress store's unit tests.
func NewMem(_ Options) (Store, error) {
	return &memStore{data: make(map[string][]byte)}, nil
}

func (s *memStore) Get(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *memStore) Has(key []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[string(key)]
	return ok, nil
}

func (s *memStore) Put(key, val []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(val))
	copy(cp, val)
	s.data[string(key)] = cp
	return nil
}

func (s *memStore) Delete(key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, string(key))
	return nil
}

func (s *memStore) IsNotFound(err error) bool {
	return errors.Cause(err) == ErrNotFound
}

func (s *memStore) DeleteRange(_ context.Context, r Range) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k := range s.data {
		if k >= string(r.Start) && (r.Limit == nil || k < string(r.Limit)) {
			delete(s.data, k)
		}
	}
	return nil
}

func (s *memStore) Iterate(r Range) Iterator {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.data {
		if k >= string(r.Start) && (r.Limit == nil || k < string(r.Limit)) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	return &memIterator{store: s, keys: keys, pos: -1}
}

type memIterator struct {
	store *memStore
	keys  []string
	pos   int
}

func (it *memIterator) First() bool {
	if len(it.keys) == 0 {
		return false
	}
	it.pos = 0
	return true
}

func (it *memIterator) Last() bool {
	if len(it.keys) == 0 {
		return false
	}
	it.pos = len(it.keys) - 1
	return true
}

func (it *memIterator) Next() bool {
	if it.pos+1 >= len(it.keys) {
		it.pos = len(it.keys)
		return false
	}
	it.pos++
	return true
}

func (it *memIterator) Prev() bool {
	if it.pos-1 < 0 {
		return false
	}
	it.pos--
	return true
}

func (it *memIterator) Key() []byte {
	if it.pos < 0 || it.pos >= len(it.keys) {
		return nil
	}
	return []byte(it.keys[it.pos])
}

func (it *memIterator) Value() []byte {
	if it.pos < 0 || it.pos >= len(it.keys) {
		return nil
	}
	it.store.mu.RLock()
	defer it.store.mu.RUnlock()
	return it.store.data[it.keys[it.pos]]
}

func (it *memIterator) Release()    {}
func (it *memIterator) Error() error { return nil }

type memBulk struct {
	store *memStore
}

func (b *memBulk) Put(key, val []byte) error { return b.store.Put(key, val) }
func (b *memBulk) Delete(key []byte) error    { return b.store.Delete(key) }
func (b *memBulk) EnableAutoFlush()           {}
func (b *memBulk) Write() error               { return nil }

func (s *memStore) Bulk() Bulk { return &memBulk{s} }

type memSnapshot struct {
	store *memStore
	data  map[string][]byte
}

func (s *memStore) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cp := make(map[string][]byte, len(s.data))
	for k, v := range s.data {
		cp[k] = v
	}
	return &memSnapshot{store: s, data: cp}
}

func (sn *memSnapshot) Get(key []byte) ([]byte, error) {
	v, ok := sn.data[string(key)]
	if !ok {
		return nil, ErrNotFound
	}
	return v, nil
}

func (sn *memSnapshot) Has(key []byte) (bool, error) {
	_, ok := sn.data[string(key)]
	return ok, nil
}

func (sn *memSnapshot) IsNotFound(err error) bool { return errors.Cause(err) == ErrNotFound }
func (sn *memSnapshot) Release()                  {}

func (s *memStore) Close() error { return nil }
