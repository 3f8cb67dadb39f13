// Copyright (c) 2021 The ColdVault Authors

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package kv

import "context"

// Bucket is a key prefix that namespaces a region of a shared Store (or
// Getter/Putter) as if it were its own standalone store. The trim progress
// store uses a single "trim" Bucket and puts the leaf's guid at the front of
// each key, so every leaf's six attributes live in the same on-disk LevelDB
// instance without colliding.
type Bucket string

func (b Bucket) prefixed(key []byte) []byte {
	buf := make([]byte, 0, len(b)+len(key))
	buf = append(buf, b...)
	buf = append(buf, key...)
	return buf
}

type bucketGetter struct {
	bucket Bucket
	getter Getter
}

func (g *bucketGetter) Get(key []byte) ([]byte, error) { return g.getter.Get(g.bucket.prefixed(key)) }
func (g *bucketGetter) Has(key []byte) (bool, error)   { return g.getter.Has(g.bucket.prefixed(key)) }

// NewGetter returns a Getter whose keys are implicitly prefixed by the bucket.
func (b Bucket) NewGetter(getter Getter) Getter {
	return &bucketGetter{b, getter}
}

type bucketPutter struct {
	bucket Bucket
	putter Putter
}

func (p *bucketPutter) Put(key, val []byte) error { return p.putter.Put(p.bucket.prefixed(key), val) }
func (p *bucketPutter) Delete(key []byte) error    { return p.putter.Delete(p.bucket.prefixed(key)) }

// NewPutter returns a Putter whose keys are implicitly prefixed by the bucket.
func (b Bucket) NewPutter(putter Putter) Putter {
	return &bucketPutter{b, putter}
}

type bucketStore struct {
	bucket Bucket
	store  Store
}

func (s *bucketStore) Get(key []byte) ([]byte, error) { return s.store.Get(s.bucket.prefixed(key)) }
func (s *bucketStore) Has(key []byte) (bool, error)   { return s.store.Has(s.bucket.prefixed(key)) }
func (s *bucketStore) Put(key, val []byte) error      { return s.store.Put(s.bucket.prefixed(key), val) }
func (s *bucketStore) Delete(key []byte) error        { return s.store.Delete(s.bucket.prefixed(key)) }
func (s *bucketStore) IsNotFound(err error) bool      { return s.store.IsNotFound(err) }

func (s *bucketStore) DeleteRange(ctx context.Context, r Range) error {
	return s.store.DeleteRange(ctx, Range{Start: s.bucket.prefixed(r.Start), Limit: s.bucket.prefixed(r.Limit)})
}

func (s *bucketStore) Iterate(r Range) Iterator {
	return s.store.Iterate(Range{Start: s.bucket.prefixed(r.Start), Limit: s.bucket.prefixed(r.Limit)})
}

func (s *bucketStore) Bulk() Bulk             { return &bucketBulk{s.bucket, s.store.Bulk()} }
func (s *bucketStore) Snapshot() Snapshot     { return s.store.Snapshot() }
func (s *bucketStore) Close() error           { return s.store.Close() }

type bucketBulk struct {
	bucket Bucket
	bulk   Bulk
}

func (b *bucketBulk) Put(key, val []byte) error { return b.bulk.Put(b.bucket.prefixed(key), val) }
func (b *bucketBulk) Delete(key []byte) error    { return b.bulk.Delete(b.bucket.prefixed(key)) }
func (b *bucketBulk) EnableAutoFlush()           { b.bulk.EnableAutoFlush() }
func (b *bucketBulk) Write() error               { return b.bulk.Write() }

// NewStore returns a Store whose keys are implicitly prefixed by the bucket.
func (b Bucket) NewStore(store Store) Store {
	return &bucketStore{b, store}
}
