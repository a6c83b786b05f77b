// Copyright (c) 2025 Vex Labs
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at vexvm.dev/bsl11.
//
// Change Date: 2029-6-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package smt

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// NodeStore is the persistence interface of the tree. Entries are immutable
// once written: node encodings are stored under their hash and raw values
// under their content hash, so a Put for an existing key always carries the
// identical data. Implementations must be safe for concurrent readers.
//
// Errors indicate a failure of the underlying medium. The tree forwards them
// unchanged; they are never interpreted as a missing entry.
type NodeStore interface {
	// Get returns the data stored under the given key and whether the key is
	// present.
	Get(key []byte) ([]byte, bool, error)

	// Put stores the given data under the given key.
	Put(key, data []byte) error
}

// MapStore is an in-memory NodeStore backed by a plain map. It is the default
// store for tests and for pre-state snapshots held entirely in memory.
type MapStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMapStore() *MapStore {
	return &MapStore{data: map[string][]byte{}}
}

func (s *MapStore) Get(key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, found := s.data[string(key)]
	return data, found, nil
}

func (s *MapStore) Put(key, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[string(key)] = append([]byte(nil), data...)
	return nil
}

// Len returns the number of stored entries.
func (s *MapStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// OverlayStore is a two-layer NodeStore used for copy-on-write execution: all
// writes land in a private in-memory delta while reads fall through to a
// shared base. Discarding the delta discards every mutation; Flush commits the
// delta to the base as one batch. Multiple OverlayStores may share the same
// base, which is never written to before Flush.
type OverlayStore struct {
	base  NodeStore
	delta *MapStore
}

func NewOverlayStore(base NodeStore) *OverlayStore {
	return &OverlayStore{base: base, delta: NewMapStore()}
}

func (s *OverlayStore) Get(key []byte) ([]byte, bool, error) {
	if data, found, err := s.delta.Get(key); found || err != nil {
		return data, found, err
	}
	return s.base.Get(key)
}

func (s *OverlayStore) Put(key, data []byte) error {
	return s.delta.Put(key, data)
}

// Flush writes the buffered delta into the base store and clears the delta.
func (s *OverlayStore) Flush() error {
	s.delta.mu.Lock()
	defer s.delta.mu.Unlock()
	for key, data := range s.delta.data {
		if err := s.base.Put([]byte(key), data); err != nil {
			return err
		}
	}
	s.delta.data = map[string][]byte{}
	return nil
}

// CachedStore decorates a NodeStore with a fixed-capacity LRU cache. Since
// entries are immutable, cached data can never go stale. Intended for stores
// with non-trivial read cost, such as the leveldb-backed store.
type CachedStore struct {
	backend NodeStore
	cache   *lru.Cache[string, []byte]
}

// NewCachedStore creates a CachedStore holding up to capacity entries. For
// efficiency reasons the capacity must be at least 2; smaller values are
// raised to 2.
func NewCachedStore(backend NodeStore, capacity int) *CachedStore {
	if capacity < 2 {
		capacity = 2
	}
	cache, err := lru.New[string, []byte](capacity)
	if err != nil {
		// lru.New only fails for non-positive sizes, which are filtered above.
		panic(err)
	}
	return &CachedStore{backend: backend, cache: cache}
}

func (s *CachedStore) Get(key []byte) ([]byte, bool, error) {
	if data, found := s.cache.Get(string(key)); found {
		return data, true, nil
	}
	data, found, err := s.backend.Get(key)
	if err != nil || !found {
		return nil, found, err
	}
	s.cache.Add(string(key), data)
	return data, true, nil
}

func (s *CachedStore) Put(key, data []byte) error {
	if err := s.backend.Put(key, data); err != nil {
		return err
	}
	s.cache.Add(string(key), data)
	return nil
}
