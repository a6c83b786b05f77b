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
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// LevelStore is a NodeStore backed by a leveldb database. It is the durable
// backend for the committed pre-state between blocks; per-transaction overlays
// stack on top of it. Any database error is reported as a backend failure to
// the caller, it is never swallowed.
type LevelStore struct {
	db *leveldb.DB
}

// OpenLevelStore opens (or creates) a leveldb database at the given path.
func OpenLevelStore(path string) (*LevelStore, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open node store at %s: %w", path, err)
	}
	return &LevelStore{db: db}, nil
}

// NewMemoryLevelStore creates a LevelStore on top of leveldb's in-memory
// storage. Mainly useful for tests exercising the durable code path without
// touching the file system.
func NewMemoryLevelStore() (*LevelStore, error) {
	db, err := leveldb.Open(storage.NewMemStorage(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory node store: %w", err)
	}
	return &LevelStore{db: db}, nil
}

func (s *LevelStore) Get(key []byte) ([]byte, bool, error) {
	data, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("node store read failed: %w", err)
	}
	return data, true, nil
}

func (s *LevelStore) Put(key, data []byte) error {
	if err := s.db.Put(key, data, nil); err != nil {
		return fmt.Errorf("node store write failed: %w", err)
	}
	return nil
}

func (s *LevelStore) Close() error {
	return s.db.Close()
}
