// Copyright (c) 2025 Vex Labs
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at vexvm.dev/bsl11.
//
// Change Date: 2029-6-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package smt implements the sparse Merkle tree that backs persistent
// contract state: a binary hash tree over the full 256-bit key space in which
// empty subtrees are represented by a canonical placeholder and subtrees
// holding a single leaf are collapsed to that leaf. The root is a pure
// function of the current key→value mapping, independent of the order of
// inserts and deletes that produced it.
package smt

import (
	"fmt"

	"github.com/vexvm/vex/vm"
)

// treeDepth is the bit length of a key and thereby the maximum depth of the
// tree. Thanks to placeholder subtrees and leaf collapsing, materialized
// paths are only as deep as needed to separate the present keys.
const treeDepth = 256

const errCorruptedStore = vm.ConstError("corrupted node store")

// Tree is a sparse Merkle tree rooted at a single 32-byte commitment. All
// nodes live in the underlying NodeStore; the Tree itself only tracks the
// current root, so retaining an old root hash is a complete snapshot of a
// prior state. A Tree is not safe for concurrent mutation; concurrent readers
// of a shared store must use separate Tree instances.
type Tree struct {
	store NodeStore
	root  vm.Hash
}

// NewTree creates an empty tree on the given store. The root of an empty tree
// is the all-zero placeholder hash.
func NewTree(store NodeStore) *Tree {
	return &Tree{store: store}
}

// NewTreeAt creates a tree view of a previously committed state identified by
// its root. All nodes reachable from the root must be present in the store.
func NewTreeAt(store NodeStore, root vm.Hash) *Tree {
	return &Tree{store: store, root: root}
}

// Root returns the current root commitment.
func (t *Tree) Root() vm.Hash {
	return t.root
}

// SetRoot moves the tree to a previously observed root. Since nodes are
// immutable and never removed from the store, this restores the exact state
// the root was obtained from.
func (t *Tree) SetRoot(root vm.Hash) {
	t.root = root
}

// Store exposes the underlying node store.
func (t *Tree) Store() NodeStore {
	return t.store
}

// Get returns the value stored under the given key, or found=false if the key
// is not present.
func (t *Tree) Get(key vm.Hash) ([]byte, bool, error) {
	_, leaf, err := t.walk(key)
	if err != nil {
		return nil, false, err
	}
	if leaf == nil || leafKey(leaf) != key {
		return nil, false, nil
	}
	value, found, err := t.store.Get(valueKey(leafValueHash(leaf)))
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, fmt.Errorf("%w: missing value for leaf %v", errCorruptedStore, key)
	}
	return value, true, nil
}

// Has reports whether the given key is present.
func (t *Tree) Has(key vm.Hash) (bool, error) {
	_, leaf, err := t.walk(key)
	if err != nil {
		return false, err
	}
	return leaf != nil && leafKey(leaf) == key, nil
}

// Update inserts or overwrites the value stored under the given key and
// returns the new root. An empty value is equivalent to a Delete. Only the
// nodes on the path from the changed leaf to the root are rewritten; all
// unaffected siblings are shared with the previous version of the tree.
func (t *Tree) Update(key vm.Hash, value []byte) (vm.Hash, error) {
	if len(value) == 0 {
		return t.Delete(key)
	}
	sideNodes, oldLeaf, err := t.walk(key)
	if err != nil {
		return vm.Hash{}, err
	}

	valueHash := hashValue(value)
	if err := t.store.Put(valueKey(valueHash), value); err != nil {
		return vm.Hash{}, err
	}
	current, err := t.putNode(encodeLeaf(key, valueHash))
	if err != nil {
		return vm.Hash{}, err
	}

	depth := len(sideNodes)
	if oldLeaf != nil {
		if oldKey := leafKey(oldLeaf); oldKey != key {
			// The terminal position is occupied by a leaf of a different key.
			// Both leaves are pushed down to their first diverging bit, with
			// placeholder siblings on the levels in between.
			split := commonPrefixLen(key, oldKey)
			current, err = t.putInner(bitAt(key, split), current, hashNode(oldLeaf))
			if err != nil {
				return vm.Hash{}, err
			}
			for i := split; i > depth; i-- {
				current, err = t.putInner(bitAt(key, i-1), current, placeholder)
				if err != nil {
					return vm.Hash{}, err
				}
			}
		}
	}

	for i := depth - 1; i >= 0; i-- {
		current, err = t.putInner(bitAt(key, i), current, sideNodes[i])
		if err != nil {
			return vm.Hash{}, err
		}
	}
	t.root = current
	return current, nil
}

// Delete removes the leaf stored under the given key and returns the new
// root. Deleting an absent key leaves the root unchanged. Subtrees that
// collapse to a single leaf are compacted, so the resulting root equals the
// root of a tree built without the deleted key in the first place.
func (t *Tree) Delete(key vm.Hash) (vm.Hash, error) {
	sideNodes, leaf, err := t.walk(key)
	if err != nil {
		return vm.Hash{}, err
	}
	if leaf == nil || leafKey(leaf) != key {
		return t.root, nil
	}

	current := placeholder
	combining := false
	for i := len(sideNodes) - 1; i >= 0; i-- {
		side := sideNodes[i]
		if !combining {
			if side == placeholder {
				// The sibling subtree is empty as well; this level vanishes.
				continue
			}
			data, found, err := t.store.Get(side[:])
			if err != nil {
				return vm.Hash{}, err
			}
			if !found {
				return vm.Hash{}, fmt.Errorf("%w: missing node %v", errCorruptedStore, side)
			}
			if current == placeholder && isLeaf(data) {
				// The sibling is a lone leaf; it rises to replace the
				// emptied levels.
				current = side
				continue
			}
			combining = true
		}
		current, err = t.putInner(bitAt(key, i), current, side)
		if err != nil {
			return vm.Hash{}, err
		}
	}
	t.root = current
	return current, nil
}

// walk descends from the root along the path selected by the key bits and
// returns the sibling hashes seen on the way (ordered root to leaf) together
// with the encoding of the terminal leaf. The leaf is nil if the path ends in
// a placeholder; it may be bound to a different key sharing the traversed
// prefix.
func (t *Tree) walk(key vm.Hash) ([]vm.Hash, []byte, error) {
	var sideNodes []vm.Hash
	current := t.root
	for depth := 0; ; depth++ {
		if current == placeholder {
			return sideNodes, nil, nil
		}
		data, found, err := t.store.Get(current[:])
		if err != nil {
			return nil, nil, err
		}
		if !found {
			return nil, nil, fmt.Errorf("%w: missing node %v", errCorruptedStore, current)
		}
		if isLeaf(data) {
			return sideNodes, data, nil
		}
		if depth >= treeDepth {
			return nil, nil, fmt.Errorf("%w: path deeper than %d", errCorruptedStore, treeDepth)
		}
		left, right := innerChildren(data)
		if bitAt(key, depth) == 0 {
			sideNodes = append(sideNodes, right)
			current = left
		} else {
			sideNodes = append(sideNodes, left)
			current = right
		}
	}
}

func (t *Tree) putNode(data []byte) (vm.Hash, error) {
	hash := hashNode(data)
	if err := t.store.Put(hash[:], data); err != nil {
		return vm.Hash{}, err
	}
	return hash, nil
}

// putInner writes the inner node combining the node on the key path with its
// sibling; bit is the key bit at the level of the new node.
func (t *Tree) putInner(bit int, current, side vm.Hash) (vm.Hash, error) {
	if bit == 0 {
		return t.putNode(encodeInner(current, side))
	}
	return t.putNode(encodeInner(side, current))
}

// valueKey derives the store key of a raw value. Values are content-addressed
// like nodes but live in their own keyspace: node keys are 32 bytes, value
// keys 33.
func valueKey(valueHash vm.Hash) []byte {
	key := make([]byte, 0, 33)
	key = append(key, 'v')
	key = append(key, valueHash[:]...)
	return key
}
