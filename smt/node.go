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
	"crypto/sha256"

	"github.com/vexvm/vex/vm"
)

// Node encoding. Nodes are immutable, content-addressed values: the hash of a
// node is the hash of its encoding, and encodings are stored under their hash.
// Updates never mutate a node in place; they produce a fresh path from the
// changed leaf to a new root and leave all unaffected siblings shared.
//
//	leaf:  0x00 ‖ key (32 bytes) ‖ hash of the value (32 bytes)
//	inner: 0x01 ‖ left child hash (32 bytes) ‖ right child hash (32 bytes)
//
// A leaf binds its full key, so a subtree holding exactly one leaf can be
// represented by the leaf itself without losing the key's position. Empty
// subtrees are represented by the placeholder hash, which is all zeroes and is
// never stored. The root of an empty tree is the placeholder.

const (
	leafPrefix  = byte(0)
	innerPrefix = byte(1)

	nodeEncodingSize = 65
)

// placeholder is the canonical hash of an empty subtree.
var placeholder = vm.Hash{}

func encodeLeaf(key vm.Hash, valueHash vm.Hash) []byte {
	data := make([]byte, 0, nodeEncodingSize)
	data = append(data, leafPrefix)
	data = append(data, key[:]...)
	data = append(data, valueHash[:]...)
	return data
}

func encodeInner(left, right vm.Hash) []byte {
	data := make([]byte, 0, nodeEncodingSize)
	data = append(data, innerPrefix)
	data = append(data, left[:]...)
	data = append(data, right[:]...)
	return data
}

func isLeaf(data []byte) bool {
	return len(data) == nodeEncodingSize && data[0] == leafPrefix
}

func leafKey(data []byte) (key vm.Hash) {
	copy(key[:], data[1:33])
	return
}

func leafValueHash(data []byte) (hash vm.Hash) {
	copy(hash[:], data[33:65])
	return
}

func innerChildren(data []byte) (left, right vm.Hash) {
	copy(left[:], data[1:33])
	copy(right[:], data[33:65])
	return
}

func hashNode(data []byte) vm.Hash {
	return sha256.Sum256(data)
}

func hashValue(value []byte) vm.Hash {
	return sha256.Sum256(value)
}

// bitAt returns the i-th bit of the key, most significant bit first. It
// selects the child taken at depth i: 0 descends left, 1 descends right.
func bitAt(key vm.Hash, i int) int {
	return int(key[i/8] >> (7 - i%8) & 1)
}

// commonPrefixLen returns the number of leading bits shared by two keys.
func commonPrefixLen(a, b vm.Hash) int {
	for i := 0; i < treeDepth; i++ {
		if bitAt(a, i) != bitAt(b, i) {
			return i
		}
	}
	return treeDepth
}
