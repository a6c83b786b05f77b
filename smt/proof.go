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

import "github.com/vexvm/vex/vm"

// Proof is a succinct membership (or non-membership) proof for one key. It
// carries the sibling hashes needed to recompute the root from the leaf; the
// number of siblings equals the depth of the materialized path for that key.
type Proof struct {
	// SideNodes are the sibling hashes on the path, ordered from the leaf up
	// to the root.
	SideNodes []vm.Hash

	// ConflictingLeaf is only set in a non-membership proof whose path ends
	// at a leaf bound to a different key. It holds that leaf's encoding.
	ConflictingLeaf []byte
}

// Prove generates a proof for the given key against the current root. If the
// key is absent, the returned proof is a non-membership proof, verifiable
// with an empty value.
func (t *Tree) Prove(key vm.Hash) (Proof, error) {
	sideNodes, leaf, err := t.walk(key)
	if err != nil {
		return Proof{}, err
	}
	// walk reports siblings root to leaf; the wire format is leaf to root.
	ordered := make([]vm.Hash, len(sideNodes))
	for i, side := range sideNodes {
		ordered[len(sideNodes)-1-i] = side
	}
	proof := Proof{SideNodes: ordered}
	if leaf != nil && leafKey(leaf) != key {
		proof.ConflictingLeaf = append([]byte(nil), leaf...)
	}
	return proof, nil
}

// VerifyProof recomputes the root from the claimed (key, value) pair and the
// supplied sibling hashes and compares it against the given root. An empty
// value claims non-membership of the key. Any altered byte in the key, value,
// or proof makes the verification fail.
func VerifyProof(root vm.Hash, key vm.Hash, value []byte, proof Proof) bool {
	if len(proof.SideNodes) > treeDepth {
		return false
	}

	var current vm.Hash
	if len(value) == 0 {
		// Non-membership: the path must end in a placeholder or in a leaf
		// that belongs to a different key.
		if len(proof.ConflictingLeaf) == 0 {
			current = placeholder
		} else {
			if !isLeaf(proof.ConflictingLeaf) || leafKey(proof.ConflictingLeaf) == key {
				return false
			}
			current = hashNode(proof.ConflictingLeaf)
		}
	} else {
		if proof.ConflictingLeaf != nil {
			return false
		}
		current = hashNode(encodeLeaf(key, hashValue(value)))
	}

	depth := len(proof.SideNodes)
	for i, side := range proof.SideNodes {
		if bitAt(key, depth-1-i) == 0 {
			current = hashNode(encodeInner(current, side))
		} else {
			current = hashNode(encodeInner(side, current))
		}
	}
	return current == root
}
