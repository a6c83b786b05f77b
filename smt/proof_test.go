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
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vexvm/vex/vm"
)

func TestProof_MembershipVerifies(t *testing.T) {
	tree := NewTree(NewMapStore())
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, name := range names {
		_, err := tree.Update(testKey(name), []byte("value of "+name))
		require.NoError(t, err)
	}
	root := tree.Root()

	for _, name := range names {
		key := testKey(name)
		proof, err := tree.Prove(key)
		require.NoError(t, err)
		require.Nil(t, proof.ConflictingLeaf)
		require.True(t, VerifyProof(root, key, []byte("value of "+name), proof))
	}
}

func TestProof_NonMembershipOnEmptyTree(t *testing.T) {
	tree := NewTree(NewMapStore())
	key := testKey("anything")
	proof, err := tree.Prove(key)
	require.NoError(t, err)
	require.Empty(t, proof.SideNodes)
	require.True(t, VerifyProof(tree.Root(), key, nil, proof))
}

func TestProof_NonMembershipVerifies(t *testing.T) {
	tree := NewTree(NewMapStore())
	for i := 0; i < 16; i++ {
		_, err := tree.Update(testKey(fmt.Sprintf("present-%d", i)), []byte{byte(i)})
		require.NoError(t, err)
	}
	root := tree.Root()

	for i := 0; i < 16; i++ {
		key := testKey(fmt.Sprintf("absent-%d", i))
		proof, err := tree.Prove(key)
		require.NoError(t, err)
		require.True(t, VerifyProof(root, key, nil, proof))
		// An absence proof does not certify any value.
		require.False(t, VerifyProof(root, key, []byte("some value"), proof))
	}
}

func TestProof_ConflictingLeafNonMembership(t *testing.T) {
	tree := NewTree(NewMapStore())
	_, err := tree.Update(testKey("only"), []byte("1"))
	require.NoError(t, err)

	// A single-leaf tree collapses to the leaf, so any other key's path ends
	// at a leaf bound to a foreign key.
	key := testKey("other")
	proof, err := tree.Prove(key)
	require.NoError(t, err)
	require.NotNil(t, proof.ConflictingLeaf)
	require.True(t, VerifyProof(tree.Root(), key, nil, proof))
}

func TestProof_MembershipWithWrongValueFails(t *testing.T) {
	tree := NewTree(NewMapStore())
	key := testKey("a")
	_, err := tree.Update(key, []byte("correct"))
	require.NoError(t, err)

	proof, err := tree.Prove(key)
	require.NoError(t, err)
	require.True(t, VerifyProof(tree.Root(), key, []byte("correct"), proof))
	require.False(t, VerifyProof(tree.Root(), key, []byte("forged"), proof))
	require.False(t, VerifyProof(tree.Root(), key, nil, proof))
}

func TestProof_AnyFlippedByteFails(t *testing.T) {
	tree := NewTree(NewMapStore())
	for _, name := range []string{"a", "b", "c", "d"} {
		_, err := tree.Update(testKey(name), []byte("value of "+name))
		require.NoError(t, err)
	}
	root := tree.Root()
	key := testKey("a")
	value := []byte("value of a")
	proof, err := tree.Prove(key)
	require.NoError(t, err)
	require.True(t, VerifyProof(root, key, value, proof))

	for i := range root {
		flipped := root
		flipped[i] ^= 1
		require.False(t, VerifyProof(flipped, key, value, proof), "flipped root byte %d", i)
	}
	for i := range key {
		flipped := key
		flipped[i] ^= 1
		require.False(t, VerifyProof(root, flipped, value, proof), "flipped key byte %d", i)
	}
	for i := range value {
		flipped := append([]byte(nil), value...)
		flipped[i] ^= 1
		require.False(t, VerifyProof(root, key, flipped, proof), "flipped value byte %d", i)
	}
	for n, side := range proof.SideNodes {
		for i := range side {
			forged := Proof{SideNodes: append([]vm.Hash(nil), proof.SideNodes...)}
			forged.SideNodes[n][i] ^= 1
			require.False(t, VerifyProof(root, key, value, forged), "flipped byte %d of side node %d", i, n)
		}
	}
}

func TestProof_FlippedConflictingLeafFails(t *testing.T) {
	tree := NewTree(NewMapStore())
	_, err := tree.Update(testKey("only"), []byte("1"))
	require.NoError(t, err)
	root := tree.Root()
	key := testKey("other")
	proof, err := tree.Prove(key)
	require.NoError(t, err)
	require.True(t, VerifyProof(root, key, nil, proof))

	for i := range proof.ConflictingLeaf {
		forged := Proof{
			SideNodes:       proof.SideNodes,
			ConflictingLeaf: append([]byte(nil), proof.ConflictingLeaf...),
		}
		forged.ConflictingLeaf[i] ^= 1
		require.False(t, VerifyProof(root, key, nil, forged), "flipped conflicting leaf byte %d", i)
	}
}

func TestProof_ConflictingLeafForPresentKeyRejected(t *testing.T) {
	tree := NewTree(NewMapStore())
	key := testKey("a")
	_, err := tree.Update(key, []byte("1"))
	require.NoError(t, err)

	proof, err := tree.Prove(key)
	require.NoError(t, err)
	// A membership claim must not smuggle in a conflicting leaf.
	proof.ConflictingLeaf = encodeLeaf(testKey("b"), hashValue([]byte("1")))
	require.False(t, VerifyProof(tree.Root(), key, []byte("1"), proof))
}

func TestProof_OverlongProofRejected(t *testing.T) {
	proof := Proof{SideNodes: make([]vm.Hash, treeDepth+1)}
	require.False(t, VerifyProof(vm.Hash{}, testKey("a"), nil, proof))
}
