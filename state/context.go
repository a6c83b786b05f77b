// Copyright (c) 2025 Vex Labs
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at vexvm.dev/bsl11.
//
// Change Date: 2029-6-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package state provides the per-transaction view of the storage engine: a
// copy-on-write overlay over a shared, immutable pre-state. Multiple contexts
// may execute in parallel against the same pre-state; each buffers its writes
// privately until Commit merges them as one atomic step.
package state

import (
	"crypto/sha256"
	"fmt"

	"github.com/vexvm/vex/smt"
	"github.com/vexvm/vex/vm"
)

// Context implements vm.RunContext for the execution of one transaction.
//
// All tree nodes are immutable and content-addressed, so a snapshot is simply
// the root hash at the time it was taken, and restoring one moves the root
// back; nodes written in between become unreachable garbage in the private
// overlay and are dropped with it. The shared base store is only written by
// Commit.
type Context struct {
	tree      *smt.Tree
	overlay   *smt.OverlayStore
	snapshots []vm.Hash
	codes     map[vm.ContractID]vm.Code
}

// NewContext creates an execution context on top of the pre-state identified
// by root in the given base store. An all-zero root denotes an empty
// pre-state.
func NewContext(base smt.NodeStore, root vm.Hash) *Context {
	overlay := smt.NewOverlayStore(base)
	return &Context{
		tree:    smt.NewTreeAt(overlay, root),
		overlay: overlay,
		codes:   map[vm.ContractID]vm.Code{},
	}
}

var _ vm.TransactionContext = (*Context)(nil)

// globalKey derives the engine-global storage key of a contract/key pair.
// Distinct contracts can never collide, since the contract id is part of the
// pre-image.
func globalKey(contract vm.ContractID, key vm.Key) vm.Hash {
	hasher := sha256.New()
	hasher.Write(contract[:])
	hasher.Write(key[:])
	var res vm.Hash
	hasher.Sum(res[:0])
	return res
}

func (c *Context) GetStorage(contract vm.ContractID, key vm.Key) (vm.Word, bool, error) {
	data, found, err := c.tree.Get(globalKey(contract, key))
	if err != nil || !found {
		return vm.Word{}, false, err
	}
	if len(data) != len(vm.Word{}) {
		return vm.Word{}, false, fmt.Errorf("invalid storage value of %d bytes for key %v", len(data), key)
	}
	var word vm.Word
	copy(word[:], data)
	return word, true, nil
}

func (c *Context) SetStorage(contract vm.ContractID, key vm.Key, value vm.Word) (bool, error) {
	global := globalKey(contract, key)
	existed, err := c.tree.Has(global)
	if err != nil {
		return false, err
	}
	if _, err := c.tree.Update(global, value[:]); err != nil {
		return false, err
	}
	return existed, nil
}

func (c *Context) RemoveStorage(contract vm.ContractID, key vm.Key) (bool, error) {
	global := globalKey(contract, key)
	existed, err := c.tree.Has(global)
	if err != nil {
		return false, err
	}
	if !existed {
		return false, nil
	}
	if _, err := c.tree.Delete(global); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Context) StorageRoot() vm.Hash {
	return c.tree.Root()
}

func (c *Context) CreateSnapshot() vm.Snapshot {
	c.snapshots = append(c.snapshots, c.tree.Root())
	return vm.Snapshot(len(c.snapshots) - 1)
}

func (c *Context) RestoreSnapshot(snapshot vm.Snapshot) {
	if snapshot < 0 || int(snapshot) >= len(c.snapshots) {
		return
	}
	c.tree.SetRoot(c.snapshots[snapshot])
	c.snapshots = c.snapshots[:snapshot]
}

// Commit flushes all buffered writes into the shared base store and returns
// the committed root. After a commit the context keeps operating on the new
// state; snapshots taken before the commit must no longer be restored.
func (c *Context) Commit() (vm.Hash, error) {
	if err := c.overlay.Flush(); err != nil {
		return vm.Hash{}, err
	}
	c.snapshots = c.snapshots[:0]
	return c.tree.Root(), nil
}

// SetCode registers the decoded code of a contract for nested calls. Code
// deployment and decoding are concerns of the surrounding system; the context
// only serves lookups.
func (c *Context) SetCode(contract vm.ContractID, code vm.Code) {
	c.codes[contract] = code
}

func (c *Context) GetCode(contract vm.ContractID) (vm.Code, error) {
	return c.codes[contract], nil
}
