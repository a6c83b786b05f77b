// Copyright (c) 2025 Vex Labs
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at vexvm.dev/bsl11.
//
// Change Date: 2029-6-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package rvm

import (
	"sync"

	"github.com/vexvm/vex/vm"
)

// memory is the byte-addressable arena of one execution. The address space is
// [0, max); the stack occupies [0, stackSize) and grows upward, the heap
// occupies [heapStart, max) and grows downward. The gap in between is
// unallocated, any access touching it is a fault. Only the two ends are
// physically backed, so a small program never pays for the full address space.
type memory struct {
	stack []byte
	heap  []byte // heap[0] is the byte at address heapStart
	max   uint64
}

var memoryPool = sync.Pool{
	New: func() any {
		return &memory{}
	},
}

func getMemory(max uint64) *memory {
	m := memoryPool.Get().(*memory)
	m.stack = m.stack[:0]
	m.heap = m.heap[:0]
	m.max = max
	return m
}

func returnMemory(m *memory) {
	memoryPool.Put(m)
}

func (m *memory) stackSize() uint64 {
	return uint64(len(m.stack))
}

func (m *memory) heapStart() uint64 {
	return m.max - uint64(len(m.heap))
}

// access returns the backing bytes of [offset, offset+length). The range must
// lie entirely within the stack or entirely within the heap; the returned
// slice is writable. Length zero is always valid.
func (m *memory) access(offset, length uint64) ([]byte, vm.FaultKind) {
	if length == 0 {
		return nil, vm.FaultNone
	}
	end := offset + length
	if end < offset || end > m.max {
		return nil, vm.FaultMemoryOutOfBounds
	}
	if end <= m.stackSize() {
		return m.stack[offset:end], vm.FaultNone
	}
	if start := m.heapStart(); offset >= start {
		return m.heap[offset-start : end-start], vm.FaultNone
	}
	return nil, vm.FaultMemoryOutOfBounds
}

// growStack extends the stack by n zeroed bytes. Growing into the heap region
// is a fault.
func (m *memory) growStack(n uint64) vm.FaultKind {
	if n == 0 {
		return vm.FaultNone
	}
	size := m.stackSize()
	newSize := size + n
	if newSize < size || newSize > m.heapStart() {
		return vm.FaultMemoryOvergrowth
	}
	if uint64(cap(m.stack)) >= newSize {
		m.stack = m.stack[:newSize]
		clear(m.stack[size:])
	} else {
		m.stack = append(m.stack, make([]byte, n)...)
	}
	return vm.FaultNone
}

// shrinkStack releases the top n bytes of the stack. The stack of a frame can
// not shrink below the frame's own base.
func (m *memory) shrinkStack(n, base uint64) vm.FaultKind {
	size := m.stackSize()
	if n > size || size-n < base {
		return vm.FaultInvalidOperand
	}
	m.stack = m.stack[:size-n]
	return vm.FaultNone
}

// allocHeap grows the heap by n zeroed bytes; the heap start moves down.
// Growing into the stack region is a fault.
func (m *memory) allocHeap(n uint64) vm.FaultKind {
	if n == 0 {
		return vm.FaultNone
	}
	start := m.heapStart()
	if n > start || start-n < m.stackSize() {
		return vm.FaultMemoryOvergrowth
	}
	grown := make([]byte, int(n), int(n)+len(m.heap))
	m.heap = append(grown, m.heap...)
	return vm.FaultNone
}

// truncate releases everything beyond the given stack size and below the given
// heap start. Used when a call frame is popped; the pointers stem from the
// caller's saved registers and are always within the callee's regions.
func (m *memory) truncate(stackSize, heapStart uint64) {
	if stackSize <= m.stackSize() {
		m.stack = m.stack[:stackSize]
	}
	if start := m.heapStart(); heapStart >= start {
		m.heap = m.heap[heapStart-start:]
	}
}
