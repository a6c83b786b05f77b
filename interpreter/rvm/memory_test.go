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
	"testing"

	"github.com/vexvm/vex/vm"
)

func TestMemory_FreshArenaIsEmpty(t *testing.T) {
	m := getMemory(1024)
	defer returnMemory(m)
	if m.stackSize() != 0 {
		t.Errorf("expected an empty stack, got %d bytes", m.stackSize())
	}
	if m.heapStart() != 1024 {
		t.Errorf("expected the heap start at the cap, got %d", m.heapStart())
	}
}

func TestMemory_AccessChecks(t *testing.T) {
	m := getMemory(1024)
	defer returnMemory(m)
	if fault := m.growStack(100); fault != vm.FaultNone {
		t.Fatalf("failed to grow stack: %v", fault)
	}
	if fault := m.allocHeap(100); fault != vm.FaultNone {
		t.Fatalf("failed to grow heap: %v", fault)
	}

	tests := map[string]struct {
		offset, length uint64
		fault          vm.FaultKind
	}{
		"inside the stack":          {0, 100, vm.FaultNone},
		"stack suffix":              {90, 10, vm.FaultNone},
		"inside the heap":           {924, 100, vm.FaultNone},
		"heap prefix":               {924, 1, vm.FaultNone},
		"zero length anywhere":      {500, 0, vm.FaultNone},
		"crossing into the gap":     {90, 20, vm.FaultMemoryOutOfBounds},
		"entirely in the gap":       {500, 8, vm.FaultMemoryOutOfBounds},
		"gap into the heap":         {920, 10, vm.FaultMemoryOutOfBounds},
		"beyond the cap":            {1020, 10, vm.FaultMemoryOutOfBounds},
		"offset overflow":           {^uint64(0) - 4, 10, vm.FaultMemoryOutOfBounds},
		"spanning stack gap heap":   {0, 1024, vm.FaultMemoryOutOfBounds},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			_, fault := m.access(test.offset, test.length)
			if fault != test.fault {
				t.Errorf("expected fault %v, got %v", test.fault, fault)
			}
		})
	}
}

func TestMemory_GrowthIsZeroed(t *testing.T) {
	m := getMemory(1024)
	if fault := m.growStack(8); fault != vm.FaultNone {
		t.Fatalf("failed to grow stack: %v", fault)
	}
	for i := range m.stack {
		m.stack[i] = 0xff
	}
	m.stack = m.stack[:0]
	returnMemory(m)

	// A pooled arena must not leak previous contents.
	m = getMemory(1024)
	defer returnMemory(m)
	if fault := m.growStack(8); fault != vm.FaultNone {
		t.Fatalf("failed to grow stack: %v", fault)
	}
	for i, b := range m.stack {
		if b != 0 {
			t.Fatalf("stack byte %d not zeroed, got %x", i, b)
		}
	}
}

func TestMemory_StackAndHeapCollision(t *testing.T) {
	m := getMemory(100)
	defer returnMemory(m)
	if fault := m.growStack(60); fault != vm.FaultNone {
		t.Fatalf("failed to grow stack: %v", fault)
	}
	if fault := m.allocHeap(30); fault != vm.FaultNone {
		t.Fatalf("failed to grow heap: %v", fault)
	}
	if fault := m.growStack(20); fault != vm.FaultMemoryOvergrowth {
		t.Errorf("stack growing into the heap should fault, got %v", fault)
	}
	if fault := m.allocHeap(20); fault != vm.FaultMemoryOvergrowth {
		t.Errorf("heap growing into the stack should fault, got %v", fault)
	}
	if fault := m.growStack(10); fault != vm.FaultNone {
		t.Errorf("filling the gap exactly should work, got %v", fault)
	}
}

func TestMemory_HeapKeepsContentOnGrowth(t *testing.T) {
	m := getMemory(1024)
	defer returnMemory(m)
	if fault := m.allocHeap(8); fault != vm.FaultNone {
		t.Fatalf("failed to grow heap: %v", fault)
	}
	data, fault := m.access(m.heapStart(), 8)
	if fault != vm.FaultNone {
		t.Fatalf("failed to access heap: %v", fault)
	}
	copy(data, []byte{1, 2, 3, 4, 5, 6, 7, 8})

	if fault := m.allocHeap(8); fault != vm.FaultNone {
		t.Fatalf("failed to grow heap: %v", fault)
	}
	data, fault = m.access(m.heapStart()+8, 8)
	if fault != vm.FaultNone {
		t.Fatalf("failed to access heap: %v", fault)
	}
	for i, b := range data {
		if b != byte(i+1) {
			t.Fatalf("heap content lost on growth at byte %d: %x", i, b)
		}
	}
	// The freshly allocated region is zeroed.
	data, _ = m.access(m.heapStart(), 8)
	for i, b := range data {
		if b != 0 {
			t.Fatalf("new heap region not zeroed at byte %d: %x", i, b)
		}
	}
}

func TestMemory_ShrinkStack(t *testing.T) {
	m := getMemory(1024)
	defer returnMemory(m)
	if fault := m.growStack(100); fault != vm.FaultNone {
		t.Fatalf("failed to grow stack: %v", fault)
	}
	if fault := m.shrinkStack(40, 50); fault != vm.FaultNone {
		t.Errorf("shrinking above the frame base should work, got %v", fault)
	}
	if fault := m.shrinkStack(20, 50); fault != vm.FaultInvalidOperand {
		t.Errorf("shrinking below the frame base should fault, got %v", fault)
	}
	if fault := m.shrinkStack(200, 0); fault != vm.FaultInvalidOperand {
		t.Errorf("shrinking below zero should fault, got %v", fault)
	}
}

func TestMemory_TruncateReleasesFrameRegions(t *testing.T) {
	m := getMemory(1024)
	defer returnMemory(m)
	if fault := m.growStack(100); fault != vm.FaultNone {
		t.Fatalf("failed to grow stack: %v", fault)
	}
	if fault := m.allocHeap(100); fault != vm.FaultNone {
		t.Fatalf("failed to grow heap: %v", fault)
	}

	m.truncate(40, 1000)
	if m.stackSize() != 40 {
		t.Errorf("expected stack size 40, got %d", m.stackSize())
	}
	if m.heapStart() != 1000 {
		t.Errorf("expected heap start 1000, got %d", m.heapStart())
	}
}
