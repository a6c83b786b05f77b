// Copyright (c) 2025 Vex Labs
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at vexvm.dev/bsl11.
//
// Change Date: 2029-6-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package vm

import (
	"strings"
	"testing"
)

func TestOpcode_AllOpcodesHaveAName(t *testing.T) {
	for op := 0; op < NumOpcodes; op++ {
		if name := Opcode(op).String(); strings.HasPrefix(name, "op(") {
			t.Errorf("missing name for opcode %d", op)
		}
	}
	if name := Opcode(200).String(); name != "op(0xC8)" {
		t.Errorf("unexpected name for an unknown opcode: %s", name)
	}
}

func TestOpcode_NamesAreUnique(t *testing.T) {
	seen := map[string]Opcode{}
	for op := 0; op < NumOpcodes; op++ {
		name := Opcode(op).String()
		if other, found := seen[name]; found {
			t.Errorf("opcodes %d and %d share the name %s", other, op, name)
		}
		seen[name] = Opcode(op)
	}
}

func TestRegisterID_ReservedRegistersHaveNames(t *testing.T) {
	named := 0
	for r := RegisterID(0); r < NumReservedRegisters; r++ {
		if !strings.HasPrefix(r.String(), "r") {
			named++
		}
	}
	if named != len(registerNames) {
		t.Errorf("expected %d named registers, got %d", len(registerNames), named)
	}
	if got := NumReservedRegisters.String(); got != "r16" {
		t.Errorf("general-purpose registers use index names, got %s", got)
	}
}

func TestInstruction_StringIncludesTheOpcode(t *testing.T) {
	inst := Instruction{Op: ADD, A: 16, B: 17, C: 18}
	if got := inst.String(); !strings.HasPrefix(got, "ADD") {
		t.Errorf("unexpected rendering: %s", got)
	}
}
