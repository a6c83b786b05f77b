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

import "github.com/vexvm/vex/vm"

// registers is the register file of one call frame. It is a plain value type;
// a call saves the caller's file by copy and installs a fresh one for the
// callee. Reserved registers are only mutated by the execution loop, the
// write-target check happens at the dispatch boundary (see writeRegister).
type registers [vm.NumRegisters]uint64

// newRegisters returns a register file in its initial frame state: all zero
// except the constant-one register. The execution loop fills in the frame
// pointers and gas registers afterwards.
func newRegisters() registers {
	var regs registers
	regs[vm.RegOne] = 1
	return regs
}
