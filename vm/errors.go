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

import "fmt"

// ConstError is an error type that can be used to define immutable error
// constants.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

// FaultKind enumerates the deterministic faults a program can trigger. A fault
// always terminates the entire top-level execution with a Panic outcome and
// discards every storage write made during that execution. Faults are caused
// by the executed program itself; infrastructure problems (e.g. an unreachable
// storage backend) are reported as ordinary Go errors instead.
type FaultKind byte

const (
	FaultNone              FaultKind = iota // < no fault, execution did not panic
	FaultInvalidOpcode                      // < unknown or unsupported opcode
	FaultReservedRegister                   // < instruction writes a reserved register
	FaultInvalidOperand                     // < operand outside its valid domain
	FaultMemoryOutOfBounds                  // < access outside the owned arena regions
	FaultMemoryOvergrowth                   // < stack/heap collision or arena cap exceeded
	FaultCallDepthOverflow                  // < call frame stack exceeded its bound
	FaultArithmetic                         // < division fault or disallowed overflow
	FaultOutOfGas                           // < instruction cost exceeds remaining gas
)

func (f FaultKind) String() string {
	switch f {
	case FaultNone:
		return "none"
	case FaultInvalidOpcode:
		return "invalid-opcode"
	case FaultReservedRegister:
		return "reserved-register"
	case FaultInvalidOperand:
		return "invalid-operand"
	case FaultMemoryOutOfBounds:
		return "memory-out-of-bounds"
	case FaultMemoryOvergrowth:
		return "memory-overgrowth"
	case FaultCallDepthOverflow:
		return "call-depth-overflow"
	case FaultArithmetic:
		return "arithmetic-fault"
	case FaultOutOfGas:
		return "out-of-gas"
	}
	return fmt.Sprintf("FaultKind(%d)", byte(f))
}
