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

// Opcode is the operation selector of one decoded instruction. The set of
// opcodes is closed; the interpreter dispatches over it with a single switch.
type Opcode byte

// RegisterID identifies one of the interpreter's registers.
type RegisterID uint8

// Instruction is one decoded instruction as produced by an external decoder
// from a raw instruction word. A to D name operand registers; Imm carries an
// immediate value for the instruction forms that use one.
type Instruction struct {
	Op         Opcode
	A, B, C, D RegisterID
	Imm        uint32
}

// Code is a stream of decoded instructions, addressed by the program counter.
type Code []Instruction

const (
	// --- control flow ---

	NOOP Opcode = iota
	JMP         // pc := $A
	JNZ         // if $A != 0 { pc := $B }
	FLAG        // $flag := $A
	RET         // return from current frame with value $A
	RETD        // return from current frame with memory [$A, $A+$B)
	RVRT        // revert current frame with reason code $A

	// --- arithmetic and logic ---

	ADD    // $A := $B + $C
	SUB    // $A := $B - $C
	MUL    // $A := $B * $C
	DIV    // $A := $B / $C
	MOD    // $A := $B % $C
	EXP    // $A := $B ** $C
	SLL    // $A := $B << $C
	SRL    // $A := $B >> $C
	AND    // $A := $B & $C
	OR     // $A := $B | $C
	XOR    // $A := $B ^ $C
	NOT    // $A := ^$B
	EQ     // $A := $B == $C
	LT     // $A := $B < $C
	GT     // $A := $B > $C
	MOVE   // $A := $B
	MULDIV // $A := ($B * $C) / $D computed in 256 bit

	// --- arithmetic with immediate ---

	ADDI // $A := $B + imm
	SUBI // $A := $B - imm
	MULI // $A := $B * imm
	DIVI // $A := $B / imm
	ANDI // $A := $B & imm
	ORI  // $A := $B | imm
	XORI // $A := $B ^ imm
	SLLI // $A := $B << imm
	SRLI // $A := $B >> imm
	MOVI // $A := imm

	// --- memory ---

	LB   // $A := mem[$B+imm], one byte zero-extended
	LW   // $A := mem[$B+imm : +8], big endian
	SB   // mem[$A+imm] := lowest byte of $B
	SW   // mem[$A+imm : +8] := $B, big endian
	ALOC // grow the heap by $A bytes, $hp moves down
	CFE  // extend the stack of the current frame by $A bytes
	CFS  // shrink the stack of the current frame by $A bytes
	MCP  // copy $C bytes from mem[$B] to mem[$A]
	MCL  // clear $B bytes at mem[$A]
	MEQ  // $A := mem[$B:$B+$D] == mem[$C:$C+$D]

	// --- storage ---

	SRW // read storage word at key mem[$C:+32] into mem[$A:+32], $B := existed
	SWW // write mem[$C:+32] to storage at key mem[$A:+32], $B := existed
	SCW // clear storage at key mem[$A:+32], $B := existed

	// --- crypto ---

	K256 // mem[$A:+32] := keccak256(mem[$B:$B+$C])
	S256 // mem[$A:+32] := sha256(mem[$B:$B+$C])
	ECR  // mem[$A:+64] := secp256k1-recover(sig mem[$B:+65], digest mem[$C:+32])

	// --- contract calls and logging ---

	CALL // call contract id mem[$A:+32] with gas $B and input mem[$C:$C+$D]
	RDC  // copy return data [$B, $B+$C) of the last call to mem[$A]
	LOG  // append a log receipt carrying $A, $B, $C
	LOGD // append a log receipt carrying $A, $B and data mem[$C:$C+$D]

	numOpcodes int = iota
)

// NumOpcodes is the number of defined opcodes. Opcode values at or above this
// bound are invalid and trigger a Panic(invalid-opcode) fault.
const NumOpcodes = numOpcodes

var opcodeNames = map[Opcode]string{
	NOOP: "NOOP", JMP: "JMP", JNZ: "JNZ", FLAG: "FLAG",
	RET: "RET", RETD: "RETD", RVRT: "RVRT",
	ADD: "ADD", SUB: "SUB", MUL: "MUL", DIV: "DIV", MOD: "MOD", EXP: "EXP",
	SLL: "SLL", SRL: "SRL", AND: "AND", OR: "OR", XOR: "XOR", NOT: "NOT",
	EQ: "EQ", LT: "LT", GT: "GT", MOVE: "MOVE", MULDIV: "MULDIV",
	ADDI: "ADDI", SUBI: "SUBI", MULI: "MULI", DIVI: "DIVI", ANDI: "ANDI",
	ORI: "ORI", XORI: "XORI", SLLI: "SLLI", SRLI: "SRLI", MOVI: "MOVI",
	LB: "LB", LW: "LW", SB: "SB", SW: "SW", ALOC: "ALOC", CFE: "CFE",
	CFS: "CFS", MCP: "MCP", MCL: "MCL", MEQ: "MEQ",
	SRW: "SRW", SWW: "SWW", SCW: "SCW",
	K256: "K256", S256: "S256", ECR: "ECR",
	CALL: "CALL", RDC: "RDC", LOG: "LOG", LOGD: "LOGD",
}

func (op Opcode) String() string {
	if name, found := opcodeNames[op]; found {
		return name
	}
	return fmt.Sprintf("op(0x%02X)", byte(op))
}

func (i Instruction) String() string {
	return fmt.Sprintf("%v r%d r%d r%d r%d %d", i.Op, i.A, i.B, i.C, i.D, i.Imm)
}

// The reserved registers. Registers 0 and 1 hold the immutable constants zero
// and one; the remaining reserved registers are maintained exclusively by the
// execution loop. Instructions naming a reserved register as a write target
// fault with Panic(reserved-register); FLAG is the only sanctioned way to
// modify $flag.
const (
	RegZero   RegisterID = iota // < immutable constant 0
	RegOne                      // < immutable constant 1
	RegOF                       // < overflow / carry of the last wrapping operation
	RegPC                       // < program counter of the current frame
	RegSSP                      // < stack base of the current frame
	RegSP                       // < stack pointer, first byte past the stack
	RegFP                       // < frame pointer, start of the frame input data
	RegHP                       // < heap pointer, first byte of the heap
	RegErr                      // < error flag of the last unsafe-math operation
	RegGGas                     // < remaining gas of the whole execution
	RegCGas                     // < remaining gas of the current frame
	RegRet                      // < return value of the last RET / call status
	RegRetLen                   // < length of the return data of the last call
	RegFlag                     // < runtime flags, set via FLAG

	// NumReservedRegisters is the boundary between reserved and
	// general-purpose registers.
	NumReservedRegisters RegisterID = 16
)

// NumRegisters is the size of the register file.
const NumRegisters = 64

// Runtime flag bits held in $flag.
const (
	// FlagUnsafeMath disables panics on division faults; $err is set instead.
	FlagUnsafeMath uint64 = 1 << 0
	// FlagWrapping disables panics on arithmetic overflow; $of is set instead.
	FlagWrapping uint64 = 1 << 1
)

var registerNames = map[RegisterID]string{
	RegZero: "$zero", RegOne: "$one", RegOF: "$of", RegPC: "$pc",
	RegSSP: "$ssp", RegSP: "$sp", RegFP: "$fp", RegHP: "$hp",
	RegErr: "$err", RegGGas: "$ggas", RegCGas: "$cgas",
	RegRet: "$ret", RegRetLen: "$retl", RegFlag: "$flag",
}

func (r RegisterID) String() string {
	if name, found := registerNames[r]; found {
		return name
	}
	return fmt.Sprintf("r%d", uint8(r))
}
