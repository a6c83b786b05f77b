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

// ReceiptKind tags the variants of the receipt log.
type ReceiptKind byte

const (
	ReceiptCall       ReceiptKind = iota // < a nested call was started
	ReceiptReturn                        // < a frame returned with a register value
	ReceiptReturnData                    // < a frame returned with a memory range
	ReceiptLog                           // < LOG instruction, registers only
	ReceiptLogData                       // < LOGD instruction, registers plus data
	ReceiptRevert                        // < a frame reverted
	ReceiptPanic                         // < the execution panicked
	ReceiptResult                        // < terminal receipt of the whole execution
)

func (k ReceiptKind) String() string {
	switch k {
	case ReceiptCall:
		return "call"
	case ReceiptReturn:
		return "return"
	case ReceiptReturnData:
		return "return_data"
	case ReceiptLog:
		return "log"
	case ReceiptLogData:
		return "log_data"
	case ReceiptRevert:
		return "revert"
	case ReceiptPanic:
		return "panic"
	case ReceiptResult:
		return "result"
	}
	return fmt.Sprintf("ReceiptKind(%d)", byte(k))
}

// Receipt is one entry of the ordered, append-only log of observable events
// produced during an execution. The set of populated fields depends on Kind.
// Receipts are consumed by external indexing and auditing; their order is part
// of the deterministic result of an execution.
type Receipt struct {
	Kind ReceiptKind

	From ContractID // < Call: calling contract
	To   ContractID // < Call: callee; otherwise the emitting contract

	Gas Gas    // < Call: forwarded gas; Result: gas used
	PC  uint64 // < program counter at the emitting instruction

	Val  uint64 // < Return: value; Revert: reason; Log/LogData: register A
	ValB uint64 // < Log/LogData: register B
	ValC uint64 // < Log: register C

	Data Data // < ReturnData / LogData payload

	Fault FaultKind // < Panic: the fault that unwound the execution
	Root  Hash      // < Return of a writing frame and Result: storage root
}

func (r Receipt) String() string {
	switch r.Kind {
	case ReceiptCall:
		return fmt.Sprintf("call %v -> %v gas=%d", r.From, r.To, r.Gas)
	case ReceiptReturn:
		return fmt.Sprintf("return %v val=%d", r.To, r.Val)
	case ReceiptReturnData:
		return fmt.Sprintf("return_data %v len=%d", r.To, len(r.Data))
	case ReceiptLog:
		return fmt.Sprintf("log %v %d %d %d", r.To, r.Val, r.ValB, r.ValC)
	case ReceiptLogData:
		return fmt.Sprintf("log_data %v %d %d len=%d", r.To, r.Val, r.ValB, len(r.Data))
	case ReceiptRevert:
		return fmt.Sprintf("revert %v reason=%d", r.To, r.Val)
	case ReceiptPanic:
		return fmt.Sprintf("panic %v fault=%v pc=%d", r.To, r.Fault, r.PC)
	case ReceiptResult:
		return fmt.Sprintf("result gas_used=%d root=%v", r.Gas, r.Root)
	}
	return fmt.Sprintf("receipt(%d)", byte(r.Kind))
}
