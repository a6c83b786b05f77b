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
	"fmt"

	"github.com/vexvm/vex/vm"
)

// status is enumeration of the execution state of an interpreter run.
type status byte

const (
	statusRunning  status = iota // < all fine, instructions are processed
	statusReturned               // < the outermost frame returned (RET / RETD)
	statusReverted               // < the outermost frame reverted (RVRT)
	statusPanicked               // < a fault unwound the whole execution
	statusFailed                 // < aborted by an infrastructure failure
)

// context is the execution environment of an interpreter run. It contains all
// the necessary state to execute a program: the register file, the memory
// arena, and the stack of suspended caller frames. For each top-level
// execution, a new context is created; the register file and arena buffers are
// recycled through pools.
type context struct {
	// Inputs
	params  vm.Parameters
	context vm.RunContext

	// Execution state of the current frame
	status   status
	regs     registers
	memory   *memory
	contract vm.ContractID
	code     vm.Code

	// Suspended callers, innermost last. The current frame is not an element;
	// the active call depth is len(frames)+1.
	frames []frame

	// wroteStorage tracks whether the current frame's subtree touched storage;
	// it selects whether return receipts carry a root commitment.
	wroteStorage bool

	// entrySnapshot is the storage state before the first instruction; panics
	// and top-frame reverts roll back to it.
	entrySnapshot vm.Snapshot

	// Intermediate data
	returnData []byte // < the result of the last nested contract call

	// Results
	output     vm.Data
	revertCode uint64
	fault      vm.FaultKind
	refund     vm.Gas
	receipts   []vm.Receipt

	// err records an infrastructure failure, fatal to the whole run.
	err error

	maxCallDepth int
}

// useGas reduces the gas level of the current frame by the given amount. If
// the frame budget cannot cover the cost, the execution panics with an
// out-of-gas fault before any side effect of the instruction is applied; the
// function returns false and the caller must stop.
func (c *context) useGas(amount vm.Gas) bool {
	if amount < 0 || vm.Gas(c.regs[vm.RegCGas]) < amount {
		c.signalFault(vm.FaultOutOfGas)
		return false
	}
	c.regs[vm.RegCGas] -= uint64(amount)
	c.regs[vm.RegGGas] -= uint64(amount)
	return true
}

// signalFault terminates the execution with a Panic of the given kind. The
// first fault wins; later signals are ignored.
func (c *context) signalFault(kind vm.FaultKind) {
	if c.status == statusRunning {
		c.status = statusPanicked
		c.fault = kind
	}
}

// signalError aborts the run due to an infrastructure failure. Unlike a fault
// this is not a program outcome; the error is handed to the caller unchanged.
func (c *context) signalError(err error) {
	if c.status == statusRunning {
		c.status = statusFailed
		c.err = err
	}
}

// writeRegister writes a general-purpose register. Naming a reserved register
// as a write target is a fault; the execution loop is the only writer of
// reserved registers.
func (c *context) writeRegister(id vm.RegisterID, value uint64) bool {
	if id < vm.NumReservedRegisters {
		c.signalFault(vm.FaultReservedRegister)
		return false
	}
	c.regs[id] = value
	return true
}

// accessMemory resolves the arena range [offset, offset+length) for reading or
// writing, faulting on anything outside the stack and heap regions.
func (c *context) accessMemory(offset, length uint64) ([]byte, bool) {
	data, fault := c.memory.access(offset, length)
	if fault != vm.FaultNone {
		c.signalFault(fault)
		return nil, false
	}
	return data, true
}

func run(config Config, params vm.Parameters) (vm.Result, error) {
	// Don't bother with the execution if there's no code.
	if len(params.Code) == 0 {
		return vm.Result{
			Outcome: vm.Success,
			GasLeft: params.Gas,
		}, nil
	}

	gas := params.Gas
	if gas < 0 {
		gas = 0
	}

	// Set up execution context.
	ctxt := context{
		params:       params,
		context:      params.Context,
		regs:         newRegisters(),
		memory:       getMemory(config.MaxMemory),
		contract:     params.Contract,
		code:         params.Code,
		maxCallDepth: config.MaxCallDepth,
	}
	defer returnMemory(ctxt.memory)

	ctxt.entrySnapshot = ctxt.context.CreateSnapshot()

	// The entry input is pushed onto the arena stack like the input of any
	// nested frame; the frame pointer marks its start.
	if fault := ctxt.memory.growStack(uint64(len(params.Input))); fault != vm.FaultNone {
		ctxt.signalFault(fault)
	} else {
		copy(ctxt.memory.stack, params.Input)
	}
	ctxt.regs[vm.RegSSP] = ctxt.memory.stackSize()
	ctxt.regs[vm.RegSP] = ctxt.memory.stackSize()
	ctxt.regs[vm.RegHP] = config.MaxMemory
	ctxt.regs[vm.RegGGas] = uint64(gas)
	ctxt.regs[vm.RegCGas] = uint64(gas)

	for ctxt.status == statusRunning {
		step(&ctxt)
	}

	return generateResult(&ctxt)
}

// step fetches, charges, and executes one instruction.
func step(c *context) {
	pc := c.regs[vm.RegPC]
	if pc >= uint64(len(c.code)) {
		// There is no implicit return; running off the end of the code or
		// jumping outside of it is a fault.
		c.signalFault(vm.FaultInvalidOpcode)
		return
	}
	inst := c.code[pc]
	if int(inst.Op) >= vm.NumOpcodes {
		c.signalFault(vm.FaultInvalidOpcode)
		return
	}
	if int(inst.A) >= vm.NumRegisters || int(inst.B) >= vm.NumRegisters ||
		int(inst.C) >= vm.NumRegisters || int(inst.D) >= vm.NumRegisters {
		c.signalFault(vm.FaultInvalidOperand)
		return
	}
	if !c.useGas(staticGasPrices[inst.Op]) {
		return
	}

	advance := true
	switch inst.Op {
	case vm.NOOP:
		// nothing to do
	case vm.JMP:
		c.regs[vm.RegPC] = c.regs[inst.A]
		advance = false
	case vm.JNZ:
		if c.regs[inst.A] != 0 {
			c.regs[vm.RegPC] = c.regs[inst.B]
			advance = false
		}
	case vm.FLAG:
		opFlag(c, inst)
	case vm.RET:
		opRet(c, inst)
		advance = false
	case vm.RETD:
		opRetData(c, inst)
		advance = false
	case vm.RVRT:
		opRevert(c, inst)
		advance = false
	case vm.ADD:
		opAdd(c, inst)
	case vm.SUB:
		opSub(c, inst)
	case vm.MUL:
		opMul(c, inst)
	case vm.DIV:
		opDiv(c, inst)
	case vm.MOD:
		opMod(c, inst)
	case vm.EXP:
		opExp(c, inst)
	case vm.SLL:
		opShiftLeft(c, inst)
	case vm.SRL:
		opShiftRight(c, inst)
	case vm.AND:
		c.writeRegister(inst.A, c.regs[inst.B]&c.regs[inst.C])
	case vm.OR:
		c.writeRegister(inst.A, c.regs[inst.B]|c.regs[inst.C])
	case vm.XOR:
		c.writeRegister(inst.A, c.regs[inst.B]^c.regs[inst.C])
	case vm.NOT:
		c.writeRegister(inst.A, ^c.regs[inst.B])
	case vm.EQ:
		c.writeRegister(inst.A, boolToUint64(c.regs[inst.B] == c.regs[inst.C]))
	case vm.LT:
		c.writeRegister(inst.A, boolToUint64(c.regs[inst.B] < c.regs[inst.C]))
	case vm.GT:
		c.writeRegister(inst.A, boolToUint64(c.regs[inst.B] > c.regs[inst.C]))
	case vm.MOVE:
		c.writeRegister(inst.A, c.regs[inst.B])
	case vm.MULDIV:
		opMulDiv(c, inst)
	case vm.ADDI:
		opAddImm(c, inst)
	case vm.SUBI:
		opSubImm(c, inst)
	case vm.MULI:
		opMulImm(c, inst)
	case vm.DIVI:
		opDivImm(c, inst)
	case vm.ANDI:
		c.writeRegister(inst.A, c.regs[inst.B]&uint64(inst.Imm))
	case vm.ORI:
		c.writeRegister(inst.A, c.regs[inst.B]|uint64(inst.Imm))
	case vm.XORI:
		c.writeRegister(inst.A, c.regs[inst.B]^uint64(inst.Imm))
	case vm.SLLI:
		opShiftLeftImm(c, inst)
	case vm.SRLI:
		opShiftRightImm(c, inst)
	case vm.MOVI:
		c.writeRegister(inst.A, uint64(inst.Imm))
	case vm.LB:
		opLoadByte(c, inst)
	case vm.LW:
		opLoadWord(c, inst)
	case vm.SB:
		opStoreByte(c, inst)
	case vm.SW:
		opStoreWord(c, inst)
	case vm.ALOC:
		opAlloc(c, inst)
	case vm.CFE:
		opStackExtend(c, inst)
	case vm.CFS:
		opStackShrink(c, inst)
	case vm.MCP:
		opMemCopy(c, inst)
	case vm.MCL:
		opMemClear(c, inst)
	case vm.MEQ:
		opMemEq(c, inst)
	case vm.SRW:
		opStorageRead(c, inst)
	case vm.SWW:
		opStorageWrite(c, inst)
	case vm.SCW:
		opStorageClear(c, inst)
	case vm.K256:
		opKeccak256(c, inst)
	case vm.S256:
		opSha256(c, inst)
	case vm.ECR:
		opEcRecover(c, inst)
	case vm.CALL:
		opCall(c, inst)
		advance = false
	case vm.RDC:
		opReturnDataCopy(c, inst)
	case vm.LOG:
		opLog(c, inst)
	case vm.LOGD:
		opLogData(c, inst)
	default:
		c.signalFault(vm.FaultInvalidOpcode)
	}

	if advance && c.status == statusRunning {
		c.regs[vm.RegPC]++
	}
}

func generateResult(c *context) (vm.Result, error) {
	switch c.status {
	case statusReturned:
		return vm.Result{
			Outcome:   vm.Success,
			Output:    c.output,
			GasLeft:   vm.Gas(c.regs[vm.RegGGas]),
			GasRefund: c.refund,
			Receipts:  c.receipts,
		}, nil
	case statusReverted:
		// Refunds are dropped on revert; the unspent gas of the outermost
		// frame is returned.
		return vm.Result{
			Outcome:    vm.Revert,
			RevertCode: c.revertCode,
			GasLeft:    vm.Gas(c.regs[vm.RegGGas]),
			Receipts:   c.receipts,
		}, nil
	case statusPanicked:
		// A fault consumes all remaining gas and discards every storage write
		// of the execution.
		c.context.RestoreSnapshot(c.entrySnapshot)
		c.receipts = append(c.receipts, vm.Receipt{
			Kind:  vm.ReceiptPanic,
			To:    c.contract,
			PC:    c.regs[vm.RegPC],
			Fault: c.fault,
		})
		return vm.Result{
			Outcome:  vm.Panic,
			Fault:    c.fault,
			Receipts: c.receipts,
		}, nil
	case statusFailed:
		return vm.Result{}, c.err
	}
	return vm.Result{}, fmt.Errorf("unexpected interpreter status %d", c.status)
}

func boolToUint64(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
