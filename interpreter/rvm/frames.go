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

// frame is the suspended state of a caller while one of its callees executes.
// Frames live in an explicit slice rather than on the native call stack, so
// the depth bound and rollback are enforced independent of the host.
type frame struct {
	callerContract vm.ContractID
	callerCode     vm.Code

	// savedRegs is the caller's complete register file at the call site, with
	// the forwarded gas already deducted from its frame budget.
	savedRegs registers

	// snapshot captures the storage state at the call site; it is restored
	// when the callee subtree reverts.
	snapshot vm.Snapshot

	callerWrote bool
}

// opCall starts a nested call: it validates the operands, forwards gas,
// pushes the input onto the arena stack of a fresh callee frame, and transfers
// control to the callee's code.
func opCall(c *context, inst vm.Instruction) {
	idData, ok := c.accessMemory(c.regs[inst.A], 32)
	if !ok {
		return
	}
	inputLen := c.regs[inst.D]
	if !c.useGas(sizeGas(inputLen, gasMemoryByte)) {
		return
	}
	inputData, ok := c.accessMemory(c.regs[inst.C], inputLen)
	if !ok {
		return
	}
	if len(c.frames)+1 >= c.maxCallDepth {
		c.signalFault(vm.FaultCallDepthOverflow)
		return
	}

	var target vm.ContractID
	copy(target[:], idData)
	code, err := c.context.GetCode(target)
	if err != nil {
		c.signalError(err)
		return
	}

	// The input must be copied out of the arena before the callee stack grows
	// over it or reallocates the backing buffer.
	input := append([]byte(nil), inputData...)

	requested := c.regs[inst.B]
	forwarded := requested
	if available := c.regs[vm.RegCGas]; forwarded > available {
		forwarded = available
	}

	snapshot := c.context.CreateSnapshot()
	c.receipts = append(c.receipts, vm.Receipt{
		Kind: vm.ReceiptCall,
		From: c.contract,
		To:   target,
		Gas:  vm.Gas(forwarded),
		PC:   c.regs[vm.RegPC],
	})

	c.regs[vm.RegCGas] -= forwarded
	c.frames = append(c.frames, frame{
		callerContract: c.contract,
		callerCode:     c.code,
		savedRegs:      c.regs,
		snapshot:       snapshot,
		callerWrote:    c.wroteStorage,
	})

	// Install the callee frame: fresh registers, the input on top of the
	// stack, the heap shared as-is.
	framePointer := c.regs[vm.RegSP]
	regs := newRegisters()
	regs[vm.RegFP] = framePointer
	regs[vm.RegHP] = c.regs[vm.RegHP]
	regs[vm.RegGGas] = c.regs[vm.RegGGas]
	regs[vm.RegCGas] = forwarded
	c.regs = regs

	if fault := c.memory.growStack(uint64(len(input))); fault != vm.FaultNone {
		c.signalFault(fault)
		return
	}
	copy(c.memory.stack[framePointer:], input)
	c.regs[vm.RegSSP] = c.memory.stackSize()
	c.regs[vm.RegSP] = c.memory.stackSize()

	c.contract = target
	c.code = code
	c.wroteStorage = false
	c.returnData = nil

	// A call to a contract without code completes right away.
	if len(code) == 0 {
		c.returnFrame(vm.ReceiptReturn, 0, nil)
	}
}

func opRet(c *context, inst vm.Instruction) {
	c.returnFrame(vm.ReceiptReturn, c.regs[inst.A], nil)
}

func opRetData(c *context, inst vm.Instruction) {
	length := c.regs[inst.B]
	if !c.useGas(sizeGas(length, gasMemoryByte)) {
		return
	}
	data, ok := c.accessMemory(c.regs[inst.A], length)
	if !ok {
		return
	}
	c.returnFrame(vm.ReceiptReturnData, 0, data)
}

// returnFrame completes the current frame successfully. For the outermost
// frame this terminates the execution; otherwise the caller is resumed with
// the callee's unspent gas credited back and the caller's registers restored,
// except for $ret, $retl, $of and $err, which transport the call result.
func (c *context) returnFrame(kind vm.ReceiptKind, val uint64, data []byte) {
	data = append([]byte(nil), data...)

	receipt := vm.Receipt{
		Kind: kind,
		To:   c.contract,
		PC:   c.regs[vm.RegPC],
		Val:  val,
		Data: data,
	}
	if c.wroteStorage {
		receipt.Root = c.context.StorageRoot()
	}
	c.receipts = append(c.receipts, receipt)

	if len(c.frames) == 0 {
		c.status = statusReturned
		c.output = data
		return
	}

	f := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]

	unspent := c.regs[vm.RegCGas]
	globalGas := c.regs[vm.RegGGas]
	overflow, errFlag := c.regs[vm.RegOF], c.regs[vm.RegErr]
	calleeWrote := c.wroteStorage

	c.regs = f.savedRegs
	c.regs[vm.RegGGas] = globalGas
	c.regs[vm.RegCGas] += unspent
	c.regs[vm.RegOF] = overflow
	c.regs[vm.RegErr] = errFlag
	c.regs[vm.RegRet] = val
	c.regs[vm.RegRetLen] = uint64(len(data))
	c.returnData = data

	// Release the callee's arena regions; the caller's pointers are authoritative.
	c.memory.truncate(c.regs[vm.RegSP], c.regs[vm.RegHP])

	c.contract = f.callerContract
	c.code = f.callerCode
	c.wroteStorage = f.callerWrote || calleeWrote

	// Resume after the call instruction.
	c.regs[vm.RegPC]++
}

// opRevert aborts the current frame deliberately. The writes of the frame's
// subtree are rolled back to the call-site snapshot and the forwarded gas is
// forfeited; the caller resumes with $ret = 0. A revert of the outermost frame
// terminates the execution with the Revert outcome.
func opRevert(c *context, inst vm.Instruction) {
	code := c.regs[inst.A]
	c.receipts = append(c.receipts, vm.Receipt{
		Kind: vm.ReceiptRevert,
		To:   c.contract,
		PC:   c.regs[vm.RegPC],
		Val:  code,
	})

	if len(c.frames) == 0 {
		c.context.RestoreSnapshot(c.entrySnapshot)
		c.status = statusReverted
		c.revertCode = code
		return
	}

	f := c.frames[len(c.frames)-1]
	c.frames = c.frames[:len(c.frames)-1]
	c.context.RestoreSnapshot(f.snapshot)

	forfeited := c.regs[vm.RegCGas]
	globalGas := c.regs[vm.RegGGas] - forfeited
	overflow, errFlag := c.regs[vm.RegOF], c.regs[vm.RegErr]

	c.regs = f.savedRegs
	c.regs[vm.RegGGas] = globalGas
	c.regs[vm.RegOF] = overflow
	c.regs[vm.RegErr] = errFlag
	c.regs[vm.RegRet] = 0
	c.regs[vm.RegRetLen] = 0
	c.returnData = nil

	c.memory.truncate(c.regs[vm.RegSP], c.regs[vm.RegHP])

	c.contract = f.callerContract
	c.code = f.callerCode
	c.wroteStorage = f.callerWrote

	c.regs[vm.RegPC]++
}
