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
	"bytes"
	"testing"

	"github.com/vexvm/vex/vm"
)

var calleeContract = vm.ContractID{0x02}

func TestFrames_CallAndReturnData(t *testing.T) {
	// The callee echoes its input; the caller copies the returned data and
	// returns it to the top. Input: the callee id, then an 8-byte payload.
	callee := vm.Code{
		{Op: vm.MOVI, A: r0, Imm: 8},
		{Op: vm.RETD, A: vm.RegFP, B: r0},
	}
	caller := vm.Code{
		{Op: vm.MOVI, A: r0, Imm: 8},  // payload length
		{Op: vm.MOVI, A: r1, Imm: 32}, // payload address
		{Op: vm.CALL, A: vm.RegZero, B: vm.RegCGas, C: r1, D: r0},
		{Op: vm.CFE, A: vm.RegRetLen},
		{Op: vm.MOVI, A: r2, Imm: 40}, // copy destination
		{Op: vm.RDC, A: r2, B: vm.RegZero, C: vm.RegRetLen},
		{Op: vm.RETD, A: r2, B: vm.RegRetLen},
	}

	payload := vm.Data{9, 8, 7, 6, 5, 4, 3, 2}
	input := append(append(vm.Data{}, calleeContract[:]...), payload...)

	ctxt := newTestContext()
	ctxt.SetCode(calleeContract, callee)
	result := runCode(t, ctxt, caller, input, 100000)
	if result.Outcome != vm.Success {
		t.Fatalf("expected success, got %v (fault %v)", result.Outcome, result.Fault)
	}
	if !bytes.Equal(result.Output, payload) {
		t.Errorf("expected echoed payload %x, got %x", payload, result.Output)
	}

	want := []vm.ReceiptKind{vm.ReceiptCall, vm.ReceiptReturnData, vm.ReceiptReturnData}
	if len(result.Receipts) != len(want) {
		t.Fatalf("expected %d receipts, got %v", len(want), result.Receipts)
	}
	for i, kind := range want {
		if result.Receipts[i].Kind != kind {
			t.Fatalf("expected receipt %d to be %v, got %v", i, kind, result.Receipts[i].Kind)
		}
	}
	call := result.Receipts[0]
	if call.From != testContract || call.To != calleeContract {
		t.Errorf("unexpected call receipt %+v", call)
	}
}

func TestFrames_UnspentCalleeGasIsCreditedBack(t *testing.T) {
	callee := vm.Code{
		{Op: vm.MOVI, A: r0, Imm: 5},
		{Op: vm.RET, A: r0},
	}
	caller := vm.Code{
		{Op: vm.CALL, A: vm.RegZero, B: vm.RegCGas, C: vm.RegZero, D: vm.RegZero},
		{Op: vm.RET, A: vm.RegRet},
	}
	ctxt := newTestContext()
	ctxt.SetCode(calleeContract, callee)

	limit := vm.Gas(100000)
	result := runCode(t, ctxt, caller, vm.Data(calleeContract[:]), limit)
	if result.Outcome != vm.Success {
		t.Fatalf("expected success, got %v (fault %v)", result.Outcome, result.Fault)
	}
	if got := result.Receipts[len(result.Receipts)-1].Val; got != 5 {
		t.Errorf("expected the callee's return value 5 in $ret, got %d", got)
	}
	// Only the instructions actually executed are paid for; forwarding all
	// gas must not forfeit anything on a successful return.
	want := limit - gasCall - gasQuick - 2*gasHalt
	if result.GasLeft != want {
		t.Errorf("expected %d gas left, got %d", want, result.GasLeft)
	}
}

func TestFrames_CallerRegistersSurviveACall(t *testing.T) {
	callee := vm.Code{
		{Op: vm.MOVI, A: r4, Imm: 1},
		{Op: vm.RET, A: r4},
	}
	caller := vm.Code{
		{Op: vm.MOVI, A: r4, Imm: 99},
		{Op: vm.CALL, A: vm.RegZero, B: vm.RegCGas, C: vm.RegZero, D: vm.RegZero},
		{Op: vm.LOG, A: r4, B: vm.RegRet, C: vm.RegRetLen},
		{Op: vm.RET, A: vm.RegZero},
	}
	ctxt := newTestContext()
	ctxt.SetCode(calleeContract, callee)
	result := runCode(t, ctxt, caller, vm.Data(calleeContract[:]), 100000)
	if result.Outcome != vm.Success {
		t.Fatalf("expected success, got %v (fault %v)", result.Outcome, result.Fault)
	}
	var log vm.Receipt
	for _, receipt := range result.Receipts {
		if receipt.Kind == vm.ReceiptLog {
			log = receipt
		}
	}
	if log.Val != 99 {
		t.Errorf("the callee's writes must not leak into the caller's registers, r4 is %d", log.Val)
	}
	if log.ValB != 1 {
		t.Errorf("expected the callee's return value in $ret, got %d", log.ValB)
	}
}

func TestFrames_NestedRevertIsolatesTheCallerState(t *testing.T) {
	// The caller writes a slot, then calls a callee that writes its own slot
	// and reverts. The caller's write must survive, the callee's must be
	// rolled back, and the caller resumes with $ret = 0.
	//
	// Caller input: callee id (32B), a 32-byte key. The caller forwards the
	// key bytes as the callee's input; both use them as their storage key,
	// which addresses distinct slots since the contracts differ.
	callee := vm.Code{
		{Op: vm.SWW, A: vm.RegFP, B: r0, C: vm.RegFP},
		{Op: vm.MOVI, A: r1, Imm: 7},
		{Op: vm.RVRT, A: r1},
	}
	caller := vm.Code{
		{Op: vm.MOVI, A: r0, Imm: 32},
		{Op: vm.SWW, A: r0, B: r1, C: r0},
		{Op: vm.CALL, A: vm.RegZero, B: vm.RegCGas, C: r0, D: r0},
		{Op: vm.RET, A: vm.RegRet},
	}

	input := make(vm.Data, 64)
	copy(input, calleeContract[:])
	input[33] = 0xaa

	ctxt := newTestContext()
	ctxt.SetCode(calleeContract, callee)
	result := runCode(t, ctxt, caller, input, 1000000)
	if result.Outcome != vm.Success {
		t.Fatalf("the caller must absorb a nested revert, got %v (fault %v)", result.Outcome, result.Fault)
	}
	if got := result.Receipts[len(result.Receipts)-1].Val; got != 0 {
		t.Errorf("expected $ret = 0 after a reverted call, got %d", got)
	}

	want := []vm.ReceiptKind{vm.ReceiptCall, vm.ReceiptRevert, vm.ReceiptReturn}
	for i, kind := range want {
		if result.Receipts[i].Kind != kind {
			t.Fatalf("expected receipt %d to be %v, got %v", i, kind, result.Receipts[i].Kind)
		}
	}
	if got := result.Receipts[1].Val; got != 7 {
		t.Errorf("expected revert reason 7, got %d", got)
	}

	var key vm.Key
	copy(key[:], input[32:])
	if _, found, err := ctxt.GetStorage(testContract, key); err != nil || !found {
		t.Errorf("the caller's write must survive, found=%t, err=%v", found, err)
	}
	if _, found, err := ctxt.GetStorage(calleeContract, key); err != nil || found {
		t.Errorf("the callee's write must be rolled back, found=%t, err=%v", found, err)
	}
}

func TestFrames_RevertedCalleeGasIsForfeited(t *testing.T) {
	// Both callees execute the same two instructions, but the reverting one
	// forfeits its whole forwarded budget.
	returning := vm.Code{
		{Op: vm.MOVI, A: r0, Imm: 1},
		{Op: vm.RET, A: r0},
	}
	reverting := vm.Code{
		{Op: vm.MOVI, A: r0, Imm: 1},
		{Op: vm.RVRT, A: r0},
	}
	forwarded := vm.Gas(1000)
	caller := vm.Code{
		{Op: vm.MOVI, A: r3, Imm: uint32(forwarded)},
		{Op: vm.CALL, A: vm.RegZero, B: r3, C: vm.RegZero, D: vm.RegZero},
		{Op: vm.RET, A: vm.RegRet},
	}

	limit := vm.Gas(100000)
	measure := func(callee vm.Code) vm.Gas {
		ctxt := newTestContext()
		ctxt.SetCode(calleeContract, callee)
		result := runCode(t, ctxt, caller, vm.Data(calleeContract[:]), limit)
		if result.Outcome != vm.Success {
			t.Fatalf("expected success, got %v (fault %v)", result.Outcome, result.Fault)
		}
		return result.GasLeft
	}

	leftAfterReturn := measure(returning)
	leftAfterRevert := measure(reverting)
	if want := limit - gasQuick - gasCall - forwarded - gasHalt; leftAfterRevert != want {
		t.Errorf("a reverting callee forfeits the whole forwarded budget, expected %d left, got %d",
			want, leftAfterRevert)
	}
	if leftAfterReturn <= leftAfterRevert {
		t.Errorf("a successful callee must leave more gas than a reverting one (%d vs %d)",
			leftAfterReturn, leftAfterRevert)
	}
}

func TestFrames_CalleeFaultUnwindsTheWholeExecution(t *testing.T) {
	// A fault in a callee discards the caller's earlier write as well.
	callee := vm.Code{
		{Op: vm.DIV, A: r0, B: vm.RegOne, C: vm.RegZero},
		{Op: vm.RET, A: r0},
	}
	caller := vm.Code{
		{Op: vm.MOVI, A: r0, Imm: 32},
		{Op: vm.SWW, A: r0, B: r1, C: r0},
		{Op: vm.CALL, A: vm.RegZero, B: vm.RegCGas, C: vm.RegZero, D: vm.RegZero},
		{Op: vm.RET, A: vm.RegRet},
	}

	input := make(vm.Data, 64)
	copy(input, calleeContract[:])
	input[40] = 0x77

	ctxt := newTestContext()
	ctxt.SetCode(calleeContract, callee)
	result := runCode(t, ctxt, caller, input, 1000000)
	if result.Outcome != vm.Panic || result.Fault != vm.FaultArithmetic {
		t.Fatalf("expected arithmetic panic, got %v (fault %v)", result.Outcome, result.Fault)
	}
	if got := ctxt.StorageRoot(); got != (vm.Hash{}) {
		t.Errorf("a panic discards all writes of the execution, root is %v", got)
	}
}

func TestFrames_CallDepthIsBounded(t *testing.T) {
	// A contract that calls itself indefinitely; its input is its own id,
	// which it forwards unchanged.
	recursive := vm.Code{
		{Op: vm.MOVI, A: r0, Imm: 32},
		{Op: vm.CALL, A: vm.RegFP, B: vm.RegCGas, C: vm.RegFP, D: r0},
		{Op: vm.RET, A: vm.RegZero},
	}
	ctxt := newTestContext()
	ctxt.SetCode(calleeContract, recursive)
	result := runCode(t, ctxt, recursive, vm.Data(calleeContract[:]), 10000000)
	if result.Outcome != vm.Panic || result.Fault != vm.FaultCallDepthOverflow {
		t.Errorf("expected call-depth panic, got %v (fault %v)", result.Outcome, result.Fault)
	}
}

func TestFrames_CallToAContractWithoutCodeSucceeds(t *testing.T) {
	caller := vm.Code{
		{Op: vm.CALL, A: vm.RegZero, B: vm.RegCGas, C: vm.RegZero, D: vm.RegZero},
		{Op: vm.RET, A: vm.RegRet},
	}
	ctxt := newTestContext() // no code registered for the target
	result := runCode(t, ctxt, caller, vm.Data(calleeContract[:]), 100000)
	if result.Outcome != vm.Success {
		t.Fatalf("expected success, got %v (fault %v)", result.Outcome, result.Fault)
	}
	if got := result.Receipts[len(result.Receipts)-1].Val; got != 0 {
		t.Errorf("expected $ret = 0 from an empty callee, got %d", got)
	}
}
