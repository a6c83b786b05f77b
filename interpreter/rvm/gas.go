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
	"math"

	"github.com/vexvm/vex/vm"
)

const (
	gasQuick      vm.Gas = 2  // Register-to-register operations.
	gasJump       vm.Gas = 8  // Control-flow transfers.
	gasHalt       vm.Gas = 20 // RET, RETD and RVRT.
	gasMulDiv     vm.Gas = 6  // MULDIV, 256-bit intermediate.
	gasExp        vm.Gas = 40
	gasMemoryOp   vm.Gas = 3 // Single loads and stores.
	gasMemoryGrow vm.Gas = 4 // ALOC, CFE and CFS, plus a per-byte charge.
	gasBulkMemory vm.Gas = 6 // MCP, MCL, MEQ and RDC, plus a per-byte charge.

	gasMemoryByte  vm.Gas = 1 // Per byte grown, copied, compared or pushed.
	gasHashBase    vm.Gas = 30
	gasHashWord    vm.Gas = 6 // Per 32-byte word hashed.
	gasEcRecover   vm.Gas = 3000
	gasStorageRead vm.Gas = 800

	// Storage writes are charged the update price up front; creating a new
	// slot costs gasStorageCreate in total, the difference is charged before
	// the write is applied.
	gasStorageUpdate vm.Gas = 5000
	gasStorageCreate vm.Gas = 20000
	gasStorageClear  vm.Gas = 5000

	gasCall       vm.Gas = 100 // Plus a per-byte charge for the pushed input.
	gasLog        vm.Gas = 375
	gasLogDataByte vm.Gas = 8

	// refundStorageClear is credited for clearing an existing slot. The total
	// refund of an execution is capped at half the gas used when the result is
	// finalized.
	refundStorageClear vm.Gas = 15000
)

var staticGasPrices = [vm.NumOpcodes]vm.Gas{}

func init() {
	for i := range staticGasPrices {
		staticGasPrices[i] = getStaticGasPrice(vm.Opcode(i))
	}
}

func getStaticGasPrice(op vm.Opcode) vm.Gas {
	switch op {
	case vm.JMP, vm.JNZ:
		return gasJump
	case vm.RET, vm.RETD, vm.RVRT:
		return gasHalt
	case vm.MULDIV:
		return gasMulDiv
	case vm.EXP:
		return gasExp
	case vm.LB, vm.LW, vm.SB, vm.SW:
		return gasMemoryOp
	case vm.ALOC, vm.CFE, vm.CFS:
		return gasMemoryGrow
	case vm.MCP, vm.MCL, vm.MEQ, vm.RDC:
		return gasBulkMemory
	case vm.SRW:
		return gasStorageRead
	case vm.SWW:
		return gasStorageUpdate
	case vm.SCW:
		return gasStorageClear
	case vm.K256, vm.S256:
		return gasHashBase
	case vm.ECR:
		return gasEcRecover
	case vm.CALL:
		return gasCall
	case vm.LOG, vm.LOGD:
		return gasLog
	}
	return gasQuick
}

// sizeGas computes a per-byte cost for n bytes, saturating instead of
// overflowing; a saturated cost can never be paid.
func sizeGas(n uint64, perByte vm.Gas) vm.Gas {
	if n > math.MaxInt64/uint64(perByte) {
		return math.MaxInt64
	}
	return vm.Gas(n) * perByte
}

// hashGas is the dynamic cost of hashing n bytes.
func hashGas(n uint64) vm.Gas {
	words := n / 32
	if n%32 != 0 {
		words++
	}
	return sizeGas(words, gasHashWord)
}
