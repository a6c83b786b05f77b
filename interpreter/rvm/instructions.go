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
	"crypto/sha256"
	"encoding/binary"
	"math/bits"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/vexvm/vex/vm"
	"golang.org/x/crypto/sha3"
)

// ---- arithmetic ----

// setArithmetic commits the result of a wrapping-capable operation. Without
// the wrapping flag, any overflow is a fault; with it, the overflowed part is
// reported in $of.
func (c *context) setArithmetic(trg vm.RegisterID, value, overflow uint64) {
	if overflow != 0 && c.regs[vm.RegFlag]&vm.FlagWrapping == 0 {
		c.signalFault(vm.FaultArithmetic)
		return
	}
	if c.writeRegister(trg, value) {
		c.regs[vm.RegOF] = overflow
	}
}

// setDivision commits the result of an operation that can hit a division
// fault. Without the unsafe-math flag, the fault panics; with it, the result
// is zero and $err is set.
func (c *context) setDivision(trg vm.RegisterID, value uint64, faulted bool) {
	if faulted {
		if c.regs[vm.RegFlag]&vm.FlagUnsafeMath == 0 {
			c.signalFault(vm.FaultArithmetic)
			return
		}
		if c.writeRegister(trg, 0) {
			c.regs[vm.RegErr] = 1
		}
		return
	}
	if c.writeRegister(trg, value) {
		c.regs[vm.RegErr] = 0
	}
}

func opAdd(c *context, inst vm.Instruction) {
	sum, carry := bits.Add64(c.regs[inst.B], c.regs[inst.C], 0)
	c.setArithmetic(inst.A, sum, carry)
}

func opSub(c *context, inst vm.Instruction) {
	diff, borrow := bits.Sub64(c.regs[inst.B], c.regs[inst.C], 0)
	c.setArithmetic(inst.A, diff, borrow)
}

func opMul(c *context, inst vm.Instruction) {
	hi, lo := bits.Mul64(c.regs[inst.B], c.regs[inst.C])
	c.setArithmetic(inst.A, lo, hi)
}

func opDiv(c *context, inst vm.Instruction) {
	divisor := c.regs[inst.C]
	if divisor == 0 {
		c.setDivision(inst.A, 0, true)
		return
	}
	c.setDivision(inst.A, c.regs[inst.B]/divisor, false)
}

func opMod(c *context, inst vm.Instruction) {
	divisor := c.regs[inst.C]
	if divisor == 0 {
		c.setDivision(inst.A, 0, true)
		return
	}
	c.setDivision(inst.A, c.regs[inst.B]%divisor, false)
}

func opExp(c *context, inst vm.Instruction) {
	base := uint256.NewInt(c.regs[inst.B])
	exponent := uint256.NewInt(c.regs[inst.C])
	result := new(uint256.Int).Exp(base, exponent)
	c.setArithmetic(inst.A, result.Uint64(), boolToUint64(!result.IsUint64()))
}

func opShiftLeft(c *context, inst vm.Instruction) {
	shift := c.regs[inst.C]
	if shift >= 64 {
		c.writeRegister(inst.A, 0)
		return
	}
	c.writeRegister(inst.A, c.regs[inst.B]<<shift)
}

func opShiftRight(c *context, inst vm.Instruction) {
	shift := c.regs[inst.C]
	if shift >= 64 {
		c.writeRegister(inst.A, 0)
		return
	}
	c.writeRegister(inst.A, c.regs[inst.B]>>shift)
}

// opMulDiv computes ($B * $C) / $D with a 256-bit intermediate product, so the
// multiplication itself can not overflow; only a quotient beyond 64 bits is an
// overflow condition.
func opMulDiv(c *context, inst vm.Instruction) {
	divisor := c.regs[inst.D]
	if divisor == 0 {
		c.setDivision(inst.A, 0, true)
		return
	}
	product := new(uint256.Int).Mul(
		uint256.NewInt(c.regs[inst.B]),
		uint256.NewInt(c.regs[inst.C]),
	)
	quotient := product.Div(product, uint256.NewInt(divisor))
	c.setArithmetic(inst.A, quotient.Uint64(), boolToUint64(!quotient.IsUint64()))
}

func opAddImm(c *context, inst vm.Instruction) {
	sum, carry := bits.Add64(c.regs[inst.B], uint64(inst.Imm), 0)
	c.setArithmetic(inst.A, sum, carry)
}

func opSubImm(c *context, inst vm.Instruction) {
	diff, borrow := bits.Sub64(c.regs[inst.B], uint64(inst.Imm), 0)
	c.setArithmetic(inst.A, diff, borrow)
}

func opMulImm(c *context, inst vm.Instruction) {
	hi, lo := bits.Mul64(c.regs[inst.B], uint64(inst.Imm))
	c.setArithmetic(inst.A, lo, hi)
}

func opDivImm(c *context, inst vm.Instruction) {
	if inst.Imm == 0 {
		c.setDivision(inst.A, 0, true)
		return
	}
	c.setDivision(inst.A, c.regs[inst.B]/uint64(inst.Imm), false)
}

func opShiftLeftImm(c *context, inst vm.Instruction) {
	if inst.Imm >= 64 {
		c.writeRegister(inst.A, 0)
		return
	}
	c.writeRegister(inst.A, c.regs[inst.B]<<inst.Imm)
}

func opShiftRightImm(c *context, inst vm.Instruction) {
	if inst.Imm >= 64 {
		c.writeRegister(inst.A, 0)
		return
	}
	c.writeRegister(inst.A, c.regs[inst.B]>>inst.Imm)
}

// opFlag is the only sanctioned way to modify $flag. Setting any undefined
// flag bit is a fault.
func opFlag(c *context, inst vm.Instruction) {
	value := c.regs[inst.A]
	if value&^(vm.FlagUnsafeMath|vm.FlagWrapping) != 0 {
		c.signalFault(vm.FaultInvalidOperand)
		return
	}
	c.regs[vm.RegFlag] = value
}

// ---- memory ----

// addOffset applies an immediate displacement to a base address, faulting on
// address-space wrap-around.
func (c *context) addOffset(base uint64, offset uint32) (uint64, bool) {
	addr := base + uint64(offset)
	if addr < base {
		c.signalFault(vm.FaultMemoryOutOfBounds)
		return 0, false
	}
	return addr, true
}

func opLoadByte(c *context, inst vm.Instruction) {
	addr, ok := c.addOffset(c.regs[inst.B], inst.Imm)
	if !ok {
		return
	}
	data, ok := c.accessMemory(addr, 1)
	if !ok {
		return
	}
	c.writeRegister(inst.A, uint64(data[0]))
}

func opLoadWord(c *context, inst vm.Instruction) {
	addr, ok := c.addOffset(c.regs[inst.B], inst.Imm)
	if !ok {
		return
	}
	data, ok := c.accessMemory(addr, 8)
	if !ok {
		return
	}
	c.writeRegister(inst.A, binary.BigEndian.Uint64(data))
}

func opStoreByte(c *context, inst vm.Instruction) {
	addr, ok := c.addOffset(c.regs[inst.A], inst.Imm)
	if !ok {
		return
	}
	data, ok := c.accessMemory(addr, 1)
	if !ok {
		return
	}
	data[0] = byte(c.regs[inst.B])
}

func opStoreWord(c *context, inst vm.Instruction) {
	addr, ok := c.addOffset(c.regs[inst.A], inst.Imm)
	if !ok {
		return
	}
	data, ok := c.accessMemory(addr, 8)
	if !ok {
		return
	}
	binary.BigEndian.PutUint64(data, c.regs[inst.B])
}

func opAlloc(c *context, inst vm.Instruction) {
	size := c.regs[inst.A]
	if !c.useGas(sizeGas(size, gasMemoryByte)) {
		return
	}
	if fault := c.memory.allocHeap(size); fault != vm.FaultNone {
		c.signalFault(fault)
		return
	}
	c.regs[vm.RegHP] = c.memory.heapStart()
}

func opStackExtend(c *context, inst vm.Instruction) {
	size := c.regs[inst.A]
	if !c.useGas(sizeGas(size, gasMemoryByte)) {
		return
	}
	if fault := c.memory.growStack(size); fault != vm.FaultNone {
		c.signalFault(fault)
		return
	}
	c.regs[vm.RegSP] = c.memory.stackSize()
}

func opStackShrink(c *context, inst vm.Instruction) {
	size := c.regs[inst.A]
	if fault := c.memory.shrinkStack(size, c.regs[vm.RegSSP]); fault != vm.FaultNone {
		c.signalFault(fault)
		return
	}
	c.regs[vm.RegSP] = c.memory.stackSize()
}

func opMemCopy(c *context, inst vm.Instruction) {
	dst, src, length := c.regs[inst.A], c.regs[inst.B], c.regs[inst.C]
	if !c.useGas(sizeGas(length, gasMemoryByte)) {
		return
	}
	if length == 0 {
		return
	}
	// Overlapping copies have no well-defined direction.
	if dst < src+length && src < dst+length {
		c.signalFault(vm.FaultInvalidOperand)
		return
	}
	srcData, ok := c.accessMemory(src, length)
	if !ok {
		return
	}
	dstData, ok := c.accessMemory(dst, length)
	if !ok {
		return
	}
	copy(dstData, srcData)
}

func opMemClear(c *context, inst vm.Instruction) {
	addr, length := c.regs[inst.A], c.regs[inst.B]
	if !c.useGas(sizeGas(length, gasMemoryByte)) {
		return
	}
	data, ok := c.accessMemory(addr, length)
	if !ok {
		return
	}
	clear(data)
}

func opMemEq(c *context, inst vm.Instruction) {
	length := c.regs[inst.D]
	if !c.useGas(sizeGas(length, gasMemoryByte)) {
		return
	}
	left, ok := c.accessMemory(c.regs[inst.B], length)
	if !ok {
		return
	}
	right, ok := c.accessMemory(c.regs[inst.C], length)
	if !ok {
		return
	}
	c.writeRegister(inst.A, boolToUint64(bytes.Equal(left, right)))
}

// ---- storage ----

func (c *context) memoryKey(addr uint64) (vm.Key, bool) {
	data, ok := c.accessMemory(addr, 32)
	if !ok {
		return vm.Key{}, false
	}
	var key vm.Key
	copy(key[:], data)
	return key, true
}

func opStorageRead(c *context, inst vm.Instruction) {
	key, ok := c.memoryKey(c.regs[inst.C])
	if !ok {
		return
	}
	dst, ok := c.accessMemory(c.regs[inst.A], 32)
	if !ok {
		return
	}
	value, existed, err := c.context.GetStorage(c.contract, key)
	if err != nil {
		c.signalError(err)
		return
	}
	if !c.writeRegister(inst.B, boolToUint64(existed)) {
		return
	}
	copy(dst, value[:])
}

func opStorageWrite(c *context, inst vm.Instruction) {
	key, ok := c.memoryKey(c.regs[inst.A])
	if !ok {
		return
	}
	valueData, ok := c.accessMemory(c.regs[inst.C], 32)
	if !ok {
		return
	}
	// The creation surcharge must be charged before the write is applied, so
	// the slot's current existence is probed first.
	_, existed, err := c.context.GetStorage(c.contract, key)
	if err != nil {
		c.signalError(err)
		return
	}
	if !existed && !c.useGas(gasStorageCreate-gasStorageUpdate) {
		return
	}
	var value vm.Word
	copy(value[:], valueData)
	if _, err := c.context.SetStorage(c.contract, key, value); err != nil {
		c.signalError(err)
		return
	}
	c.wroteStorage = true
	c.writeRegister(inst.B, boolToUint64(existed))
}

func opStorageClear(c *context, inst vm.Instruction) {
	key, ok := c.memoryKey(c.regs[inst.A])
	if !ok {
		return
	}
	existed, err := c.context.RemoveStorage(c.contract, key)
	if err != nil {
		c.signalError(err)
		return
	}
	if existed {
		c.wroteStorage = true
		c.refund += refundStorageClear
	}
	c.writeRegister(inst.B, boolToUint64(existed))
}

// ---- crypto ----

func opKeccak256(c *context, inst vm.Instruction) {
	length := c.regs[inst.C]
	if !c.useGas(hashGas(length)) {
		return
	}
	data, ok := c.accessMemory(c.regs[inst.B], length)
	if !ok {
		return
	}
	dst, ok := c.accessMemory(c.regs[inst.A], 32)
	if !ok {
		return
	}
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write(data)
	copy(dst, hasher.Sum(nil))
}

func opSha256(c *context, inst vm.Instruction) {
	length := c.regs[inst.C]
	if !c.useGas(hashGas(length)) {
		return
	}
	data, ok := c.accessMemory(c.regs[inst.B], length)
	if !ok {
		return
	}
	dst, ok := c.accessMemory(c.regs[inst.A], 32)
	if !ok {
		return
	}
	hash := sha256.Sum256(data)
	copy(dst, hash[:])
}

// opEcRecover recovers the 64-byte secp256k1 public key that signed the given
// digest. An unrecoverable signature is not a fault; it sets $err and clears
// the output, mirroring the unsafe-math error convention.
func opEcRecover(c *context, inst vm.Instruction) {
	sig, ok := c.accessMemory(c.regs[inst.B], 65)
	if !ok {
		return
	}
	digest, ok := c.accessMemory(c.regs[inst.C], 32)
	if !ok {
		return
	}
	dst, ok := c.accessMemory(c.regs[inst.A], 64)
	if !ok {
		return
	}
	pubKey, err := crypto.Ecrecover(digest, sig)
	if err != nil {
		clear(dst)
		c.regs[vm.RegErr] = 1
		return
	}
	// Strip the uncompressed-point prefix byte.
	copy(dst, pubKey[1:])
	c.regs[vm.RegErr] = 0
}

// ---- return data and logging ----

func opReturnDataCopy(c *context, inst vm.Instruction) {
	offset, length := c.regs[inst.B], c.regs[inst.C]
	if !c.useGas(sizeGas(length, gasMemoryByte)) {
		return
	}
	end := offset + length
	if end < offset || end > uint64(len(c.returnData)) {
		c.signalFault(vm.FaultInvalidOperand)
		return
	}
	dst, ok := c.accessMemory(c.regs[inst.A], length)
	if !ok {
		return
	}
	copy(dst, c.returnData[offset:end])
}

func opLog(c *context, inst vm.Instruction) {
	c.receipts = append(c.receipts, vm.Receipt{
		Kind: vm.ReceiptLog,
		To:   c.contract,
		PC:   c.regs[vm.RegPC],
		Val:  c.regs[inst.A],
		ValB: c.regs[inst.B],
		ValC: c.regs[inst.C],
	})
}

func opLogData(c *context, inst vm.Instruction) {
	length := c.regs[inst.D]
	if !c.useGas(sizeGas(length, gasLogDataByte)) {
		return
	}
	data, ok := c.accessMemory(c.regs[inst.C], length)
	if !ok {
		return
	}
	c.receipts = append(c.receipts, vm.Receipt{
		Kind: vm.ReceiptLogData,
		To:   c.contract,
		PC:   c.regs[vm.RegPC],
		Val:  c.regs[inst.A],
		ValB: c.regs[inst.B],
		Data: append(vm.Data(nil), data...),
	})
}
