// Copyright (c) 2025 Vex Labs
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at vexvm.dev/bsl11.
//
// Change Date: 2029-6-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package atlas provides the transaction-level processor. It sets up the entry
// frame of a transaction, charges intrinsic gas, drives an interpreter, and
// settles the outcome: buffered storage writes are committed on success and
// discarded otherwise, gas refunds are capped, and the terminal result receipt
// is appended to the execution's receipt log.
package atlas

import (
	"fmt"

	"github.com/ethereum/go-ethereum/log"

	"github.com/vexvm/vex/vm"
)

const (
	// TxGas is the intrinsic base cost of every transaction.
	TxGas = 5000

	// TxInputByteGas is the intrinsic cost per byte of transaction input.
	TxInputByteGas = 4
)

func init() {
	err := vm.RegisterProcessorFactory("atlas", newProcessor)
	if err != nil {
		panic(fmt.Sprintf("failed to register processor: %v", err))
	}
}

func newProcessor(interpreter vm.Interpreter) vm.Processor {
	return &processor{
		interpreter: interpreter,
	}
}

type processor struct {
	interpreter vm.Interpreter
}

func (p *processor) Run(
	transaction vm.Transaction,
	context vm.TransactionContext,
) (vm.TransactionResult, error) {
	gas := transaction.GasLimit
	if gas < 0 {
		gas = 0
	}

	intrinsic := intrinsicGas(transaction)
	if gas < intrinsic {
		// The transaction cannot even pay for its own setup. This is a
		// deterministic outcome, all provided gas is consumed.
		result := vm.TransactionResult{
			Outcome: vm.Panic,
			Fault:   vm.FaultOutOfGas,
			GasUsed: gas,
			Receipts: []vm.Receipt{{
				Kind:  vm.ReceiptPanic,
				To:    transaction.Contract,
				Fault: vm.FaultOutOfGas,
			}, {
				Kind: vm.ReceiptResult,
				To:   transaction.Contract,
				Gas:  gas,
			}},
		}
		logSummary(transaction, result)
		return result, nil
	}
	gas -= intrinsic

	code := transaction.Code
	if len(code) == 0 {
		resolved, err := context.GetCode(transaction.Contract)
		if err != nil {
			return vm.TransactionResult{}, fmt.Errorf("failed to resolve entry code: %w", err)
		}
		code = resolved
	}

	outcome, err := p.interpreter.Run(vm.Parameters{
		Context:  context,
		Contract: transaction.Contract,
		Code:     code,
		Input:    transaction.Input,
		Gas:      gas,
	})
	if err != nil {
		return vm.TransactionResult{}, err
	}

	gasUsed := transaction.GasLimit - outcome.GasLeft
	if outcome.Outcome == vm.Success {
		// The refund is paid out of the gas actually spent, capped at half of
		// it so a transaction can never be cheaper than half its footprint.
		refund := outcome.GasRefund
		if max := gasUsed / 2; refund > max {
			refund = max
		}
		gasUsed -= refund
	}

	result := vm.TransactionResult{
		Outcome:    outcome.Outcome,
		Output:     outcome.Output,
		RevertCode: outcome.RevertCode,
		Fault:      outcome.Fault,
		GasUsed:    gasUsed,
		Receipts:   outcome.Receipts,
	}

	if outcome.Outcome == vm.Success {
		root, err := context.Commit()
		if err != nil {
			return vm.TransactionResult{}, fmt.Errorf("failed to commit storage: %w", err)
		}
		result.Root = root
	}

	result.Receipts = append(result.Receipts, vm.Receipt{
		Kind: vm.ReceiptResult,
		To:   transaction.Contract,
		Gas:  result.GasUsed,
		Root: result.Root,
	})

	logSummary(transaction, result)
	return result, nil
}

// intrinsicGas is the gas charged before the first instruction runs. The
// result never overflows, the input length is bounded far below the range
// where the multiplication could wrap.
func intrinsicGas(transaction vm.Transaction) vm.Gas {
	return TxGas + vm.Gas(len(transaction.Input))*TxInputByteGas
}

func logSummary(transaction vm.Transaction, result vm.TransactionResult) {
	log.Info("transaction processed",
		"contract", transaction.Contract,
		"outcome", result.Outcome,
		"gasUsed", result.GasUsed,
		"receipts", len(result.Receipts),
	)
}
