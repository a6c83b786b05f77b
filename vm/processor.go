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

//go:generate mockgen -source processor.go -destination processor_mock.go -package vm

// Processor is an interface for a component capable of executing transactions.
// Implementations set up the initial call frame, charge intrinsic gas, run an
// Interpreter, and either commit the buffered state mutations to the storage
// engine (on success) or discard them (on revert and panic). Scheduling of
// multiple transactions across a block is a concern of higher layers; a
// processor handles one transaction at a time.
type Processor interface {
	// Run executes the transaction against the given context. The error is
	// non-nil only for infrastructure failures; program-level termination
	// (success, revert, panic) is encoded in the returned TransactionResult.
	Run(Transaction, TransactionContext) (TransactionResult, error)
}

// TransactionContext is the storage view one transaction executes against: the
// run context handed down to the interpreter plus the commit step that merges
// the buffered writes into the shared pre-state. Discarding is implicit; a
// context that is never committed leaves the pre-state untouched.
type TransactionContext interface {
	RunContext

	// Commit atomically publishes all buffered writes and returns the
	// resulting storage root.
	Commit() (Hash, error)
}

// Transaction summarizes the parameters of one transaction to be executed. The
// entry code is already decoded; transaction validation (inputs, signatures,
// predicate selection) happened upstream.
type Transaction struct {
	Contract ContractID // the contract charged as the entry point
	Code     Code       // the entry code; resolved via the CodeStore if empty
	Input    Data       // the input data made available to the entry frame
	GasLimit Gas        // the maximum amount of gas the execution may consume
}

// TransactionResult summarizes the result of the execution of a transaction.
type TransactionResult struct {
	Outcome    Outcome
	Output     Data      // the output produced on success
	RevertCode uint64    // the reason code, only meaningful on revert
	Fault      FaultKind // the fault kind, only meaningful on panic
	GasUsed    Gas       // gas consumed, never exceeding the limit
	Root       Hash      // the committed storage root, only set on success
	Receipts   []Receipt // the ordered event log of the execution
}
