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

//go:generate mockgen -source interpreter.go -destination interpreter_mock.go -package vm

// Interpreter is a component capable of executing decoded register byte-code
// under strict gas accounting. It is the main part of a VM implementation; a
// full VM adds transaction handling on top (see the processor packages).
// To obtain an Interpreter instance, client code should use NewInterpreter()
// provided by the registry file in this package.
type Interpreter interface {
	// Run executes the code provided by the parameters in the specified
	// context and returns the execution result. The resulting error is nil
	// whenever the program was correctly executed -- even if the execution
	// ended in a Revert or Panic outcome, since those are deterministic
	// results of the program itself. The error is not nil only if an
	// infrastructure problem (e.g. an unreachable storage backend) prevented
	// the interpreter from processing the program; in that case the result is
	// undefined. Interpreters are required to be thread-safe, multiple runs
	// may be conducted in parallel on independent contexts.
	Run(Parameters) (Result, error)
}

// Parameters summarizes the list of input parameters required for executing
// code. They describe the initial call frame of one top-level execution.
type Parameters struct {
	Context  RunContext
	Contract ContractID
	Code     Code
	Input    Data
	Gas      Gas
}

// RunContext provides access to everything an execution needs beyond its own
// registers and memory: the storage engine overlay of the enclosing
// transaction and the code of contracts targeted by nested calls.
type RunContext interface {
	StorageContext
	CodeStore
}

// CodeStore resolves the decoded code of deployed contracts. Implementations
// are external to the interpreter; the core never decodes raw bytes itself.
type CodeStore interface {
	// GetCode returns the code of the given contract. An error indicates a
	// backend failure; a missing contract is reported as empty code.
	GetCode(ContractID) (Code, error)
}

// StorageContext is the interface to the transaction-private overlay of the
// sparse Merkle storage engine. All mutations are buffered in the overlay;
// snapshots allow nested call frames to roll back their own writes without
// affecting writes of frames that completed earlier.
//
// Every returned error reflects a failure of the underlying storage medium.
// Such errors are fatal to the whole execution and must be surfaced to the
// caller unchanged; they are never mapped to a program fault.
type StorageContext interface {
	// GetStorage returns the value stored under the given contract/key pair
	// and whether the slot exists.
	GetStorage(ContractID, Key) (Word, bool, error)

	// SetStorage writes a value and reports whether the slot existed before.
	SetStorage(ContractID, Key, Word) (bool, error)

	// RemoveStorage deletes a slot and reports whether it existed before.
	RemoveStorage(ContractID, Key) (bool, error)

	// StorageRoot returns the current root commitment of the overlay.
	StorageRoot() Hash

	CreateSnapshot() Snapshot
	RestoreSnapshot(Snapshot)
}

// Outcome is the terminal state of one top-level execution.
type Outcome byte

const (
	// Success: the outermost frame returned; all buffered writes are
	// committable.
	Success Outcome = iota
	// Revert: the outermost frame reverted; its writes are discarded, the
	// reason code is reported to the caller.
	Revert
	// Panic: a fault unwound the whole execution; all writes are discarded.
	Panic
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Revert:
		return "revert"
	case Panic:
		return "panic"
	}
	return "unknown"
}

// Result summarizes the result of one code execution.
type Result struct {
	Outcome    Outcome
	Output     Data      // < return data, only set on Success
	RevertCode uint64    // < reason code, only meaningful on Revert
	Fault      FaultKind // < fault kind, only meaningful on Panic
	GasLeft    Gas
	GasRefund  Gas
	Receipts   []Receipt
}
