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
	"strings"
	"testing"

	"github.com/vexvm/vex/vm"
)

func TestRvm_IsRegistered(t *testing.T) {
	for _, name := range []string{"rvm", "RVM", "Rvm"} {
		interpreter, err := vm.NewInterpreter(name)
		if err != nil {
			t.Fatalf("failed to create interpreter `%s`: %v", name, err)
		}
		if interpreter == nil {
			t.Fatalf("registry produced a nil interpreter for `%s`", name)
		}
	}
}

func TestRvm_FactoryAcceptsAConfig(t *testing.T) {
	interpreter, err := vm.NewInterpreter("rvm", Config{
		MaxMemory:    1 << 20,
		MaxCallDepth: 16,
	})
	if err != nil {
		t.Fatalf("failed to create interpreter: %v", err)
	}
	instance, ok := interpreter.(*rvm)
	if !ok {
		t.Fatalf("unexpected interpreter implementation %T", interpreter)
	}
	if instance.config.MaxMemory != 1<<20 || instance.config.MaxCallDepth != 16 {
		t.Errorf("configuration not passed through, got %+v", instance.config)
	}
}

func TestRvm_FactoryRejectsForeignConfigTypes(t *testing.T) {
	_, err := vm.NewInterpreter("rvm", "not a config")
	if err == nil {
		t.Fatalf("expected an error for a foreign configuration type")
	}
	if !strings.Contains(err.Error(), "unexpected rvm configuration type") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestRvm_ZeroConfigSelectsDefaults(t *testing.T) {
	instance, err := NewVM(Config{})
	if err != nil {
		t.Fatalf("failed to create interpreter: %v", err)
	}
	if instance.config.MaxMemory != DefaultMaxMemory {
		t.Errorf("expected default memory cap %d, got %d", DefaultMaxMemory, instance.config.MaxMemory)
	}
	if instance.config.MaxCallDepth != DefaultMaxCallDepth {
		t.Errorf("expected default call depth %d, got %d", DefaultMaxCallDepth, instance.config.MaxCallDepth)
	}
}

func TestRvm_ExplicitLimitsAreKept(t *testing.T) {
	instance, err := NewVM(Config{MaxMemory: 4096, MaxCallDepth: 2})
	if err != nil {
		t.Fatalf("failed to create interpreter: %v", err)
	}
	if instance.config.MaxMemory != 4096 || instance.config.MaxCallDepth != 2 {
		t.Errorf("explicit limits not kept, got %+v", instance.config)
	}
}

func TestRvm_MemoryLimitIsEnforced(t *testing.T) {
	// A tiny arena rejects a stack extension beyond its cap.
	code := vm.Code{
		{Op: vm.MOVI, A: r0, Imm: 256},
		{Op: vm.CFE, A: r0},
		{Op: vm.RET, A: vm.RegZero},
	}
	instance, err := NewVM(Config{MaxMemory: 128})
	if err != nil {
		t.Fatalf("failed to create interpreter: %v", err)
	}
	result, err := instance.Run(vm.Parameters{
		Context:  newTestContext(),
		Contract: testContract,
		Code:     code,
		Gas:      100000,
	})
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	if result.Outcome != vm.Panic || result.Fault != vm.FaultMemoryOvergrowth {
		t.Errorf("expected a memory overgrowth panic, got %v (fault %v)", result.Outcome, result.Fault)
	}
}

func TestRvm_CallDepthLimitIsConfigurable(t *testing.T) {
	recursive := vm.Code{
		{Op: vm.MOVI, A: r0, Imm: 32},
		{Op: vm.CALL, A: vm.RegFP, B: vm.RegCGas, C: vm.RegFP, D: r0},
		{Op: vm.RET, A: vm.RegZero},
	}
	ctxt := newTestContext()
	ctxt.SetCode(calleeContract, recursive)

	instance, err := NewVM(Config{MaxCallDepth: 4})
	if err != nil {
		t.Fatalf("failed to create interpreter: %v", err)
	}
	result, err := instance.Run(vm.Parameters{
		Context:  ctxt,
		Contract: calleeContract,
		Code:     recursive,
		Input:    vm.Data(calleeContract[:]),
		Gas:      1000000,
	})
	if err != nil {
		t.Fatalf("execution failed: %v", err)
	}
	if result.Outcome != vm.Panic || result.Fault != vm.FaultCallDepthOverflow {
		t.Errorf("expected a call-depth panic, got %v (fault %v)", result.Outcome, result.Fault)
	}
	// The failed nesting attempt is visible as call receipts up to the limit.
	calls := 0
	for _, receipt := range result.Receipts {
		if receipt.Kind == vm.ReceiptCall {
			calls++
		}
	}
	if calls >= 4 {
		t.Errorf("expected fewer than 4 call receipts under depth limit 4, got %d", calls)
	}
}
