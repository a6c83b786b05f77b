// Copyright (c) 2025 Vex Labs
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at vexvm.dev/bsl11.
//
// Change Date: 2029-6-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package rvm provides the reference register-machine interpreter. Programs
// are executed strictly sequentially under gas accounting; identical
// (code, input, gas) triples produce bit-identical results, roots, and
// receipt sequences on every node.
package rvm

import (
	"fmt"

	"github.com/vexvm/vex/vm"
)

// Registers the register VM as a possible interpreter implementation.
func init() {
	err := vm.RegisterInterpreterFactory("rvm", func(config any) (vm.Interpreter, error) {
		if config == nil {
			return NewVM(Config{})
		}
		cfg, ok := config.(Config)
		if !ok {
			return nil, fmt.Errorf("unexpected rvm configuration type %T", config)
		}
		return NewVM(cfg)
	})
	if err != nil {
		panic(fmt.Sprintf("failed to register interpreter: %v", err))
	}
}

const (
	// DefaultMaxMemory is the default cap of the memory arena, 64 MiB.
	DefaultMaxMemory = 64 << 20

	// DefaultMaxCallDepth is the default bound on active call frames.
	DefaultMaxCallDepth = 1024
)

// Config collects the tunable limits of an interpreter instance. Limits are
// consensus-relevant: all nodes validating the same chain must run the same
// configuration. Zero values select the defaults.
type Config struct {
	MaxMemory    uint64 // < memory arena cap in bytes
	MaxCallDepth int    // < maximum number of active call frames
}

type rvm struct {
	config Config
}

// NewVM creates an interpreter instance with the given configuration.
// Instances are stateless and safe for concurrent use; per-run state lives in
// pooled execution contexts.
func NewVM(config Config) (*rvm, error) {
	if config.MaxMemory == 0 {
		config.MaxMemory = DefaultMaxMemory
	}
	if config.MaxCallDepth == 0 {
		config.MaxCallDepth = DefaultMaxCallDepth
	}
	return &rvm{config: config}, nil
}

func (e *rvm) Run(params vm.Parameters) (vm.Result, error) {
	return run(e.config, params)
}
