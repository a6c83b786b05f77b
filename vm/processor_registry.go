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

import (
	"fmt"
	"strings"
	"sync"

	"golang.org/x/exp/maps"
)

// This file provides a registry for Processor implementations, mirroring the
// interpreter registry. Processor packages register themselves during
// initialization; client applications select an implementation by name and
// supply the interpreter the processor should drive.

// GetProcessor performs a lookup for the given name (case-insensitive) and
// creates a processor instance using the given interpreter. The result is nil
// if no factory was registered under the given name.
func GetProcessor(name string, interpreter Interpreter) Processor {
	factory := GetProcessorFactory(name)
	if factory == nil {
		return nil
	}
	return factory(interpreter)
}

// GetProcessorFactory performs a lookup for the given name (case-insensitive)
// in the registry. The result is nil if no factory was registered under the
// given name.
func GetProcessorFactory(name string) ProcessorFactory {
	processorRegistryLock.Lock()
	defer processorRegistryLock.Unlock()
	return processorRegistry[strings.ToLower(name)]
}

// GetAllRegisteredProcessorFactories obtains all registered implementations.
func GetAllRegisteredProcessorFactories() map[string]ProcessorFactory {
	processorRegistryLock.Lock()
	defer processorRegistryLock.Unlock()
	return maps.Clone(processorRegistry)
}

// RegisterProcessorFactory registers a new Processor implementation to be
// exported for general use in the binary. The name is not case-sensitive, and
// an error is returned if a factory was bound to the same name before, or the
// factory is nil. This function is mainly intended to be used by package
// initialization code.
func RegisterProcessorFactory(name string, factory ProcessorFactory) error {
	key := strings.ToLower(name)
	if factory == nil {
		return fmt.Errorf("invalid initialization: cannot register nil-factory using `%s`", key)
	}
	processorRegistryLock.Lock()
	defer processorRegistryLock.Unlock()
	if _, found := processorRegistry[key]; found {
		return fmt.Errorf("invalid initialization: multiple factories registered for `%s`", key)
	}
	processorRegistry[key] = factory
	return nil
}

// ProcessorFactory is the type of a function that creates a new Processor
// driving the given interpreter.
type ProcessorFactory func(Interpreter) Processor

// processorRegistry is a global registry for Processor factories of different
// implementations and configurations.
var processorRegistry = map[string]ProcessorFactory{}

// processorRegistryLock to protect access to the registry.
var processorRegistryLock sync.Mutex
