// Copyright (c) 2025 Vex Labs
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at vexvm.dev/bsl11.
//
// Change Date: 2029-6-1
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package main

import (
	"fmt"
	"sort"

	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"

	"github.com/vexvm/vex/examples"
	"github.com/vexvm/vex/vm"
)

var ListCmd = cli.Command{
	Action: doList,
	Name:   "list",
	Usage:  "List available examples, interpreters, and processors",
}

func doList(*cli.Context) error {
	fmt.Println("examples:")
	for _, example := range examples.GetAllExamples() {
		fmt.Printf("  %s (%d instructions)\n", example.Name, len(example.Code))
	}

	interpreters := maps.Keys(vm.GetAllRegisteredInterpreters())
	sort.Strings(interpreters)
	fmt.Println("interpreters:")
	for _, name := range interpreters {
		fmt.Printf("  %s\n", name)
	}

	processors := maps.Keys(vm.GetAllRegisteredProcessorFactories())
	sort.Strings(processors)
	fmt.Println("processors:")
	for _, name := range processors {
		fmt.Printf("  %s\n", name)
	}
	return nil
}
