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
	"encoding/binary"
	"fmt"
	"time"

	"github.com/dsnet/golib/unitconv"
	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/exp/maps"

	_ "github.com/vexvm/vex/interpreter/rvm"
	_ "github.com/vexvm/vex/processor/atlas"

	"github.com/vexvm/vex/examples"
	"github.com/vexvm/vex/smt"
	"github.com/vexvm/vex/state"
	"github.com/vexvm/vex/vm"
)

var RunCmd = cli.Command{
	Action:    doRun,
	Name:      "run",
	Usage:     "Run an example program and report its result, gas, and receipts",
	ArgsUsage: "<example>",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:  "interpreter",
			Usage: "the interpreter implementation to use",
			Value: "rvm",
		},
		&cli.StringFlag{
			Name:  "processor",
			Usage: "the processor implementation to use",
			Value: "atlas",
		},
		&cli.Uint64Flag{
			Name:  "argument",
			Usage: "the argument passed to the example program",
			Value: 10,
		},
		&cli.Int64Flag{
			Name:  "gas-limit",
			Usage: "the gas limit of the transaction",
			Value: 10_000_000,
		},
		&cli.IntFlag{
			Name:  "iterations",
			Usage: "number of transactions to process",
			Value: 1,
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "directory of the node database; state is kept in memory if empty",
		},
		&cli.BoolFlag{
			Name:  "receipts",
			Usage: "print the receipt log of the last transaction",
		},
	},
}

func doRun(context *cli.Context) error {
	all := map[string]examples.Example{}
	for _, example := range examples.GetAllExamples() {
		all[example.Name] = example
	}
	example, ok := all[context.Args().Get(0)]
	if !ok {
		return fmt.Errorf("unknown example, use one of: %v", maps.Keys(all))
	}

	interpreter, err := vm.NewInterpreter(context.String("interpreter"))
	if err != nil {
		return err
	}
	processor := vm.GetProcessor(context.String("processor"), interpreter)
	if processor == nil {
		return fmt.Errorf("unknown processor: %s", context.String("processor"))
	}

	base, err := openStore(context.String("db"))
	if err != nil {
		return err
	}

	var (
		contract   = vm.ContractID{0xe1}
		root       vm.Hash
		last       vm.TransactionResult
		iterations = context.Int("iterations")
		totalGas   vm.Gas
		start      = time.Now()
	)
	for i := 0; i < iterations; i++ {
		input := make(vm.Data, 8)
		binary.BigEndian.PutUint64(input, context.Uint64("argument"))
		last, err = processor.Run(vm.Transaction{
			Contract: contract,
			Code:     example.Code,
			Input:    input,
			GasLimit: vm.Gas(context.Int64("gas-limit")),
		}, state.NewContext(base, root))
		if err != nil {
			return fmt.Errorf("transaction %d failed: %w", i, err)
		}
		totalGas += last.GasUsed
		if last.Outcome == vm.Success {
			root = last.Root
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("outcome:  %v\n", last.Outcome)
	fmt.Printf("gas used: %sgas (total %sgas)\n",
		unitconv.FormatPrefix(float64(last.GasUsed), unitconv.SI, 2),
		unitconv.FormatPrefix(float64(totalGas), unitconv.SI, 2))
	fmt.Printf("root:     %x\n", root)
	if elapsed > 0 {
		rate := float64(totalGas) / elapsed.Seconds()
		fmt.Printf("rate:     %sgas/s\n", unitconv.FormatPrefix(rate, unitconv.SI, 2))
	}
	if context.Bool("receipts") {
		for _, receipt := range last.Receipts {
			fmt.Printf("  %v\n", receipt)
		}
	}
	return nil
}

// openStore selects the node store backing the run. A leveldb database keeps
// committed roots across invocations, the in-memory store starts empty.
func openStore(path string) (smt.NodeStore, error) {
	if path == "" {
		return smt.NewMapStore(), nil
	}
	store, err := smt.OpenLevelStore(path)
	if err != nil {
		return nil, err
	}
	log.Info("using leveldb node store", "path", path)
	return smt.NewCachedStore(store, 16384), nil
}
