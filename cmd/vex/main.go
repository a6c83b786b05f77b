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
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:      "vex",
		Usage:     "Vex register VM driver",
		Copyright: "(c) 2025 Vex Labs",
		Commands: []*cli.Command{
			&RunCmd,
			&ListCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
