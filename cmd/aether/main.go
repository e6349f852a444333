/*
 * Copyright (c) 2020 Aether IM.
 * See the LICENSE file for more information.
 */

package main

import (
	"fmt"
	"os"

	"github.com/aether-im/aether/app"
)

func main() {
	a := app.New(os.Stdout, os.Args)
	if err := a.Run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "aether: %v\n", err)
		os.Exit(1)
	}
}
