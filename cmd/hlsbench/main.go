// Package main provides the entry point for the hlsbench CLI.
package main

import (
	"fmt"
	"os"

	"github.com/Aman-CERP/hlsbench/cmd/hlsbench/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprint(os.Stderr, cmd.FormatError(err))
		os.Exit(1)
	}
}
