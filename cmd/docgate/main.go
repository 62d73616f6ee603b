// Package main provides the entry point for the docgate CLI.
package main

import (
	"fmt"
	"os"

	"github.com/docgate/docgate/cmd/docgate/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
