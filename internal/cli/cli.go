// Package cli provides the command-line interface for StockScout.
package cli

import (
	"fmt"
	"os"
)

// Run executes the root command and exits non-zero on error.
func Run() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
