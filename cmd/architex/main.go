// Command architex serves canvas workspaces over HTTP and drives the
// Architex backend (projects, generation jobs) from the terminal.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
