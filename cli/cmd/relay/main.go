// Relay CLI - resilient client for the test-case agent backend.
package main

import (
	"os"

	"github.com/petal-labs/relay/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
