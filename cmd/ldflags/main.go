// Command ldflags is a cobra CLI that drives the SDK against a local
// file-based test-data source (or, in remote mode, a running
// cmd/ldflags-service instance), grounded on goflagship's
// cmd/flagship/main.go + commands/root.go lineage.
package main

import (
	"fmt"
	"os"

	"github.com/TimurManjosov/goflagship/cmd/ldflags/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
