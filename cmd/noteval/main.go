package main

import (
	"os"

	"github.com/calder/noteval/cmd/noteval/commands"
)

// main is the entry point for the noteval CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
