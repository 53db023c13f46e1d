package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "noteval",
	Short: "Structured note evaluation service",
	Long: `noteval evaluates structured notes against daily market data.

Payoff templates: phoenix autocallable, himalaya basket, orion memory
and participation notes. Evaluations run on demand through the API or
on a daily schedule after the close-price ingest.

Usage:
  go run ./cmd/noteval [command]

Examples:
  go run ./cmd/noteval api
  go run ./cmd/noteval evaluate --product PHX-2025-001
  go run ./cmd/noteval scheduler
  go run ./cmd/noteval status`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
