package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate products against stored market data",
	Long: `Runs evaluations and persists the resulting reports.

With --product a single product is evaluated and its report printed;
without it every live product is evaluated.

Example:
  go run ./cmd/noteval evaluate
  go run ./cmd/noteval evaluate --product PHX-2025-001
  go run ./cmd/noteval evaluate --product PHX-2025-001 --date 2026-01-05`,
	RunE: runEvaluate,
}

var (
	evaluateProduct string
	evaluateDate    string
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evaluateProduct, "product", "", "product id (empty evaluates all live products)")
	evaluateCmd.Flags().StringVar(&evaluateDate, "date", "", "evaluation date YYYY-MM-DD (default today)")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	application, err := buildApp()
	if err != nil {
		return err
	}
	defer application.close()

	evalDate := time.Now().UTC().Truncate(24 * time.Hour)
	if evaluateDate != "" {
		evalDate, err = time.Parse("2006-01-02", evaluateDate)
		if err != nil {
			return fmt.Errorf("--date must be YYYY-MM-DD: %w", err)
		}
	}

	ctx := context.Background()

	if evaluateProduct != "" {
		result, err := application.service.EvaluateProduct(ctx, evaluateProduct, evalDate)
		if err != nil {
			return fmt.Errorf("evaluate %s: %w", evaluateProduct, err)
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	summary, err := application.service.EvaluateAll(ctx, evalDate)
	if err != nil {
		return err
	}

	fmt.Printf("Evaluated %d products (%d failed)\n", summary.Evaluated, summary.Failed)
	for _, id := range summary.FailedIDs {
		fmt.Printf("  failed: %s\n", id)
	}
	return nil
}
