package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database, cache and data freshness status",
	Long: `Prints a one-shot status summary:

- Database connectivity and pool stats
- Redis availability
- Latest stored close date
- Live product count

Example:
  go run ./cmd/noteval status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	application, err := buildApp()
	if err != nil {
		return err
	}
	defer application.close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	health, err := application.db.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("Database:   unreachable (%v)\n", err)
	} else {
		fmt.Printf("Database:   healthy (%d/%d conns, %v ping)\n",
			health.Stats.TotalConns, health.Stats.MaxConns, health.ResponseTime)
	}

	switch {
	case !application.redis.Enabled():
		fmt.Println("Cache:      disabled")
	case application.redis.Healthy(ctx):
		fmt.Println("Cache:      healthy")
	default:
		fmt.Println("Cache:      unreachable")
	}

	latest, err := application.market.LatestDate(ctx)
	switch {
	case err != nil:
		fmt.Printf("Closes:     error (%v)\n", err)
	case latest.IsZero():
		fmt.Println("Closes:     none stored")
	default:
		fmt.Printf("Closes:     up to %s\n", latest.Format("2006-01-02"))
	}

	ids, err := application.catalog.ListLiveProductIDs(ctx)
	if err != nil {
		fmt.Printf("Products:   error (%v)\n", err)
	} else {
		fmt.Printf("Products:   %d live\n", len(ids))
	}

	return nil
}
