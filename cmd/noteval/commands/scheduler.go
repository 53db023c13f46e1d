package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/calder/noteval/internal/marketdata/feed"
	"github.com/calder/noteval/internal/scheduler"
	"github.com/calder/noteval/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Run the daily ingest and revaluation schedule",
	Long: `Starts the job scheduler.

Jobs:
  marketdata-ingest - pulls daily closes for live product tickers
  revaluation       - re-evaluates every live product after the ingest

Example:
  go run ./cmd/noteval scheduler
  go run ./cmd/noteval scheduler --run-now revaluation`,
	RunE: runScheduler,
}

var schedulerRunNow string

func init() {
	rootCmd.AddCommand(schedulerCmd)

	schedulerCmd.Flags().StringVar(&schedulerRunNow, "run-now", "", "trigger a job immediately on startup")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	application, err := buildApp()
	if err != nil {
		return err
	}
	defer application.close()
	log := application.log

	feedClient := feed.NewClient(application.cfg.Feed, log)
	ingestor := feed.NewIngestor(feedClient, application.market, log)

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewIngestJob(application.catalog, ingestor, "", log)); err != nil {
		return err
	}
	if err := sched.AddJob(jobs.NewRevaluationJob(application.service, "", log)); err != nil {
		return err
	}

	sched.Start()
	defer sched.Stop()

	if schedulerRunNow != "" {
		if err := sched.RunNow(schedulerRunNow); err != nil {
			return err
		}
	}

	fmt.Println("Scheduler running, press Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	return nil
}
