package jobs

import (
	"context"
	"time"

	"github.com/calder/noteval/internal/service"
	"github.com/calder/noteval/pkg/logger"
)

// RevaluationJob re-evaluates every live product once the day's closes are
// in. Per-product failures are absorbed by the service; the job only fails
// when the batch itself cannot run.
type RevaluationJob struct {
	service  *service.EvaluationService
	schedule string
	logger   *logger.Logger
}

// NewRevaluationJob creates the daily revaluation job
func NewRevaluationJob(svc *service.EvaluationService, schedule string, log *logger.Logger) *RevaluationJob {
	if schedule == "" {
		// Weekday evenings, after the close-price ingest.
		schedule = "0 30 18 * * 1-5"
	}
	return &RevaluationJob{
		service:  svc,
		schedule: schedule,
		logger:   log.WithComponent("revaluation-job"),
	}
}

// Name returns the job name
func (j *RevaluationJob) Name() string { return "revaluation" }

// Schedule returns the cron expression
func (j *RevaluationJob) Schedule() string { return j.schedule }

// Run evaluates every live product as of today
func (j *RevaluationJob) Run(ctx context.Context) error {
	evalDate := time.Now().UTC().Truncate(24 * time.Hour)

	summary, err := j.service.EvaluateAll(ctx, evalDate)
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"evaluated": summary.Evaluated,
		"failed":    summary.Failed,
	}).Info("Revaluation pass finished")

	return nil
}
