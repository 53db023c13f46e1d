package jobs

import (
	"context"
	"sort"
	"time"

	"github.com/calder/noteval/internal/contracts"
	"github.com/calder/noteval/internal/marketdata/feed"
	"github.com/calder/noteval/pkg/logger"
)

// IngestJob pulls the day's closes for every ticker referenced by a live
// product. Runs before the revaluation job.
type IngestJob struct {
	products contracts.ProductRepository
	ingestor *feed.Ingestor
	schedule string
	logger   *logger.Logger
}

// NewIngestJob creates the daily close-price ingest job
func NewIngestJob(products contracts.ProductRepository, ingestor *feed.Ingestor, schedule string, log *logger.Logger) *IngestJob {
	if schedule == "" {
		// Weekday evenings, ahead of the revaluation job.
		schedule = "0 0 18 * * 1-5"
	}
	return &IngestJob{
		products: products,
		ingestor: ingestor,
		schedule: schedule,
		logger:   log.WithComponent("ingest-job"),
	}
}

// Name returns the job name
func (j *IngestJob) Name() string { return "marketdata-ingest" }

// Schedule returns the cron expression
func (j *IngestJob) Schedule() string { return j.schedule }

// Run ingests closes for the distinct tickers of every live product
func (j *IngestJob) Run(ctx context.Context) error {
	ids, err := j.products.ListLiveProductIDs(ctx)
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	for _, id := range ids {
		terms, err := j.products.GetTerms(ctx, id)
		if err != nil {
			j.logger.WithError(err).WithProduct(id).Error("Skipping product with unloadable terms")
			continue
		}
		for _, ticker := range terms.Tickers() {
			seen[ticker] = true
		}
	}

	tickers := make([]string, 0, len(seen))
	for ticker := range seen {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)

	if len(tickers) == 0 {
		j.logger.Info("No live product tickers to ingest")
		return nil
	}

	_, err = j.ingestor.Ingest(ctx, tickers, time.Now().UTC())
	return err
}
