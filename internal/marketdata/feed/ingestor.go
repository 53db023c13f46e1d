package feed

import (
	"context"
	"time"

	"github.com/calder/noteval/internal/contracts"
	"github.com/calder/noteval/pkg/logger"
)

// SeriesStore is the slice of the close-price store the ingestor writes to
type SeriesStore interface {
	SaveBatch(ctx context.Context, ticker string, points []contracts.PricePoint) error
	LatestDate(ctx context.Context) (time.Time, error)
}

// Ingestor pulls closes from the feed and writes them to the store.
// One failing ticker never aborts the batch; the failure is logged and the
// rest of the tickers proceed.
type Ingestor struct {
	client *Client
	store  SeriesStore
	logger *logger.Logger
}

// NewIngestor creates a feed ingestor
func NewIngestor(client *Client, store SeriesStore, log *logger.Logger) *Ingestor {
	return &Ingestor{
		client: client,
		store:  store,
		logger: log.WithComponent("feed-ingestor"),
	}
}

// IngestResult summarizes one ingest run
type IngestResult struct {
	Tickers       int `json:"tickers"`
	PointsSaved   int `json:"points_saved"`
	FailedTickers int `json:"failed_tickers"`
}

// Ingest fetches and stores closes for a set of tickers since the last
// stored close date.
func (i *Ingestor) Ingest(ctx context.Context, tickers []string, uptoDate time.Time) (*IngestResult, error) {
	latest, err := i.store.LatestDate(ctx)
	if err != nil {
		return nil, err
	}

	from := latest.AddDate(0, 0, 1)
	if latest.IsZero() {
		// Empty store: backfill one year.
		from = uptoDate.AddDate(-1, 0, 0)
	}

	result := &IngestResult{Tickers: len(tickers)}
	for _, ticker := range tickers {
		points, err := i.client.FetchCloses(ctx, ticker, from, uptoDate)
		if err != nil {
			result.FailedTickers++
			i.logger.WithError(err).WithField("ticker", ticker).Error("Feed fetch failed")
			continue
		}

		if err := i.store.SaveBatch(ctx, ticker, points); err != nil {
			result.FailedTickers++
			i.logger.WithError(err).WithField("ticker", ticker).Error("Close save failed")
			continue
		}
		result.PointsSaved += len(points)
	}

	i.logger.WithFields(map[string]interface{}{
		"tickers": result.Tickers,
		"saved":   result.PointsSaved,
		"failed":  result.FailedTickers,
	}).Info("Ingest run finished")

	return result, nil
}
