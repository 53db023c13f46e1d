package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/calder/noteval/internal/contracts"
)

// Provider implements contracts.MarketDataProvider on the close-price
// store. A snapshot is assembled once per evaluation and never shared
// across evaluations with different as-of dates.
type Provider struct {
	repo *Repository
}

// NewProvider creates a snapshot provider
func NewProvider(repo *Repository) *Provider {
	return &Provider{repo: repo}
}

// Snapshot assembles a fixed per-ticker price snapshot up to a date.
// Tickers with no data get no series entry; the engine's fallback chain
// turns that into a warning, not a failure.
func (p *Provider) Snapshot(ctx context.Context, tickers []string, uptoDate time.Time) (*contracts.MarketDataSnapshot, error) {
	snapshot := &contracts.MarketDataSnapshot{
		AsOf:   uptoDate,
		Series: make(map[string][]contracts.PricePoint, len(tickers)),
	}

	for _, ticker := range tickers {
		series, err := p.repo.GetSeries(ctx, ticker, uptoDate)
		if err != nil {
			return nil, err
		}
		if len(series) > 0 {
			snapshot.Series[ticker] = series
		}
	}

	latest, err := p.repo.LatestDate(ctx)
	if err != nil {
		return nil, err
	}
	snapshot.Version = versionFor(latest)

	return snapshot, nil
}

// versionFor derives the snapshot version tag from the latest stored close.
// The tag keys the result cache: a new close day invalidates every cached
// evaluation at once.
func versionFor(latest time.Time) string {
	if latest.IsZero() {
		return "md-empty"
	}
	return fmt.Sprintf("md-%s", latest.Format("2006-01-02"))
}
