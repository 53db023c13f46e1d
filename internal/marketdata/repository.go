package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calder/noteval/internal/contracts"
)

// Repository stores daily close series in PostgreSQL. Serving reads and
// feed writes both go through here.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a market data repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetSeries retrieves a ticker's closes up to a date, ascending
func (r *Repository) GetSeries(ctx context.Context, ticker string, uptoDate time.Time) ([]contracts.PricePoint, error) {
	query := `
		SELECT close_date, close_price
		FROM marketdata.daily_closes
		WHERE ticker = $1 AND close_date <= $2
		ORDER BY close_date ASC
	`

	rows, err := r.pool.Query(ctx, query, ticker, uptoDate)
	if err != nil {
		return nil, fmt.Errorf("failed to load series for %s: %w", ticker, err)
	}
	defer rows.Close()

	var series []contracts.PricePoint
	for rows.Next() {
		var p contracts.PricePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			return nil, err
		}
		series = append(series, p)
	}
	return series, rows.Err()
}

// SaveBatch upserts a batch of closes for a ticker
func (r *Repository) SaveBatch(ctx context.Context, ticker string, points []contracts.PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	query := `
		INSERT INTO marketdata.daily_closes (ticker, close_date, close_price)
		VALUES ($1, $2, $3)
		ON CONFLICT (ticker, close_date) DO UPDATE SET
			close_price = EXCLUDED.close_price
	`

	for _, p := range points {
		if _, err := r.pool.Exec(ctx, query, ticker, p.Date, p.Close); err != nil {
			return fmt.Errorf("failed to save close for %s: %w", ticker, err)
		}
	}
	return nil
}

// LatestDate returns the most recent close date across all tickers.
// The zero time comes back on an empty store.
func (r *Repository) LatestDate(ctx context.Context) (time.Time, error) {
	var latest *time.Time
	err := r.pool.QueryRow(ctx,
		`SELECT MAX(close_date) FROM marketdata.daily_closes`).Scan(&latest)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read latest close date: %w", err)
	}
	if latest == nil {
		return time.Time{}, nil
	}
	return *latest, nil
}
