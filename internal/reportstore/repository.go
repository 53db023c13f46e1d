package reportstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calder/noteval/internal/contracts"
)

// ErrReportNotFound is returned when a product has no stored report
var ErrReportNotFound = errors.New("report not found")

// Repository persists evaluation result documents, one current document
// per product. A failed evaluation never replaces the previous document;
// its issues are appended to it instead.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a report repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Save upserts the current report document for a product
func (r *Repository) Save(ctx context.Context, result *contracts.EvaluationResult) error {
	document, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal report for %s: %w", result.ProductID, err)
	}

	query := `
		INSERT INTO reports.evaluations
			(product_id, evaluation_date, market_data_version, degraded, document, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (product_id) DO UPDATE SET
			evaluation_date     = EXCLUDED.evaluation_date,
			market_data_version = EXCLUDED.market_data_version,
			degraded            = EXCLUDED.degraded,
			document            = EXCLUDED.document,
			updated_at          = NOW()
	`

	_, err = r.pool.Exec(ctx, query,
		result.ProductID, result.EvaluationDate, result.MarketDataVersion,
		result.Degraded(), document,
	)
	if err != nil {
		return fmt.Errorf("failed to save report for %s: %w", result.ProductID, err)
	}
	return nil
}

// GetLatest retrieves the current report document for a product
func (r *Repository) GetLatest(ctx context.Context, productID string) (*contracts.EvaluationResult, error) {
	var document []byte
	err := r.pool.QueryRow(ctx,
		`SELECT document FROM reports.evaluations WHERE product_id = $1`,
		productID).Scan(&document)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrReportNotFound, productID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load report for %s: %w", productID, err)
	}

	var result contracts.EvaluationResult
	if err := json.Unmarshal(document, &result); err != nil {
		return nil, fmt.Errorf("stored report for %s is malformed: %w", productID, err)
	}
	return &result, nil
}

// AppendIssues attaches issues from a failed evaluation to the previous
// report document, leaving everything else in it untouched.
func (r *Repository) AppendIssues(ctx context.Context, productID string, issues []contracts.ProcessingIssue) error {
	if len(issues) == 0 {
		return nil
	}

	previous, err := r.GetLatest(ctx, productID)
	if errors.Is(err, ErrReportNotFound) {
		// Nothing to annotate; the failure is already logged upstream.
		return nil
	}
	if err != nil {
		return err
	}

	previous.ProcessingIssues = append(previous.ProcessingIssues, issues...)
	return r.Save(ctx, previous)
}
