package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/calder/noteval/internal/contracts"
)

// ErrProductNotFound is returned when a product id has no catalog row
var ErrProductNotFound = errors.New("product not found")

// Repository implements contracts.ProductRepository on PostgreSQL.
// Product terms are immutable after issuance; the only mutable column is
// the issuer-call override.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a product catalog repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetTerms retrieves the full product terms, schedule included
func (r *Repository) GetTerms(ctx context.Context, productID string) (*contracts.ProductTerms, error) {
	query := `
		SELECT product_id, name, template_type, trade_date, value_date,
		       final_observation_date, maturity_date, underlyings, parameters
		FROM catalog.products
		WHERE product_id = $1
	`

	var terms contracts.ProductTerms
	var underlyings, parameters []byte
	err := r.pool.QueryRow(ctx, query, productID).Scan(
		&terms.ProductID, &terms.Name, &terms.TemplateType,
		&terms.TradeDate, &terms.ValueDate,
		&terms.FinalObservationDate, &terms.MaturityDate,
		&underlyings, &parameters,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrProductNotFound, productID)
		}
		return nil, fmt.Errorf("failed to load product %s: %w", productID, err)
	}

	if err := json.Unmarshal(underlyings, &terms.Underlyings); err != nil {
		return nil, fmt.Errorf("product %s has malformed underlyings: %w", productID, err)
	}
	if err := json.Unmarshal(parameters, &terms.Parameters); err != nil {
		return nil, fmt.Errorf("product %s has malformed parameters: %w", productID, err)
	}

	schedule, err := r.getSchedule(ctx, productID)
	if err != nil {
		return nil, err
	}
	terms.Schedule = schedule

	return &terms, nil
}

// getSchedule loads the observation schedule in index order
func (r *Repository) getSchedule(ctx context.Context, productID string) ([]contracts.ObservationScheduleEntry, error) {
	query := `
		SELECT idx, observation_date, payment_date, observation_type,
		       is_callable, autocall_level, scheduled_rebate
		FROM catalog.observation_schedule
		WHERE product_id = $1
		ORDER BY idx ASC
	`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to load schedule for %s: %w", productID, err)
	}
	defer rows.Close()

	var entries []contracts.ObservationScheduleEntry
	for rows.Next() {
		var e contracts.ObservationScheduleEntry
		if err := rows.Scan(&e.Index, &e.ObservationDate, &e.PaymentDate, &e.Type,
			&e.IsCallable, &e.AutocallLevel, &e.ScheduledRebate); err != nil {
			return nil, fmt.Errorf("failed to scan schedule row for %s: %w", productID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListLiveProductIDs returns the ids of products whose maturity date has
// not passed. Called products stay listed; the walker classifies them.
func (r *Repository) ListLiveProductIDs(ctx context.Context) ([]string, error) {
	query := `
		SELECT product_id
		FROM catalog.products
		WHERE maturity_date >= CURRENT_DATE
		ORDER BY product_id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list live products: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetOverride retrieves the current issuer-call override for a product.
// No row means no override was ever written: callers get nil, not an error.
func (r *Repository) GetOverride(ctx context.Context, productID string) (*contracts.IssuerCallOverride, error) {
	query := `
		SELECT has_call_option, call_date, call_price, call_rebate,
		       rebate_type, updated_at, updated_by
		FROM catalog.issuer_call_overrides
		WHERE product_id = $1
	`

	var o contracts.IssuerCallOverride
	err := r.pool.QueryRow(ctx, query, productID).Scan(
		&o.HasCallOption, &o.CallDate, &o.CallPrice, &o.CallRebate,
		&o.RebateType, &o.UpdatedAt, &o.UpdatedBy,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load override for %s: %w", productID, err)
	}
	return &o, nil
}

// SaveOverride upserts the issuer-call override for a product
func (r *Repository) SaveOverride(ctx context.Context, productID string, override *contracts.IssuerCallOverride) error {
	query := `
		INSERT INTO catalog.issuer_call_overrides
			(product_id, has_call_option, call_date, call_price, call_rebate,
			 rebate_type, updated_at, updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (product_id) DO UPDATE SET
			has_call_option = EXCLUDED.has_call_option,
			call_date       = EXCLUDED.call_date,
			call_price      = EXCLUDED.call_price,
			call_rebate     = EXCLUDED.call_rebate,
			rebate_type     = EXCLUDED.rebate_type,
			updated_at      = EXCLUDED.updated_at,
			updated_by      = EXCLUDED.updated_by
	`

	_, err := r.pool.Exec(ctx, query,
		productID, override.HasCallOption, override.CallDate,
		override.CallPrice, override.CallRebate, override.RebateType,
		override.UpdatedAt, override.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to save override for %s: %w", productID, err)
	}
	return nil
}

// ClearOverride removes the override row, fully reverting the product
func (r *Repository) ClearOverride(ctx context.Context, productID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM catalog.issuer_call_overrides WHERE product_id = $1`, productID)
	if err != nil {
		return fmt.Errorf("failed to clear override for %s: %w", productID, err)
	}
	return nil
}
