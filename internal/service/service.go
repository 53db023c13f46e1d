package service

import (
	"context"
	"fmt"
	"time"

	"github.com/calder/noteval/internal/contracts"
	"github.com/calder/noteval/internal/engine"
	"github.com/calder/noteval/pkg/logger"
	"github.com/calder/noteval/pkg/redis"
)

// EvaluationService wires the catalog, the market data store, the engine
// and the report store into the evaluate-and-persist flow. Caching sits at
// this boundary, never inside the engine: a cached result is keyed by
// product, evaluation date and market data version, so identical inputs
// serve identical documents.
type EvaluationService struct {
	products contracts.ProductRepository
	market   contracts.MarketDataProvider
	reports  contracts.ReportRepository
	engine   *engine.Engine
	cache    *redis.Cache
	cacheTTL time.Duration
	logger   *logger.Logger
}

// New creates the evaluation service
func New(
	products contracts.ProductRepository,
	market contracts.MarketDataProvider,
	reports contracts.ReportRepository,
	eng *engine.Engine,
	cache *redis.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *EvaluationService {
	return &EvaluationService{
		products: products,
		market:   market,
		reports:  reports,
		engine:   eng,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   log.WithComponent("evaluation-service"),
	}
}

// EvaluateProduct evaluates one product at a date and persists the result.
// A validation failure leaves the previous report document in place and
// appends the failure's issues to it.
func (s *EvaluationService) EvaluateProduct(ctx context.Context, productID string, evalDate time.Time) (*contracts.EvaluationResult, error) {
	terms, err := s.products.GetTerms(ctx, productID)
	if err != nil {
		return nil, err
	}

	override, err := s.products.GetOverride(ctx, productID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.market.Snapshot(ctx, terms.Tickers(), evalDate)
	if err != nil {
		return nil, err
	}

	cacheKey := s.resultKey(productID, evalDate, snapshot.Version)
	var cached contracts.EvaluationResult
	if hit, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && hit {
		return &cached, nil
	}

	result, evalErr := s.engine.Evaluate(terms, snapshot, evalDate, override)
	if evalErr != nil {
		// The previous document survives; only its issue list grows.
		if appendErr := s.reports.AppendIssues(ctx, productID, result.ProcessingIssues); appendErr != nil {
			s.logger.WithError(appendErr).WithProduct(productID).Error("Failed to append issues to previous report")
		}
		return result, evalErr
	}

	if err := s.reports.Save(ctx, result); err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, cacheKey, result, s.cacheTTL); err != nil {
		s.logger.WithError(err).WithProduct(productID).Warn("Result cache write failed")
	}

	return result, nil
}

// BatchSummary reports the outcome of a multi-product evaluation run
type BatchSummary struct {
	Evaluated int      `json:"evaluated"`
	Failed    int      `json:"failed"`
	FailedIDs []string `json:"failed_ids,omitempty"`
}

// EvaluateAll evaluates every live product at a date. Per-product failures
// never abort the run.
func (s *EvaluationService) EvaluateAll(ctx context.Context, evalDate time.Time) (*BatchSummary, error) {
	ids, err := s.products.ListLiveProductIDs(ctx)
	if err != nil {
		return nil, err
	}

	summary := &BatchSummary{}
	for _, id := range ids {
		if _, err := s.EvaluateProduct(ctx, id, evalDate); err != nil {
			summary.Failed++
			summary.FailedIDs = append(summary.FailedIDs, id)
			s.logger.WithError(err).WithProduct(id).Error("Product evaluation failed")
			continue
		}
		summary.Evaluated++
	}

	s.logger.WithFields(map[string]interface{}{
		"eval_date": evalDate.Format("2006-01-02"),
		"evaluated": summary.Evaluated,
		"failed":    summary.Failed,
	}).Info("Batch evaluation finished")

	return summary, nil
}

// GetReport returns the current persisted report for a product
func (s *EvaluationService) GetReport(ctx context.Context, productID string) (*contracts.EvaluationResult, error) {
	return s.reports.GetLatest(ctx, productID)
}

// ListProducts returns the live product ids
func (s *EvaluationService) ListProducts(ctx context.Context) ([]string, error) {
	return s.products.ListLiveProductIDs(ctx)
}

// Indicative computes the on-demand "if matured today" value without
// touching the persisted report.
func (s *EvaluationService) Indicative(ctx context.Context, productID string, now time.Time) (*contracts.IndicativeValue, error) {
	terms, err := s.products.GetTerms(ctx, productID)
	if err != nil {
		return nil, err
	}

	override, err := s.products.GetOverride(ctx, productID)
	if err != nil {
		return nil, err
	}

	snapshot, err := s.market.Snapshot(ctx, terms.Tickers(), now)
	if err != nil {
		return nil, err
	}

	value, _, err := s.engine.ProjectIndicative(terms, snapshot, now, override)
	return value, err
}

// SetOverride validates and writes an issuer-call override, then
// re-evaluates the product so the stored report reflects it immediately.
// A rejected override leaves both the stored override and the report
// untouched.
func (s *EvaluationService) SetOverride(ctx context.Context, productID string, override *contracts.IssuerCallOverride, updatedBy string) (*contracts.EvaluationResult, error) {
	if override == nil {
		return nil, fmt.Errorf("%w: override payload is required", engine.ErrOverrideValidation)
	}

	terms, err := s.products.GetTerms(ctx, productID)
	if err != nil {
		return nil, err
	}

	if err := s.engine.Overrides().Validate(terms, override); err != nil {
		return nil, err
	}

	override.UpdatedAt = time.Now().UTC()
	override.UpdatedBy = updatedBy
	if err := s.products.SaveOverride(ctx, productID, override); err != nil {
		return nil, err
	}

	s.invalidate(ctx, productID)
	return s.EvaluateProduct(ctx, productID, time.Now().UTC().Truncate(24*time.Hour))
}

// ClearOverride removes the override and re-evaluates, fully reverting the
// product to its template behavior.
func (s *EvaluationService) ClearOverride(ctx context.Context, productID string) (*contracts.EvaluationResult, error) {
	if _, err := s.products.GetTerms(ctx, productID); err != nil {
		return nil, err
	}

	if err := s.products.ClearOverride(ctx, productID); err != nil {
		return nil, err
	}

	s.invalidate(ctx, productID)
	return s.EvaluateProduct(ctx, productID, time.Now().UTC().Truncate(24*time.Hour))
}

// resultKey builds the cache key for one evaluation
func (s *EvaluationService) resultKey(productID string, evalDate time.Time, mdVersion string) string {
	return fmt.Sprintf("%s:%s:%s", productID, evalDate.Format("2006-01-02"), mdVersion)
}

// invalidate drops every cached result for a product
func (s *EvaluationService) invalidate(ctx context.Context, productID string) {
	if err := s.cache.DeletePrefix(ctx, productID+":"); err != nil {
		s.logger.WithError(err).WithProduct(productID).Warn("Cache invalidation failed")
	}
}
