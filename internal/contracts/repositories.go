package contracts

import (
	"context"
	"time"
)

// ProductRepository supplies immutable product terms and the current
// issuer-call override. Implemented by the catalog package.
type ProductRepository interface {
	GetTerms(ctx context.Context, productID string) (*ProductTerms, error)
	ListLiveProductIDs(ctx context.Context) ([]string, error)
	GetOverride(ctx context.Context, productID string) (*IssuerCallOverride, error)
	SaveOverride(ctx context.Context, productID string, override *IssuerCallOverride) error
	ClearOverride(ctx context.Context, productID string) error
}

// MarketDataProvider assembles a fixed price snapshot for a set of tickers.
// Implementations return partial series rather than failing on missing data;
// the engine's fallback chain handles the gaps.
type MarketDataProvider interface {
	Snapshot(ctx context.Context, tickers []string, uptoDate time.Time) (*MarketDataSnapshot, error)
}

// ReportRepository persists evaluation result documents. The previous
// document for a product must survive a failed evaluation unchanged.
type ReportRepository interface {
	Save(ctx context.Context, result *EvaluationResult) error
	GetLatest(ctx context.Context, productID string) (*EvaluationResult, error)
	AppendIssues(ctx context.Context, productID string, issues []ProcessingIssue) error
}
