package engine

import "errors"

var (
	// ErrValidation marks a product whose terms cannot be evaluated
	// (schedule mismatch, missing barrier, unknown template). The previous
	// persisted result is retained when this is returned.
	ErrValidation = errors.New("product validation failed")

	// ErrMissingMarketData marks a recoverable data gap; evaluation
	// continues on the fallback chain and records a warning issue.
	ErrMissingMarketData = errors.New("missing market data")

	// ErrOverrideValidation marks a malformed issuer-call override. It is
	// rejected at the write boundary before any evaluation runs.
	ErrOverrideValidation = errors.New("issuer call override validation failed")
)
