package engine

import (
	"github.com/calder/noteval/internal/contracts"
	"github.com/calder/noteval/pkg/config"
)

// AccrualStart selects the date a per-annum issuer-call rebate accrues from.
// This is a product convention and must be configured explicitly.
type AccrualStart string

const (
	AccrualFromValueDate AccrualStart = "value_date"
	AccrualFromTradeDate AccrualStart = "trade_date"
)

// Config holds the engine policy constants. All values are configuration
// shared by every template; none are hard-coded in a calculator.
type Config struct {
	// NearBarrierBand is the relative distance above a protection barrier
	// within which barrier status reads "near" instead of "safe".
	NearBarrierBand float64

	// DayCountBasis is the rebate proration denominator (ACT/365F).
	DayCountBasis float64

	// RebateAccrualStart is the per-annum rebate accrual convention.
	RebateAccrualStart AccrualStart

	// DefaultLossFormula applies when product terms leave the
	// loss-participation formula unset.
	DefaultLossFormula contracts.LossFormula
}

// DefaultConfig returns the standard engine policy values
func DefaultConfig() Config {
	return Config{
		NearBarrierBand:    0.05,
		DayCountBasis:      365,
		RebateAccrualStart: AccrualFromValueDate,
		DefaultLossFormula: contracts.LossLinear,
	}
}

// FromAppConfig maps the application's engine settings onto engine policy.
// Unset values keep the defaults.
func FromAppConfig(app config.EngineConfig) Config {
	cfg := DefaultConfig()
	if app.NearBarrierBand > 0 {
		cfg.NearBarrierBand = app.NearBarrierBand
	}
	if app.DayCountBasis > 0 {
		cfg.DayCountBasis = app.DayCountBasis
	}
	if app.RebateAccrualStart != "" {
		cfg.RebateAccrualStart = AccrualStart(app.RebateAccrualStart)
	}
	if app.DefaultLossFormula != "" {
		cfg.DefaultLossFormula = contracts.LossFormula(app.DefaultLossFormula)
	}
	return cfg
}

// lossFormula resolves the per-product formula against the default
func (c Config) lossFormula(params contracts.StructureParameters) contracts.LossFormula {
	if params.LossFormula != "" {
		return params.LossFormula
	}
	return c.DefaultLossFormula
}
