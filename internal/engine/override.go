package engine

import (
	"fmt"

	"github.com/calder/noteval/internal/contracts"
)

// OverrideManager validates and applies admin-entered issuer-call
// declarations. It holds no cache and no state beyond the configured
// conventions: every override write triggers a full re-evaluation upstream.
type OverrideManager struct {
	cfg Config
}

// NewOverrideManager creates an override manager
func NewOverrideManager(cfg Config) *OverrideManager {
	return &OverrideManager{cfg: cfg}
}

// Validate checks an override against the product terms. It is called at
// the write boundary, before any evaluation is attempted; a rejected write
// leaves the stored override unchanged. A nil or unset override is always
// valid: unsetting fully reverts the product.
func (m *OverrideManager) Validate(terms *contracts.ProductTerms, override *contracts.IssuerCallOverride) error {
	if !override.Active() {
		return nil
	}

	if override.CallDate == nil {
		return fmt.Errorf("%w: call option declared without a call date", ErrOverrideValidation)
	}

	if override.CallDate.Before(terms.TradeDate) {
		return fmt.Errorf("%w: call date %s precedes trade date %s",
			ErrOverrideValidation,
			override.CallDate.Format("2006-01-02"),
			terms.TradeDate.Format("2006-01-02"))
	}

	switch override.RebateType {
	case "", contracts.RebateFlat, contracts.RebatePerAnnum:
	default:
		return fmt.Errorf("%w: unknown rebate type %q", ErrOverrideValidation, override.RebateType)
	}

	if override.CallPrice < 0 {
		return fmt.Errorf("%w: call price cannot be negative", ErrOverrideValidation)
	}

	return nil
}

// Rebate computes the rebate in percent-of-par points and the days held.
// Flat rebates pass through; per-annum rebates prorate by days held over
// the day-count basis, accruing from the configured start date.
func (m *OverrideManager) Rebate(terms *contracts.ProductTerms, override *contracts.IssuerCallOverride) (float64, int) {
	if !override.Active() || override.CallDate == nil {
		return 0, 0
	}

	start := terms.ValueDate
	if m.cfg.RebateAccrualStart == AccrualFromTradeDate {
		start = terms.TradeDate
	}

	daysHeld := int(override.CallDate.Sub(start).Hours() / 24)
	if daysHeld < 0 {
		daysHeld = 0
	}

	if override.RebateType == contracts.RebatePerAnnum {
		return override.CallRebate * float64(daysHeld) / m.cfg.DayCountBasis, daysHeld
	}
	return override.CallRebate, daysHeld
}

// Summarize builds the issuer-call section of an evaluation result. The
// call is in effect once the call date has been reached at the evaluation
// date; redemption then reads call price plus rebate, regardless of
// underlying performance.
func (m *OverrideManager) Summarize(in Input) contracts.IssuerCallSummary {
	override := in.Override
	if !override.Active() {
		return contracts.IssuerCallSummary{}
	}

	rebate, daysHeld := m.Rebate(in.Terms, override)
	summary := contracts.IssuerCallSummary{
		HasCallOption: true,
		CallDate:      override.CallDate,
		CallPrice:     override.EffectiveCallPrice(),
		Rebate:        rebate,
		RebateType:    override.RebateType,
		DaysHeld:      daysHeld,
	}
	if summary.RebateType == "" {
		summary.RebateType = contracts.RebateFlat
	}

	if override.CallDate != nil && !override.CallDate.After(in.EvalDate) {
		summary.IsCalled = true
		summary.RedemptionValue = floatPtr(summary.CallPrice + rebate)
	}

	return summary
}
