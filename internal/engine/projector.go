package engine

import (
	"fmt"
	"time"

	"github.com/calder/noteval/internal/contracts"
)

// ProjectIndicative re-runs the product's payoff calculator with the
// evaluation date standing in for the final observation date, producing the
// hypothetical "mark-to-market if matured today" value. It touches no
// persisted schedule state.
//
// Continuity: when now equals the final observation date and no call has
// occurred, the projected value equals the persisted evaluation's redemption
// value bit for bit, because both run the same formula on the same inputs.
func (e *Engine) ProjectIndicative(terms *contracts.ProductTerms, snapshot *contracts.MarketDataSnapshot, now time.Time, override *contracts.IssuerCallOverride) (*contracts.IndicativeValue, []contracts.ProcessingIssue, error) {
	calc, err := e.calculatorFor(terms)
	if err != nil {
		return nil, nil, err
	}

	in := Input{
		Terms:    terms,
		Snapshot: snapshot,
		EvalDate: now,
		Override: override,
	}
	if err := e.overrides.Validate(terms, override); err != nil {
		in.Override = nil
	}

	return e.projectWith(calc, in)
}

// projectWith runs one hypothetical maturity evaluation. The input is
// copied with AsIfMaturing set; the caller's input is never mutated.
func (e *Engine) projectWith(calc PayoffCalculator, in Input) (*contracts.IndicativeValue, []contracts.ProcessingIssue, error) {
	projected := in
	projected.AsIfMaturing = true

	outcome, err := calc.Evaluate(projected)
	if err != nil {
		return nil, nil, err
	}

	// Issuer call dominates the projection exactly as it does the
	// persisted evaluation.
	summary := e.overrides.Summarize(projected)

	var value float64
	switch {
	case summary.IsCalled && summary.RedemptionValue != nil:
		value = *summary.RedemptionValue
	case outcome.Redemption.Value != nil:
		value = *outcome.Redemption.Value
	default:
		return nil, nil, fmt.Errorf("%w: projection produced no redemption value", ErrValidation)
	}

	return &contracts.IndicativeValue{
		Value:        value,
		AsOf:         projected.EvalDate,
		IsLive:       true,
		Hypothetical: true,
	}, outcome.Issues, nil
}
