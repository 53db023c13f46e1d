package engine

import (
	"fmt"

	"github.com/calder/noteval/internal/contracts"
)

// OrionCalculator implements the Orion memory payoff: each underlying's
// considered performance is its raw performance with the upside capped at
// the rebate level once the upper barrier is hit; the downside is never
// capped. The basket value is the arithmetic mean of considered
// performances.
type OrionCalculator struct {
	cfg      Config
	barriers *BarrierEvaluator
}

// NewOrionCalculator creates an Orion calculator
func NewOrionCalculator(cfg Config) *OrionCalculator {
	return &OrionCalculator{
		cfg:      cfg,
		barriers: NewBarrierEvaluator(cfg.NearBarrierBand),
	}
}

// Template returns the template this calculator serves
func (c *OrionCalculator) Template() contracts.TemplateType {
	return contracts.TemplateOrion
}

// Validate checks the Orion-specific terms
func (c *OrionCalculator) Validate(terms *contracts.ProductTerms) error {
	if terms.Parameters.UpperBarrierPct <= 0 {
		return fmt.Errorf("%w: orion requires a positive upper barrier", ErrValidation)
	}
	if terms.Parameters.RebatePct < 0 {
		return fmt.Errorf("%w: orion rebate cannot be negative", ErrValidation)
	}
	return nil
}

// Evaluate computes considered performances at the evaluation date (or the
// maturity leg date once the product matures) and the basket mean.
func (c *OrionCalculator) Evaluate(in Input) (*Outcome, error) {
	params := in.Terms.Parameters
	issues := newIssueCollector()

	// Orion has no barrier autocall; the walk classifies lifecycle states
	// and honors an issuer call date.
	walk := WalkSchedule(in.Terms.Schedule, in.EvalDate, in.issuerCallDate(), nil)

	valuationDate := in.EvalDate
	if walk.Matured || in.AsIfMaturing {
		valuationDate = in.maturityLegDate()
	}

	observations, obsIssues := c.barriers.ObserveBasket(in.Terms.Underlyings, in.Snapshot, valuationDate)
	issues.add(obsIssues...)

	underlyings := make([]contracts.UnderlyingAnalysis, len(observations))
	hits := 0
	var consideredSum float64
	worstRaw := observations[0].Performance

	for i, obs := range observations {
		raw := obs.Performance
		considered, hitUpper := consideredPerformance(raw, params.UpperBarrierPct, params.RebatePct)
		consideredSum += considered
		if hitUpper {
			hits++
		}
		if raw < worstRaw {
			worstRaw = raw
		}

		u := in.Terms.Underlyings[i]
		analysis := contracts.UnderlyingAnalysis{
			Ticker:                u.Ticker,
			InitialLevel:          u.InitialLevel,
			CurrentPrice:          obs.Price,
			PriceDate:             obs.PriceDate,
			Performance:           raw,
			ConsideredPerformance: floatPtr(considered),
			HitUpperBarrier:       hitUpper,
		}
		if params.ProtectionBarrierPct > 0 {
			check := c.barriers.CheckBarrier(u, obs.Price, params.ProtectionBarrierPct)
			analysis.ProtectionBarrier = &check
		}
		underlyings[i] = analysis
	}

	basketConsidered := consideredSum / float64(len(observations))

	basket := contracts.BasketAnalysis{
		ConsideredPerformance: floatPtr(basketConsidered),
		WorstOfPerformance:    floatPtr(worstRaw),
		UpperBarrierHits:      hits,
	}

	redemption := contracts.Redemption{Applicable: true}
	if walk.Matured || (in.AsIfMaturing && !walk.IssuerCalled) {
		redemption.AtMaturity = true
		redemption.Value = floatPtr(100 * (1 + basketConsidered))
		if params.ProtectionBarrierPct > 0 && WorstObservation(observations).Ratio() < params.ProtectionBarrierPct {
			redemption.ProtectionBreached = true
		}
	}

	recorder := newOutcomeRecorder()
	return &Outcome{
		Underlyings: underlyings,
		Observations: contracts.ObservationAnalysis{
			Observations: recorder.assemble(walk),
			Matured:      walk.Matured,
		},
		Basket:     basket,
		Redemption: redemption,
		Issues:     issues.issues,
	}, nil
}

// consideredPerformance caps the upside at the rebate level once the upper
// barrier is hit. The cap is idempotent: a considered value fed back in is
// unchanged as long as the rebate sits below the upper barrier.
func consideredPerformance(raw, upperBarrierPct, rebatePct float64) (float64, bool) {
	if raw >= upperBarrierPct {
		return rebatePct, true
	}
	return raw, false
}
