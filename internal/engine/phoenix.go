package engine

import (
	"fmt"

	"github.com/calder/noteval/internal/contracts"
)

// PhoenixCalculator implements the Phoenix autocallable payoff: worst-of
// autocall with a memory coupon pool, plus the memory-autocall variant where
// each underlying earns a persistent flag and the product is called only
// when every underlying is flagged.
type PhoenixCalculator struct {
	cfg      Config
	barriers *BarrierEvaluator
}

// NewPhoenixCalculator creates a Phoenix calculator
func NewPhoenixCalculator(cfg Config) *PhoenixCalculator {
	return &PhoenixCalculator{
		cfg:      cfg,
		barriers: NewBarrierEvaluator(cfg.NearBarrierBand),
	}
}

// Template returns the template this calculator serves
func (c *PhoenixCalculator) Template() contracts.TemplateType {
	return contracts.TemplatePhoenix
}

// Validate checks the Phoenix-specific terms
func (c *PhoenixCalculator) Validate(terms *contracts.ProductTerms) error {
	params := terms.Parameters
	if params.AutocallBarrierPct <= 0 {
		return fmt.Errorf("%w: phoenix requires a positive autocall barrier", ErrValidation)
	}
	if params.ProtectionBarrierPct <= 0 {
		return fmt.Errorf("%w: phoenix requires a positive protection barrier", ErrValidation)
	}
	if params.CouponRate < 0 {
		return fmt.Errorf("%w: phoenix coupon rate cannot be negative", ErrValidation)
	}
	return nil
}

// Evaluate walks the observation schedule, folding the memory pool and flag
// set forward, and prices the redemption leg.
func (c *PhoenixCalculator) Evaluate(in Input) (*Outcome, error) {
	params := in.Terms.Parameters
	couponPoints := params.CouponRate * 100
	couponBarrier := params.CouponBarrierPct
	if couponBarrier == 0 {
		couponBarrier = params.AutocallBarrierPct
	}

	issues := newIssueCollector()
	recorder := newOutcomeRecorder()

	// Fold state carried across the schedule walk. Rebuilt from scratch on
	// every evaluation; nothing here survives the call.
	pool := 0.0
	totalPaid := 0.0
	flags := make(map[string]bool, len(in.Terms.Underlyings))

	condition := func(entry contracts.ObservationScheduleEntry) bool {
		observations, obsIssues := c.barriers.ObserveBasket(in.Terms.Underlyings, in.Snapshot, entry.ObservationDate)
		issues.add(obsIssues...)

		worstObs := WorstObservation(observations)
		worst := worstObs.Performance
		barrier := params.AutocallBarrierPct
		if entry.AutocallLevel != nil {
			barrier = *entry.AutocallLevel
		}

		called := false
		if params.MemoryAutocall {
			// Flags accumulate and never clear; the product is called when
			// the full set is flagged at once.
			for _, obs := range observations {
				if obs.Ratio() >= barrier {
					flags[obs.Ticker] = true
				}
			}
			called = entry.IsCallable && len(flags) == len(in.Terms.Underlyings)
		} else {
			called = entry.IsCallable && worstObs.Ratio() >= barrier
		}

		outcome := contracts.ObservationOutcome{
			Index:              entry.Index,
			ObservationDate:    entry.ObservationDate,
			PaymentDate:        entry.PaymentDate,
			WorstOfPerformance: floatPtr(worst),
			AutocallBarrierPct: floatPtr(barrier),
			ProductCalled:      called,
		}

		if called || worstObs.Ratio() >= couponBarrier {
			// Coupon condition met: pay the period coupon plus the full
			// accumulated pool, then reset the pool.
			outcome.CouponPaid = couponPoints + pool
			pool = 0
		} else {
			// Deferred, not lost.
			pool += couponPoints
		}
		outcome.CouponInMemory = pool
		totalPaid += outcome.CouponPaid

		if params.MemoryAutocall {
			outcome.UnderlyingFlags = copyFlags(flags)
		}

		recorder.record(outcome)
		return called
	}

	walk := WalkSchedule(in.Terms.Schedule, in.EvalDate, in.issuerCallDate(), condition)

	observationAnalysis := contracts.ObservationAnalysis{
		Observations:       recorder.assemble(walk),
		TotalCouponsEarned: totalPaid,
		MemoryPool:         pool,
		Called:             walk.Called(),
		Matured:            walk.Matured,
	}
	if walk.Called() {
		entry := in.Terms.Schedule[walk.CalledIndex]
		observationAnalysis.CalledIndex = intPtr(walk.CalledIndex)
		callDate := entry.ObservationDate
		observationAnalysis.CallDate = &callDate
	}

	redemption := contracts.Redemption{Applicable: true}
	basket := contracts.BasketAnalysis{}

	switch {
	case walk.Called():
		// Autocalled: capital returns at par; coupons are reported in the
		// observation analysis.
		redemption.Value = floatPtr(100)
		redemption.Called = true

	case walk.Matured || (in.AsIfMaturing && !walk.IssuerCalled):
		legDate := in.maturityLegDate()
		observations, obsIssues := c.barriers.ObserveBasket(in.Terms.Underlyings, in.Snapshot, legDate)
		issues.add(obsIssues...)

		worstObs := WorstObservation(observations)
		basket.WorstOfPerformance = floatPtr(worstObs.Performance)

		redemption.AtMaturity = true
		if worstObs.Ratio() >= params.ProtectionBarrierPct {
			redemption.Value = floatPtr(100)
		} else {
			redemption.ProtectionBreached = true
			redemption.LossFormula = c.cfg.lossFormula(params)
			redemption.Value = floatPtr(lossValue(redemption.LossFormula, params.ProtectionBarrierPct, worstObs.Ratio()))
		}
	}

	underlyings := c.analyzeUnderlyings(in, flags, issues)
	if basket.WorstOfPerformance == nil && len(underlyings) > 0 {
		worst := underlyings[0].Performance
		for _, u := range underlyings[1:] {
			if u.Performance < worst {
				worst = u.Performance
			}
		}
		basket.WorstOfPerformance = floatPtr(worst)
	}

	return &Outcome{
		Underlyings:  underlyings,
		Observations: observationAnalysis,
		Basket:       basket,
		Redemption:   redemption,
		Issues:       issues.issues,
	}, nil
}

// analyzeUnderlyings builds the per-underlying view at the evaluation date
func (c *PhoenixCalculator) analyzeUnderlyings(in Input, flags map[string]bool, issues *issueCollector) []contracts.UnderlyingAnalysis {
	params := in.Terms.Parameters
	analyses := make([]contracts.UnderlyingAnalysis, len(in.Terms.Underlyings))

	for i, u := range in.Terms.Underlyings {
		obs, issue := c.barriers.Observe(u, in.Snapshot, in.EvalDate)
		if issue != nil {
			issues.add(*issue)
		}

		check := c.barriers.CheckBarrier(u, obs.Price, params.ProtectionBarrierPct)
		analyses[i] = contracts.UnderlyingAnalysis{
			Ticker:            u.Ticker,
			InitialLevel:      u.InitialLevel,
			CurrentPrice:      obs.Price,
			PriceDate:         obs.PriceDate,
			Performance:       obs.Performance,
			ProtectionBarrier: &check,
			Flagged:           flags[u.Ticker],
		}
	}

	return analyses
}

// lossValue applies the configured loss-participation formula to the worst
// price/initial ratio, returning the redemption value in percent of par.
func lossValue(formula contracts.LossFormula, protectionPct, worstRatio float64) float64 {
	switch formula {
	case contracts.LossWorstOf:
		// Direct pass-through of the worst performer.
		return 100 * worstRatio
	default:
		// Linear: par minus the shortfall below the protection barrier.
		return 100 * (1 - (protectionPct - worstRatio))
	}
}
