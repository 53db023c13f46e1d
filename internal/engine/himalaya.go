package engine

import (
	"fmt"

	"github.com/calder/noteval/internal/contracts"
)

// HimalayaCalculator implements the Himalaya basket payoff: at each
// observation the best remaining performer is recorded and permanently
// removed, one round per underlying; the payout is par plus the floored
// average of the recorded performances.
type HimalayaCalculator struct {
	cfg      Config
	barriers *BarrierEvaluator
}

// NewHimalayaCalculator creates a Himalaya calculator
func NewHimalayaCalculator(cfg Config) *HimalayaCalculator {
	return &HimalayaCalculator{
		cfg:      cfg,
		barriers: NewBarrierEvaluator(cfg.NearBarrierBand),
	}
}

// Template returns the template this calculator serves
func (c *HimalayaCalculator) Template() contracts.TemplateType {
	return contracts.TemplateHimalaya
}

// Validate checks the Himalaya-specific terms. The schedule length must
// equal the underlying count: one selection round per underlying by
// construction.
func (c *HimalayaCalculator) Validate(terms *contracts.ProductTerms) error {
	if len(terms.Schedule) != len(terms.Underlyings) {
		return fmt.Errorf("%w: himalaya schedule has %d entries for %d underlyings",
			ErrValidation, len(terms.Schedule), len(terms.Underlyings))
	}
	return nil
}

// Evaluate folds the selection rounds over the occurred observations and
// prices the floored-average payout once every round is recorded.
func (c *HimalayaCalculator) Evaluate(in Input) (*Outcome, error) {
	params := in.Terms.Parameters
	issues := newIssueCollector()
	recorder := newOutcomeRecorder()

	// Himalaya has no autocall condition; the walk only classifies
	// lifecycle states and honors an issuer call date.
	walk := WalkSchedule(in.Terms.Schedule, in.EvalDate, in.issuerCallDate(), nil)

	// Selection fold: remaining keeps basket order so equal performances
	// resolve deterministically to the earlier constituent.
	remaining := make([]contracts.Underlying, len(in.Terms.Underlyings))
	copy(remaining, in.Terms.Underlyings)

	recorded := make([]float64, 0, len(in.Terms.Underlyings))
	selectedAt := make(map[string]int, len(in.Terms.Underlyings))

	selectBest := func(date contracts.ObservationScheduleEntry) (contracts.Underlying, float64) {
		observations, obsIssues := c.barriers.ObserveBasket(remaining, in.Snapshot, date.ObservationDate)
		issues.add(obsIssues...)

		bestIdx := 0
		for i, obs := range observations[1:] {
			if obs.Performance > observations[bestIdx].Performance {
				bestIdx = i + 1
			}
		}

		best := remaining[bestIdx]
		performance := observations[bestIdx].Performance
		remaining = append(remaining[:bestIdx], remaining[bestIdx+1:]...)
		return best, performance
	}

	for _, status := range walk.Entries {
		if status.State != contracts.StateOccurred && status.State != contracts.StateMatured {
			continue
		}

		best, performance := selectBest(status.Entry)
		recorded = append(recorded, performance)
		selectedAt[best.Ticker] = status.Entry.Index

		recorder.record(contracts.ObservationOutcome{
			Index:               status.Entry.Index,
			ObservationDate:     status.Entry.ObservationDate,
			PaymentDate:         status.Entry.PaymentDate,
			SelectedTicker:      best.Ticker,
			SelectedPerformance: floatPtr(performance),
		})
	}

	// The projector prices the not-yet-observed rounds at the evaluation
	// date so a mid-life product still yields a maturity value. Persisted
	// evaluations never take this path.
	if in.AsIfMaturing && !walk.IssuerCalled {
		for _, status := range walk.Entries {
			if status.State != contracts.StateUpcoming {
				continue
			}
			hypothetical := status.Entry
			hypothetical.ObservationDate = in.EvalDate
			best, performance := selectBest(hypothetical)
			recorded = append(recorded, performance)
			selectedAt[best.Ticker] = status.Entry.Index
		}
	}

	basket := contracts.BasketAnalysis{
		RecordedPerformances: recorded,
	}
	redemption := contracts.Redemption{Applicable: true}

	if len(recorded) == len(in.Terms.Underlyings) {
		average := mean(recorded)
		floored := floorPerformance(average, params.FloorPct)
		basket.FloorApplied = floored != average

		basket.FinalAverage = floatPtr(average)
		basket.FlooredPerformance = floatPtr(floored)

		redemption.AtMaturity = true
		redemption.Value = floatPtr(100 * (1 + floored))
	}

	underlyings := c.analyzeUnderlyings(in, selectedAt, issues)

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

// analyzeUnderlyings builds the per-underlying view at the evaluation date
func (c *HimalayaCalculator) analyzeUnderlyings(in Input, selectedAt map[string]int, issues *issueCollector) []contracts.UnderlyingAnalysis {
	analyses := make([]contracts.UnderlyingAnalysis, len(in.Terms.Underlyings))

	for i, u := range in.Terms.Underlyings {
		obs, issue := c.barriers.Observe(u, in.Snapshot, in.EvalDate)
		if issue != nil {
			issues.add(*issue)
		}

		analyses[i] = contracts.UnderlyingAnalysis{
			Ticker:       u.Ticker,
			InitialLevel: u.InitialLevel,
			CurrentPrice: obs.Price,
			PriceDate:    obs.PriceDate,
			Performance:  obs.Performance,
		}
		if index, ok := selectedAt[u.Ticker]; ok {
			analyses[i].SelectedAtIndex = intPtr(index)
		}
	}

	return analyses
}

// floorPerformance clamps value to floorPct from below. Applying it to an
// already-floored value returns the value unchanged.
func floorPerformance(value, floorPct float64) float64 {
	if value < floorPct {
		return floorPct
	}
	return value
}

// mean returns the arithmetic mean of values
func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
