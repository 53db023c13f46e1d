package engine

import (
	"fmt"

	"github.com/calder/noteval/internal/contracts"
)

// ParticipationCalculator implements the participation note payoff:
// reference performance per the configured mode, scaled by the
// participation rate. An active issuer call dominates the formula entirely;
// the orchestrator substitutes the call redemption and demotes the
// participation figures to context.
type ParticipationCalculator struct {
	cfg      Config
	barriers *BarrierEvaluator
}

// NewParticipationCalculator creates a participation note calculator
func NewParticipationCalculator(cfg Config) *ParticipationCalculator {
	return &ParticipationCalculator{
		cfg:      cfg,
		barriers: NewBarrierEvaluator(cfg.NearBarrierBand),
	}
}

// Template returns the template this calculator serves
func (c *ParticipationCalculator) Template() contracts.TemplateType {
	return contracts.TemplateParticipation
}

// Validate checks the participation-specific terms
func (c *ParticipationCalculator) Validate(terms *contracts.ProductTerms) error {
	params := terms.Parameters
	if params.ParticipationRate <= 0 {
		return fmt.Errorf("%w: participation note requires a positive participation rate", ErrValidation)
	}
	switch params.ReferenceMode {
	case contracts.ReferenceBestOf, contracts.ReferenceWorstOf, contracts.ReferenceBasket:
	default:
		return fmt.Errorf("%w: unknown reference mode %q", ErrValidation, params.ReferenceMode)
	}
	return nil
}

// Evaluate computes the strike-relative reference performance and scales it
// by the participation rate.
func (c *ParticipationCalculator) Evaluate(in Input) (*Outcome, error) {
	params := in.Terms.Parameters
	issues := newIssueCollector()

	// The walk is driven by the override's call date when one is set; the
	// participation note has no barrier call of its own.
	walk := WalkSchedule(in.Terms.Schedule, in.EvalDate, in.issuerCallDate(), nil)

	valuationDate := in.EvalDate
	if walk.Matured || in.AsIfMaturing {
		valuationDate = in.maturityLegDate()
	}

	observations, obsIssues := c.barriers.ObserveBasket(in.Terms.Underlyings, in.Snapshot, valuationDate)
	issues.add(obsIssues...)

	// Reference performances are measured against the strike level, which
	// is not necessarily the initial level.
	strike := params.StrikeLevel()
	strikePerfs := make([]float64, len(observations))
	for i, obs := range observations {
		initial := in.Terms.Underlyings[i].InitialLevel
		strikePerfs[i] = Performance(obs.Price, initial*strike)
	}

	reference := referencePerformance(params.ReferenceMode, strikePerfs)
	participated := reference * params.ParticipationRate

	basket := contracts.BasketAnalysis{
		ReferencePerformance:    floatPtr(reference),
		ParticipatedPerformance: floatPtr(participated),
		BestOfPerformance:       floatPtr(maxOf(strikePerfs)),
		WorstOfPerformance:      floatPtr(minOf(strikePerfs)),
	}

	redemption := contracts.Redemption{Applicable: true}
	if (walk.Matured || in.AsIfMaturing) && !walk.IssuerCalled {
		redemption.AtMaturity = true
		redemption.Value = floatPtr(100 * (1 + participated))
	}

	underlyings := make([]contracts.UnderlyingAnalysis, len(observations))
	for i, obs := range observations {
		u := in.Terms.Underlyings[i]
		underlyings[i] = contracts.UnderlyingAnalysis{
			Ticker:       u.Ticker,
			InitialLevel: u.InitialLevel,
			CurrentPrice: obs.Price,
			PriceDate:    obs.PriceDate,
			Performance:  obs.Performance,
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

// referencePerformance folds per-underlying strike performances per mode
func referencePerformance(mode contracts.ReferenceMode, performances []float64) float64 {
	switch mode {
	case contracts.ReferenceBestOf:
		return maxOf(performances)
	case contracts.ReferenceWorstOf:
		return minOf(performances)
	default:
		return mean(performances)
	}
}

func minOf(values []float64) float64 {
	min := values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func maxOf(values []float64) float64 {
	max := values[0]
	for _, v := range values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}
