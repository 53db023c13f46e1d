package engine

import (
	"time"

	"github.com/calder/noteval/internal/contracts"
)

// Input carries everything one evaluation needs. The engine is purely
// functional per invocation: identical inputs always produce an identical
// outcome, and nothing here is mutated.
type Input struct {
	Terms    *contracts.ProductTerms
	Snapshot *contracts.MarketDataSnapshot
	EvalDate time.Time
	Override *contracts.IssuerCallOverride

	// AsIfMaturing makes the calculator price the maturity leg at EvalDate
	// instead of the final observation date. Set by the indicative maturity
	// projector; persisted evaluations never set it.
	AsIfMaturing bool
}

// maturityLegDate is the date maturity formulas read prices at
func (in Input) maturityLegDate() time.Time {
	if in.AsIfMaturing && in.EvalDate.Before(in.Terms.FinalObservationDate) {
		return in.EvalDate
	}
	return in.Terms.FinalObservationDate
}

// issuerCallDate returns the active override call date, nil when no
// call option is declared.
func (in Input) issuerCallDate() *time.Time {
	if in.Override.Active() {
		return in.Override.CallDate
	}
	return nil
}

// Outcome is a calculator's contribution to the evaluation result
type Outcome struct {
	Underlyings  []contracts.UnderlyingAnalysis
	Observations contracts.ObservationAnalysis
	Basket       contracts.BasketAnalysis
	Redemption   contracts.Redemption
	Issues       []contracts.ProcessingIssue
}

// PayoffCalculator is one template's payoff strategy. The four
// implementations form a closed set dispatched by the orchestrator; all of
// them drive the shared schedule walker and barrier evaluator.
type PayoffCalculator interface {
	Template() contracts.TemplateType
	Validate(terms *contracts.ProductTerms) error
	Evaluate(in Input) (*Outcome, error)
}

// outcomeRecorder collects per-entry observation outcomes during a schedule
// walk and assembles the final ordered list against the walk result.
type outcomeRecorder struct {
	byIndex map[int]contracts.ObservationOutcome
}

func newOutcomeRecorder() *outcomeRecorder {
	return &outcomeRecorder{byIndex: make(map[int]contracts.ObservationOutcome)}
}

// record stores the outcome computed for an entry
func (r *outcomeRecorder) record(o contracts.ObservationOutcome) {
	r.byIndex[o.Index] = o
}

// assemble merges recorded outcomes with the walker's classification,
// producing one row per schedule entry. Unconsulted entries (upcoming,
// cancelled) get bare rows carrying only their state.
func (r *outcomeRecorder) assemble(walk *WalkResult) []contracts.ObservationOutcome {
	outcomes := make([]contracts.ObservationOutcome, len(walk.Entries))
	for i, status := range walk.Entries {
		if recorded, ok := r.byIndex[status.Entry.Index]; ok {
			recorded.State = status.State
			outcomes[i] = recorded
			continue
		}
		outcomes[i] = contracts.ObservationOutcome{
			Index:           status.Entry.Index,
			ObservationDate: status.Entry.ObservationDate,
			PaymentDate:     status.Entry.PaymentDate,
			State:           status.State,
		}
	}
	return outcomes
}

// issueCollector gathers processing issues during an evaluation, keeping at
// most one missing-price warning per ticker.
type issueCollector struct {
	issues      []contracts.ProcessingIssue
	seenMissing map[string]bool
}

func newIssueCollector() *issueCollector {
	return &issueCollector{seenMissing: make(map[string]bool)}
}

func (c *issueCollector) add(issues ...contracts.ProcessingIssue) {
	for _, issue := range issues {
		if issue.Type == contracts.IssueMissingPrice {
			if c.seenMissing[issue.Underlying] {
				continue
			}
			c.seenMissing[issue.Underlying] = true
		}
		c.issues = append(c.issues, issue)
	}
}

// floatPtr returns a pointer to v, for optional result fields
func floatPtr(v float64) *float64 {
	return &v
}

// intPtr returns a pointer to v
func intPtr(v int) *int {
	return &v
}

// copyFlags snapshots a flag set so later mutation cannot leak into an
// already-recorded outcome.
func copyFlags(flags map[string]bool) map[string]bool {
	out := make(map[string]bool, len(flags))
	for k, v := range flags {
		out[k] = v
	}
	return out
}
