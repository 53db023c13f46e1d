package engine

import (
	"fmt"
	"time"

	"github.com/calder/noteval/internal/contracts"
	"github.com/calder/noteval/pkg/logger"
)

// Engine is the evaluation orchestrator. It selects the payoff calculator
// for a product's template, runs it against a fixed market-data snapshot,
// applies issuer-call dominance, and assembles the result document.
//
// Evaluate is purely functional per invocation: all state (memory pools,
// flag sets, selection sets) is rebuilt from the schedule on every call, so
// evaluating N products in parallel needs no locking.
type Engine struct {
	cfg         Config
	calculators map[contracts.TemplateType]PayoffCalculator
	overrides   *OverrideManager
	logger      *logger.Logger
}

// New creates an engine with the closed set of template calculators
func New(cfg Config, log *logger.Logger) *Engine {
	calculators := map[contracts.TemplateType]PayoffCalculator{
		contracts.TemplatePhoenix:       NewPhoenixCalculator(cfg),
		contracts.TemplateHimalaya:      NewHimalayaCalculator(cfg),
		contracts.TemplateOrion:         NewOrionCalculator(cfg),
		contracts.TemplateParticipation: NewParticipationCalculator(cfg),
	}

	return &Engine{
		cfg:         cfg,
		calculators: calculators,
		overrides:   NewOverrideManager(cfg),
		logger:      log,
	}
}

// Overrides exposes the override manager for the admin write boundary
func (e *Engine) Overrides() *OverrideManager {
	return e.overrides
}

// Evaluate produces the point-in-time snapshot for a product. No failure
// escapes as a panic: validation problems come back as an error alongside a
// partial result carrying an error-severity issue, so callers always have
// something to persist or render.
func (e *Engine) Evaluate(terms *contracts.ProductTerms, snapshot *contracts.MarketDataSnapshot, evalDate time.Time, override *contracts.IssuerCallOverride) (*contracts.EvaluationResult, error) {
	result := &contracts.EvaluationResult{
		ProductID:         terms.ProductID,
		TemplateType:      terms.TemplateType,
		EvaluationDate:    evalDate,
		MarketDataVersion: snapshot.Version,
		Redemption:        contracts.Redemption{Applicable: true},
	}

	calc, err := e.calculatorFor(terms)
	if err != nil {
		result.AddIssue(contracts.NewValidationIssue("%v", err))
		return result, err
	}

	in := Input{
		Terms:    terms,
		Snapshot: snapshot,
		EvalDate: evalDate,
		Override: override,
	}

	// A malformed stored override must not poison the whole evaluation:
	// evaluate without it and surface the defect.
	if err := e.overrides.Validate(terms, override); err != nil {
		result.AddIssue(contracts.ProcessingIssue{
			Severity: contracts.SeverityError,
			Type:     contracts.IssueOverrideValidation,
			Message:  err.Error(),
		})
		in.Override = nil
	}

	outcome, err := calc.Evaluate(in)
	if err != nil {
		result.AddIssue(contracts.NewValidationIssue("%v", err))
		return result, err
	}

	result.Underlyings = outcome.Underlyings
	result.ObservationAnalysis = outcome.Observations
	result.BasketAnalysis = outcome.Basket
	result.Redemption = outcome.Redemption
	result.ProcessingIssues = append(result.ProcessingIssues, outcome.Issues...)

	// Issuer call dominates every template formula: redemption reads call
	// price plus rebate and the template's own figures become context.
	result.IssuerCall = e.overrides.Summarize(in)
	if result.IssuerCall.IsCalled {
		result.Redemption = contracts.Redemption{
			Value:      result.IssuerCall.RedemptionValue,
			Called:     true,
			Applicable: false,
		}
	}

	// Live products carry the "if matured today" projection.
	if e.isLive(result) {
		indicative, issues, err := e.projectWith(calc, in)
		if err == nil {
			result.IndicativeMaturity = indicative
			result.ProcessingIssues = append(result.ProcessingIssues, issues...)
		}
	}

	e.logger.WithFields(map[string]interface{}{
		"product_id": terms.ProductID,
		"template":   terms.TemplateType,
		"eval_date":  evalDate.Format("2006-01-02"),
		"called":     result.ObservationAnalysis.Called,
		"matured":    result.ObservationAnalysis.Matured,
		"issues":     len(result.ProcessingIssues),
	}).Debug("Product evaluated")

	return result, nil
}

// calculatorFor resolves and validates the calculator for a product
func (e *Engine) calculatorFor(terms *contracts.ProductTerms) (PayoffCalculator, error) {
	if !terms.TemplateType.Valid() {
		return nil, fmt.Errorf("%w: unknown template type %q", ErrValidation, terms.TemplateType)
	}
	calc := e.calculators[terms.TemplateType]

	if err := validateTerms(terms); err != nil {
		return nil, err
	}
	if err := calc.Validate(terms); err != nil {
		return nil, err
	}
	return calc, nil
}

// isLive reports whether the product still runs at the evaluation date
func (e *Engine) isLive(result *contracts.EvaluationResult) bool {
	return !result.ObservationAnalysis.Called &&
		!result.ObservationAnalysis.Matured &&
		!result.IssuerCall.IsCalled
}

// validateTerms checks the template-independent invariants of a product
func validateTerms(terms *contracts.ProductTerms) error {
	if len(terms.Underlyings) == 0 {
		return fmt.Errorf("%w: product has no underlyings", ErrValidation)
	}
	for _, u := range terms.Underlyings {
		if u.InitialLevel <= 0 {
			return fmt.Errorf("%w: underlying %s has non-positive initial level", ErrValidation, u.Ticker)
		}
	}

	if err := contracts.ValidateSchedule(terms.Schedule); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
