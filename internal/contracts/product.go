package contracts

import "time"

// TemplateType identifies the payoff template of a structured note.
// The set is closed: the orchestrator dispatches on it and rejects anything
// else as a validation failure.
type TemplateType string

const (
	TemplatePhoenix       TemplateType = "phoenix"
	TemplateHimalaya      TemplateType = "himalaya"
	TemplateOrion         TemplateType = "orion"
	TemplateParticipation TemplateType = "participation"
)

// Valid reports whether t is one of the four known templates
func (t TemplateType) Valid() bool {
	switch t {
	case TemplatePhoenix, TemplateHimalaya, TemplateOrion, TemplateParticipation:
		return true
	}
	return false
}

// ReferenceMode selects how a participation note derives its reference
// performance from the basket.
type ReferenceMode string

const (
	ReferenceBestOf  ReferenceMode = "best_of"
	ReferenceWorstOf ReferenceMode = "worst_of"
	ReferenceBasket  ReferenceMode = "basket"
)

// LossFormula selects the capital-loss rule applied when the protection
// barrier is breached at maturity.
type LossFormula string

const (
	// LossLinear redeems 100% minus the shortfall of worst-of performance
	// below the protection barrier.
	LossLinear LossFormula = "linear"
	// LossWorstOf passes the worst-of performance through directly.
	LossWorstOf LossFormula = "worst_of"
)

// Underlying is one basket constituent with its level fixed at inception.
// The initial level is never re-struck.
type Underlying struct {
	Ticker       string  `json:"ticker"`
	InitialLevel float64 `json:"initial_level"`
}

// StructureParameters holds the template-specific issuance terms.
// Barrier and rate fields are decimal fractions of the initial level
// (0.60 = 60%); each template reads the subset it needs.
type StructureParameters struct {
	// Phoenix
	AutocallBarrierPct   float64     `json:"autocall_barrier_pct,omitempty"`
	CouponBarrierPct     float64     `json:"coupon_barrier_pct,omitempty"`
	ProtectionBarrierPct float64     `json:"protection_barrier_pct,omitempty"`
	CouponRate           float64     `json:"coupon_rate,omitempty"` // per observation period
	MemoryAutocall       bool        `json:"memory_autocall,omitempty"`
	LossFormula          LossFormula `json:"loss_formula,omitempty"`

	// Himalaya
	FloorPct float64 `json:"floor_pct,omitempty"`

	// Orion. Unlike the price-level barriers above, these two are expressed
	// in performance space: an underlying hits the upper barrier when its
	// raw performance reaches UpperBarrierPct, and its considered
	// performance is then fixed at RebatePct.
	UpperBarrierPct float64 `json:"upper_barrier_pct,omitempty"`
	RebatePct       float64 `json:"rebate_pct,omitempty"`

	// Participation
	ParticipationRate float64       `json:"participation_rate,omitempty"`
	StrikeLevelPct    float64       `json:"strike_level_pct,omitempty"` // strike as fraction of initial; 0 means 1.0
	ReferenceMode     ReferenceMode `json:"reference_mode,omitempty"`
}

// ProductTerms is the immutable issuance record of a structured note.
// It is owned by the product catalog; the engine only reads it.
type ProductTerms struct {
	ProductID            string                     `json:"product_id"`
	Name                 string                     `json:"name"`
	TemplateType         TemplateType               `json:"template_type"`
	TradeDate            time.Time                  `json:"trade_date"`
	ValueDate            time.Time                  `json:"value_date"`
	FinalObservationDate time.Time                  `json:"final_observation_date"`
	MaturityDate         time.Time                  `json:"maturity_date"`
	Underlyings          []Underlying               `json:"underlyings"`
	Parameters           StructureParameters        `json:"parameters"`
	Schedule             []ObservationScheduleEntry `json:"schedule"`
}

// Tickers returns the underlying tickers in basket order
func (p *ProductTerms) Tickers() []string {
	tickers := make([]string, len(p.Underlyings))
	for i, u := range p.Underlyings {
		tickers[i] = u.Ticker
	}
	return tickers
}

// UnderlyingByTicker returns the underlying for a ticker
func (p *ProductTerms) UnderlyingByTicker(ticker string) (Underlying, bool) {
	for _, u := range p.Underlyings {
		if u.Ticker == ticker {
			return u, true
		}
	}
	return Underlying{}, false
}

// StrikeLevel returns the participation strike as fraction of initial,
// defaulting to the initial level itself when unset.
func (s *StructureParameters) StrikeLevel() float64 {
	if s.StrikeLevelPct == 0 {
		return 1.0
	}
	return s.StrikeLevelPct
}
