package contracts

import "time"

// BarrierStatus classifies how far a price sits from a protection barrier
type BarrierStatus string

const (
	BarrierSafe     BarrierStatus = "safe"
	BarrierNear     BarrierStatus = "near"
	BarrierBreached BarrierStatus = "breached"
)

// BarrierCheck is the evaluated position of a price against one barrier.
// Distance is in price units, DistancePct relative to the barrier level.
type BarrierCheck struct {
	BarrierPct   float64       `json:"barrier_pct"`
	BarrierLevel float64       `json:"barrier_level"`
	Distance     float64       `json:"distance"`
	DistancePct  float64       `json:"distance_pct"`
	Status       BarrierStatus `json:"status"`
}

// UnderlyingAnalysis is the per-underlying slice of an evaluation result.
// The field set is shared by every template; each populates its subset.
type UnderlyingAnalysis struct {
	Ticker       string    `json:"ticker"`
	InitialLevel float64   `json:"initial_level"`
	CurrentPrice float64   `json:"current_price"`
	PriceDate    time.Time `json:"price_date"`
	Performance  float64   `json:"performance"`

	ProtectionBarrier *BarrierCheck `json:"protection_barrier,omitempty"`

	// Orion
	ConsideredPerformance *float64 `json:"considered_performance,omitempty"`
	HitUpperBarrier       bool     `json:"hit_upper_barrier,omitempty"`

	// Phoenix memory-autocall variant
	Flagged bool `json:"flagged,omitempty"`

	// Himalaya
	SelectedAtIndex *int `json:"selected_at_index,omitempty"`
}

// ObservationOutcome is the evaluated outcome of one schedule entry
type ObservationOutcome struct {
	Index           int        `json:"index"`
	ObservationDate time.Time  `json:"observation_date"`
	PaymentDate     time.Time  `json:"payment_date"`
	State           EntryState `json:"state"`

	WorstOfPerformance *float64 `json:"worst_of_performance,omitempty"`
	AutocallBarrierPct *float64 `json:"autocall_barrier_pct,omitempty"`

	// Coupon amounts in percent of par points
	CouponPaid     float64 `json:"coupon_paid"`
	CouponInMemory float64 `json:"coupon_in_memory"`
	ProductCalled  bool    `json:"product_called"`

	// Phoenix memory-autocall variant: accumulated flag set after this entry
	UnderlyingFlags map[string]bool `json:"underlying_flags,omitempty"`

	// Himalaya selection at this entry
	SelectedTicker      string   `json:"selected_ticker,omitempty"`
	SelectedPerformance *float64 `json:"selected_performance,omitempty"`
}

// ObservationAnalysis aggregates the schedule walk
type ObservationAnalysis struct {
	Observations       []ObservationOutcome `json:"observations"`
	TotalCouponsEarned float64              `json:"total_coupons_earned"`
	MemoryPool         float64              `json:"memory_pool"`
	Called             bool                 `json:"called"`
	CalledIndex        *int                 `json:"called_index,omitempty"`
	CallDate           *time.Time           `json:"call_date,omitempty"`
	Matured            bool                 `json:"matured"`
}

// BasketAnalysis holds the basket-level aggregates; templates populate the
// subset their payoff defines.
type BasketAnalysis struct {
	WorstOfPerformance *float64 `json:"worst_of_performance,omitempty"`
	BestOfPerformance  *float64 `json:"best_of_performance,omitempty"`
	AveragePerformance *float64 `json:"average_performance,omitempty"`

	// Orion
	ConsideredPerformance *float64 `json:"considered_performance,omitempty"`
	UpperBarrierHits      int      `json:"upper_barrier_hits,omitempty"`

	// Himalaya
	RecordedPerformances []float64 `json:"recorded_performances,omitempty"`
	FinalAverage         *float64  `json:"final_average,omitempty"`
	FlooredPerformance   *float64  `json:"floored_performance,omitempty"`
	FloorApplied         bool      `json:"floor_applied,omitempty"`

	// Participation
	ReferencePerformance    *float64 `json:"reference_performance,omitempty"`
	ParticipatedPerformance *float64 `json:"participated_performance,omitempty"`
}

// Redemption is the redemption leg of the result, in percent of par
type Redemption struct {
	Value              *float64    `json:"value,omitempty"`
	AtMaturity         bool        `json:"at_maturity"`
	Called             bool        `json:"called"`
	ProtectionBreached bool        `json:"protection_breached"`
	LossFormula        LossFormula `json:"loss_formula,omitempty"`

	// Applicable is false when an issuer call dominates and the template's
	// own formula is shown as context only.
	Applicable bool `json:"applicable"`
}

// IssuerCallSummary reports the effect of an issuer-call override
type IssuerCallSummary struct {
	HasCallOption   bool       `json:"has_call_option"`
	IsCalled        bool       `json:"is_called"`
	CallDate        *time.Time `json:"call_date,omitempty"`
	CallPrice       float64    `json:"call_price,omitempty"`
	Rebate          float64    `json:"rebate,omitempty"`
	RebateType      RebateType `json:"rebate_type,omitempty"`
	DaysHeld        int        `json:"days_held,omitempty"`
	RedemptionValue *float64   `json:"redemption_value,omitempty"`
}

// IndicativeValue is the "mark-to-market if matured today" projection
type IndicativeValue struct {
	Value        float64   `json:"value"` // percent of par
	AsOf         time.Time `json:"as_of"`
	IsLive       bool      `json:"is_live"`
	Hypothetical bool      `json:"hypothetical"`
}

// EvaluationResult is the point-in-time snapshot an evaluation produces.
// The field set and nesting are identical across template types so a shared
// renderer can consume any of them. Given the same terms, snapshot, date and
// override, the result is always identical.
type EvaluationResult struct {
	ProductID           string               `json:"product_id"`
	TemplateType        TemplateType         `json:"template_type"`
	EvaluationDate      time.Time            `json:"evaluation_date"`
	MarketDataVersion   string               `json:"market_data_version,omitempty"`
	Underlyings         []UnderlyingAnalysis `json:"underlyings"`
	ObservationAnalysis ObservationAnalysis  `json:"observation_analysis"`
	BasketAnalysis      BasketAnalysis       `json:"basket_analysis"`
	Redemption          Redemption           `json:"redemption"`
	IssuerCall          IssuerCallSummary    `json:"issuer_call"`
	IndicativeMaturity  *IndicativeValue     `json:"indicative_maturity_value,omitempty"`
	ProcessingIssues    []ProcessingIssue    `json:"processing_issues"`
}

// AddIssue appends a processing issue
func (r *EvaluationResult) AddIssue(issue ProcessingIssue) {
	r.ProcessingIssues = append(r.ProcessingIssues, issue)
}

// Degraded reports whether the result carries any error-severity issue
func (r *EvaluationResult) Degraded() bool {
	return HasErrors(r.ProcessingIssues)
}
