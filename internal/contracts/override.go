package contracts

import "time"

// RebateType selects how an issuer-call rebate is computed
type RebateType string

const (
	// RebateFlat pays the rebate as entered.
	RebateFlat RebateType = "flat"
	// RebatePerAnnum prorates an annual rate by days held over the day-count
	// basis.
	RebatePerAnnum RebateType = "per_annum"
)

// DefaultCallPrice is the redemption price assumed when an issuer call
// declaration leaves the price unset, in percent of par.
const DefaultCallPrice = 100.0

// IssuerCallOverride is an admin-entered early-redemption declaration.
// It is written through the admin surface, read once per evaluation, and
// never generated by the engine. Unsetting HasCallOption fully reverts the
// product to its pre-override behavior.
type IssuerCallOverride struct {
	HasCallOption bool       `json:"has_call_option"`
	CallDate      *time.Time `json:"call_date,omitempty"`
	CallPrice     float64    `json:"call_price,omitempty"`  // percent of par; 0 means DefaultCallPrice
	CallRebate    float64    `json:"call_rebate,omitempty"` // flat points or per-annum rate, per RebateType
	RebateType    RebateType `json:"rebate_type,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at,omitempty"`
	UpdatedBy     string     `json:"updated_by,omitempty"`
}

// EffectiveCallPrice returns the call price, applying the default for unset
func (o *IssuerCallOverride) EffectiveCallPrice() float64 {
	if o.CallPrice == 0 {
		return DefaultCallPrice
	}
	return o.CallPrice
}

// Active reports whether the override declares a call
func (o *IssuerCallOverride) Active() bool {
	return o != nil && o.HasCallOption
}
