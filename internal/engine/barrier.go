package engine

import (
	"fmt"
	"time"

	"github.com/calder/noteval/internal/contracts"
)

// PriceObservation is one underlying's resolved price at a required date,
// including whether the fallback chain was used.
type PriceObservation struct {
	Ticker      string
	Price       float64
	PriceDate   time.Time
	Performance float64

	// ratio is price/initial, kept separately so barrier comparisons work
	// on the exact quotient instead of 1+Performance.
	ratio float64

	// UsedInitial is set when no price existed on or before the date and the
	// initial level stood in.
	UsedInitial bool
}

// Ratio returns price relative to the initial level (1.0 = unchanged)
func (o PriceObservation) Ratio() float64 {
	return o.ratio
}

// BarrierEvaluator computes per-underlying performance and barrier-distance
// primitives. Every payoff template shares this one implementation.
type BarrierEvaluator struct {
	nearBand float64
}

// NewBarrierEvaluator creates a barrier evaluator with the configured
// near-barrier band (relative distance, e.g. 0.05).
func NewBarrierEvaluator(nearBand float64) *BarrierEvaluator {
	return &BarrierEvaluator{nearBand: nearBand}
}

// Observe resolves the price of an underlying at a date from the snapshot.
// Missing dates fall back to the most recent prior close; a ticker with no
// usable series falls back to its initial level and yields a warning issue.
func (e *BarrierEvaluator) Observe(u contracts.Underlying, snapshot *contracts.MarketDataSnapshot, date time.Time) (PriceObservation, *contracts.ProcessingIssue) {
	obs := PriceObservation{Ticker: u.Ticker}

	if p, ok := snapshot.PriceAt(u.Ticker, date); ok {
		obs.Price = p.Close
		obs.PriceDate = p.Date
		obs.Performance = Performance(p.Close, u.InitialLevel)
		if u.InitialLevel != 0 {
			obs.ratio = p.Close / u.InitialLevel
		}
		return obs, nil
	}

	// No price on or before the date; the initial level stands in and the
	// gap is surfaced as a warning.
	obs.Price = u.InitialLevel
	obs.PriceDate = date
	obs.Performance = 0
	obs.ratio = 1.0
	obs.UsedInitial = true

	issue := contracts.NewMissingPriceIssue(u.Ticker,
		fmt.Sprintf("no price for %s on or before %s; initial level used", u.Ticker, date.Format("2006-01-02")))
	return obs, &issue
}

// ObserveBasket resolves every underlying at a date, collecting fallback
// issues, in basket order.
func (e *BarrierEvaluator) ObserveBasket(underlyings []contracts.Underlying, snapshot *contracts.MarketDataSnapshot, date time.Time) ([]PriceObservation, []contracts.ProcessingIssue) {
	observations := make([]PriceObservation, len(underlyings))
	var issues []contracts.ProcessingIssue

	for i, u := range underlyings {
		obs, issue := e.Observe(u, snapshot, date)
		observations[i] = obs
		if issue != nil {
			issues = append(issues, *issue)
		}
	}

	return observations, issues
}

// CheckBarrier evaluates a price against a barrier expressed as a fraction
// of the initial level and classifies the distance.
func (e *BarrierEvaluator) CheckBarrier(u contracts.Underlying, price, barrierPct float64) contracts.BarrierCheck {
	barrierLevel := barrierPct * u.InitialLevel
	distance := price - barrierLevel

	check := contracts.BarrierCheck{
		BarrierPct:   barrierPct,
		BarrierLevel: barrierLevel,
		Distance:     distance,
	}
	if barrierLevel != 0 {
		check.DistancePct = distance / barrierLevel
	}

	switch {
	case price < barrierLevel:
		check.Status = contracts.BarrierBreached
	case barrierLevel != 0 && check.DistancePct <= e.nearBand:
		check.Status = contracts.BarrierNear
	default:
		check.Status = contracts.BarrierSafe
	}

	return check
}

// Performance computes price/initial - 1
func Performance(price, initialLevel float64) float64 {
	if initialLevel == 0 {
		return 0
	}
	return price/initialLevel - 1
}

// WorstOf returns the minimum performance in a set of observations
func WorstOf(observations []PriceObservation) float64 {
	worst := observations[0].Performance
	for _, obs := range observations[1:] {
		if obs.Performance < worst {
			worst = obs.Performance
		}
	}
	return worst
}

// WorstObservation returns the observation with the lowest ratio. Barrier
// comparisons should go through its Ratio so the exact price/initial quotient
// is compared, not a reconstructed 1+performance.
func WorstObservation(observations []PriceObservation) PriceObservation {
	worst := observations[0]
	for _, obs := range observations[1:] {
		if obs.ratio < worst.ratio {
			worst = obs
		}
	}
	return worst
}

// BestOf returns the maximum performance in a set of observations
func BestOf(observations []PriceObservation) float64 {
	best := observations[0].Performance
	for _, obs := range observations[1:] {
		if obs.Performance > best {
			best = obs.Performance
		}
	}
	return best
}

// MeanOf returns the arithmetic mean performance of a set of observations
func MeanOf(observations []PriceObservation) float64 {
	var sum float64
	for _, obs := range observations {
		sum += obs.Performance
	}
	return sum / float64(len(observations))
}
