package contracts

import "time"

// PricePoint is one close in a daily price series
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// MarketDataSnapshot is a fixed, per-ticker set of ordered price series up to
// an as-of date. It is assembled by the caller before evaluation and never
// mutated by the engine; one snapshot serves one evaluation.
type MarketDataSnapshot struct {
	AsOf    time.Time               `json:"as_of"`
	Version string                  `json:"version"`
	Series  map[string][]PricePoint `json:"series"` // ascending by date
}

// PriceAt returns the close for a ticker at date, falling back to the most
// recent prior close in the series. The second return is false when the
// series has no point on or before date.
func (s *MarketDataSnapshot) PriceAt(ticker string, date time.Time) (PricePoint, bool) {
	series, ok := s.Series[ticker]
	if !ok || len(series) == 0 {
		return PricePoint{}, false
	}

	// Series is ascending; scan back for the last point not after date.
	for i := len(series) - 1; i >= 0; i-- {
		if !series[i].Date.After(date) {
			return series[i], true
		}
	}

	return PricePoint{}, false
}

// Latest returns the most recent close for a ticker
func (s *MarketDataSnapshot) Latest(ticker string) (PricePoint, bool) {
	series, ok := s.Series[ticker]
	if !ok || len(series) == 0 {
		return PricePoint{}, false
	}
	return series[len(series)-1], true
}
