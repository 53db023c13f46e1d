package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/noteval/internal/contracts"
)

func himalayaTerms() *contracts.ProductTerms {
	return &contracts.ProductTerms{
		ProductID:            "HIM-2025-001",
		Name:                 "Himalaya Best-Of Basket",
		TemplateType:         contracts.TemplateHimalaya,
		TradeDate:            date(2025, 1, 10),
		ValueDate:            date(2025, 1, 15),
		FinalObservationDate: date(2025, 9, 30),
		MaturityDate:         date(2025, 10, 7),
		Underlyings: []contracts.Underlying{
			{Ticker: "AAA", InitialLevel: 100},
			{Ticker: "BBB", InitialLevel: 100},
			{Ticker: "CCC", InitialLevel: 100},
		},
		Parameters: contracts.StructureParameters{FloorPct: 0},
		Schedule: []contracts.ObservationScheduleEntry{
			{Index: 0, ObservationDate: date(2025, 3, 31), Type: contracts.ObservationIntermediate},
			{Index: 1, ObservationDate: date(2025, 6, 30), Type: contracts.ObservationIntermediate},
			{Index: 2, ObservationDate: date(2025, 9, 30), Type: contracts.ObservationFinal},
		},
	}
}

// himalayaSnapshot drives the selection rounds to AAA +20%, BBB -5%,
// CCC +10%.
func himalayaSnapshot() *contracts.MarketDataSnapshot {
	return &contracts.MarketDataSnapshot{
		AsOf:    date(2025, 10, 1),
		Version: "md-2025-10-01",
		Series: map[string][]contracts.PricePoint{
			"AAA": {
				{Date: date(2025, 3, 31), Close: 120},
				{Date: date(2025, 6, 30), Close: 130},
				{Date: date(2025, 9, 30), Close: 140},
			},
			"BBB": {
				{Date: date(2025, 3, 31), Close: 110},
				{Date: date(2025, 6, 30), Close: 95},
				{Date: date(2025, 9, 30), Close: 80},
			},
			"CCC": {
				{Date: date(2025, 3, 31), Close: 105},
				{Date: date(2025, 6, 30), Close: 90},
				{Date: date(2025, 9, 30), Close: 110},
			},
		},
	}
}

func TestHimalayaSelectionAndPayout(t *testing.T) {
	calc := NewHimalayaCalculator(DefaultConfig())
	outcome, err := calc.Evaluate(Input{
		Terms:    himalayaTerms(),
		Snapshot: himalayaSnapshot(),
		EvalDate: date(2025, 10, 1),
	})
	require.NoError(t, err)

	obs := outcome.Observations.Observations
	require.Len(t, obs, 3)

	// Round 1 picks AAA at +20% and removes it; round 2 picks the best of
	// the remainder, BBB at -5%; round 3 is left with CCC at +10%.
	assert.Equal(t, "AAA", obs[0].SelectedTicker)
	assert.InDelta(t, 0.20, *obs[0].SelectedPerformance, 1e-9)
	assert.Equal(t, "BBB", obs[1].SelectedTicker)
	assert.InDelta(t, -0.05, *obs[1].SelectedPerformance, 1e-9)
	assert.Equal(t, "CCC", obs[2].SelectedTicker)
	assert.InDelta(t, 0.10, *obs[2].SelectedPerformance, 1e-9)

	require.Len(t, outcome.Basket.RecordedPerformances, 3)
	require.NotNil(t, outcome.Basket.FinalAverage)
	assert.InDelta(t, 0.25/3, *outcome.Basket.FinalAverage, 1e-9)
	assert.False(t, outcome.Basket.FloorApplied)

	assert.True(t, outcome.Observations.Matured)
	assert.True(t, outcome.Redemption.AtMaturity)
	require.NotNil(t, outcome.Redemption.Value)
	assert.InDelta(t, 108.3333333333, *outcome.Redemption.Value, 1e-6)
}

func TestHimalayaEachUnderlyingSelectedOnce(t *testing.T) {
	calc := NewHimalayaCalculator(DefaultConfig())
	outcome, err := calc.Evaluate(Input{
		Terms:    himalayaTerms(),
		Snapshot: himalayaSnapshot(),
		EvalDate: date(2025, 10, 1),
	})
	require.NoError(t, err)

	seen := make(map[int]string)
	for _, u := range outcome.Underlyings {
		require.NotNil(t, u.SelectedAtIndex, "%s never selected", u.Ticker)
		if prior, dup := seen[*u.SelectedAtIndex]; dup {
			t.Fatalf("round %d selected both %s and %s", *u.SelectedAtIndex, prior, u.Ticker)
		}
		seen[*u.SelectedAtIndex] = u.Ticker
	}
	assert.Len(t, seen, 3)
}

func TestHimalayaTieBreaksToBasketOrder(t *testing.T) {
	calc := NewHimalayaCalculator(DefaultConfig())
	terms := himalayaTerms()

	// All three print identical performances in round 1; the earliest
	// basket constituent wins the tie.
	snapshot := &contracts.MarketDataSnapshot{
		Version: "md-test",
		Series: map[string][]contracts.PricePoint{
			"AAA": {{Date: date(2025, 3, 31), Close: 110}},
			"BBB": {{Date: date(2025, 3, 31), Close: 110}},
			"CCC": {{Date: date(2025, 3, 31), Close: 110}},
		},
	}

	outcome, err := calc.Evaluate(Input{Terms: terms, Snapshot: snapshot, EvalDate: date(2025, 4, 15)})
	require.NoError(t, err)

	assert.Equal(t, "AAA", outcome.Observations.Observations[0].SelectedTicker)
}

func TestHimalayaFloorApplied(t *testing.T) {
	calc := NewHimalayaCalculator(DefaultConfig())
	terms := himalayaTerms()
	terms.Parameters.FloorPct = 0.10

	outcome, err := calc.Evaluate(Input{
		Terms:    terms,
		Snapshot: himalayaSnapshot(),
		EvalDate: date(2025, 10, 1),
	})
	require.NoError(t, err)

	// The raw average of 8.33% sits under the 10% floor.
	assert.True(t, outcome.Basket.FloorApplied)
	require.NotNil(t, outcome.Basket.FlooredPerformance)
	assert.Equal(t, 0.10, *outcome.Basket.FlooredPerformance)
	require.NotNil(t, outcome.Redemption.Value)
	assert.InDelta(t, 110.0, *outcome.Redemption.Value, 1e-9)
}

func TestHimalayaFloorIsIdempotent(t *testing.T) {
	averages := []float64{-0.60, -0.10, 0.0, 0.0999, 0.10, 0.25, 1.20}
	for _, avg := range averages {
		once := floorPerformance(avg, 0.10)
		twice := floorPerformance(once, 0.10)
		assert.Equal(t, once, twice, "average %v", avg)
	}
}

func TestHimalayaMidLifeHasNoRedemption(t *testing.T) {
	calc := NewHimalayaCalculator(DefaultConfig())
	outcome, err := calc.Evaluate(Input{
		Terms:    himalayaTerms(),
		Snapshot: himalayaSnapshot(),
		EvalDate: date(2025, 7, 15),
	})
	require.NoError(t, err)

	assert.Len(t, outcome.Basket.RecordedPerformances, 2)
	assert.Nil(t, outcome.Redemption.Value)
	assert.False(t, outcome.Observations.Matured)
	assert.Equal(t, contracts.StateUpcoming, outcome.Observations.Observations[2].State)
}

func TestHimalayaValidateRoundCount(t *testing.T) {
	calc := NewHimalayaCalculator(DefaultConfig())
	terms := himalayaTerms()
	terms.Schedule = terms.Schedule[:2]

	err := calc.Validate(terms)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
}
