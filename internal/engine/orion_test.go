package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/noteval/internal/contracts"
)

func orionTerms() *contracts.ProductTerms {
	return &contracts.ProductTerms{
		ProductID:            "ORI-2025-001",
		Name:                 "Orion Memory Note",
		TemplateType:         contracts.TemplateOrion,
		TradeDate:            date(2025, 1, 10),
		ValueDate:            date(2025, 1, 15),
		FinalObservationDate: date(2025, 12, 31),
		MaturityDate:         date(2026, 1, 7),
		Underlyings: []contracts.Underlying{
			{Ticker: "AAA", InitialLevel: 100},
			{Ticker: "BBB", InitialLevel: 100},
			{Ticker: "CCC", InitialLevel: 100},
		},
		Parameters: contracts.StructureParameters{
			UpperBarrierPct: 0.25,
			RebatePct:       0.10,
		},
		Schedule: []contracts.ObservationScheduleEntry{
			{Index: 0, ObservationDate: date(2025, 12, 31), Type: contracts.ObservationFinal},
		},
	}
}

func orionSnapshot() *contracts.MarketDataSnapshot {
	return &contracts.MarketDataSnapshot{
		AsOf:    date(2025, 12, 31),
		Version: "md-2025-12-31",
		Series: map[string][]contracts.PricePoint{
			"AAA": {{Date: date(2025, 12, 31), Close: 130}},
			"BBB": {{Date: date(2025, 12, 31), Close: 125}},
			"CCC": {{Date: date(2025, 12, 31), Close: 60}},
		},
	}
}

func TestOrionConsideredPerformances(t *testing.T) {
	calc := NewOrionCalculator(DefaultConfig())
	outcome, err := calc.Evaluate(Input{
		Terms:    orionTerms(),
		Snapshot: orionSnapshot(),
		EvalDate: date(2026, 1, 5),
	})
	require.NoError(t, err)

	require.Len(t, outcome.Underlyings, 3)

	// AAA +30% and BBB +25% both hit the 25% upper barrier: their upside
	// is replaced by the 10% rebate. CCC's -40% passes through uncapped.
	aaa, bbb, ccc := outcome.Underlyings[0], outcome.Underlyings[1], outcome.Underlyings[2]

	assert.True(t, aaa.HitUpperBarrier)
	assert.Equal(t, 0.10, *aaa.ConsideredPerformance)
	assert.True(t, bbb.HitUpperBarrier)
	assert.Equal(t, 0.10, *bbb.ConsideredPerformance)
	assert.False(t, ccc.HitUpperBarrier)
	assert.InDelta(t, -0.40, *ccc.ConsideredPerformance, 1e-9)

	assert.Equal(t, 2, outcome.Basket.UpperBarrierHits)
	require.NotNil(t, outcome.Basket.ConsideredPerformance)
	assert.InDelta(t, (0.10+0.10-0.40)/3, *outcome.Basket.ConsideredPerformance, 1e-9)
	require.NotNil(t, outcome.Basket.WorstOfPerformance)
	assert.InDelta(t, -0.40, *outcome.Basket.WorstOfPerformance, 1e-9)

	assert.True(t, outcome.Observations.Matured)
	require.NotNil(t, outcome.Redemption.Value)
	assert.InDelta(t, 100*(1-0.20/3), *outcome.Redemption.Value, 1e-6)
}

func TestOrionDownsideNeverCapped(t *testing.T) {
	considered, hit := consideredPerformance(-0.55, 0.25, 0.10)
	assert.False(t, hit)
	assert.Equal(t, -0.55, considered)
}

func TestOrionCapIsIdempotent(t *testing.T) {
	raws := []float64{-0.60, -0.10, 0.0, 0.249, 0.25, 0.40, 1.20}
	for _, raw := range raws {
		once, _ := consideredPerformance(raw, 0.25, 0.10)
		twice, _ := consideredPerformance(once, 0.25, 0.10)
		assert.Equal(t, once, twice, "raw %v", raw)
	}
}

func TestOrionProtectionBarrier(t *testing.T) {
	calc := NewOrionCalculator(DefaultConfig())

	terms := orionTerms()
	terms.Parameters.ProtectionBarrierPct = 0.50
	outcome, err := calc.Evaluate(Input{Terms: terms, Snapshot: orionSnapshot(), EvalDate: date(2026, 1, 5)})
	require.NoError(t, err)
	assert.False(t, outcome.Redemption.ProtectionBreached, "worst ratio 0.60 holds above 0.50")

	terms = orionTerms()
	terms.Parameters.ProtectionBarrierPct = 0.65
	outcome, err = calc.Evaluate(Input{Terms: terms, Snapshot: orionSnapshot(), EvalDate: date(2026, 1, 5)})
	require.NoError(t, err)
	assert.True(t, outcome.Redemption.ProtectionBreached)

	require.NotNil(t, outcome.Underlyings[2].ProtectionBarrier)
	assert.Equal(t, contracts.BarrierBreached, outcome.Underlyings[2].ProtectionBarrier.Status)
}

func TestOrionMidLifeHasNoRedemption(t *testing.T) {
	calc := NewOrionCalculator(DefaultConfig())
	snapshot := &contracts.MarketDataSnapshot{
		AsOf:    date(2025, 6, 15),
		Version: "md-2025-06-15",
		Series: map[string][]contracts.PricePoint{
			"AAA": {{Date: date(2025, 6, 13), Close: 112}},
			"BBB": {{Date: date(2025, 6, 13), Close: 104}},
			"CCC": {{Date: date(2025, 6, 13), Close: 91}},
		},
	}

	outcome, err := calc.Evaluate(Input{Terms: orionTerms(), Snapshot: snapshot, EvalDate: date(2025, 6, 15)})
	require.NoError(t, err)

	assert.Nil(t, outcome.Redemption.Value)
	assert.False(t, outcome.Observations.Matured)

	// The considered figures still populate for the live view.
	require.NotNil(t, outcome.Basket.ConsideredPerformance)
}

func TestOrionValidate(t *testing.T) {
	calc := NewOrionCalculator(DefaultConfig())

	terms := orionTerms()
	require.NoError(t, calc.Validate(terms))

	terms = orionTerms()
	terms.Parameters.UpperBarrierPct = 0
	assert.ErrorIs(t, calc.Validate(terms), ErrValidation)

	terms = orionTerms()
	terms.Parameters.RebatePct = -0.01
	assert.ErrorIs(t, calc.Validate(terms), ErrValidation)
}
