package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/noteval/internal/contracts"
)

func TestPhoenixMemoryCouponAndAutocall(t *testing.T) {
	calc := NewPhoenixCalculator(DefaultConfig())
	in := Input{
		Terms:    phoenixTerms(),
		Snapshot: phoenixCalledSnapshot(),
		EvalDate: date(2025, 10, 15),
	}

	outcome, err := calc.Evaluate(in)
	require.NoError(t, err)

	obs := outcome.Observations.Observations
	require.Len(t, obs, 4)

	// Observation 1: worst-of 90% sits below the 95% coupon barrier, so
	// the coupon defers into the pool.
	assert.Equal(t, contracts.StateOccurred, obs[0].State)
	assert.Equal(t, 0.0, obs[0].CouponPaid)
	assert.InDelta(t, 8.0, obs[0].CouponInMemory, 1e-12)
	assert.False(t, obs[0].ProductCalled)

	// Observation 2: worst-of 95% meets the coupon barrier; the period
	// coupon plus the deferred one pay out and the pool resets.
	assert.Equal(t, contracts.StateOccurred, obs[1].State)
	assert.InDelta(t, 16.0, obs[1].CouponPaid, 1e-12)
	assert.Equal(t, 0.0, obs[1].CouponInMemory)

	// Observation 3: worst-of 101% clears the autocall barrier.
	assert.Equal(t, contracts.StateCalled, obs[2].State)
	assert.True(t, obs[2].ProductCalled)
	assert.InDelta(t, 8.0, obs[2].CouponPaid, 1e-12)

	// Observation 4 is cancelled by the call.
	assert.Equal(t, contracts.StateCancelled, obs[3].State)
	assert.Equal(t, 0.0, obs[3].CouponPaid)

	assert.InDelta(t, 24.0, outcome.Observations.TotalCouponsEarned, 1e-12)
	assert.Equal(t, 0.0, outcome.Observations.MemoryPool)
	assert.True(t, outcome.Observations.Called)
	require.NotNil(t, outcome.Observations.CalledIndex)
	assert.Equal(t, 2, *outcome.Observations.CalledIndex)
	require.NotNil(t, outcome.Observations.CallDate)
	assert.Equal(t, date(2025, 9, 30), *outcome.Observations.CallDate)

	require.NotNil(t, outcome.Redemption.Value)
	assert.Equal(t, 100.0, *outcome.Redemption.Value)
	assert.True(t, outcome.Redemption.Called)
	assert.False(t, outcome.Redemption.ProtectionBreached)
}

func TestPhoenixPoolSurvivesUnpaidAtEvalDate(t *testing.T) {
	calc := NewPhoenixCalculator(DefaultConfig())
	terms := phoenixTerms()

	// Worst performer below the coupon barrier at both occurred
	// observations: two coupons deferred, nothing paid.
	snapshot := &contracts.MarketDataSnapshot{
		Version: "md-test",
		Series: map[string][]contracts.PricePoint{
			"AAA": {{Date: date(2025, 3, 31), Close: 90}, {Date: date(2025, 6, 30), Close: 92}},
			"BBB": {{Date: date(2025, 3, 31), Close: 99}, {Date: date(2025, 6, 30), Close: 98}},
			"CCC": {{Date: date(2025, 3, 31), Close: 97}, {Date: date(2025, 6, 30), Close: 96}},
		},
	}

	outcome, err := calc.Evaluate(Input{Terms: terms, Snapshot: snapshot, EvalDate: date(2025, 7, 15)})
	require.NoError(t, err)

	assert.Equal(t, 0.0, outcome.Observations.TotalCouponsEarned)
	assert.InDelta(t, 16.0, outcome.Observations.MemoryPool, 1e-12)
	assert.False(t, outcome.Observations.Called)
	assert.Nil(t, outcome.Redemption.Value, "no redemption leg while the product runs")
}

func TestPhoenixMaturityProtectionHolds(t *testing.T) {
	calc := NewPhoenixCalculator(DefaultConfig())
	terms := phoenixTerms()
	terms.Schedule = scheduleEntries(date(2025, 6, 30), date(2025, 12, 31))

	snapshot := &contracts.MarketDataSnapshot{
		Version: "md-test",
		Series: map[string][]contracts.PricePoint{
			"AAA": {{Date: date(2025, 6, 30), Close: 80}, {Date: date(2025, 12, 31), Close: 75}},
			"BBB": {{Date: date(2025, 6, 30), Close: 90}, {Date: date(2025, 12, 31), Close: 85}},
			"CCC": {{Date: date(2025, 6, 30), Close: 85}, {Date: date(2025, 12, 31), Close: 88}},
		},
	}

	outcome, err := calc.Evaluate(Input{Terms: terms, Snapshot: snapshot, EvalDate: date(2026, 1, 15)})
	require.NoError(t, err)

	assert.True(t, outcome.Observations.Matured)
	assert.True(t, outcome.Redemption.AtMaturity)
	assert.False(t, outcome.Redemption.ProtectionBreached)
	require.NotNil(t, outcome.Redemption.Value)
	assert.Equal(t, 100.0, *outcome.Redemption.Value)

	// Coupons deferred the whole life are never paid at maturity without
	// a coupon event.
	assert.InDelta(t, 16.0, outcome.Observations.MemoryPool, 1e-12)
}

func TestPhoenixMaturityLossFormulas(t *testing.T) {
	snapshot := &contracts.MarketDataSnapshot{
		Version: "md-test",
		Series: map[string][]contracts.PricePoint{
			"AAA": {{Date: date(2025, 6, 30), Close: 80}, {Date: date(2025, 12, 31), Close: 55}},
			"BBB": {{Date: date(2025, 6, 30), Close: 90}, {Date: date(2025, 12, 31), Close: 100}},
			"CCC": {{Date: date(2025, 6, 30), Close: 85}, {Date: date(2025, 12, 31), Close: 98}},
		},
	}

	tests := []struct {
		name    string
		formula contracts.LossFormula
		want    float64
	}{
		// Worst ratio 0.55 against a 0.60 protection barrier.
		{"linear", contracts.LossLinear, 95.0},
		{"worst_of", contracts.LossWorstOf, 55.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := NewPhoenixCalculator(DefaultConfig())
			terms := phoenixTerms()
			terms.Schedule = scheduleEntries(date(2025, 6, 30), date(2025, 12, 31))
			terms.Parameters.LossFormula = tt.formula

			outcome, err := calc.Evaluate(Input{Terms: terms, Snapshot: snapshot, EvalDate: date(2026, 1, 15)})
			require.NoError(t, err)

			assert.True(t, outcome.Redemption.ProtectionBreached)
			assert.Equal(t, tt.formula, outcome.Redemption.LossFormula)
			require.NotNil(t, outcome.Redemption.Value)
			assert.InDelta(t, tt.want, *outcome.Redemption.Value, 1e-9)
		})
	}
}

func TestPhoenixMemoryAutocallVariant(t *testing.T) {
	calc := NewPhoenixCalculator(DefaultConfig())
	terms := phoenixTerms()
	terms.Underlyings = []contracts.Underlying{
		{Ticker: "AAA", InitialLevel: 100},
		{Ticker: "BBB", InitialLevel: 100},
	}
	terms.Schedule = scheduleEntries(date(2025, 6, 30), date(2025, 12, 31))
	terms.Parameters.MemoryAutocall = true

	// AAA clears the barrier at observation 1 and slips back under it by
	// observation 2; BBB clears at observation 2. Flags persist, so the
	// full set is flagged and the product calls even though the plain
	// worst-of condition would not.
	snapshot := &contracts.MarketDataSnapshot{
		Version: "md-test",
		Series: map[string][]contracts.PricePoint{
			"AAA": {{Date: date(2025, 6, 30), Close: 105}, {Date: date(2025, 12, 31), Close: 96}},
			"BBB": {{Date: date(2025, 6, 30), Close: 95}, {Date: date(2025, 12, 31), Close: 102}},
		},
	}

	outcome, err := calc.Evaluate(Input{Terms: terms, Snapshot: snapshot, EvalDate: date(2026, 1, 15)})
	require.NoError(t, err)

	obs := outcome.Observations.Observations
	require.Len(t, obs, 2)

	assert.Equal(t, map[string]bool{"AAA": true}, obs[0].UnderlyingFlags)
	assert.False(t, obs[0].ProductCalled)

	assert.Equal(t, map[string]bool{"AAA": true, "BBB": true}, obs[1].UnderlyingFlags)
	assert.True(t, obs[1].ProductCalled)
	assert.Equal(t, contracts.StateCalled, obs[1].State)

	require.NotNil(t, outcome.Redemption.Value)
	assert.Equal(t, 100.0, *outcome.Redemption.Value)

	for _, u := range outcome.Underlyings {
		assert.True(t, u.Flagged, "flags surface on the underlying analysis")
	}
}

func TestPhoenixStepDownAutocallLevel(t *testing.T) {
	calc := NewPhoenixCalculator(DefaultConfig())
	terms := phoenixTerms()
	terms.Schedule = scheduleEntries(date(2025, 6, 30), date(2025, 12, 31))

	// The second observation steps the barrier down to 90%.
	stepDown := 0.90
	terms.Schedule[1].AutocallLevel = &stepDown

	snapshot := &contracts.MarketDataSnapshot{
		Version: "md-test",
		Series: map[string][]contracts.PricePoint{
			"AAA": {{Date: date(2025, 6, 30), Close: 92}, {Date: date(2025, 12, 31), Close: 93}},
			"BBB": {{Date: date(2025, 6, 30), Close: 98}, {Date: date(2025, 12, 31), Close: 99}},
			"CCC": {{Date: date(2025, 6, 30), Close: 95}, {Date: date(2025, 12, 31), Close: 97}},
		},
	}

	outcome, err := calc.Evaluate(Input{Terms: terms, Snapshot: snapshot, EvalDate: date(2026, 1, 15)})
	require.NoError(t, err)

	// 93% misses the product barrier of 100% but clears the stepped-down
	// 90% at the final observation.
	require.NotNil(t, outcome.Observations.CalledIndex)
	assert.Equal(t, 1, *outcome.Observations.CalledIndex)
	require.NotNil(t, outcome.Observations.Observations[1].AutocallBarrierPct)
	assert.Equal(t, 0.90, *outcome.Observations.Observations[1].AutocallBarrierPct)
}

func TestPhoenixValidate(t *testing.T) {
	calc := NewPhoenixCalculator(DefaultConfig())

	terms := phoenixTerms()
	require.NoError(t, calc.Validate(terms))

	terms = phoenixTerms()
	terms.Parameters.AutocallBarrierPct = 0
	assert.Error(t, calc.Validate(terms))

	terms = phoenixTerms()
	terms.Parameters.ProtectionBarrierPct = -0.1
	assert.Error(t, calc.Validate(terms))

	terms = phoenixTerms()
	terms.Parameters.CouponRate = -0.01
	assert.Error(t, calc.Validate(terms))
}
