package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/noteval/internal/contracts"
)

func TestOverrideValidate(t *testing.T) {
	manager := NewOverrideManager(DefaultConfig())
	terms := phoenixTerms()

	require.NoError(t, manager.Validate(terms, nil), "no override is always valid")
	require.NoError(t, manager.Validate(terms, &contracts.IssuerCallOverride{}), "unset override fully reverts the product")

	callDate := date(2025, 6, 1)
	valid := &contracts.IssuerCallOverride{
		HasCallOption: true,
		CallDate:      &callDate,
		CallPrice:     102,
		CallRebate:    1.5,
		RebateType:    contracts.RebatePerAnnum,
	}
	require.NoError(t, manager.Validate(terms, valid))

	tests := []struct {
		name     string
		override *contracts.IssuerCallOverride
	}{
		{"missing call date", &contracts.IssuerCallOverride{HasCallOption: true}},
		{"call date before trade date", func() *contracts.IssuerCallOverride {
			early := date(2024, 12, 31)
			return &contracts.IssuerCallOverride{HasCallOption: true, CallDate: &early}
		}()},
		{"unknown rebate type", &contracts.IssuerCallOverride{HasCallOption: true, CallDate: &callDate, RebateType: "stepped"}},
		{"negative call price", &contracts.IssuerCallOverride{HasCallOption: true, CallDate: &callDate, CallPrice: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := manager.Validate(terms, tt.override)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrOverrideValidation)
		})
	}
}

func TestOverrideRebateProration(t *testing.T) {
	manager := NewOverrideManager(DefaultConfig())
	terms := phoenixTerms()

	// 2% per annum, ACT/365F from the value date.
	for _, days := range []int{0, 1, 365, 730} {
		t.Run(fmt.Sprintf("%d days", days), func(t *testing.T) {
			callDate := terms.ValueDate.AddDate(0, 0, days)
			override := &contracts.IssuerCallOverride{
				HasCallOption: true,
				CallDate:      &callDate,
				CallRebate:    2.0,
				RebateType:    contracts.RebatePerAnnum,
			}

			rebate, daysHeld := manager.Rebate(terms, override)
			assert.Equal(t, days, daysHeld)
			assert.InDelta(t, 2.0*float64(days)/365, rebate, 1e-12)
		})
	}
}

func TestOverrideRebateFlatPassthrough(t *testing.T) {
	manager := NewOverrideManager(DefaultConfig())
	terms := phoenixTerms()
	callDate := terms.ValueDate.AddDate(0, 0, 500)

	override := &contracts.IssuerCallOverride{
		HasCallOption: true,
		CallDate:      &callDate,
		CallRebate:    3.25,
		RebateType:    contracts.RebateFlat,
	}

	rebate, daysHeld := manager.Rebate(terms, override)
	assert.Equal(t, 3.25, rebate, "flat rebates ignore holding time")
	assert.Equal(t, 500, daysHeld)
}

func TestOverrideRebateAccrualFromTradeDate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RebateAccrualStart = AccrualFromTradeDate
	manager := NewOverrideManager(cfg)

	terms := phoenixTerms()
	callDate := terms.TradeDate.AddDate(0, 0, 100)
	override := &contracts.IssuerCallOverride{
		HasCallOption: true,
		CallDate:      &callDate,
		CallRebate:    1.0,
		RebateType:    contracts.RebatePerAnnum,
	}

	_, daysHeld := manager.Rebate(terms, override)
	assert.Equal(t, 100, daysHeld, "accrual counts from the trade date under that convention")
}

func TestOverrideSummarize(t *testing.T) {
	manager := NewOverrideManager(DefaultConfig())
	terms := phoenixTerms()

	t.Run("no override", func(t *testing.T) {
		summary := manager.Summarize(Input{Terms: terms, EvalDate: date(2025, 7, 1)})
		assert.False(t, summary.HasCallOption)
		assert.False(t, summary.IsCalled)
	})

	t.Run("declared but not yet effective", func(t *testing.T) {
		callDate := date(2025, 9, 1)
		summary := manager.Summarize(Input{
			Terms:    terms,
			EvalDate: date(2025, 7, 1),
			Override: &contracts.IssuerCallOverride{HasCallOption: true, CallDate: &callDate, CallRebate: 2},
		})
		assert.True(t, summary.HasCallOption)
		assert.False(t, summary.IsCalled)
		assert.Nil(t, summary.RedemptionValue)
	})

	t.Run("effective call", func(t *testing.T) {
		callDate := date(2025, 6, 1)
		summary := manager.Summarize(Input{
			Terms:    terms,
			EvalDate: date(2025, 7, 1),
			Override: &contracts.IssuerCallOverride{
				HasCallOption: true,
				CallDate:      &callDate,
				CallPrice:     101,
				CallRebate:    2,
				RebateType:    contracts.RebateFlat,
			},
		})
		assert.True(t, summary.IsCalled)
		require.NotNil(t, summary.RedemptionValue)
		assert.Equal(t, 103.0, *summary.RedemptionValue)
	})

	t.Run("defaults applied", func(t *testing.T) {
		callDate := date(2025, 6, 1)
		summary := manager.Summarize(Input{
			Terms:    terms,
			EvalDate: date(2025, 7, 1),
			Override: &contracts.IssuerCallOverride{HasCallOption: true, CallDate: &callDate},
		})
		assert.Equal(t, contracts.DefaultCallPrice, summary.CallPrice, "unset call price defaults to par")
		assert.Equal(t, contracts.RebateFlat, summary.RebateType)
	})
}
