package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() RiskParameters {
	return RiskParameters{
		MaxTradesPerDay:       10,
		MaxDailyLoss:          decimal.NewFromInt(50),
		MaxDailyLossPercent:   0.05,
		TakeProfitPercent:     0.25,
		StopLossPercent:       0.5,
		MaxPositionSize:       decimal.NewFromInt(100),
		MinConfidence:         60,
		SentimentGapThreshold: 0.15,
		MaxPerTrade:           decimal.NewFromInt(10),
		MaxOpenPositions:      5,
		MaxTotalExposure:      decimal.NewFromInt(100),
	}
}

func TestRiskParametersValidate(t *testing.T) {
	require.NoError(t, validParams().Validate())

	tests := []struct {
		name   string
		mutate func(*RiskParameters)
	}{
		{"zero trades per day", func(p *RiskParameters) { p.MaxTradesPerDay = 0 }},
		{"zero daily loss", func(p *RiskParameters) { p.MaxDailyLoss = decimal.Zero }},
		{"daily loss percent above one", func(p *RiskParameters) { p.MaxDailyLossPercent = 1.5 }},
		{"zero take profit", func(p *RiskParameters) { p.TakeProfitPercent = 0 }},
		{"stop loss at one", func(p *RiskParameters) { p.StopLossPercent = 1 }},
		{"confidence below range", func(p *RiskParameters) { p.MinConfidence = 40 }},
		{"confidence above range", func(p *RiskParameters) { p.MinConfidence = 95 }},
		{"negative sentiment gap", func(p *RiskParameters) { p.SentimentGapThreshold = -0.1 }},
		{"zero per trade", func(p *RiskParameters) { p.MaxPerTrade = decimal.Zero }},
		{"zero open positions", func(p *RiskParameters) { p.MaxOpenPositions = 0 }},
		{"zero total exposure", func(p *RiskParameters) { p.MaxTotalExposure = decimal.Zero }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := validParams()
			tt.mutate(&params)
			assert.Error(t, params.Validate())
		})
	}
}

func TestRiskParametersPatchApply(t *testing.T) {
	base := validParams()

	newTrades := 20
	newLoss := decimal.NewFromInt(75)
	patch := RiskParametersPatch{
		MaxTradesPerDay: &newTrades,
		MaxDailyLoss:    &newLoss,
	}

	merged := patch.Apply(base)

	assert.Equal(t, 20, merged.MaxTradesPerDay)
	assert.True(t, merged.MaxDailyLoss.Equal(decimal.NewFromInt(75)))
	// Unpatched fields keep base values.
	assert.Equal(t, base.StopLossPercent, merged.StopLossPercent)
	assert.True(t, merged.MaxPerTrade.Equal(base.MaxPerTrade))
	// Base is untouched.
	assert.Equal(t, 10, base.MaxTradesPerDay)
}

func TestEmptyPatchIsIdentity(t *testing.T) {
	base := validParams()
	merged := RiskParametersPatch{}.Apply(base)
	assert.Equal(t, base, merged)
}
