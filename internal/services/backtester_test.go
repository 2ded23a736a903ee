package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgetier/edgetier-ai-go/internal/config"
	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

func testBacktestConfig() config.BacktestConfig {
	return config.BacktestConfig{InitialBankroll: 1000, RiskFraction: 0.1}
}

func testRiskParams() models.RiskParameters {
	return models.RiskParameters{
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

// historicalEvent is strongHomeEvent with a realized outcome at the given day.
func historicalEvent(id string, start time.Time, winner models.Side) models.Event {
	event := strongHomeEvent()
	event.ID = id
	event.StartTime = start
	event.Outcome = &models.Outcome{Winner: winner, HomeScore: 110, AwayScore: 98}
	return event
}

// evenEvent scores with confidence exactly 0.5 (no edge on either side).
func evenEvent(id string, start time.Time) models.Event {
	stats := models.TeamStats{
		Wins: 25, Losses: 25,
		PointsFor: 5000, PointsAgainst: 5000,
		RecentForm: []string{"W", "L", "W", "L"},
	}
	return models.Event{
		ID:            id,
		StartTime:     start,
		HomeTeam:      "A",
		AwayTeam:      "B",
		HomeStats:     stats,
		AwayStats:     stats,
		HomeMoneyline: floatPtr(100),
		AwayMoneyline: floatPtr(100),
		Outcome:       &models.Outcome{Winner: models.SideHome, HomeScore: 100, AwayScore: 99},
	}
}

func TestBacktestEmptyEvents(t *testing.T) {
	backtester := NewBacktester(testBacktestConfig(), NewScoringEngine(), testLogger())

	report, err := backtester.Run(context.Background(), nil, testRiskParams())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Trades)
	assert.True(t, report.TotalReturn.IsZero())
	assert.Equal(t, 0.0, report.SharpeRatio)
	assert.Equal(t, 0.0, report.MaxDrawdown)
}

func TestBacktestWinningRun(t *testing.T) {
	backtester := NewBacktester(testBacktestConfig(), NewScoringEngine(), testLogger())
	day := time.Date(2025, 1, 1, 19, 0, 0, 0, time.UTC)

	events := []models.Event{
		historicalEvent("e1", day, models.SideHome),
		historicalEvent("e2", day.Add(2*time.Hour), models.SideHome),
	}

	report, err := backtester.Run(context.Background(), events, testRiskParams())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Trades)
	assert.Equal(t, 2, report.Wins)
	assert.Equal(t, 0, report.Losses)
	assert.Equal(t, 1.0, report.WinRate)
	// Winning return per trade is capped by take-profit: 100 * 0.25.
	assert.True(t, report.TotalReturn.Equal(decimal.NewFromInt(50)),
		"got %s", report.TotalReturn.String())
	assert.Equal(t, models.ProfitFactorNoLosses, report.ProfitFactor)
}

func TestBacktestLosingRunCapsAtStopLoss(t *testing.T) {
	backtester := NewBacktester(testBacktestConfig(), NewScoringEngine(), testLogger())
	day := time.Date(2025, 1, 1, 19, 0, 0, 0, time.UTC)

	report, err := backtester.Run(context.Background(), []models.Event{
		historicalEvent("e1", day, models.SideAway),
	}, testRiskParams())
	require.NoError(t, err)

	assert.Equal(t, 1, report.Trades)
	assert.Equal(t, 1, report.Losses)
	// Loss per trade is capped by stop-loss: -100 * 0.5.
	assert.True(t, report.TotalReturn.Equal(decimal.NewFromInt(-50)),
		"got %s", report.TotalReturn.String())
	assert.Greater(t, report.MaxDrawdown, 0.0)
}

func TestBacktestSkipsLowConfidence(t *testing.T) {
	backtester := NewBacktester(testBacktestConfig(), NewScoringEngine(), testLogger())
	day := time.Date(2025, 1, 1, 19, 0, 0, 0, time.UTC)

	report, err := backtester.Run(context.Background(), []models.Event{
		evenEvent("e1", day),
	}, testRiskParams())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Trades)
	assert.Equal(t, 1, report.SkippedEvents)
}

func TestBacktestMaxTradesPerDay(t *testing.T) {
	backtester := NewBacktester(testBacktestConfig(), NewScoringEngine(), testLogger())
	day1 := time.Date(2025, 1, 1, 19, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 1, 2, 19, 0, 0, 0, time.UTC)

	params := testRiskParams()
	params.MaxTradesPerDay = 1

	events := []models.Event{
		historicalEvent("e1", day1, models.SideHome),
		historicalEvent("e2", day1.Add(time.Hour), models.SideHome),
		// New UTC day: the counter resets.
		historicalEvent("e3", day2, models.SideHome),
	}

	report, err := backtester.Run(context.Background(), events, params)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Trades)
	assert.Equal(t, 1, report.SkippedEvents)
}

func TestBacktestDailyLossHalt(t *testing.T) {
	backtester := NewBacktester(testBacktestConfig(), NewScoringEngine(), testLogger())
	day1 := time.Date(2025, 1, 1, 19, 0, 0, 0, time.UTC)
	day2 := time.Date(2025, 1, 2, 19, 0, 0, 0, time.UTC)

	events := []models.Event{
		// First trade loses 50, hitting the daily loss cap exactly.
		historicalEvent("e1", day1, models.SideAway),
		historicalEvent("e2", day1.Add(time.Hour), models.SideHome),
		// Next UTC day trades again.
		historicalEvent("e3", day2, models.SideHome),
	}

	report, err := backtester.Run(context.Background(), events, testRiskParams())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Trades)
	assert.Equal(t, 1, report.SkippedEvents)
}

func TestBacktestSentimentGapSkip(t *testing.T) {
	backtester := NewBacktester(testBacktestConfig(), NewScoringEngine(), testLogger())
	day := time.Date(2025, 1, 1, 19, 0, 0, 0, time.UTC)

	event := historicalEvent("e1", day, models.SideHome)
	event.SentimentGap = floatPtr(0.4)

	report, err := backtester.Run(context.Background(), []models.Event{event}, testRiskParams())
	require.NoError(t, err)

	assert.Equal(t, 0, report.Trades)
	assert.Equal(t, 1, report.SkippedEvents)
}

func TestBacktestRejectsLiveEvents(t *testing.T) {
	backtester := NewBacktester(testBacktestConfig(), NewScoringEngine(), testLogger())

	event := strongHomeEvent()
	event.StartTime = time.Now()

	_, err := backtester.Run(context.Background(), []models.Event{event}, testRiskParams())
	require.Error(t, err)

	var validationErr *utils.ValidationError
	assert.ErrorAs(t, err, &validationErr)
}

func TestBacktestRejectsInvalidParams(t *testing.T) {
	backtester := NewBacktester(testBacktestConfig(), NewScoringEngine(), testLogger())

	params := testRiskParams()
	params.StopLossPercent = 1.5

	_, err := backtester.Run(context.Background(), nil, params)
	require.Error(t, err)
}

func TestSharpeRatio(t *testing.T) {
	assert.Equal(t, 0.0, sharpeRatio(nil))
	assert.Equal(t, 0.0, sharpeRatio([]float64{0.25}))
	assert.Equal(t, 0.0, sharpeRatio([]float64{0.1, 0.1, 0.1}))
	assert.Greater(t, sharpeRatio([]float64{0.25, 0.25, -0.5, 0.25}), 0.0)
}
