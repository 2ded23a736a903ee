package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

func floatPtr(v float64) *float64 {
	return &v
}

func strongHomeEvent() models.Event {
	return models.Event{
		ID:       "evt-1",
		HomeTeam: "Lakers",
		AwayTeam: "Kings",
		HomeStats: models.TeamStats{
			Wins: 40, Losses: 10,
			PointsFor: 5500, PointsAgainst: 5000,
			RecentForm: []string{"W", "W", "W", "W", "L"},
		},
		AwayStats: models.TeamStats{
			Wins: 15, Losses: 35,
			PointsFor: 4800, PointsAgainst: 5400,
			RecentForm: []string{"L", "L", "W", "L", "L"},
		},
		HomeMoneyline: floatPtr(-150),
		AwayMoneyline: floatPtr(130),
	}
}

func TestImpliedProbability(t *testing.T) {
	tests := []struct {
		name      string
		moneyline float64
		want      float64
	}{
		{"even underdog", 100, 0.5},
		{"even favorite", -100, 0.5},
		{"plus 200", 200, 1.0 / 3.0},
		{"minus 200", -200, 2.0 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ImpliedProbability(tt.moneyline), 1e-9)
		})
	}
}

func TestImpliedProbabilitiesComplement(t *testing.T) {
	// Only the home side is quoted: away is the exact complement.
	home, away := impliedProbabilities(floatPtr(-150), nil)
	assert.InDelta(t, 1.0, home+away, 1e-9)

	// Both sides quoted: the book's vig is preserved, probabilities may
	// exceed 1 in sum.
	home, away = impliedProbabilities(floatPtr(-150), floatPtr(-110))
	assert.Greater(t, home+away, 1.0)
}

func TestScorePicksStrongerSide(t *testing.T) {
	engine := NewScoringEngine()

	prediction, err := engine.Score(strongHomeEvent())
	require.NoError(t, err)

	assert.Equal(t, models.SideHome, prediction.Winner)
	assert.Equal(t, "Lakers", prediction.WinnerTeam)
	assert.GreaterOrEqual(t, prediction.Confidence, 0.5)
	assert.LessOrEqual(t, prediction.Confidence, 0.9)
	assert.Equal(t, 100*prediction.Confidence+2*prediction.Edge, prediction.CompositeScore)
}

func TestScoreDeterministic(t *testing.T) {
	engine := NewScoringEngine()
	event := strongHomeEvent()

	first, err := engine.Score(event)
	require.NoError(t, err)
	second, err := engine.Score(event)
	require.NoError(t, err)

	assert.Equal(t, first.CompositeScore, second.CompositeScore)
	assert.Equal(t, first.Winner, second.Winner)
	assert.Equal(t, first.Confidence, second.Confidence)
}

func TestScoreValidation(t *testing.T) {
	engine := NewScoringEngine()

	t.Run("missing odds", func(t *testing.T) {
		event := strongHomeEvent()
		event.HomeMoneyline = nil
		event.AwayMoneyline = nil

		_, err := engine.Score(event)
		require.Error(t, err)
		var validationErr *utils.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("empty recent form", func(t *testing.T) {
		event := strongHomeEvent()
		event.AwayStats.RecentForm = nil

		_, err := engine.Score(event)
		require.Error(t, err)
		var validationErr *utils.ValidationError
		assert.ErrorAs(t, err, &validationErr)
	})

	t.Run("missing id", func(t *testing.T) {
		event := strongHomeEvent()
		event.ID = ""

		_, err := engine.Score(event)
		require.Error(t, err)
	})
}

func TestTierForScore(t *testing.T) {
	assert.Equal(t, models.TierElite, tierForScore(80))
	assert.Equal(t, models.TierElite, tierForScore(95.5))
	assert.Equal(t, models.TierPremium, tierForScore(79.999))
	assert.Equal(t, models.TierPremium, tierForScore(65))
	assert.Equal(t, models.TierFree, tierForScore(64.999))
	assert.Equal(t, models.TierFree, tierForScore(0))
}
