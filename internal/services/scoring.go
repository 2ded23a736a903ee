package services

import (
	"math"
	"time"

	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

// Team-strength blend weights.
const (
	strengthWinRateWeight    = 0.4
	strengthPointsWeight     = 0.3
	strengthRecentFormWeight = 0.3
)

// Win-probability blend weights: model strength vs market-implied probability.
const (
	winProbStrengthWeight = 0.6
	winProbMarketWeight   = 0.4
)

// ScoringEngine turns an event's team features and market odds into a ranked
// edge estimate. It is pure and deterministic: identical inputs always yield
// the identical prediction, which backtests rely on for reproducibility.
type ScoringEngine struct{}

// NewScoringEngine creates a scoring engine.
func NewScoringEngine() *ScoringEngine {
	return &ScoringEngine{}
}

// Score derives a prediction from an event.
//
// Returns a ValidationError for events the formula is undefined on (empty
// recent-form sequence, no market odds on either side).
func (e *ScoringEngine) Score(event models.Event) (models.Prediction, error) {
	if event.ID == "" {
		return models.Prediction{}, utils.NewValidationError("event id is required")
	}
	if event.HomeMoneyline == nil && event.AwayMoneyline == nil {
		return models.Prediction{}, utils.NewValidationErrorf("event %s has no market odds on either side", event.ID)
	}

	homeStrength, err := teamStrength(event.HomeStats)
	if err != nil {
		return models.Prediction{}, utils.NewValidationErrorf("event %s home side: %s", event.ID, err.Error())
	}
	awayStrength, err := teamStrength(event.AwayStats)
	if err != nil {
		return models.Prediction{}, utils.NewValidationErrorf("event %s away side: %s", event.ID, err.Error())
	}

	homeImplied, awayImplied := impliedProbabilities(event.HomeMoneyline, event.AwayMoneyline)

	homeWinProb := winProbStrengthWeight*homeStrength + winProbMarketWeight*homeImplied
	awayWinProb := winProbStrengthWeight*awayStrength + winProbMarketWeight*awayImplied

	winner := models.SideHome
	winnerTeam := event.HomeTeam
	ourProb, marketProb := homeWinProb, homeImplied
	if awayWinProb > homeWinProb {
		winner = models.SideAway
		winnerTeam = event.AwayTeam
		ourProb, marketProb = awayWinProb, awayImplied
	}

	confidence := clamp(0.5+0.8*math.Abs(homeWinProb-awayWinProb), 0.5, 0.9)
	edge := 100 * (ourProb - marketProb)
	composite := 100*confidence + 2*edge

	return models.Prediction{
		EventID:        event.ID,
		Winner:         winner,
		WinnerTeam:     winnerTeam,
		Confidence:     confidence,
		Edge:           edge,
		CompositeScore: composite,
		Tier:           tierForScore(composite),
		GeneratedAt:    time.Now().UTC(),
	}, nil
}

// teamStrength blends win rate, points ratio and recent form into [0, 1].
func teamStrength(stats models.TeamStats) (float64, error) {
	if len(stats.RecentForm) == 0 {
		return 0, utils.NewValidationError("empty recent-form sequence")
	}

	recentWins := 0
	for _, result := range stats.RecentForm {
		if result == models.FormWin {
			recentWins++
		}
	}
	recentWinRate := float64(recentWins) / float64(len(stats.RecentForm))

	return strengthWinRateWeight*stats.WinRate() +
		strengthPointsWeight*stats.PointsRatio() +
		strengthRecentFormWeight*recentWinRate, nil
}

// ImpliedProbability converts an American moneyline to a win probability.
func ImpliedProbability(moneyline float64) float64 {
	if moneyline > 0 {
		return 100 / (moneyline + 100)
	}
	abs := math.Abs(moneyline)
	return abs / (abs + 100)
}

// impliedProbabilities resolves both sides' market probabilities. When only
// one side is quoted the other is its complement; when both are quoted each
// is taken independently, preserving the book's vig.
func impliedProbabilities(home, away *float64) (float64, float64) {
	switch {
	case home != nil && away != nil:
		return ImpliedProbability(*home), ImpliedProbability(*away)
	case home != nil:
		p := ImpliedProbability(*home)
		return p, 1 - p
	default:
		p := ImpliedProbability(*away)
		return 1 - p, p
	}
}

func tierForScore(composite float64) models.Tier {
	switch {
	case composite >= models.EliteScoreThreshold:
		return models.TierElite
	case composite >= models.PremiumScoreThreshold:
		return models.TierPremium
	default:
		return models.TierFree
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
