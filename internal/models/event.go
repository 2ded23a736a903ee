package models

import (
	"time"
)

// Side identifies one side of a two-sided event.
type Side string

const (
	SideHome Side = "home"
	SideAway Side = "away"
)

// FormWin marks a win in a recent-form sequence; any other entry counts as a loss.
const FormWin = "W"

// TeamStats holds the season statistics for one side of an event.
type TeamStats struct {
	// Wins is the number of wins on the season.
	Wins int `json:"wins"`
	// Losses is the number of losses on the season.
	Losses int `json:"losses"`
	// PointsFor is total points scored.
	PointsFor float64 `json:"points_for"`
	// PointsAgainst is total points conceded.
	PointsAgainst float64 `json:"points_against"`
	// RecentForm is the most recent results, newest first ("W" or "L").
	RecentForm []string `json:"recent_form"`
}

// WinRate returns wins / (wins + losses), or 0 for a team with no games.
func (s TeamStats) WinRate() float64 {
	games := s.Wins + s.Losses
	if games == 0 {
		return 0
	}
	return float64(s.Wins) / float64(games)
}

// PointsRatio returns pointsFor / (pointsFor + pointsAgainst), or 0.5 when no
// points have been recorded on either side.
func (s TeamStats) PointsRatio() float64 {
	total := s.PointsFor + s.PointsAgainst
	if total == 0 {
		return 0.5
	}
	return s.PointsFor / total
}

// Outcome is the realized result of a historical event.
type Outcome struct {
	// Winner is the side that won.
	Winner Side `json:"winner"`
	// HomeScore is the final home score.
	HomeScore int `json:"home_score"`
	// AwayScore is the final away score.
	AwayScore int `json:"away_score"`
}

// Event is an immutable game/market record. Historical events carry a realized
// Outcome; live events do not.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id" db:"id"`
	// HomeTeam is the home side identifier.
	HomeTeam string `json:"home_team" db:"home_team"`
	// AwayTeam is the away side identifier.
	AwayTeam string `json:"away_team" db:"away_team"`
	// StartTime is the scheduled start (UTC).
	StartTime time.Time `json:"start_time" db:"start_time"`
	// HomeStats are the home side season statistics.
	HomeStats TeamStats `json:"home_stats"`
	// AwayStats are the away side season statistics.
	AwayStats TeamStats `json:"away_stats"`
	// HomeMoneyline is the American-odds home moneyline (nil if not quoted).
	HomeMoneyline *float64 `json:"home_moneyline,omitempty"`
	// AwayMoneyline is the American-odds away moneyline (nil if not quoted).
	AwayMoneyline *float64 `json:"away_moneyline,omitempty"`
	// SentimentGap is the public-vs-market sentiment gap when available.
	SentimentGap *float64 `json:"sentiment_gap,omitempty"`
	// Outcome is the realized result for historical events (nil for live events).
	Outcome *Outcome `json:"outcome,omitempty"`
}

// IsHistorical reports whether the event carries a realized outcome.
func (e Event) IsHistorical() bool {
	return e.Outcome != nil
}

// Day returns the UTC calendar date of the event start.
func (e Event) Day() string {
	return e.StartTime.UTC().Format("2006-01-02")
}
