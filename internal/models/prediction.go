package models

import (
	"time"
)

// Tier is a subscription level receiving a quota of picks.
type Tier string

const (
	TierElite   Tier = "elite"
	TierPremium Tier = "premium"
	TierFree    Tier = "free"
)

// Composite-score thresholds for the pre-fallback tier tag.
const (
	EliteScoreThreshold   = 80.0
	PremiumScoreThreshold = 65.0
)

// Prediction is derived from an Event by the scoring engine. It is recomputed
// whenever scoring parameters change and is otherwise immutable.
type Prediction struct {
	// EventID references the scored event.
	EventID string `json:"event_id"`
	// Winner is the predicted winning side.
	Winner Side `json:"winner"`
	// WinnerTeam is the predicted winning team identifier.
	WinnerTeam string `json:"winner_team"`
	// Confidence is the engine confidence, clamped to [0.5, 0.9].
	Confidence float64 `json:"confidence"`
	// Edge is the gap between engine and market probability, in percentage points.
	Edge float64 `json:"edge"`
	// CompositeScore ranks predictions: 100*confidence + 2*edge.
	CompositeScore float64 `json:"composite_score"`
	// Tier is the pre-fallback tier tag from the score thresholds.
	Tier Tier `json:"tier"`
	// GeneratedAt is when the prediction was computed.
	GeneratedAt time.Time `json:"generated_at"`
}

// TierQuotas sets how many picks each tier receives per serving cycle.
type TierQuotas struct {
	Elite   int `json:"elite"`
	Premium int `json:"premium"`
	Free    int `json:"free"`
}

// DefaultTierQuotas returns the standard {5, 3, 2} quotas.
func DefaultTierQuotas() TierQuotas {
	return TierQuotas{Elite: 5, Premium: 3, Free: 2}
}

// Total returns the sum of all tier quotas.
func (q TierQuotas) Total() int {
	return q.Elite + q.Premium + q.Free
}

// TierAllocation is the disjoint partition of a prediction set across tiers.
// It is owned by the allocation call and recomputed per serving cycle.
type TierAllocation struct {
	Elite   []Prediction `json:"elite"`
	Premium []Prediction `json:"premium"`
	Free    []Prediction `json:"free"`
}

// Total returns the number of allocated predictions across all tiers.
func (a TierAllocation) Total() int {
	return len(a.Elite) + len(a.Premium) + len(a.Free)
}

// PicksResponse is the serving-path output shape consumed by the UI layer.
type PicksResponse struct {
	Elite     []Prediction `json:"elite"`
	Premium   []Prediction `json:"premium"`
	Free      []Prediction `json:"free"`
	Total     int          `json:"total"`
	Source    string       `json:"source"`
	Timestamp time.Time    `json:"timestamp"`
}
