package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

// RiskParameters is the immutable risk configuration. The live risk manager
// holds exactly one active instance, replaceable only through an explicit
// update operation.
type RiskParameters struct {
	// MaxTradesPerDay caps entries per UTC calendar day.
	MaxTradesPerDay int `json:"max_trades_per_day"`
	// MaxDailyLoss caps realized loss per UTC calendar day.
	MaxDailyLoss decimal.Decimal `json:"max_daily_loss"`
	// MaxDailyLossPercent caps realized daily loss as a fraction of bankroll.
	MaxDailyLossPercent float64 `json:"max_daily_loss_percent"`
	// TakeProfitPercent is the take-profit exit distance from entry (fraction).
	TakeProfitPercent float64 `json:"take_profit_percent"`
	// StopLossPercent is the stop-loss exit distance from entry (fraction).
	StopLossPercent float64 `json:"stop_loss_percent"`
	// MaxPositionSize caps the size of a single simulated or live position.
	MaxPositionSize decimal.Decimal `json:"max_position_size"`
	// MinConfidence is the minimum scoring confidence to trade, in percent.
	MinConfidence float64 `json:"min_confidence"`
	// SentimentGapThreshold blocks entries when the sentiment gap exceeds it.
	SentimentGapThreshold float64 `json:"sentiment_gap_threshold"`
	// MaxPerTrade caps the cost of one trade.
	MaxPerTrade decimal.Decimal `json:"max_per_trade"`
	// MaxOpenPositions caps concurrently open positions.
	MaxOpenPositions int `json:"max_open_positions"`
	// MaxTotalExposure caps the summed cost of all open positions.
	MaxTotalExposure decimal.Decimal `json:"max_total_exposure"`
}

// Validate checks the parameter value for internal consistency.
func (p RiskParameters) Validate() error {
	if p.MaxTradesPerDay <= 0 {
		return utils.NewValidationError("max_trades_per_day must be positive")
	}
	if p.MaxDailyLoss.IsNegative() || p.MaxDailyLoss.IsZero() {
		return utils.NewValidationError("max_daily_loss must be positive")
	}
	if p.MaxDailyLossPercent < 0 || p.MaxDailyLossPercent > 1 {
		return utils.NewValidationError("max_daily_loss_percent must be within [0, 1]")
	}
	if p.TakeProfitPercent <= 0 {
		return utils.NewValidationError("take_profit_percent must be positive")
	}
	if p.StopLossPercent <= 0 || p.StopLossPercent >= 1 {
		return utils.NewValidationError("stop_loss_percent must be within (0, 1)")
	}
	if p.MaxPositionSize.IsNegative() || p.MaxPositionSize.IsZero() {
		return utils.NewValidationError("max_position_size must be positive")
	}
	if p.MinConfidence < 50 || p.MinConfidence > 90 {
		return utils.NewValidationError("min_confidence must be within [50, 90]")
	}
	if p.SentimentGapThreshold < 0 {
		return utils.NewValidationError("sentiment_gap_threshold must be non-negative")
	}
	if p.MaxPerTrade.IsNegative() || p.MaxPerTrade.IsZero() {
		return utils.NewValidationError("max_per_trade must be positive")
	}
	if p.MaxOpenPositions <= 0 {
		return utils.NewValidationError("max_open_positions must be positive")
	}
	if p.MaxTotalExposure.IsNegative() || p.MaxTotalExposure.IsZero() {
		return utils.NewValidationError("max_total_exposure must be positive")
	}
	return nil
}

// RiskParametersPatch is a partial update to RiskParameters. Nil fields keep
// the current value.
type RiskParametersPatch struct {
	MaxTradesPerDay       *int             `json:"max_trades_per_day,omitempty"`
	MaxDailyLoss          *decimal.Decimal `json:"max_daily_loss,omitempty"`
	MaxDailyLossPercent   *float64         `json:"max_daily_loss_percent,omitempty"`
	TakeProfitPercent     *float64         `json:"take_profit_percent,omitempty"`
	StopLossPercent       *float64         `json:"stop_loss_percent,omitempty"`
	MaxPositionSize       *decimal.Decimal `json:"max_position_size,omitempty"`
	MinConfidence         *float64         `json:"min_confidence,omitempty"`
	SentimentGapThreshold *float64         `json:"sentiment_gap_threshold,omitempty"`
	MaxPerTrade           *decimal.Decimal `json:"max_per_trade,omitempty"`
	MaxOpenPositions      *int             `json:"max_open_positions,omitempty"`
	MaxTotalExposure      *decimal.Decimal `json:"max_total_exposure,omitempty"`
}

// Apply returns a copy of base with the non-nil patch fields applied.
func (patch RiskParametersPatch) Apply(base RiskParameters) RiskParameters {
	out := base
	if patch.MaxTradesPerDay != nil {
		out.MaxTradesPerDay = *patch.MaxTradesPerDay
	}
	if patch.MaxDailyLoss != nil {
		out.MaxDailyLoss = *patch.MaxDailyLoss
	}
	if patch.MaxDailyLossPercent != nil {
		out.MaxDailyLossPercent = *patch.MaxDailyLossPercent
	}
	if patch.TakeProfitPercent != nil {
		out.TakeProfitPercent = *patch.TakeProfitPercent
	}
	if patch.StopLossPercent != nil {
		out.StopLossPercent = *patch.StopLossPercent
	}
	if patch.MaxPositionSize != nil {
		out.MaxPositionSize = *patch.MaxPositionSize
	}
	if patch.MinConfidence != nil {
		out.MinConfidence = *patch.MinConfidence
	}
	if patch.SentimentGapThreshold != nil {
		out.SentimentGapThreshold = *patch.SentimentGapThreshold
	}
	if patch.MaxPerTrade != nil {
		out.MaxPerTrade = *patch.MaxPerTrade
	}
	if patch.MaxOpenPositions != nil {
		out.MaxOpenPositions = *patch.MaxOpenPositions
	}
	if patch.MaxTotalExposure != nil {
		out.MaxTotalExposure = *patch.MaxTotalExposure
	}
	return out
}

// PositionSide is the direction of an exposure on a binary market.
type PositionSide string

const (
	PositionSideYes PositionSide = "yes"
	PositionSideNo  PositionSide = "no"
)

// PositionStatus is the lifecycle state of a position. All closed states are
// terminal; a position never reopens.
type PositionStatus string

const (
	PositionOpen                    PositionStatus = "open"
	PositionTakeProfitClosed        PositionStatus = "take_profit_closed"
	PositionStopLossClosed          PositionStatus = "stop_loss_closed"
	PositionCircuitBreakerClosed    PositionStatus = "circuit_breaker_closed"
	PositionManualLiquidationClosed PositionStatus = "manual_liquidation_closed"
)

// Position is a live open exposure. It is created on a filled entry order and
// mutated only by the risk manager.
type Position struct {
	// ID is the unique position identifier.
	ID string `json:"id"`
	// ProductID is the traded event or market product.
	ProductID string `json:"product_id"`
	// Side is the exposure direction.
	Side PositionSide `json:"side"`
	// Quantity is the number of contracts held.
	Quantity decimal.Decimal `json:"quantity"`
	// EntryPrice is the fill price.
	EntryPrice decimal.Decimal `json:"entry_price"`
	// Cost is the total entry cost (quantity * entry price).
	Cost decimal.Decimal `json:"cost"`
	// TakeProfit is the exit price that locks in gains.
	TakeProfit decimal.Decimal `json:"take_profit"`
	// StopLoss is the exit price that caps losses.
	StopLoss decimal.Decimal `json:"stop_loss"`
	// Status is the lifecycle state.
	Status PositionStatus `json:"status"`
	// OpenedAt is when the position was opened.
	OpenedAt time.Time `json:"opened_at"`
	// ClosedAt is when the position reached a terminal state.
	ClosedAt *time.Time `json:"closed_at,omitempty"`
	// ExitPrice is the close price for terminal positions.
	ExitPrice decimal.Decimal `json:"exit_price"`
	// RealizedPnL is the realized profit or loss for terminal positions.
	RealizedPnL decimal.Decimal `json:"realized_pnl"`
}

// LimitCheck is the outcome of a pre-trade risk check. A failed check is a
// negative result, not an error: it blocks one trade without affecting others.
type LimitCheck struct {
	// Allowed reports whether the trade may proceed.
	Allowed bool `json:"allowed"`
	// Reason names the tripped limit and the offending/limit values.
	Reason string `json:"reason,omitempty"`
}

// LiquidationResult is the outcome of a verify-and-liquidate request.
type LiquidationResult struct {
	// Success reports whether liquidation was executed.
	Success bool `json:"success"`
	// Reason is the operator-supplied reason on success, or the rejection
	// cause on failure.
	Reason string `json:"reason"`
	// ClosedPositions is the number of positions force-closed.
	ClosedPositions int `json:"closed_positions"`
	// ExecutedAt is when the liquidation completed.
	ExecutedAt *time.Time `json:"executed_at,omitempty"`
}
