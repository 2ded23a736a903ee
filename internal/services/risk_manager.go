package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/edgetier/edgetier-ai-go/internal/config"
	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

// PriceSource quotes the current market price of a product. Prices are for
// the yes-side contract; the no side is its complement.
type PriceSource interface {
	CurrentPrice(ctx context.Context, productID string) (decimal.Decimal, error)
}

// OrderExecutor places and unwinds orders on the venue. The risk manager owns
// position state; the executor only touches the market.
type OrderExecutor interface {
	Open(ctx context.Context, productID string, side models.PositionSide, quantity, price decimal.Decimal) error
	Close(ctx context.Context, position *models.Position, price decimal.Decimal) error
}

// RiskManager owns all live position state and the active RiskParameters.
// Every mutation happens under one mutex: limit checks, opens, closes and the
// circuit breaker are serialized so no check can race an insert.
type RiskManager struct {
	prices   PriceSource
	executor OrderExecutor
	logger   *logrus.Logger

	pollInterval time.Duration

	mu        sync.Mutex
	params    models.RiskParameters
	positions map[string]*models.Position
	dailyLoss decimal.Decimal
	day       string
	halted    bool
}

// NewRiskManager seeds the manager from configuration. The configured
// parameter set must validate; a service refusing to start beats one trading
// with nonsense limits.
func NewRiskManager(cfg config.RiskConfig, prices PriceSource, executor OrderExecutor, logger *logrus.Logger) (*RiskManager, error) {
	params := models.RiskParameters{
		MaxTradesPerDay:       cfg.MaxTradesPerDay,
		MaxDailyLoss:          decimal.NewFromFloat(cfg.MaxDailyLoss),
		MaxDailyLossPercent:   cfg.MaxDailyLossPercent,
		TakeProfitPercent:     cfg.TakeProfitPercent,
		StopLossPercent:       cfg.StopLossPercent,
		MaxPositionSize:       decimal.NewFromFloat(cfg.MaxPositionSize),
		MinConfidence:         cfg.MinConfidence,
		SentimentGapThreshold: cfg.SentimentGapThreshold,
		MaxPerTrade:           decimal.NewFromFloat(cfg.MaxPerTrade),
		MaxOpenPositions:      cfg.MaxOpenPositions,
		MaxTotalExposure:      decimal.NewFromFloat(cfg.MaxTotalExposure),
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	pollInterval := 30 * time.Second
	if cfg.PollInterval != "" {
		d, err := time.ParseDuration(cfg.PollInterval)
		if err != nil {
			return nil, utils.NewValidationErrorf("invalid poll interval %q", cfg.PollInterval)
		}
		pollInterval = d
	}

	return &RiskManager{
		prices:       prices,
		executor:     executor,
		logger:       logger,
		pollInterval: pollInterval,
		params:       params,
		positions:    make(map[string]*models.Position),
		dailyLoss:    decimal.Zero,
		day:          utcDay(time.Now()),
	}, nil
}

func utcDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Parameters returns the active risk parameter set.
func (m *RiskManager) Parameters() models.RiskParameters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.params
}

// UpdateParameters applies a partial update. The merged set must validate as
// a whole; a rejected patch leaves the active set untouched.
func (m *RiskManager) UpdateParameters(patch models.RiskParametersPatch) (models.RiskParameters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	merged := patch.Apply(m.params)
	if err := merged.Validate(); err != nil {
		return m.params, err
	}
	m.params = merged

	m.logger.Info("Risk parameters updated")
	return m.params, nil
}

// CheckLimits runs the pre-trade gate for a proposed trade cost. Checks run
// in a fixed order and the first tripped limit names itself; a blocked trade
// is a result, not an error.
func (m *RiskManager) CheckLimits(cost decimal.Decimal) models.LimitCheck {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkLimitsLocked(cost)
}

func (m *RiskManager) checkLimitsLocked(cost decimal.Decimal) models.LimitCheck {
	m.rollDayLocked(time.Now())

	if m.halted {
		return models.LimitCheck{Reason: "circuit breaker active until next UTC day"}
	}
	if m.dailyLoss.GreaterThanOrEqual(m.params.MaxDailyLoss) {
		return models.LimitCheck{Reason: fmt.Sprintf("daily loss limit reached: %s >= %s",
			m.dailyLoss.String(), m.params.MaxDailyLoss.String())}
	}
	if cost.GreaterThan(m.params.MaxPerTrade) {
		return models.LimitCheck{Reason: fmt.Sprintf("per-trade limit exceeded: %s > %s",
			cost.String(), m.params.MaxPerTrade.String())}
	}
	open := 0
	exposure := decimal.Zero
	for _, p := range m.positions {
		if p.Status == models.PositionOpen {
			open++
			exposure = exposure.Add(p.Cost)
		}
	}
	if open >= m.params.MaxOpenPositions {
		return models.LimitCheck{Reason: fmt.Sprintf("open position limit reached: %d >= %d",
			open, m.params.MaxOpenPositions)}
	}
	if exposure.Add(cost).GreaterThan(m.params.MaxTotalExposure) {
		return models.LimitCheck{Reason: fmt.Sprintf("total exposure limit exceeded: %s > %s",
			exposure.Add(cost).String(), m.params.MaxTotalExposure.String())}
	}

	return models.LimitCheck{Allowed: true}
}

// OpenPosition checks limits and opens a position in one critical section, so
// two concurrent opens cannot both pass a limit only one of them fits under.
func (m *RiskManager) OpenPosition(ctx context.Context, productID string, side models.PositionSide, quantity, entryPrice decimal.Decimal) (*models.Position, error) {
	if side != models.PositionSideYes && side != models.PositionSideNo {
		return nil, utils.NewValidationErrorf("invalid position side %q", side)
	}
	if !quantity.IsPositive() || !entryPrice.IsPositive() {
		return nil, utils.NewValidationError("quantity and entry price must be positive")
	}

	cost := quantity.Mul(entryPrice)

	m.mu.Lock()
	check := m.checkLimitsLocked(cost)
	if !check.Allowed {
		m.mu.Unlock()
		return nil, utils.NewValidationErrorf("trade blocked: %s", check.Reason)
	}

	position := &models.Position{
		ID:         uuid.New().String(),
		ProductID:  productID,
		Side:       side,
		Quantity:   quantity,
		EntryPrice: entryPrice,
		Cost:       cost,
		Status:     models.PositionOpen,
		OpenedAt:   time.Now().UTC(),
	}
	position.TakeProfit, position.StopLoss = exitPrices(side, entryPrice, m.params)
	m.positions[position.ID] = position
	m.mu.Unlock()

	if err := m.executor.Open(ctx, productID, side, quantity, entryPrice); err != nil {
		m.mu.Lock()
		delete(m.positions, position.ID)
		m.mu.Unlock()
		return nil, fmt.Errorf("failed to place entry order: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"position_id": position.ID,
		"product_id":  productID,
		"side":        side,
		"cost":        cost.String(),
	}).Info("Position opened")

	return position, nil
}

// exitPrices derives the take-profit and stop-loss trigger prices. Quotes are
// yes-side, so a no position profits from a falling price and its triggers
// invert.
func exitPrices(side models.PositionSide, entry decimal.Decimal, params models.RiskParameters) (takeProfit, stopLoss decimal.Decimal) {
	tp := decimal.NewFromFloat(params.TakeProfitPercent)
	sl := decimal.NewFromFloat(params.StopLossPercent)
	if side == models.PositionSideYes {
		return entry.Mul(decimal.NewFromInt(1).Add(tp)), entry.Mul(decimal.NewFromInt(1).Sub(sl))
	}
	return entry.Mul(decimal.NewFromInt(1).Sub(tp)), entry.Mul(decimal.NewFromInt(1).Add(sl))
}

// Positions returns a stable-ordered snapshot of all tracked positions,
// open and closed.
func (m *RiskManager) Positions() []models.Position {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OpenedAt.Before(out[j].OpenedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// DailyLoss returns the realized loss accumulated in the current UTC day.
func (m *RiskManager) DailyLoss() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDayLocked(time.Now())
	return m.dailyLoss
}

// Halted reports whether the circuit breaker is active.
func (m *RiskManager) Halted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDayLocked(time.Now())
	return m.halted
}

// rollDayLocked resets the daily loss counter and lifts the circuit breaker
// when the UTC calendar day changes.
func (m *RiskManager) rollDayLocked(now time.Time) {
	if day := utcDay(now); day != m.day {
		m.day = day
		m.dailyLoss = decimal.Zero
		if m.halted {
			m.logger.Info("Circuit breaker lifted at UTC day rollover")
		}
		m.halted = false
	}
}

// Run polls open positions until the context ends.
func (m *RiskManager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.PollPositions(ctx)
		}
	}
}

// PollPositions fetches current prices for all open positions and closes any
// whose take-profit or stop-loss has triggered. A failed price fetch skips
// that position only; the rest of the book is still managed.
func (m *RiskManager) PollPositions(ctx context.Context) {
	m.mu.Lock()
	m.rollDayLocked(time.Now())
	open := make([]*models.Position, 0, len(m.positions))
	for _, p := range m.positions {
		if p.Status == models.PositionOpen {
			open = append(open, p)
		}
	}
	m.mu.Unlock()

	for _, position := range open {
		price, err := m.prices.CurrentPrice(ctx, position.ProductID)
		if err != nil {
			m.logger.WithError(err).WithFields(logrus.Fields{
				"position_id": position.ID,
				"product_id":  position.ProductID,
			}).Warn("Failed to fetch price, skipping position this cycle")
			continue
		}

		status, triggered := exitTriggered(position, price)
		if !triggered {
			continue
		}
		if err := m.closePosition(ctx, position.ID, price, status); err != nil {
			m.logger.WithError(err).WithField("position_id", position.ID).Error("Failed to close triggered position")
		}
	}
}

// exitTriggered evaluates the exit rule against a fresh quote.
func exitTriggered(position *models.Position, price decimal.Decimal) (models.PositionStatus, bool) {
	if position.Side == models.PositionSideYes {
		if price.GreaterThanOrEqual(position.TakeProfit) {
			return models.PositionTakeProfitClosed, true
		}
		if price.LessThanOrEqual(position.StopLoss) {
			return models.PositionStopLossClosed, true
		}
		return "", false
	}
	if price.LessThanOrEqual(position.TakeProfit) {
		return models.PositionTakeProfitClosed, true
	}
	if price.GreaterThanOrEqual(position.StopLoss) {
		return models.PositionStopLossClosed, true
	}
	return "", false
}

// closePosition executes the exit order and records the terminal state. A
// realized loss feeds the daily counter and may trip the circuit breaker.
func (m *RiskManager) closePosition(ctx context.Context, positionID string, price decimal.Decimal, status models.PositionStatus) error {
	m.mu.Lock()
	position, ok := m.positions[positionID]
	if !ok || position.Status != models.PositionOpen {
		m.mu.Unlock()
		return nil
	}
	m.mu.Unlock()

	if err := m.executor.Close(ctx, position, price); err != nil {
		return fmt.Errorf("failed to place exit order: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.settleLocked(position, price, status)

	if m.dailyLoss.GreaterThanOrEqual(m.params.MaxDailyLoss) && !m.halted {
		m.tripCircuitBreakerLocked(ctx)
	}
	return nil
}

// settleLocked marks a position terminal and books its realized P&L.
func (m *RiskManager) settleLocked(position *models.Position, price decimal.Decimal, status models.PositionStatus) {
	if position.Status != models.PositionOpen {
		return
	}

	pnl := price.Sub(position.EntryPrice).Mul(position.Quantity)
	if position.Side == models.PositionSideNo {
		pnl = pnl.Neg()
	}

	now := time.Now().UTC()
	position.Status = status
	position.ExitPrice = price
	position.RealizedPnL = pnl
	position.ClosedAt = &now

	if pnl.IsNegative() {
		m.dailyLoss = m.dailyLoss.Add(pnl.Abs())
	}

	m.logger.WithFields(logrus.Fields{
		"position_id": position.ID,
		"status":      status,
		"exit_price":  price.String(),
		"pnl":         pnl.String(),
	}).Info("Position closed")
}

// tripCircuitBreakerLocked force-closes every open position at the last known
// quote and halts new entries until the next UTC day.
func (m *RiskManager) tripCircuitBreakerLocked(ctx context.Context) {
	m.halted = true
	m.logger.WithField("daily_loss", m.dailyLoss.String()).Error("Daily loss limit breached, circuit breaker tripped")

	for _, position := range m.positions {
		if position.Status != models.PositionOpen {
			continue
		}
		price, err := m.prices.CurrentPrice(ctx, position.ProductID)
		if err != nil {
			// Settle at entry when no quote is available; the venue close
			// still goes out at market.
			price = position.EntryPrice
		}
		if err := m.executor.Close(ctx, position, price); err != nil {
			m.logger.WithError(err).WithField("position_id", position.ID).Error("Failed to close position during circuit break")
			continue
		}
		m.settleLocked(position, price, models.PositionCircuitBreakerClosed)
	}
}

// Liquidate force-closes every open position at the current market price.
// This is the two-factor liquidation path's execution step.
func (m *RiskManager) Liquidate(ctx context.Context) (int, error) {
	m.mu.Lock()
	open := make([]*models.Position, 0, len(m.positions))
	for _, p := range m.positions {
		if p.Status == models.PositionOpen {
			open = append(open, p)
		}
	}
	m.mu.Unlock()

	closed := 0
	for _, position := range open {
		price, err := m.prices.CurrentPrice(ctx, position.ProductID)
		if err != nil {
			price = position.EntryPrice
		}
		if err := m.executor.Close(ctx, position, price); err != nil {
			m.logger.WithError(err).WithField("position_id", position.ID).Error("Failed to close position during liquidation")
			continue
		}
		m.mu.Lock()
		m.settleLocked(position, price, models.PositionManualLiquidationClosed)
		m.mu.Unlock()
		closed++
	}

	m.logger.WithField("closed_positions", closed).Warn("Manual liquidation executed")
	return closed, nil
}
