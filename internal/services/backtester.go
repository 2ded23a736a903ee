package services

import (
	"context"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/edgetier/edgetier-ai-go/internal/config"
	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/telemetry"
	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

// simulatedTrade is one resolved entry during a backtest run.
type simulatedTrade struct {
	eventID string
	size    decimal.Decimal
	pnl     decimal.Decimal
	// ret is the per-trade fractional return (pnl / size).
	ret float64
	won bool
}

// Backtester replays historical events chronologically under one
// RiskParameters value, enforcing the daily limits the live risk manager
// would, and produces a PerformanceReport.
type Backtester struct {
	scorer          *ScoringEngine
	initialBankroll decimal.Decimal
	riskFraction    decimal.Decimal
	logger          *logrus.Logger
}

// NewBacktester creates a backtester with the configured bankroll model.
func NewBacktester(cfg config.BacktestConfig, scorer *ScoringEngine, logger *logrus.Logger) *Backtester {
	return &Backtester{
		scorer:          scorer,
		initialBankroll: decimal.NewFromFloat(cfg.InitialBankroll),
		riskFraction:    decimal.NewFromFloat(cfg.RiskFraction),
		logger:          logger,
	}
}

// Run executes one backtest. Events must be chronological and de-duplicated
// (the history loader guarantees both). An empty event list yields a
// zero-trade report, not an error.
func (b *Backtester) Run(ctx context.Context, events []models.Event, params models.RiskParameters) (*models.PerformanceReport, error) {
	_, span := telemetry.StartSpan(ctx, "Backtester.Run", map[string]string{
		"events": decimal.NewFromInt(int64(len(events))).String(),
	})
	var runErr error
	defer func() { telemetry.EndSpan(span, runErr) }()

	if err := params.Validate(); err != nil {
		runErr = err
		return nil, err
	}
	for _, event := range events {
		if !event.IsHistorical() {
			runErr = utils.NewValidationErrorf("event %s has no realized outcome", event.ID)
			return nil, runErr
		}
	}

	report := &models.PerformanceReport{
		TotalReturn: decimal.Zero,
		StartedAt:   time.Now().UTC(),
	}

	trades := b.simulate(events, params, report)
	b.computeMetrics(report, trades)

	report.CompletedAt = time.Now().UTC()

	b.logger.WithFields(logrus.Fields{
		"events":       len(events),
		"trades":       report.Trades,
		"win_rate":     report.WinRate,
		"total_return": report.TotalReturn.String(),
	}).Info("Backtest completed")

	return report, nil
}

// simulate walks the event sequence maintaining the running day key and the
// per-day trade and loss counters.
func (b *Backtester) simulate(events []models.Event, params models.RiskParameters, report *models.PerformanceReport) []simulatedTrade {
	var (
		trades      []simulatedTrade
		bankroll    = b.initialBankroll
		day         string
		tradesToday int
		dailyLoss   = decimal.Zero
	)

	for _, event := range events {
		if eventDay := event.Day(); eventDay != day {
			day = eventDay
			tradesToday = 0
			dailyLoss = decimal.Zero
		}

		prediction, err := b.scorer.Score(event)
		if err != nil {
			// Historical validation happens upstream; a scoring failure here
			// means a malformed record slipped through. Skip it, loudly.
			b.logger.WithError(err).WithField("event_id", event.ID).Warn("Skipping unscorable event")
			report.SkippedEvents++
			continue
		}

		if prediction.Confidence*100 < params.MinConfidence {
			report.SkippedEvents++
			continue
		}
		if tradesToday >= params.MaxTradesPerDay {
			report.SkippedEvents++
			continue
		}
		if dailyLoss.GreaterThanOrEqual(params.MaxDailyLoss) {
			report.SkippedEvents++
			continue
		}
		if event.SentimentGap != nil && *event.SentimentGap > params.SentimentGapThreshold {
			report.SkippedEvents++
			continue
		}

		size := bankroll.Mul(b.riskFraction)
		if size.GreaterThan(params.MaxPositionSize) {
			size = params.MaxPositionSize
		}
		if !size.IsPositive() {
			report.SkippedEvents++
			continue
		}

		trade := resolveTrade(event, prediction, size, params)
		trades = append(trades, trade)

		bankroll = bankroll.Add(trade.pnl)
		tradesToday++
		if trade.pnl.IsNegative() {
			dailyLoss = dailyLoss.Add(trade.pnl.Abs())
		}
	}

	return trades
}

// resolveTrade settles a simulated position against the realized outcome.
// The entry is priced at the market-implied probability of the predicted
// side; resolution moves the contract to 1 on a win and 0 on a loss, with
// takeProfitPercent and stopLossPercent acting as the exit rule whenever the
// realized move exceeds them.
func resolveTrade(event models.Event, prediction models.Prediction, size decimal.Decimal, params models.RiskParameters) simulatedTrade {
	homeImplied, awayImplied := impliedProbabilities(event.HomeMoneyline, event.AwayMoneyline)
	entry := homeImplied
	if prediction.Winner == models.SideAway {
		entry = awayImplied
	}

	won := event.Outcome.Winner == prediction.Winner

	var ret float64
	if won {
		// Contract resolves to 1: raw gain is (1-entry)/entry, capped by the
		// take-profit exit.
		rawGain := 0.0
		if entry > 0 {
			rawGain = (1 - entry) / entry
		}
		ret = math.Min(rawGain, params.TakeProfitPercent)
	} else {
		// Contract resolves to 0: the full stake is at risk, capped by the
		// stop-loss exit.
		ret = -math.Min(1, params.StopLossPercent)
	}

	pnl := size.Mul(decimal.NewFromFloat(ret))

	return simulatedTrade{
		eventID: event.ID,
		size:    size,
		pnl:     pnl,
		ret:     ret,
		won:     won,
	}
}

// computeMetrics fills the report from the settled trades. All metrics are
// defined on an empty trade list: the report stays zeroed.
func (b *Backtester) computeMetrics(report *models.PerformanceReport, trades []simulatedTrade) {
	report.Trades = len(trades)
	if len(trades) == 0 {
		return
	}

	var (
		grossGain = decimal.Zero
		grossLoss = decimal.Zero
		returns   = make([]float64, 0, len(trades))
	)

	for _, trade := range trades {
		report.TotalReturn = report.TotalReturn.Add(trade.pnl)
		returns = append(returns, trade.ret)

		if trade.won {
			report.Wins++
			grossGain = grossGain.Add(trade.pnl)
		} else {
			report.Losses++
			grossLoss = grossLoss.Add(trade.pnl.Abs())
		}
	}

	report.WinRate = float64(report.Wins) / float64(report.Trades)
	report.SharpeRatio = sharpeRatio(returns)
	report.ProfitFactor = profitFactor(grossGain, grossLoss)
	report.MaxDrawdown = maxDrawdown(b.initialBankroll, trades)
}

// sharpeRatio is mean per-trade return over its sample standard deviation,
// 0 when fewer than two trades or when the deviation is zero.
func sharpeRatio(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}

	sum := 0.0
	for _, r := range returns {
		sum += r
	}
	mean := sum / float64(len(returns))

	sumSquaredDiff := 0.0
	for _, r := range returns {
		diff := r - mean
		sumSquaredDiff += diff * diff
	}
	stdDev := math.Sqrt(sumSquaredDiff / float64(len(returns)-1))
	if stdDev == 0 {
		return 0
	}

	return mean / stdDev
}

func profitFactor(grossGain, grossLoss decimal.Decimal) float64 {
	if grossLoss.IsZero() {
		if grossGain.IsPositive() {
			return models.ProfitFactorNoLosses
		}
		return 0
	}
	pf, _ := grossGain.Div(grossLoss).Float64()
	return pf
}

// maxDrawdown is the largest peak-to-trough decline of the cumulative equity
// curve, as a fraction of the peak.
func maxDrawdown(initial decimal.Decimal, trades []simulatedTrade) float64 {
	equity := initial
	peak := initial
	worst := decimal.Zero

	for _, trade := range trades {
		equity = equity.Add(trade.pnl)
		if equity.GreaterThan(peak) {
			peak = equity
		}
		if peak.IsPositive() {
			drawdown := peak.Sub(equity).Div(peak)
			if drawdown.GreaterThan(worst) {
				worst = drawdown
			}
		}
	}

	dd, _ := worst.Float64()
	return dd
}
