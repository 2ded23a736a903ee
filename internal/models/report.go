package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProfitFactorNoLosses is the sentinel reported when a run has gains and no
// losing trades, where the profit factor is unbounded.
const ProfitFactorNoLosses = 999.0

// PerformanceReport is the output of one backtest run for one RiskParameters
// value. Immutable once produced.
type PerformanceReport struct {
	// Trades is the number of simulated trades taken.
	Trades int `json:"trades"`
	// Wins is the number of profitable trades.
	Wins int `json:"wins"`
	// Losses is the number of losing trades.
	Losses int `json:"losses"`
	// WinRate is wins / trades (0 when no trades).
	WinRate float64 `json:"win_rate"`
	// TotalReturn is the summed P&L across all trades.
	TotalReturn decimal.Decimal `json:"total_return"`
	// SharpeRatio is mean per-trade return over its standard deviation
	// (0 when fewer than 2 trades or zero deviation).
	SharpeRatio float64 `json:"sharpe_ratio"`
	// ProfitFactor is gross gains over gross absolute losses
	// (ProfitFactorNoLosses when there are gains and no losses).
	ProfitFactor float64 `json:"profit_factor"`
	// MaxDrawdown is the largest peak-to-trough decline of the cumulative
	// return curve, as a fraction of the peak.
	MaxDrawdown float64 `json:"max_drawdown"`
	// SkippedEvents counts events rejected by confidence or daily limits.
	SkippedEvents int `json:"skipped_events"`
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`
	// CompletedAt is when the run finished.
	CompletedAt time.Time `json:"completed_at"`
}

// ParameterResult pairs one parameter combination with its backtest outcome.
// A failed combination carries Error and a nil Result.
type ParameterResult struct {
	// Params is the evaluated parameter combination.
	Params RiskParameters `json:"params"`
	// Result is the backtest report (nil when the run failed).
	Result *PerformanceReport `json:"result,omitempty"`
	// Objective is the optimization objective for ranking.
	Objective float64 `json:"objective"`
	// Error records a per-combination failure without aborting the sweep.
	Error string `json:"error,omitempty"`
}

// OptimizationReport is the output of one optimizer run: the baseline, the
// best combination, and every evaluated combination ranked by objective.
type OptimizationReport struct {
	// ID identifies the optimizer run.
	ID string `json:"id" db:"id"`
	// Baseline is the result for the pre-optimization parameters.
	Baseline ParameterResult `json:"baseline"`
	// Best is the highest-objective combination.
	Best ParameterResult `json:"best"`
	// AllResults lists every evaluated combination, objective descending.
	AllResults []ParameterResult `json:"all_results"`
	// Combinations is the size of the enumerated search space.
	Combinations int `json:"combinations"`
	// StartedAt is when the sweep began.
	StartedAt time.Time `json:"started_at" db:"started_at"`
	// CompletedAt is when the sweep finished.
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

// ObjectiveWeights combines win rate, Sharpe ratio, and total return into the
// optimization objective. The weights are configuration, not constants.
type ObjectiveWeights struct {
	WinRate     float64 `json:"win_rate" mapstructure:"win_rate"`
	Sharpe      float64 `json:"sharpe" mapstructure:"sharpe"`
	TotalReturn float64 `json:"total_return" mapstructure:"total_return"`
}

// Score computes the objective for a performance report.
func (w ObjectiveWeights) Score(r *PerformanceReport) float64 {
	if r == nil {
		return 0
	}
	ret, _ := r.TotalReturn.Float64()
	return w.WinRate*r.WinRate + w.Sharpe*r.SharpeRatio + w.TotalReturn*ret
}
