package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/edgetier/edgetier-ai-go/internal/config"
	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/telemetry"
	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

// ErrSweepCancelled reports a cooperatively cancelled optimizer sweep.
var ErrSweepCancelled = errors.New("optimization sweep cancelled")

// ErrSweepRunning is returned when a sweep is requested while one is active.
var ErrSweepRunning = errors.New("an optimization sweep is already running")

// ProgressFunc receives sweep progress after every evaluated combination.
type ProgressFunc func(percentComplete float64, bestScoreSoFar float64)

// ReportStore persists optimization reports and serves the last-run query.
type ReportStore interface {
	Save(ctx context.Context, report *models.OptimizationReport) error
	GetLast(ctx context.Context) (*models.OptimizationReport, error)
}

// FieldRanges generates a search grid by taking the cartesian product of
// small discrete value sets per risk field. Fields without a value set
// inherit the baseline value.
type FieldRanges struct {
	MaxTradesPerDay       []int     `json:"max_trades_per_day,omitempty"`
	MaxDailyLoss          []float64 `json:"max_daily_loss,omitempty"`
	TakeProfitPercent     []float64 `json:"take_profit_percent,omitempty"`
	StopLossPercent       []float64 `json:"stop_loss_percent,omitempty"`
	MaxPositionSize       []float64 `json:"max_position_size,omitempty"`
	MinConfidence         []float64 `json:"min_confidence,omitempty"`
	MaxPerTrade           []float64 `json:"max_per_trade,omitempty"`
	SentimentGapThreshold []float64 `json:"sentiment_gap_threshold,omitempty"`
}

// DefaultFieldRanges is the standard 8-field sweep: 4x4x4x4x2x2x2x2 = 4096
// combinations.
func DefaultFieldRanges() FieldRanges {
	return FieldRanges{
		MaxTradesPerDay:       []int{5, 10, 15, 20},
		MaxDailyLoss:          []float64{25, 50, 75, 100},
		TakeProfitPercent:     []float64{0.15, 0.25, 0.35, 0.5},
		StopLossPercent:       []float64{0.3, 0.4, 0.5, 0.6},
		MaxPositionSize:       []float64{50, 100},
		MinConfidence:         []float64{55, 60},
		MaxPerTrade:           []float64{5, 10},
		SentimentGapThreshold: []float64{0.1, 0.2},
	}
}

// Enumerate expands the ranges into an explicit grid anchored on base.
// Generation order is fixed, which keeps combination indices stable across
// runs.
func (r FieldRanges) Enumerate(base models.RiskParameters) []models.RiskParameters {
	grid := []models.RiskParameters{base}

	expand := func(apply func(models.RiskParameters, int) models.RiskParameters, n int) {
		if n == 0 {
			return
		}
		next := make([]models.RiskParameters, 0, len(grid)*n)
		for _, p := range grid {
			for i := 0; i < n; i++ {
				next = append(next, apply(p, i))
			}
		}
		grid = next
	}

	expand(func(p models.RiskParameters, i int) models.RiskParameters {
		p.MaxTradesPerDay = r.MaxTradesPerDay[i]
		return p
	}, len(r.MaxTradesPerDay))
	expand(func(p models.RiskParameters, i int) models.RiskParameters {
		p.MaxDailyLoss = decimal.NewFromFloat(r.MaxDailyLoss[i])
		return p
	}, len(r.MaxDailyLoss))
	expand(func(p models.RiskParameters, i int) models.RiskParameters {
		p.TakeProfitPercent = r.TakeProfitPercent[i]
		return p
	}, len(r.TakeProfitPercent))
	expand(func(p models.RiskParameters, i int) models.RiskParameters {
		p.StopLossPercent = r.StopLossPercent[i]
		return p
	}, len(r.StopLossPercent))
	expand(func(p models.RiskParameters, i int) models.RiskParameters {
		p.MaxPositionSize = decimal.NewFromFloat(r.MaxPositionSize[i])
		return p
	}, len(r.MaxPositionSize))
	expand(func(p models.RiskParameters, i int) models.RiskParameters {
		p.MinConfidence = r.MinConfidence[i]
		return p
	}, len(r.MinConfidence))
	expand(func(p models.RiskParameters, i int) models.RiskParameters {
		p.MaxPerTrade = decimal.NewFromFloat(r.MaxPerTrade[i])
		return p
	}, len(r.MaxPerTrade))
	expand(func(p models.RiskParameters, i int) models.RiskParameters {
		p.SentimentGapThreshold = r.SentimentGapThreshold[i]
		return p
	}, len(r.SentimentGapThreshold))

	return grid
}

// SweepStatus is a snapshot of the active (or last) sweep.
type SweepStatus struct {
	Running         bool    `json:"running"`
	RunID           string  `json:"run_id,omitempty"`
	PercentComplete float64 `json:"percent_complete"`
	BestObjective   float64 `json:"best_objective"`
}

// Optimizer drives the backtester across a parameter search space and tracks
// the best-performing configuration. At most one sweep runs per process.
type Optimizer struct {
	backtester *Backtester
	advisor    *ResourceAdvisor
	weights    models.ObjectiveWeights
	store      ReportStore
	logger     *logrus.Logger

	mu     sync.Mutex
	status SweepStatus
	cancel context.CancelFunc
}

// NewOptimizer creates an optimizer. store may be nil in library use; reports
// are then returned but not persisted.
func NewOptimizer(cfg config.OptimizerConfig, backtester *Backtester, advisor *ResourceAdvisor, store ReportStore, logger *logrus.Logger) *Optimizer {
	return &Optimizer{
		backtester: backtester,
		advisor:    advisor,
		weights: models.ObjectiveWeights{
			WinRate:     cfg.ObjectiveWeights.WinRate,
			Sharpe:      cfg.ObjectiveWeights.Sharpe,
			TotalReturn: cfg.ObjectiveWeights.TotalReturn,
		},
		store:  store,
		logger: logger,
	}
}

// indexedResult keeps the combination index so aggregation stays
// deterministic regardless of worker completion order.
type indexedResult struct {
	index  int
	result models.ParameterResult
}

// Run executes a full sweep synchronously: a baseline backtest, then every
// combination in the grid across a CPU-bounded worker pool. progressFn, when
// non-nil, is invoked from a single goroutine after each combination.
func (o *Optimizer) Run(ctx context.Context, events []models.Event, baseline models.RiskParameters, grid []models.RiskParameters, progressFn ProgressFunc) (*models.OptimizationReport, error) {
	return o.run(ctx, uuid.New().String(), events, baseline, grid, progressFn)
}

func (o *Optimizer) run(ctx context.Context, runID string, events []models.Event, baseline models.RiskParameters, grid []models.RiskParameters, progressFn ProgressFunc) (*models.OptimizationReport, error) {
	spanCtx, span := telemetry.StartSpan(ctx, "Optimizer.Run", map[string]string{
		"combinations": fmt.Sprintf("%d", len(grid)),
	})
	var runErr error
	defer func() { telemetry.EndSpan(span, runErr) }()

	if len(grid) == 0 {
		runErr = utils.NewValidationError("search space is empty")
		return nil, runErr
	}
	if len(events) == 0 {
		runErr = utils.NewUpstreamDataError("optimizer", "no historical events supplied")
		return nil, runErr
	}

	o.setStatus(SweepStatus{Running: true, RunID: runID})
	defer func() {
		o.mu.Lock()
		o.status.Running = false
		o.cancel = nil
		o.mu.Unlock()
	}()

	startedAt := time.Now().UTC()

	baselineResult := o.evaluate(spanCtx, events, baseline)
	if baselineResult.Error != "" {
		runErr = fmt.Errorf("baseline backtest failed: %s", baselineResult.Error)
		return nil, runErr
	}

	results, err := o.sweep(spanCtx, events, grid, progressFn)
	if err != nil {
		runErr = err
		return nil, err
	}

	ranked := rankResults(results)

	// Failures rank last, so a failed head means nothing succeeded.
	if ranked[0].result.Error != "" {
		runErr = fmt.Errorf("all %d combinations failed; first failure: %s", len(grid), ranked[0].result.Error)
		return nil, runErr
	}

	report := &models.OptimizationReport{
		ID:           runID,
		Baseline:     baselineResult,
		Best:         ranked[0].result,
		AllResults:   make([]models.ParameterResult, 0, len(ranked)),
		Combinations: len(grid),
		StartedAt:    startedAt,
		CompletedAt:  time.Now().UTC(),
	}
	for _, r := range ranked {
		report.AllResults = append(report.AllResults, r.result)
	}

	if o.store != nil {
		if err := o.store.Save(ctx, report); err != nil {
			// The sweep itself succeeded; losing the persisted copy is
			// reported but does not invalidate the in-memory report.
			o.logger.WithError(err).Error("Failed to persist optimization report")
		}
	}

	o.logger.WithFields(logrus.Fields{
		"run_id":         runID,
		"combinations":   len(grid),
		"best_objective": report.Best.Objective,
		"duration":       report.CompletedAt.Sub(report.StartedAt).String(),
	}).Info("Optimization sweep completed")

	return report, nil
}

// sweep evaluates every combination across the worker pool and merges the
// results deterministically.
func (o *Optimizer) sweep(ctx context.Context, events []models.Event, grid []models.RiskParameters, progressFn ProgressFunc) ([]indexedResult, error) {
	workers := o.advisor.RecommendWorkers()
	if workers > len(grid) {
		workers = len(grid)
	}

	o.logger.WithFields(logrus.Fields{
		"combinations": len(grid),
		"workers":      workers,
	}).Info("Starting optimization sweep")

	jobs := make(chan int)
	resultCh := make(chan indexedResult)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				resultCh <- indexedResult{index: idx, result: o.evaluate(ctx, events, grid[idx])}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i := range grid {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Single collector goroutine: progress reporting needs no extra locking.
	results := make([]indexedResult, 0, len(grid))
	best := 0.0
	haveBest := false
	for r := range resultCh {
		results = append(results, r)
		if r.result.Error == "" && (!haveBest || r.result.Objective > best) {
			best = r.result.Objective
			haveBest = true
		}
		if progressFn != nil {
			progressFn(100*float64(len(results))/float64(len(grid)), best)
		}
		o.setProgress(100*float64(len(results))/float64(len(grid)), best)
	}

	if err := ctx.Err(); err != nil {
		return nil, ErrSweepCancelled
	}

	return results, nil
}

// evaluate runs one backtest, isolating per-combination failures as failed
// entries rather than aborting the sweep.
func (o *Optimizer) evaluate(ctx context.Context, events []models.Event, params models.RiskParameters) models.ParameterResult {
	report, err := o.backtester.Run(ctx, events, params)
	if err != nil {
		return models.ParameterResult{Params: params, Error: err.Error()}
	}
	return models.ParameterResult{
		Params:    params,
		Result:    report,
		Objective: o.weights.Score(report),
	}
}

// rankResults orders successful results by objective descending, ties broken
// by combination index, with failed entries last. The sort runs before "best"
// is selected so parallel completion order never changes the outcome.
func rankResults(results []indexedResult) []indexedResult {
	sort.Slice(results, func(i, j int) bool {
		ri, rj := results[i], results[j]
		iOK, jOK := ri.result.Error == "", rj.result.Error == ""
		if iOK != jOK {
			return iOK
		}
		if !iOK {
			return ri.index < rj.index
		}
		if ri.result.Objective != rj.result.Objective {
			return ri.result.Objective > rj.result.Objective
		}
		return ri.index < rj.index
	})
	return results
}

// StartAsync launches Run on a background goroutine. It fails if a sweep is
// already active.
func (o *Optimizer) StartAsync(events []models.Event, baseline models.RiskParameters, grid []models.RiskParameters) (string, error) {
	o.mu.Lock()
	if o.status.Running {
		o.mu.Unlock()
		return "", ErrSweepRunning
	}
	runID := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())
	o.cancel = cancel
	o.status = SweepStatus{Running: true, RunID: runID}
	o.mu.Unlock()

	go func() {
		defer cancel()
		if _, err := o.run(ctx, runID, events, baseline, grid, nil); err != nil && !errors.Is(err, ErrSweepCancelled) {
			o.logger.WithError(err).Error("Optimization sweep failed")
		}
	}()

	return runID, nil
}

// CancelSweep requests cooperative cancellation of the active sweep.
// It reports whether a sweep was running.
func (o *Optimizer) CancelSweep() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.status.Running || o.cancel == nil {
		return false
	}
	o.cancel()
	return true
}

// Status returns a snapshot of the active (or most recent) sweep.
func (o *Optimizer) Status() SweepStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// LastReport returns the most recently persisted optimization report.
func (o *Optimizer) LastReport(ctx context.Context) (*models.OptimizationReport, error) {
	if o.store == nil {
		return nil, utils.NewValidationError("no report store configured")
	}
	return o.store.GetLast(ctx)
}

func (o *Optimizer) setStatus(s SweepStatus) {
	o.mu.Lock()
	defer o.mu.Unlock()
	cancel := o.cancel
	o.status = s
	o.cancel = cancel
}

func (o *Optimizer) setProgress(percent, best float64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.status.PercentComplete = percent
	o.status.BestObjective = best
}
