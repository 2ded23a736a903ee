package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/edgetier/edgetier-ai-go/internal/models"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// ErrNoReport is returned when no optimization run has been persisted yet.
var ErrNoReport = errors.New("no optimization report stored")

// ReportRepository persists optimization reports and serves the last-run query.
type ReportRepository struct {
	pool DatabasePool
}

// NewReportRepository creates a new report repository.
//
// Parameters:
//
//	pool: The database connection pool.
//
// Returns:
//
//	*ReportRepository: The initialized repository.
func NewReportRepository(pool DatabasePool) *ReportRepository {
	return &ReportRepository{
		pool: pool,
	}
}

// Save persists one optimization report. The full ranked result list is stored
// as a JSON document; baseline and best are duplicated into columns for
// queries that do not need the whole sweep.
func (r *ReportRepository) Save(ctx context.Context, report *models.OptimizationReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to serialize optimization report: %w", err)
	}

	baseline, err := json.Marshal(report.Baseline)
	if err != nil {
		return fmt.Errorf("failed to serialize baseline result: %w", err)
	}

	best, err := json.Marshal(report.Best)
	if err != nil {
		return fmt.Errorf("failed to serialize best result: %w", err)
	}

	query := `
		INSERT INTO optimization_reports (id, baseline, best, report, combinations, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if _, err := r.pool.Exec(ctx, query,
		report.ID, baseline, best, payload, report.Combinations,
		report.StartedAt, report.CompletedAt,
	); err != nil {
		return fmt.Errorf("failed to save optimization report: %w", err)
	}

	return nil
}

// GetLast returns the most recently completed optimization report.
func (r *ReportRepository) GetLast(ctx context.Context) (*models.OptimizationReport, error) {
	query := `
		SELECT report
		FROM optimization_reports
		ORDER BY completed_at DESC
		LIMIT 1
	`

	var payload []byte
	if err := r.pool.QueryRow(ctx, query).Scan(&payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoReport
		}
		return nil, fmt.Errorf("failed to load last optimization report: %w", err)
	}

	var report models.OptimizationReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to deserialize optimization report: %w", err)
	}

	return &report, nil
}

// Prune removes reports completed before the cutoff, keeping the store bounded.
func (r *ReportRepository) Prune(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM optimization_reports WHERE completed_at < $1`

	tag, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune optimization reports: %w", err)
	}

	return tag.RowsAffected(), nil
}
