package database

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgetier/edgetier-ai-go/internal/models"
)

func sampleReport() *models.OptimizationReport {
	now := time.Now().UTC().Truncate(time.Second)
	result := &models.PerformanceReport{
		Trades:      4,
		Wins:        3,
		Losses:      1,
		WinRate:     0.75,
		TotalReturn: decimal.NewFromInt(25),
	}
	return &models.OptimizationReport{
		ID:           "run-1",
		Baseline:     models.ParameterResult{Result: result, Objective: 1.1},
		Best:         models.ParameterResult{Result: result, Objective: 1.4},
		AllResults:   []models.ParameterResult{{Result: result, Objective: 1.4}},
		Combinations: 4,
		StartedAt:    now.Add(-time.Minute),
		CompletedAt:  now,
	}
}

func TestSaveReport(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	report := sampleReport()

	mock.ExpectExec("INSERT INTO optimization_reports").
		WithArgs(report.ID, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			report.Combinations, report.StartedAt, report.CompletedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	repo := NewReportRepository(mock)
	require.NoError(t, repo.Save(context.Background(), report))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLastReport(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	payload := []byte(`{"id":"run-1","combinations":4}`)
	mock.ExpectQuery("SELECT report").
		WillReturnRows(pgxmock.NewRows([]string{"report"}).AddRow(payload))

	repo := NewReportRepository(mock)
	report, err := repo.GetLast(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.ID)
	assert.Equal(t, 4, report.Combinations)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetLastReportEmptyStore(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT report").WillReturnError(pgx.ErrNoRows)

	repo := NewReportRepository(mock)
	_, err = repo.GetLast(context.Background())
	assert.ErrorIs(t, err, ErrNoReport)
}

func TestPruneReports(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cutoff := time.Now().Add(-30 * 24 * time.Hour)
	mock.ExpectExec("DELETE FROM optimization_reports").
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	repo := NewReportRepository(mock)
	pruned, err := repo.Prune(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pruned)
}
