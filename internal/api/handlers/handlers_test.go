package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgetier/edgetier-ai-go/internal/config"
	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/services"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

type nilPrices struct{}

func (nilPrices) CurrentPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	return decimal.NewFromFloat(0.5), nil
}

type nilExecutor struct{}

func (nilExecutor) Open(_ context.Context, _ string, _ models.PositionSide, _, _ decimal.Decimal) error {
	return nil
}

func (nilExecutor) Close(_ context.Context, _ *models.Position, _ decimal.Decimal) error {
	return nil
}

func testRiskManager(t *testing.T) *services.RiskManager {
	t.Helper()
	manager, err := services.NewRiskManager(config.RiskConfig{
		MaxTradesPerDay:       10,
		MaxDailyLoss:          50,
		MaxDailyLossPercent:   0.05,
		TakeProfitPercent:     0.25,
		StopLossPercent:       0.5,
		MaxPositionSize:       100,
		MinConfidence:         60,
		SentimentGapThreshold: 0.15,
		MaxPerTrade:           10,
		MaxOpenPositions:      5,
		MaxTotalExposure:      100,
	}, nilPrices{}, nilExecutor{}, testLogger())
	require.NoError(t, err)
	return manager
}

func performJSON(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestGetAndUpdateRiskParameters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	handler := NewRiskHandler(testRiskManager(t))
	router.GET("/risk/parameters", handler.GetParameters)
	router.PUT("/risk/parameters", handler.UpdateParameters)

	w := performJSON(router, http.MethodGet, "/risk/parameters", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "max_trades_per_day")

	w = performJSON(router, http.MethodPut, "/risk/parameters",
		map[string]interface{}{"max_trades_per_day": 20})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"max_trades_per_day":20`)

	// An invalid merge is rejected with 400 and changes nothing.
	w = performJSON(router, http.MethodPut, "/risk/parameters",
		map[string]interface{}{"stop_loss_percent": 1.5})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performJSON(router, http.MethodGet, "/risk/parameters", nil)
	assert.Contains(t, w.Body.String(), `"max_trades_per_day":20`)
}

func TestRunBacktestMissingDataFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	logger := testLogger()
	loader := services.NewHistoryLoader(logger)
	backtester := services.NewBacktester(
		config.BacktestConfig{InitialBankroll: 1000, RiskFraction: 0.1},
		services.NewScoringEngine(), logger)
	handler := NewBacktestHandler(loader, backtester, testRiskManager(t))
	router.POST("/backtest/run", handler.RunBacktest)

	// Missing upstream data maps to 502, not 500.
	w := performJSON(router, http.MethodPost, "/backtest/run",
		map[string]string{"data_path": filepath.Join(t.TempDir(), "absent.csv")})
	assert.Equal(t, http.StatusBadGateway, w.Code)

	// A missing data_path fails request binding.
	w = performJSON(router, http.MethodPost, "/backtest/run", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBotControlEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	botManager := services.NewBotManager(testLogger())
	botManager.Register("paper-trader", func(ctx context.Context) { <-ctx.Done() })
	defer botManager.Shutdown()

	handler := NewBotsHandler(botManager)
	router.GET("/bots", handler.ListBots)
	router.POST("/bots/:id/control", handler.ControlBot)

	w := performJSON(router, http.MethodGet, "/bots", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "paper-trader")

	w = performJSON(router, http.MethodPost, "/bots/paper-trader/control",
		map[string]string{"action": "start"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "running")

	w = performJSON(router, http.MethodPost, "/bots/ghost/control",
		map[string]string{"action": "start"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLiquidationEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	manager := testRiskManager(t)
	liquidation, err := services.NewLiquidationService(
		config.LiquidationConfig{CodeTTL: "5m", VerifyRatePerMinute: 600, VerifyBurst: 10},
		config.SecurityConfig{BcryptCost: 4},
		manager, testLogger())
	require.NoError(t, err)

	handler := NewLiquidationHandler(liquidation)
	// user_id normally comes from the JWT middleware.
	withUser := func(c *gin.Context) { c.Set("user_id", "user-1") }
	router.POST("/liquidation/code", withUser, handler.GenerateCode)
	router.POST("/liquidation/execute", withUser, handler.Execute)

	w := performJSON(router, http.MethodPost, "/liquidation/code", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var generated struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &generated))
	require.Len(t, generated.Code, 6)

	// A mismatched code is a 403 and a no-op.
	w = performJSON(router, http.MethodPost, "/liquidation/execute",
		map[string]string{"code": "000000", "reason": "test"})
	if generated.Code == "000000" {
		t.Skip("generated code collided with the test's wrong code")
	}
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The real code executes.
	w = performJSON(router, http.MethodPost, "/liquidation/execute",
		map[string]string{"code": generated.Code, "reason": "drill"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"success":true`)
}

func TestPicksEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()

	source := staticEventSource{}
	picks := services.NewPicksService(source, services.NewScoringEngine(),
		services.NewTierAllocator(models.DefaultTierQuotas()), nil, testLogger())
	router.GET("/picks", NewPicksHandler(picks).GetPicks)

	w := performJSON(router, http.MethodGet, "/picks", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"source":"live"`)
}

type staticEventSource struct{}

func (staticEventSource) UpcomingEvents(_ context.Context) ([]models.Event, error) {
	home := -150.0
	away := 130.0
	return []models.Event{{
		ID:       "evt-1",
		HomeTeam: "Lakers",
		AwayTeam: "Kings",
		HomeStats: models.TeamStats{
			Wins: 40, Losses: 10, PointsFor: 5500, PointsAgainst: 5000,
			RecentForm: []string{"W", "W", "L"},
		},
		AwayStats: models.TeamStats{
			Wins: 15, Losses: 35, PointsFor: 4800, PointsAgainst: 5400,
			RecentForm: []string{"L", "L", "W"},
		},
		HomeMoneyline: &home,
		AwayMoneyline: &away,
	}}, nil
}
