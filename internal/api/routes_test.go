package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgetier/edgetier-ai-go/internal/api/handlers"
	"github.com/edgetier/edgetier-ai-go/internal/config"
	"github.com/edgetier/edgetier-ai-go/internal/middleware"
	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/services"
)

type noopPrices struct{}

func (noopPrices) CurrentPrice(_ context.Context, _ string) (decimal.Decimal, error) {
	return decimal.NewFromFloat(0.5), nil
}

type noopExecutor struct{}

func (noopExecutor) Open(_ context.Context, _ string, _ models.PositionSide, _, _ decimal.Decimal) error {
	return nil
}

func (noopExecutor) Close(_ context.Context, _ *models.Position, _ decimal.Decimal) error {
	return nil
}

type emptyEvents struct{}

func (emptyEvents) UpcomingEvents(_ context.Context) ([]models.Event, error) {
	return nil, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, *middleware.AuthMiddleware) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	riskCfg := config.RiskConfig{
		MaxTradesPerDay: 10, MaxDailyLoss: 50, MaxDailyLossPercent: 0.05,
		TakeProfitPercent: 0.25, StopLossPercent: 0.5, MaxPositionSize: 100,
		MinConfidence: 60, SentimentGapThreshold: 0.15, MaxPerTrade: 10,
		MaxOpenPositions: 5, MaxTotalExposure: 100,
	}
	riskManager, err := services.NewRiskManager(riskCfg, noopPrices{}, noopExecutor{}, logger)
	require.NoError(t, err)

	liquidation, err := services.NewLiquidationService(
		config.LiquidationConfig{CodeTTL: "5m", VerifyRatePerMinute: 60, VerifyBurst: 3},
		config.SecurityConfig{BcryptCost: 4}, riskManager, logger)
	require.NoError(t, err)

	optimizerCfg := config.OptimizerConfig{
		ObjectiveWeights: config.ObjectiveWeightsConfig{WinRate: 0.3, Sharpe: 0.3, TotalReturn: 0.4},
		MinWorkers:       1, MaxWorkers: 2,
	}
	scorer := services.NewScoringEngine()
	loader := services.NewHistoryLoader(logger)
	backtester := services.NewBacktester(config.BacktestConfig{InitialBankroll: 1000, RiskFraction: 0.1}, scorer, logger)
	advisor := services.NewResourceAdvisor(optimizerCfg, logger)
	optimizer := services.NewOptimizer(optimizerCfg, backtester, advisor, nil, logger)
	picks := services.NewPicksService(emptyEvents{}, scorer,
		services.NewTierAllocator(models.DefaultTierQuotas()), nil, logger)

	botManager := services.NewBotManager(logger)
	botManager.Register("paper-trader", func(ctx context.Context) { <-ctx.Done() })
	t.Cleanup(botManager.Shutdown)

	auth := middleware.NewAuthMiddleware("test-secret")
	router := gin.New()
	SetupRoutes(router, Handlers{
		Health:       handlers.NewHealthHandler(nil, nil),
		Backtest:     handlers.NewBacktestHandler(loader, backtester, riskManager),
		Optimization: handlers.NewOptimizationHandler(loader, optimizer, riskManager),
		Risk:         handlers.NewRiskHandler(riskManager),
		Picks:        handlers.NewPicksHandler(picks),
		Bots:         handlers.NewBotsHandler(botManager),
		Liquidation:  handlers.NewLiquidationHandler(liquidation),
	}, auth)

	return router, auth
}

func get(router *gin.Engine, path, token string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestRoutesRequireAuthentication(t *testing.T) {
	router, _ := newTestRouter(t)

	assert.Equal(t, http.StatusUnauthorized, get(router, "/api/v1/picks", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/api/v1/risk/parameters", "").Code)
	assert.Equal(t, http.StatusUnauthorized, get(router, "/api/v1/optimization/status", "").Code)
}

func TestControlPlaneRequiresOperatorRole(t *testing.T) {
	router, auth := newTestRouter(t)

	member, err := auth.GenerateToken("user-1", "u@example.com", "member", time.Hour)
	require.NoError(t, err)
	operator, err := auth.GenerateToken("ops-1", "o@example.com", middleware.RoleOperator, time.Hour)
	require.NoError(t, err)

	// Members can read picks but not touch the control plane.
	assert.Equal(t, http.StatusOK, get(router, "/api/v1/picks", member).Code)
	assert.Equal(t, http.StatusForbidden, get(router, "/api/v1/risk/parameters", member).Code)
	assert.Equal(t, http.StatusForbidden, get(router, "/api/v1/bots", member).Code)

	assert.Equal(t, http.StatusOK, get(router, "/api/v1/risk/parameters", operator).Code)
	assert.Equal(t, http.StatusOK, get(router, "/api/v1/bots", operator).Code)
}

func TestOptimizationStatusIdleByDefault(t *testing.T) {
	router, auth := newTestRouter(t)

	token, err := auth.GenerateToken("user-1", "u@example.com", "member", time.Hour)
	require.NoError(t, err)

	w := get(router, "/api/v1/optimization/status", token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"running":false`)
}
