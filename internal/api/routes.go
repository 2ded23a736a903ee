package api

import (
	"github.com/gin-gonic/gin"

	"github.com/edgetier/edgetier-ai-go/internal/api/handlers"
	"github.com/edgetier/edgetier-ai-go/internal/middleware"
)

// Handlers bundles the endpoint handlers wired by SetupRoutes.
type Handlers struct {
	Health       *handlers.HealthHandler
	Backtest     *handlers.BacktestHandler
	Optimization *handlers.OptimizationHandler
	Risk         *handlers.RiskHandler
	Picks        *handlers.PicksHandler
	Bots         *handlers.BotsHandler
	Liquidation  *handlers.LiquidationHandler
}

// SetupRoutes registers the HTTP surface. Read-only product endpoints need a
// valid token; control-plane endpoints additionally need the operator role.
func SetupRoutes(router *gin.Engine, h Handlers, auth *middleware.AuthMiddleware) {
	// Health check endpoint
	router.GET("/health", h.Health.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(auth.RequireAuth())
	{
		// Tiered picks serving path
		v1.GET("/picks", h.Picks.GetPicks)

		// Backtesting
		backtest := v1.Group("/backtest")
		{
			backtest.POST("/run", h.Backtest.RunBacktest)
		}

		// Parameter optimization
		optimization := v1.Group("/optimization")
		{
			optimization.POST("/run", h.Optimization.RunOptimization)
			optimization.GET("/status", h.Optimization.OptimizationStatus)
			optimization.GET("/last", h.Optimization.LastReport)
			optimization.POST("/cancel", h.Optimization.CancelOptimization)
		}

		// Risk management (operator only)
		risk := v1.Group("/risk")
		risk.Use(auth.RequireOperator())
		{
			risk.GET("/parameters", h.Risk.GetParameters)
			risk.PUT("/parameters", h.Risk.UpdateParameters)
			risk.GET("/positions", h.Risk.GetPositions)
		}

		// Bot control (operator only)
		bots := v1.Group("/bots")
		bots.Use(auth.RequireOperator())
		{
			bots.GET("", h.Bots.ListBots)
			bots.POST("/:id/control", h.Bots.ControlBot)
		}

		// Two-step liquidation (operator only)
		liquidation := v1.Group("/liquidation")
		liquidation.Use(auth.RequireOperator())
		{
			liquidation.POST("/code", h.Liquidation.GenerateCode)
			liquidation.POST("/execute", h.Liquidation.Execute)
		}
	}
}
