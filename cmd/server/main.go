package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/edgetier/edgetier-ai-go/internal/api"
	"github.com/edgetier/edgetier-ai-go/internal/api/handlers"
	"github.com/edgetier/edgetier-ai-go/internal/cache"
	"github.com/edgetier/edgetier-ai-go/internal/config"
	"github.com/edgetier/edgetier-ai-go/internal/database"
	"github.com/edgetier/edgetier-ai-go/internal/logging"
	"github.com/edgetier/edgetier-ai-go/internal/middleware"
	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/services"
	"github.com/edgetier/edgetier-ai-go/internal/telemetry"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logging.NewLogger(cfg.LogLevel, cfg.Environment)

	// Tracing
	shutdownTracing, err := telemetry.Init(context.Background(), "edgetier-ai")
	if err != nil {
		logger.Fatalf("Failed to initialize tracing: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.WithError(err).Warn("Failed to flush traces")
		}
	}()

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.Database, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redis, err := database.NewRedisConnection(cfg.Redis, logger)
	if err != nil {
		logger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redis.Close()

	// Core engine services
	scorer := services.NewScoringEngine()
	allocator := services.NewTierAllocator(models.TierQuotas{
		Elite:   cfg.Allocator.EliteQuota,
		Premium: cfg.Allocator.PremiumQuota,
		Free:    cfg.Allocator.FreeQuota,
	})
	loader := services.NewHistoryLoader(logger)
	backtester := services.NewBacktester(cfg.Backtest, scorer, logger)
	advisor := services.NewResourceAdvisor(cfg.Optimizer, logger)
	reportRepo := database.NewReportRepository(db.Pool)
	optimizer := services.NewOptimizer(cfg.Optimizer, backtester, advisor, reportRepo, logger)

	// Live risk path
	quotes := services.NewRedisQuoteSource(redis)
	executor := services.NewPaperExecutor(logger)
	riskManager, err := services.NewRiskManager(cfg.Risk, quotes, executor, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize risk manager: %v", err)
	}

	liquidation, err := services.NewLiquidationService(cfg.Liquidation, cfg.Security, riskManager, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize liquidation service: %v", err)
	}

	botManager := services.NewBotManager(logger)
	botManager.Register(cfg.Bots.TraderID, riskManager.Run)
	if _, err := botManager.Control(cfg.Bots.TraderID, services.BotActionStart); err != nil {
		logger.Fatalf("Failed to start trading bot: %v", err)
	}

	// Picks serving path
	cacheTTL, err := time.ParseDuration(cfg.Picks.CacheTTL)
	if err != nil {
		logger.Fatalf("Invalid picks cache TTL: %v", err)
	}
	picksCache := cache.NewRedisPicksCache(redis.Client, cacheTTL, logger)
	eventSource := services.NewFileEventSource(cfg.Picks.EventsPath, logger)
	picksService := services.NewPicksService(eventSource, scorer, allocator, picksCache, logger)

	// HTTP surface
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	auth := middleware.NewAuthMiddleware(cfg.Security.JWTSecret)
	api.SetupRoutes(router, api.Handlers{
		Health:       handlers.NewHealthHandler(db, redis),
		Backtest:     handlers.NewBacktestHandler(loader, backtester, riskManager),
		Optimization: handlers.NewOptimizationHandler(loader, optimizer, riskManager),
		Risk:         handlers.NewRiskHandler(riskManager),
		Picks:        handlers.NewPicksHandler(picksService),
		Bots:         handlers.NewBotsHandler(botManager),
		Liquidation:  handlers.NewLiquidationHandler(liquidation),
	}, auth)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	botManager.Shutdown()
	optimizer.CancelSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
