package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Environment string            `mapstructure:"environment"`
	LogLevel    string            `mapstructure:"log_level"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Risk        RiskConfig        `mapstructure:"risk"`
	Backtest    BacktestConfig    `mapstructure:"backtest"`
	Optimizer   OptimizerConfig   `mapstructure:"optimizer"`
	Allocator   AllocatorConfig   `mapstructure:"allocator"`
	Picks       PicksConfig       `mapstructure:"picks"`
	Bots        BotsConfig        `mapstructure:"bots"`
	Liquidation LiquidationConfig `mapstructure:"liquidation"`
	Security    SecurityConfig    `mapstructure:"security"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	// MaxConns bounds the pgx pool. The report store is the only writer,
	// so the pool stays small.
	MaxConns int32 `mapstructure:"max_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RiskConfig seeds the risk manager's active parameter set.
type RiskConfig struct {
	MaxTradesPerDay       int     `mapstructure:"max_trades_per_day"`
	MaxDailyLoss          float64 `mapstructure:"max_daily_loss"`
	MaxDailyLossPercent   float64 `mapstructure:"max_daily_loss_percent"`
	TakeProfitPercent     float64 `mapstructure:"take_profit_percent"`
	StopLossPercent       float64 `mapstructure:"stop_loss_percent"`
	MaxPositionSize       float64 `mapstructure:"max_position_size"`
	MinConfidence         float64 `mapstructure:"min_confidence"`
	SentimentGapThreshold float64 `mapstructure:"sentiment_gap_threshold"`
	MaxPerTrade           float64 `mapstructure:"max_per_trade"`
	MaxOpenPositions      int     `mapstructure:"max_open_positions"`
	MaxTotalExposure      float64 `mapstructure:"max_total_exposure"`
	PollInterval          string  `mapstructure:"poll_interval"`
}

type BacktestConfig struct {
	InitialBankroll float64 `mapstructure:"initial_bankroll"`
	// RiskFraction sizes each simulated position as a fraction of bankroll,
	// before the max-position-size cap.
	RiskFraction float64 `mapstructure:"risk_fraction"`
}

type OptimizerConfig struct {
	// ObjectiveWeights combine win rate, Sharpe and total return. Defaults:
	// 0.3 / 0.3 / 0.4 — return carries the largest weight because the tier
	// product sells realized performance, not risk-adjusted elegance.
	ObjectiveWeights ObjectiveWeightsConfig `mapstructure:"objective_weights"`
	MinWorkers       int                    `mapstructure:"min_workers"`
	MaxWorkers       int                    `mapstructure:"max_workers"`
}

type ObjectiveWeightsConfig struct {
	WinRate     float64 `mapstructure:"win_rate"`
	Sharpe      float64 `mapstructure:"sharpe"`
	TotalReturn float64 `mapstructure:"total_return"`
}

type AllocatorConfig struct {
	EliteQuota   int `mapstructure:"elite_quota"`
	PremiumQuota int `mapstructure:"premium_quota"`
	FreeQuota    int `mapstructure:"free_quota"`
}

type PicksConfig struct {
	CacheTTL string `mapstructure:"cache_ttl"`
	// EventsPath is the upcoming-events slate file rewritten by ingestion.
	EventsPath string `mapstructure:"events_path"`
}

// BotsConfig names the managed trading bots.
type BotsConfig struct {
	// TraderID is the bot id the position-polling trade loop registers
	// under.
	TraderID string `mapstructure:"trader_id"`
}

type LiquidationConfig struct {
	CodeTTL string `mapstructure:"code_ttl"`
	// VerifyRatePerMinute bounds verification attempts per user to resist
	// brute force against the 6-digit code space.
	VerifyRatePerMinute int `mapstructure:"verify_rate_per_minute"`
	VerifyBurst         int `mapstructure:"verify_burst"`
}

type SecurityConfig struct {
	JWTSecret  string `mapstructure:"jwt_secret" json:"-" yaml:"-"`
	JWTExpiry  string `mapstructure:"jwt_expiry"`
	BcryptCost int    `mapstructure:"bcrypt_cost"`
}

func Load() (*Config, error) {
	// Optional .env for local development; ignored when absent.
	_ = godotenv.Load()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("security.jwt_secret", "JWT_SECRET"); err != nil {
		return nil, fmt.Errorf("failed to bind JWT_SECRET environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if config.Environment != "development" && config.Security.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required in non-development environments")
	}

	if config.Security.JWTExpiry != "" {
		if _, err := time.ParseDuration(config.Security.JWTExpiry); err != nil {
			return nil, fmt.Errorf("invalid JWT expiry duration: %w", err)
		}
	}

	if config.Security.BcryptCost < bcrypt.MinCost || config.Security.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost must be between %d and %d, got %d",
			bcrypt.MinCost, bcrypt.MaxCost, config.Security.BcryptCost)
	}

	if err := validateEngine(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// validateEngine rejects risk/optimizer settings the engine cannot run with.
func validateEngine(config *Config) error {
	if config.Risk.StopLossPercent <= 0 || config.Risk.StopLossPercent >= 1 {
		return fmt.Errorf("risk.stop_loss_percent must be within (0, 1), got %v", config.Risk.StopLossPercent)
	}
	if config.Risk.TakeProfitPercent <= 0 {
		return fmt.Errorf("risk.take_profit_percent must be positive, got %v", config.Risk.TakeProfitPercent)
	}
	if config.Risk.MaxDailyLoss <= 0 {
		return fmt.Errorf("risk.max_daily_loss must be positive, got %v", config.Risk.MaxDailyLoss)
	}
	if config.Backtest.RiskFraction <= 0 || config.Backtest.RiskFraction > 1 {
		return fmt.Errorf("backtest.risk_fraction must be within (0, 1], got %v", config.Backtest.RiskFraction)
	}
	w := config.Optimizer.ObjectiveWeights
	sum := w.WinRate + w.Sharpe + w.TotalReturn
	if sum <= 0 || math.Abs(sum-1) > 0.01 {
		return fmt.Errorf("optimizer.objective_weights must sum to 1.0, got %v", sum)
	}
	if config.Allocator.EliteQuota <= 0 || config.Allocator.PremiumQuota <= 0 || config.Allocator.FreeQuota <= 0 {
		return errors.New("allocator quotas must be positive")
	}
	if config.Liquidation.VerifyRatePerMinute <= 0 {
		return fmt.Errorf("liquidation.verify_rate_per_minute must be positive, got %d", config.Liquidation.VerifyRatePerMinute)
	}
	if config.Liquidation.CodeTTL != "" {
		if _, err := time.ParseDuration(config.Liquidation.CodeTTL); err != nil {
			return fmt.Errorf("invalid liquidation code TTL: %w", err)
		}
	}
	if config.Risk.PollInterval != "" {
		if _, err := time.ParseDuration(config.Risk.PollInterval); err != nil {
			return fmt.Errorf("invalid risk poll interval: %w", err)
		}
	}
	if config.Picks.CacheTTL != "" {
		if _, err := time.ParseDuration(config.Picks.CacheTTL); err != nil {
			return fmt.Errorf("invalid picks cache TTL: %w", err)
		}
	}
	return nil
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "edgetier")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.max_conns", 8)

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.pool_size", 10)

	// Risk parameters (prediction-market sizing in account currency)
	viper.SetDefault("risk.max_trades_per_day", 10)
	viper.SetDefault("risk.max_daily_loss", 50.0)
	viper.SetDefault("risk.max_daily_loss_percent", 0.05)
	viper.SetDefault("risk.take_profit_percent", 0.25)
	viper.SetDefault("risk.stop_loss_percent", 0.5)
	viper.SetDefault("risk.max_position_size", 100.0)
	viper.SetDefault("risk.min_confidence", 60.0)
	viper.SetDefault("risk.sentiment_gap_threshold", 0.15)
	viper.SetDefault("risk.max_per_trade", 10.0)
	viper.SetDefault("risk.max_open_positions", 5)
	viper.SetDefault("risk.max_total_exposure", 100.0)
	viper.SetDefault("risk.poll_interval", "30s")

	// Backtest
	viper.SetDefault("backtest.initial_bankroll", 1000.0)
	viper.SetDefault("backtest.risk_fraction", 0.1)

	// Optimizer objective: win rate 0.3, Sharpe 0.3, total return 0.4.
	viper.SetDefault("optimizer.objective_weights.win_rate", 0.3)
	viper.SetDefault("optimizer.objective_weights.sharpe", 0.3)
	viper.SetDefault("optimizer.objective_weights.total_return", 0.4)
	viper.SetDefault("optimizer.min_workers", 2)
	viper.SetDefault("optimizer.max_workers", 16)

	// Allocator quotas
	viper.SetDefault("allocator.elite_quota", 5)
	viper.SetDefault("allocator.premium_quota", 3)
	viper.SetDefault("allocator.free_quota", 2)

	// Picks serving path
	viper.SetDefault("picks.cache_ttl", "5m")
	viper.SetDefault("picks.events_path", "./data/upcoming.json")

	// Bots
	viper.SetDefault("bots.trader_id", "paper-trader")

	// Liquidation
	viper.SetDefault("liquidation.code_ttl", "5m")
	viper.SetDefault("liquidation.verify_rate_per_minute", 5)
	viper.SetDefault("liquidation.verify_burst", 3)

	// Security
	viper.SetDefault("security.jwt_secret", "")
	viper.SetDefault("security.jwt_expiry", "24h")
	viper.SetDefault("security.bcrypt_cost", 12)
}
