package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/edgetier/edgetier-ai-go/internal/database"
	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

// quoteKeyPrefix is where the market data feed publishes yes-side quotes.
const quoteKeyPrefix = "quote:"

// RedisQuoteSource reads current prices from Redis, where the external feed
// writer publishes them keyed by product id.
type RedisQuoteSource struct {
	redis *database.RedisClient
}

// NewRedisQuoteSource creates a quote source over the shared Redis client.
func NewRedisQuoteSource(redis *database.RedisClient) *RedisQuoteSource {
	return &RedisQuoteSource{redis: redis}
}

// CurrentPrice returns the latest published quote for a product.
func (s *RedisQuoteSource) CurrentPrice(ctx context.Context, productID string) (decimal.Decimal, error) {
	raw, err := s.redis.Get(ctx, quoteKeyPrefix+productID)
	if err != nil {
		return decimal.Zero, utils.NewUpstreamDataErrorf("quotes", "no quote for product %s: %v", productID, err)
	}
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, utils.NewUpstreamDataErrorf("quotes", "corrupt quote for product %s: %q", productID, raw)
	}
	if !price.IsPositive() {
		return decimal.Zero, utils.NewUpstreamDataErrorf("quotes", "non-positive quote for product %s: %s", productID, price.String())
	}
	return price, nil
}

// PaperExecutor fills orders instantly at the requested price without
// touching a venue. It stands in for the live executor in paper-trading
// deployments and in tests.
type PaperExecutor struct {
	logger *logrus.Logger
}

// NewPaperExecutor creates a paper-trading executor.
func NewPaperExecutor(logger *logrus.Logger) *PaperExecutor {
	return &PaperExecutor{logger: logger}
}

// Open records a simulated entry fill.
func (e *PaperExecutor) Open(ctx context.Context, productID string, side models.PositionSide, quantity, price decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("entry order aborted: %w", err)
	}
	e.logger.WithFields(logrus.Fields{
		"product_id": productID,
		"side":       side,
		"quantity":   quantity.String(),
		"price":      price.String(),
	}).Info("Paper entry filled")
	return nil
}

// Close records a simulated exit fill.
func (e *PaperExecutor) Close(ctx context.Context, position *models.Position, price decimal.Decimal) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("exit order aborted: %w", err)
	}
	e.logger.WithFields(logrus.Fields{
		"position_id": position.ID,
		"product_id":  position.ProductID,
		"price":       price.String(),
	}).Info("Paper exit filled")
	return nil
}
