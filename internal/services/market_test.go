package services

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgetier/edgetier-ai-go/internal/database"
	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

func newQuoteSource(t *testing.T) (*RedisQuoteSource, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := &database.RedisClient{Client: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	return NewRedisQuoteSource(client), mr
}

func TestCurrentPrice(t *testing.T) {
	source, mr := newQuoteSource(t)
	require.NoError(t, mr.Set("quote:prod-1", "0.42"))

	price, err := source.CurrentPrice(context.Background(), "prod-1")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromFloat(0.42)))
}

func TestCurrentPriceMissingQuote(t *testing.T) {
	source, _ := newQuoteSource(t)

	_, err := source.CurrentPrice(context.Background(), "prod-unknown")
	require.Error(t, err)

	var upstreamErr *utils.UpstreamDataError
	assert.ErrorAs(t, err, &upstreamErr)
}

func TestCurrentPriceCorruptQuote(t *testing.T) {
	source, mr := newQuoteSource(t)
	require.NoError(t, mr.Set("quote:prod-1", "not-a-number"))

	_, err := source.CurrentPrice(context.Background(), "prod-1")
	assert.Error(t, err)

	require.NoError(t, mr.Set("quote:prod-1", "-1"))
	_, err = source.CurrentPrice(context.Background(), "prod-1")
	assert.Error(t, err)
}
