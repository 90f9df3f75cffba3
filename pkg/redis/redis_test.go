package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()
	client, err := New(context.Background(), config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	allowed, remaining, err := limiter.Allow(context.Background(), YahooRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, YahooRateLimit.Limit, remaining)
	assert.NoError(t, limiter.Wait(context.Background(), AlpacaRateLimit))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")

	var result string
	found, err := cache.Get(context.Background(), "key", &result)
	require.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, cache.Set(context.Background(), "key", "value", TTLShort))
	assert.NoError(t, cache.Delete(context.Background(), "key"))
}

func TestCacheKeys(t *testing.T) {
	start := time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, "prices:AAPL:2020-01-02:2024-06-28", PriceSeriesKey("AAPL", start, end))
	assert.Equal(t, "asset:MSFT", AssetKey("MSFT"))
}

func TestCache_RoundTrip(t *testing.T) {
	if os.Getenv("REDIS_ENABLED") != "true" {
		t.Skip("REDIS_ENABLED not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	client, err := New(context.Background(), cfg.Redis)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	cache := NewCache(client, "test")
	require.NoError(t, cache.Set(ctx, "roundtrip", map[string]float64{"AAPL": 0.6}, TTLShort))

	var got map[string]float64
	found, err := cache.Get(ctx, "roundtrip", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 0.6, got["AAPL"])

	require.NoError(t, cache.Delete(ctx, "roundtrip"))
	found, err = cache.Get(ctx, "roundtrip", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRateLimiter_Window(t *testing.T) {
	if os.Getenv("REDIS_ENABLED") != "true" {
		t.Skip("REDIS_ENABLED not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	client, err := New(context.Background(), cfg.Redis)
	require.NoError(t, err)
	defer client.Close()

	limiter := NewRateLimiter(client, "test-"+time.Now().Format("150405.000"))
	limit := RateLimitConfig{Key: "burst", Limit: 3, Window: time.Minute}

	for i := 0; i < 3; i++ {
		allowed, _, err := limiter.Allow(context.Background(), limit)
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, remaining, err := limiter.Allow(context.Background(), limit)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, 0, remaining)
}
