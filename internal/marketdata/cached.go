package marketdata

import (
	"context"
	"time"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/redis"
)

// SeriesCache is the subset of redis.Cache used by CachedSource
type SeriesCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

var _ SeriesCache = (*redis.Cache)(nil)

// CachedSource reads through a cache in front of another PriceSource.
// Cache failures are logged and the underlying source is used.
type CachedSource struct {
	source contracts.PriceSource
	cache  SeriesCache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedSource wraps source; ttl <= 0 uses redis.TTLDaily
func NewCachedSource(source contracts.PriceSource, cache SeriesCache, ttl time.Duration, log *logger.Logger) *CachedSource {
	if ttl <= 0 {
		ttl = redis.TTLDaily
	}
	return &CachedSource{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithField("module", "marketdata"),
	}
}

var _ contracts.PriceSource = (*CachedSource)(nil)

// FetchSeries returns the cached series or fetches and caches it
func (s *CachedSource) FetchSeries(ctx context.Context, symbol string, start, end time.Time) (contracts.PriceSeries, error) {
	key := redis.PriceSeriesKey(symbol, start, end)

	var cached contracts.PriceSeries
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Price cache read failed")
	}
	if found {
		s.logger.WithField("symbol", symbol).Debug("Price cache hit")
		return cached, nil
	}

	series, err := s.source.FetchSeries(ctx, symbol, start, end)
	if err != nil {
		return contracts.PriceSeries{}, err
	}

	// empty results are not cached so a later fetch can fill them
	if series.Len() > 0 {
		if err := s.cache.Set(ctx, key, series, s.ttl); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("Price cache write failed")
		}
	}

	return series, nil
}
