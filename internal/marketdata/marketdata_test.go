package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

var (
	start = time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	end   = time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
)

type fakeSource struct {
	calls    atomic.Int32
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
	failing  map[string]error
}

func (s *fakeSource) FetchSeries(ctx context.Context, symbol string, from, to time.Time) (contracts.PriceSeries, error) {
	s.calls.Add(1)
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(s.delay)

	if err, ok := s.failing[symbol]; ok {
		return contracts.PriceSeries{}, err
	}
	return contracts.PriceSeries{
		Symbol: symbol,
		Points: []contracts.PricePoint{
			{Date: from, AdjClose: 10},
			{Date: to, AdjClose: 11},
		},
	}, nil
}

type memoryStore struct {
	mu     sync.Mutex
	saved  map[string]int
	failOn string
}

func (m *memoryStore) SaveSeries(ctx context.Context, series contracts.PriceSeries) error {
	if series.Symbol == m.failOn {
		return errors.New("disk full")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved == nil {
		m.saved = make(map[string]int)
	}
	m.saved[series.Symbol] = series.Len()
	return nil
}

func TestFetchAll_KeepsRequestOrder(t *testing.T) {
	symbols := []string{"FB", "AMZN", "AAPL", "NFLX", "GOOG", "TSLA", "SNAP"}
	store := &memoryStore{}

	results := NewCollector(&fakeSource{}, store, logger.NewNop()).
		FetchAll(context.Background(), symbols, start, end, Config{Workers: 3})

	require.Len(t, results, len(symbols))
	for i, res := range results {
		assert.Equal(t, symbols[i], res.Symbol)
		assert.NoError(t, res.Error)
		assert.Equal(t, 2, res.Series.Len())
	}
	assert.Len(t, store.saved, len(symbols))

	series, err := results.Series()
	require.NoError(t, err)
	assert.Equal(t, "SNAP", series[6].Symbol)
}

func TestFetchAll_BoundsWorkers(t *testing.T) {
	source := &fakeSource{delay: 5 * time.Millisecond}
	symbols := make([]string, 12)
	for i := range symbols {
		symbols[i] = fmt.Sprintf("S%02d", i)
	}

	NewCollector(source, nil, logger.NewNop()).FetchAll(context.Background(), symbols, start, end, Config{Workers: 2})

	assert.Equal(t, int32(12), source.calls.Load())
	assert.LessOrEqual(t, source.peak.Load(), int32(2))
}

func TestFetchAll_FailuresAreIsolated(t *testing.T) {
	source := &fakeSource{failing: map[string]error{"GONE": errors.New("no data found")}}
	store := &memoryStore{failOn: "BAD"}

	results := NewCollector(source, store, logger.NewNop()).
		FetchAll(context.Background(), []string{"AAPL", "GONE", "BAD", "MSFT"}, start, end, Config{Workers: 4})

	assert.NoError(t, results[0].Error)
	assert.ErrorContains(t, results[1].Error, "no data found")
	assert.ErrorContains(t, results[2].Error, "disk full")
	assert.NoError(t, results[3].Error)
	assert.Equal(t, 2, results.Failed())

	_, err := results.Series()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GONE")
	assert.Contains(t, err.Error(), "BAD")
}

func TestFetchAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	source := &fakeSource{}
	results := NewCollector(source, nil, logger.NewNop()).FetchAll(ctx, []string{"AAPL", "MSFT"}, start, end, Config{})

	for _, res := range results {
		assert.ErrorIs(t, res.Error, context.Canceled)
	}
	assert.Zero(t, source.calls.Load())
}

func TestFetchSpecSeries(t *testing.T) {
	spec, err := contracts.EqualWeightSpec([]string{"AAPL", "MSFT"}, 1000, start, end)
	require.NoError(t, err)

	series, err := NewCollector(&fakeSource{}, nil, logger.NewNop()).FetchSpecSeries(context.Background(), spec, Config{Workers: 2})
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.Equal(t, start, series[0].Points[0].Date)
	assert.Equal(t, end, series[1].Points[1].Date)
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]contracts.PriceSeries
	getErr  error
	setErr  error
	ttl     time.Duration
}

func (c *mapCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return false, c.getErr
	}
	s, ok := c.entries[key]
	if ok {
		*dest.(*contracts.PriceSeries) = s
	}
	return ok, nil
}

func (c *mapCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.setErr != nil {
		return c.setErr
	}
	if c.entries == nil {
		c.entries = make(map[string]contracts.PriceSeries)
	}
	c.entries[key] = value.(contracts.PriceSeries)
	c.ttl = ttl
	return nil
}

func TestCachedSource_ReadThrough(t *testing.T) {
	source := &fakeSource{}
	cache := &mapCache{}
	cached := NewCachedSource(source, cache, 0, logger.NewNop())

	first, err := cached.FetchSeries(context.Background(), "AAPL", start, end)
	require.NoError(t, err)
	second, err := cached.FetchSeries(context.Background(), "AAPL", start, end)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), source.calls.Load())
	assert.Contains(t, cache.entries, "prices:AAPL:2024-01-02:2024-01-05")
	assert.Equal(t, 24*time.Hour, cache.ttl)

	// a different window is a different key
	_, err = cached.FetchSeries(context.Background(), "AAPL", start, end.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, int32(2), source.calls.Load())
}

func TestCachedSource_CacheErrorsFallBack(t *testing.T) {
	source := &fakeSource{}
	cache := &mapCache{getErr: errors.New("connection refused"), setErr: errors.New("connection refused")}

	series, err := NewCachedSource(source, cache, time.Hour, logger.NewNop()).FetchSeries(context.Background(), "AAPL", start, end)
	require.NoError(t, err)
	assert.Equal(t, 2, series.Len())
}

func TestCachedSource_SourceErrorNotCached(t *testing.T) {
	source := &fakeSource{failing: map[string]error{"GONE": errors.New("no data found")}}
	cache := &mapCache{}

	_, err := NewCachedSource(source, cache, time.Hour, logger.NewNop()).FetchSeries(context.Background(), "GONE", start, end)
	require.Error(t, err)
	assert.Empty(t, cache.entries)
}
