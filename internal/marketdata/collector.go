package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

// SeriesStore persists fetched series
type SeriesStore interface {
	SaveSeries(ctx context.Context, series contracts.PriceSeries) error
}

// Collector fetches price history for many assets concurrently
// ⭐ SSOT: price collection runs through here
type Collector struct {
	source contracts.PriceSource
	store  SeriesStore
	logger *logger.Logger
}

// Config holds collector configuration
type Config struct {
	Workers int // Number of concurrent fetches
}

// NewCollector creates a collector; store may be nil
func NewCollector(source contracts.PriceSource, store SeriesStore, log *logger.Logger) *Collector {
	return &Collector{
		source: source,
		store:  store,
		logger: log.WithField("module", "collector"),
	}
}

// FetchResult is the outcome for one asset
type FetchResult struct {
	Symbol string
	Series contracts.PriceSeries
	Error  error
}

// Results are per-asset outcomes in request order
type Results []FetchResult

// Series returns the fetched series in order, or the joined errors of
// every failed asset
func (r Results) Series() ([]contracts.PriceSeries, error) {
	series := make([]contracts.PriceSeries, 0, len(r))
	var errs []error
	for _, res := range r {
		if res.Error != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Symbol, res.Error))
			continue
		}
		series = append(series, res.Series)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return series, nil
}

// Failed counts assets that could not be fetched
func (r Results) Failed() int {
	n := 0
	for _, res := range r {
		if res.Error != nil {
			n++
		}
	}
	return n
}

// FetchAll fetches every symbol independently. One failing asset does not
// stop the others; each result slot is written by exactly one worker.
func (c *Collector) FetchAll(ctx context.Context, symbols []string, start, end time.Time, cfg Config) Results {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	c.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"start":   start.Format("2006-01-02"),
		"end":     end.Format("2006-01-02"),
		"workers": workers,
	}).Info("Starting price collection")

	results := make(Results, len(symbols))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, symbol := range symbols {
		g.Go(func() error {
			results[i] = c.fetchOne(ctx, symbol, start, end)
			return nil
		})
	}
	_ = g.Wait()

	c.logger.WithFields(map[string]interface{}{
		"success": len(results) - results.Failed(),
		"failed":  results.Failed(),
		"total":   len(results),
	}).Info("Price collection completed")

	return results
}

func (c *Collector) fetchOne(ctx context.Context, symbol string, start, end time.Time) FetchResult {
	if err := ctx.Err(); err != nil {
		return FetchResult{Symbol: symbol, Error: err}
	}

	series, err := c.source.FetchSeries(ctx, symbol, start, end)
	if err != nil {
		c.logger.WithError(err).WithField("symbol", symbol).Error("Failed to fetch prices")
		return FetchResult{Symbol: symbol, Error: err}
	}
	series.Symbol = symbol

	if c.store != nil {
		if err := c.store.SaveSeries(ctx, series); err != nil {
			c.logger.WithError(err).WithField("symbol", symbol).Error("Failed to save prices")
			return FetchResult{Symbol: symbol, Series: series, Error: err}
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"count":  series.Len(),
	}).Debug("Fetched prices")

	return FetchResult{Symbol: symbol, Series: series}
}

// FetchSpecSeries fetches the history of every asset of spec, failing if any is missing
func (c *Collector) FetchSpecSeries(ctx context.Context, spec contracts.PortfolioSpec, cfg Config) ([]contracts.PriceSeries, error) {
	return c.FetchAll(ctx, spec.Assets(), spec.Start(), spec.End(), cfg).Series()
}
