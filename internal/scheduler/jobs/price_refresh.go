package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/marketdata"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

// PriceIndex is the stored-price view the refresh job needs
type PriceIndex interface {
	Symbols(ctx context.Context) ([]string, error)
	LatestDate(ctx context.Context, symbol string) (time.Time, bool, error)
}

// PriceRefreshConfig holds refresh job configuration
type PriceRefreshConfig struct {
	Schedule string           // cron expression, seconds first
	Symbols  []string         // always refreshed, even before first fetch
	Lookback time.Duration    // history fetched for symbols with nothing stored
	Workers  int              // concurrent fetches
	Now      func() time.Time // clock, time.Now when nil
}

// DefaultPriceRefreshConfig refreshes after the US close on weekdays
func DefaultPriceRefreshConfig() PriceRefreshConfig {
	return PriceRefreshConfig{
		Schedule: "CRON_TZ=America/New_York 0 30 17 * * MON-FRI",
		Lookback: 5 * 365 * 24 * time.Hour,
		Workers:  4,
	}
}

// PriceRefreshJob tops up stored daily prices so optimisation runs read
// recent history
type PriceRefreshJob struct {
	collector *marketdata.Collector
	index     PriceIndex
	config    PriceRefreshConfig
	logger    *logger.Logger
}

// NewPriceRefreshJob creates a refresh job; the collector should save
// into the same store index reads from
func NewPriceRefreshJob(collector *marketdata.Collector, index PriceIndex, cfg PriceRefreshConfig, log *logger.Logger) *PriceRefreshJob {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &PriceRefreshJob{
		collector: collector,
		index:     index,
		config:    cfg,
		logger:    log.WithField("job", "price_refresh"),
	}
}

// Name returns the job name
func (j *PriceRefreshJob) Name() string {
	return "price_refresh"
}

// Schedule returns the cron schedule
func (j *PriceRefreshJob) Schedule() string {
	return j.config.Schedule
}

// Run fetches from the day after the oldest latest-stored date up to today.
// Overlapping rows are upserted, so one shared window serves every symbol.
func (j *PriceRefreshJob) Run(ctx context.Context) error {
	symbols, err := j.symbols(ctx)
	if err != nil {
		return err
	}
	if len(symbols) == 0 {
		j.logger.Info("No symbols to refresh")
		return nil
	}

	end := j.config.Now().UTC().Truncate(24 * time.Hour)
	start, err := j.windowStart(ctx, symbols, end)
	if err != nil {
		return err
	}
	if start.After(end) {
		j.logger.Info("Prices already up to date")
		return nil
	}

	results := j.collector.FetchAll(ctx, symbols, start, end, marketdata.Config{Workers: j.config.Workers})

	j.logger.WithFields(map[string]interface{}{
		"symbols": len(symbols),
		"failed":  results.Failed(),
		"start":   start.Format("2006-01-02"),
		"end":     end.Format("2006-01-02"),
	}).Info("Price refresh finished")

	if failed := results.Failed(); failed > 0 {
		return fmt.Errorf("price refresh: %d of %d symbols failed", failed, len(symbols))
	}
	return nil
}

// symbols merges configured and stored symbols, sorted and deduplicated
func (j *PriceRefreshJob) symbols(ctx context.Context) ([]string, error) {
	stored, err := j.index.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stored symbols: %w", err)
	}

	seen := make(map[string]bool)
	var symbols []string
	for _, s := range append(append([]string(nil), j.config.Symbols...), stored...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (j *PriceRefreshJob) windowStart(ctx context.Context, symbols []string, end time.Time) (time.Time, error) {
	var start time.Time
	for _, s := range symbols {
		latest, ok, err := j.index.LatestDate(ctx, s)
		if err != nil {
			return time.Time{}, err
		}
		next := end.Add(-j.config.Lookback)
		if ok {
			next = latest.AddDate(0, 0, 1)
		}
		if start.IsZero() || next.Before(start) {
			start = next
		}
	}
	return start, nil
}
