package commands

import (
	"context"
	"fmt"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/api/handlers"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/estimator"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/external/alpaca"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/external/yahoo"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/frontier"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/marketdata"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/portfolio"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/config"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/database"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/httputil"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/redis"
)

// app holds the process-wide dependencies shared by commands
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	db    *database.DB // nil when DATABASE_URL is empty
	redis *redis.Client
}

// loadConfig applies the global flags on top of the environment
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadFrom(configFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newApp loads config and opens the optional stores.
// Redis and Postgres are only dialled when configured.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	log := logger.New(cfg)

	a := &app{cfg: cfg, log: log}

	if a.redis, err = redis.New(ctx, cfg.Redis); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	if cfg.Database.Enabled() {
		db, err := database.New(ctx, cfg.Database)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			a.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		a.db = db
	}

	return a, nil
}

// Close releases every open connection
func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}

// requireDB fails when persistence is off
func (a *app) requireDB(what string) error {
	if a.db == nil {
		return fmt.Errorf("%s needs DATABASE_URL", what)
	}
	return nil
}

// priceSource builds the Yahoo client behind both rate limiters and the
// Redis price cache
func (a *app) priceSource() contracts.PriceSource {
	httpClient := httputil.New(a.log).
		WithRate(float64(a.cfg.MarketData.RequestsPerSec), 1).
		WithRateLimiter(redis.NewRateLimiter(a.redis, "ratelimit"), redis.YahooRateLimit)

	source := yahoo.NewClient(httpClient, a.cfg.MarketData.YahooBaseURL, a.log)
	if !a.redis.Enabled() {
		return source
	}
	return marketdata.NewCachedSource(source, redis.NewCache(a.redis, "portfolio"), a.cfg.MarketData.CacheTTL, a.log)
}

// collector fetches through priceSource and stores into Postgres when enabled
func (a *app) collector() *marketdata.Collector {
	var store marketdata.SeriesStore
	if a.db != nil {
		store = marketdata.NewRepository(a.db.Pool)
	}
	return marketdata.NewCollector(a.priceSource(), store, a.log)
}

// broker builds the Alpaca client
func (a *app) broker() (*alpaca.Client, error) {
	httpClient := httputil.New(a.log).
		WithRateLimiter(redis.NewRateLimiter(a.redis, "ratelimit"), redis.AlpacaRateLimit)
	return alpaca.NewClient(a.cfg.Alpaca, httpClient, a.log)
}

// runStore returns the run repository, or nil without a database
func (a *app) runStore() *portfolio.Repository {
	if a.db == nil {
		return nil
	}
	return portfolio.NewRepository(a.db.Pool)
}

// defaults maps environment configuration onto core settings
func (a *app) defaults() handlers.Defaults {
	opt := a.cfg.Optimizer
	mc := a.cfg.MonteCarlo

	run := portfolio.DefaultConfig()
	run.Technique = contracts.ParseTechnique(opt.Technique)
	run.Estimator = estimator.Config{
		PeriodsPerYear: opt.PeriodsPerYear,
		ReturnType:     estimator.ReturnTypeSimple,
	}
	run.Simulation = portfolio.SimulationConfig{
		TimeHorizon:    mc.TimeHorizon,
		AnnualAddition: mc.AnnualAddition,
		Iterations:     mc.Iterations,
		Workers:        mc.Workers,
	}

	solver := frontier.DefaultConfig()
	solver.RiskFreeRate = opt.RiskFreeRate
	solver.WeightCutoff = opt.WeightCutoff
	solver.Timeout = opt.SolverTimeout
	solver.MaxIterations = opt.MaxIterations

	return handlers.Defaults{
		Run:       run,
		Solver:    solver,
		Collector: marketdata.Config{Workers: a.cfg.MarketData.Workers},
		Limits: handlers.SimulationLimits{
			MaxIterations:  mc.MaxIterations,
			MaxTimeHorizon: mc.MaxTimeHorizon,
		},
	}
}
