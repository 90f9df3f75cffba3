package portfolio

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/allocation"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/frontier"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/risk"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

var day0 = time.Date(2022, 1, 3, 0, 0, 0, 0, time.UTC)

func newTestConstructor(cfg Config) *Constructor {
	log := logger.NewNop()
	return NewConstructor(
		cfg,
		frontier.NewSolver(frontier.DefaultConfig(), log),
		allocation.NewAllocator(log),
		risk.NewProjector(2, log),
		log,
	)
}

func testConfig() Config {
	cfg := DefaultConfig()
	seed := uint64(11)
	cfg.Simulation = SimulationConfig{
		TimeHorizon:    3,
		AnnualAddition: 500,
		Iterations:     200,
		Seed:           &seed,
	}
	return cfg
}

// randomWalks builds daily price series with distinct drifts and volatilities
func randomWalks(symbols []string, days int) []contracts.PriceSeries {
	rng := rand.New(rand.NewPCG(7, 7))
	drifts := []float64{0.0015, 0.0020, 0.0010, 0.0025}
	vols := []float64{0.010, 0.015, 0.008, 0.020}

	series := make([]contracts.PriceSeries, len(symbols))
	for j, sym := range symbols {
		price := 50.0 + 25*float64(j)
		points := make([]contracts.PricePoint, days)
		for i := range points {
			points[i] = contracts.PricePoint{Date: day0.AddDate(0, 0, i), AdjClose: price}
			price *= 1 + drifts[j%4] + vols[j%4]*rng.NormFloat64()
		}
		series[j] = contracts.PriceSeries{Symbol: sym, Points: points}
	}
	return series
}

func mustSpec(t *testing.T, assets []string, budget float64) contracts.PortfolioSpec {
	t.Helper()
	spec, err := contracts.EqualWeightSpec(assets, budget, time.Time{}, time.Time{})
	require.NoError(t, err)
	return spec
}

func TestConstruct_FullRun(t *testing.T) {
	assets := []string{"AAA", "BBB", "CCC", "DDD"}
	series := randomWalks(assets, 300)

	res, err := newTestConstructor(testConfig()).Construct(context.Background(), mustSpec(t, assets, 25_000), series)
	require.NoError(t, err)

	assert.Equal(t, []contracts.Stage{
		contracts.StageData,
		contracts.StageEstimate,
		contracts.StageOptimize,
		contracts.StageAllocate,
		contracts.StageProject,
	}, res.CompletedStages)
	assert.NotEmpty(t, res.RunID)

	opt := res.Optimization
	require.NotNil(t, opt)
	assert.Equal(t, contracts.TechniqueMaxSharpe, opt.Technique)
	assert.InDelta(t, 1.0, opt.TotalWeight(), 1e-9)

	alloc := res.Allocation
	require.NotNil(t, alloc)
	assert.Equal(t, assets, alloc.Assets)
	assert.LessOrEqual(t, alloc.Invested, 25_000.0)
	for _, a := range assets {
		if opt.Weights[a] == 0 {
			assert.Equal(t, 0, alloc.Shares[a], "zero weight asset %s", a)
		}
		last := series[indexOf(assets, a)].Points[299].AdjClose
		if opt.Weights[a] > 0 {
			assert.Equal(t, last, alloc.Prices[a])
		}
	}

	sim := res.Simulation
	require.NotNil(t, sim)
	assert.Equal(t, alloc.Invested, sim.Params.InitialValue)
	assert.Equal(t, opt.ExpectedReturn, sim.Params.ExpectedReturn)
	assert.Equal(t, opt.Volatility, sim.Params.Volatility)
	assert.Len(t, sim.TerminalValues, 200)
	assert.Equal(t, uint64(11), sim.Seed)
}

func TestConstruct_Reproducible(t *testing.T) {
	assets := []string{"AAA", "BBB", "CCC"}
	series := randomWalks(assets, 200)
	spec := mustSpec(t, assets, 10_000)

	first, err := newTestConstructor(testConfig()).Construct(context.Background(), spec, series)
	require.NoError(t, err)
	second, err := newTestConstructor(testConfig()).Construct(context.Background(), spec, series)
	require.NoError(t, err)

	assert.Equal(t, first.Optimization.Weights, second.Optimization.Weights)
	assert.Equal(t, first.Allocation.Shares, second.Allocation.Shares)
	assert.Equal(t, first.Simulation.TerminalValues, second.Simulation.TerminalValues)
}

func TestConstruct_SingleObservationStopsBeforeOptimising(t *testing.T) {
	assets := []string{"AAA", "BBB"}
	series := randomWalks(assets, 50)
	series[1].Points = series[1].Points[:1]

	res, err := newTestConstructor(testConfig()).Construct(context.Background(), mustSpec(t, assets, 1_000), series)
	require.Error(t, err)

	var insufficient *contracts.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "BBB", insufficient.Symbol)
	assert.Equal(t, 1, insufficient.Observations)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	assert.Empty(t, res.CompletedStages)
	assert.Nil(t, res.Stats)
	assert.Nil(t, res.Optimization)
}

func TestConstruct_MissingSeries(t *testing.T) {
	series := randomWalks([]string{"AAA"}, 50)

	_, err := newTestConstructor(testConfig()).Construct(context.Background(), mustSpec(t, []string{"AAA", "ZZZ"}, 1_000), series)

	var insufficient *contracts.InsufficientDataError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, "ZZZ", insufficient.Symbol)
}

func TestConstruct_UnsupportedTechnique(t *testing.T) {
	assets := []string{"AAA", "BBB"}
	cfg := testConfig()
	cfg.Technique = "max_return"

	res, err := newTestConstructor(cfg).Construct(context.Background(), mustSpec(t, assets, 1_000), randomWalks(assets, 60))
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrUnsupportedTechnique)
	assert.ErrorIs(t, err, contracts.ErrInfeasibleOptimization)
	assert.Contains(t, err.Error(), "S2_OPTIMIZE failed")
	assert.Equal(t, []contracts.Stage{contracts.StageData, contracts.StageEstimate}, res.CompletedStages)
}

func TestConstruct_WindowTrimsSeries(t *testing.T) {
	assets := []string{"AAA", "BBB"}
	series := randomWalks(assets, 100)
	spec, err := contracts.EqualWeightSpec(assets, 5_000, day0.AddDate(0, 0, 10), day0.AddDate(0, 0, 39))
	require.NoError(t, err)

	res, err := newTestConstructor(testConfig()).Construct(context.Background(), spec, series)
	require.NoError(t, err)
	assert.Equal(t, 30, res.Stats.Observations)

	// shares are priced at the window end, not at the last point passed in
	require.NotEmpty(t, res.Allocation.Prices)
	for j, sym := range assets {
		price, ok := res.Allocation.Prices[sym]
		if !ok {
			continue
		}
		assert.Equal(t, series[j].Points[39].AdjClose, price, sym)
		assert.NotEqual(t, series[j].Points[99].AdjClose, price, sym)
	}
}

func TestConstruct_AlignDates(t *testing.T) {
	assets := []string{"AAA", "BBB"}
	series := randomWalks(assets, 80)
	// BBB misses one trading day
	series[1].Points = append(series[1].Points[:40:40], series[1].Points[41:]...)

	_, err := newTestConstructor(testConfig()).Construct(context.Background(), mustSpec(t, assets, 5_000), series)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	cfg := testConfig()
	cfg.AlignDates = true
	res, err := newTestConstructor(cfg).Construct(context.Background(), mustSpec(t, assets, 5_000), series)
	require.NoError(t, err)
	assert.Equal(t, 79, res.Stats.Observations)
}

func TestOptimize_Partial(t *testing.T) {
	assets := []string{"AAA", "BBB", "CCC"}
	cfg := testConfig()
	cfg.Technique = contracts.TechniqueMinVolatility

	stats, opt, err := newTestConstructor(cfg).Optimize(context.Background(), mustSpec(t, assets, 1_000), randomWalks(assets, 120))
	require.NoError(t, err)
	assert.Equal(t, assets, stats.Assets)
	assert.Equal(t, contracts.TechniqueMinVolatility, opt.Technique)
}

func TestFrontier_Partial(t *testing.T) {
	assets := []string{"AAA", "BBB", "CCC"}

	points, err := newTestConstructor(testConfig()).Frontier(context.Background(), mustSpec(t, assets, 1_000), randomWalks(assets, 120), 5)
	require.NoError(t, err)
	assert.Len(t, points, 5)
}

func TestSimulate_InvalidParams(t *testing.T) {
	_, err := newTestConstructor(testConfig()).Simulate(context.Background(), contracts.SimulationParams{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "S4_PROJECT failed")
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
