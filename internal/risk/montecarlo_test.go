package risk

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

func seedOf(v uint64) *uint64 { return &v }

func newTestProjector(workers int) *Projector {
	return NewProjector(workers, logger.NewNop())
}

func TestProject_ZeroVolatilityMatchesClosedForm(t *testing.T) {
	params := contracts.SimulationParams{
		InitialValue:   1000,
		ExpectedReturn: 0.07,
		Volatility:     0,
		TimeHorizon:    15,
		AnnualAddition: 3000,
		Iterations:     50,
		Seed:           seedOf(1),
	}

	res, err := newTestProjector(4).Project(context.Background(), params)
	require.NoError(t, err)

	growth := 1.07
	want := 1000 * math.Pow(growth, 15)
	for k := 0; k < 15; k++ {
		want += 3000 * math.Pow(growth, float64(k))
	}

	require.Len(t, res.TerminalValues, 50)
	for _, v := range res.TerminalValues {
		assert.InEpsilon(t, want, v, 1e-12)
	}
	assert.InEpsilon(t, want, res.Summary.Mean, 1e-12)
	assert.InDelta(t, 0, res.Summary.StdDev, 1e-6)
	assert.Equal(t, 0.0, res.ProbabilityOfLoss)
}

func TestProject_ReproducibleWithSeed(t *testing.T) {
	params := contracts.SimulationParams{
		InitialValue:   10_000,
		ExpectedReturn: 0.08,
		Volatility:     0.2,
		TimeHorizon:    10,
		Iterations:     500,
		Seed:           seedOf(42),
	}

	first, err := newTestProjector(1).Project(context.Background(), params)
	require.NoError(t, err)
	second, err := newTestProjector(1).Project(context.Background(), params)
	require.NoError(t, err)

	assert.Equal(t, first.TerminalValues, second.TerminalValues)
	assert.Equal(t, uint64(42), first.Seed)
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestProject_IndependentOfWorkerCount(t *testing.T) {
	params := contracts.SimulationParams{
		InitialValue:   5_000,
		ExpectedReturn: 0.05,
		Volatility:     0.15,
		TimeHorizon:    7,
		AnnualAddition: 100,
		Iterations:     333,
		Seed:           seedOf(7),
	}

	serial, err := newTestProjector(1).Project(context.Background(), params)
	require.NoError(t, err)

	for _, workers := range []int{2, 3, 8, 1000} {
		params.Workers = workers
		parallel, err := newTestProjector(1).Project(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, serial.TerminalValues, parallel.TerminalValues, "workers=%d", workers)
	}
}

func TestProject_DifferentSeedsDiffer(t *testing.T) {
	params := contracts.SimulationParams{
		InitialValue:   1_000,
		ExpectedReturn: 0.05,
		Volatility:     0.2,
		TimeHorizon:    3,
		Iterations:     20,
	}

	params.Seed = seedOf(1)
	a, err := newTestProjector(2).Project(context.Background(), params)
	require.NoError(t, err)
	params.Seed = seedOf(2)
	b, err := newTestProjector(2).Project(context.Background(), params)
	require.NoError(t, err)

	assert.NotEqual(t, a.TerminalValues, b.TerminalValues)
}

func TestProject_NilSeedIsReported(t *testing.T) {
	params := contracts.SimulationParams{
		InitialValue:   1_000,
		ExpectedReturn: 0.05,
		Volatility:     0.2,
		TimeHorizon:    2,
		Iterations:     10,
	}

	res, err := newTestProjector(2).Project(context.Background(), params)
	require.NoError(t, err)
	require.NotNil(t, res.Params.Seed)
	assert.Equal(t, res.Seed, *res.Params.Seed)

	params.Seed = seedOf(res.Seed)
	replay, err := newTestProjector(2).Project(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, res.TerminalValues, replay.TerminalValues)
}

func TestProject_NoClampingByDefault(t *testing.T) {
	params := contracts.SimulationParams{
		InitialValue:   100,
		ExpectedReturn: -1.5,
		Volatility:     0,
		TimeHorizon:    1,
		Iterations:     3,
		Seed:           seedOf(3),
	}

	res, err := newTestProjector(1).Project(context.Background(), params)
	require.NoError(t, err)
	for _, v := range res.TerminalValues {
		assert.InDelta(t, -50.0, v, 1e-12)
	}
	assert.Equal(t, 1.0, res.ProbabilityOfLoss)

	params.FloorAtZero = true
	res, err = newTestProjector(1).Project(context.Background(), params)
	require.NoError(t, err)
	for _, v := range res.TerminalValues {
		assert.Equal(t, 0.0, v)
	}
}

func TestProject_KeepPaths(t *testing.T) {
	params := contracts.SimulationParams{
		InitialValue:   1_000,
		ExpectedReturn: 0.1,
		Volatility:     0.1,
		TimeHorizon:    4,
		Iterations:     5,
		Seed:           seedOf(9),
		KeepPaths:      true,
	}

	res, err := newTestProjector(2).Project(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, res.Paths, 5)
	for i, path := range res.Paths {
		require.Len(t, path, 5)
		assert.Equal(t, 1_000.0, path[0])
		assert.Equal(t, res.TerminalValues[i], path[4])
	}

	params.KeepPaths = false
	res, err = newTestProjector(2).Project(context.Background(), params)
	require.NoError(t, err)
	assert.Nil(t, res.Paths)
}

func TestProject_InvalidParams(t *testing.T) {
	tests := []struct {
		name   string
		params contracts.SimulationParams
	}{
		{"zero horizon", contracts.SimulationParams{InitialValue: 1, TimeHorizon: 0, Iterations: 1}},
		{"zero iterations", contracts.SimulationParams{InitialValue: 1, TimeHorizon: 1, Iterations: 0}},
		{"negative addition", contracts.SimulationParams{InitialValue: 1, TimeHorizon: 1, Iterations: 1, AnnualAddition: -1}},
		{"negative volatility", contracts.SimulationParams{InitialValue: 1, TimeHorizon: 1, Iterations: 1, Volatility: -0.1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestProjector(1).Project(context.Background(), tt.params)
			assert.Error(t, err)
		})
	}
}

func TestProject_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestProjector(2).Project(ctx, contracts.SimulationParams{
		InitialValue: 1, ExpectedReturn: 0.05, Volatility: 0.1,
		TimeHorizon: 1, Iterations: 100, Seed: seedOf(1),
	})
	assert.ErrorIs(t, err, context.Canceled)
}
