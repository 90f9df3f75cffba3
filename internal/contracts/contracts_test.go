package contracts

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func TestPriceSeries_Validate(t *testing.T) {
	tests := []struct {
		name    string
		points  []PricePoint
		wantErr bool
	}{
		{"valid", []PricePoint{{day(0), 10}, {day(1), 11}}, false},
		{"single observation", []PricePoint{{day(0), 10}}, true},
		{"empty", nil, true},
		{"NaN gap", []PricePoint{{day(0), 10}, {day(1), math.NaN()}, {day(2), 12}}, true},
		{"zero price", []PricePoint{{day(0), 10}, {day(1), 0}}, true},
		{"duplicate date", []PricePoint{{day(0), 10}, {day(0), 11}}, true},
		{"out of order", []PricePoint{{day(1), 10}, {day(0), 11}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PriceSeries{Symbol: "AAA", Points: tt.points}.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInsufficientData)

			var ide *InsufficientDataError
			require.True(t, errors.As(err, &ide))
			assert.Equal(t, "AAA", ide.Symbol)
		})
	}
}

func TestPriceSeries_Latest(t *testing.T) {
	s := PriceSeries{Symbol: "AAA", Points: []PricePoint{{day(0), 10}, {day(1), 12.5}}}
	p, ok := s.Latest()
	assert.True(t, ok)
	assert.Equal(t, 12.5, p)

	_, ok = PriceSeries{}.Latest()
	assert.False(t, ok)
}

func TestNewPortfolioSpec(t *testing.T) {
	start, end := day(0), day(365)

	spec, err := NewPortfolioSpec([]string{"A", "B"}, []float64{0.5, 0.5}, 1000, start, end)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, spec.Assets())
	assert.Equal(t, 1000.0, spec.Budget())

	// accessors hand out copies
	assets := spec.Assets()
	assets[0] = "Z"
	assert.Equal(t, "A", spec.Assets()[0])

	invalid := []struct {
		name    string
		assets  []string
		weights []float64
		budget  float64
	}{
		{"no assets", nil, nil, 1000},
		{"length mismatch", []string{"A", "B"}, []float64{1}, 1000},
		{"duplicate", []string{"A", "A"}, []float64{0.5, 0.5}, 1000},
		{"negative weight", []string{"A", "B"}, []float64{-0.1, 1.1}, 1000},
		{"zero budget", []string{"A"}, []float64{1}, 0},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPortfolioSpec(tt.assets, tt.weights, tt.budget, start, end)
			assert.Error(t, err)
		})
	}
}

func TestEqualWeightSpec(t *testing.T) {
	spec, err := EqualWeightSpec([]string{"A", "B", "C", "D"}, 100000, day(0), day(10))
	require.NoError(t, err)
	for _, w := range spec.Weights() {
		assert.InDelta(t, 0.25, w, 1e-12)
	}
}

func TestInfeasibleOptimizationError_Unwrap(t *testing.T) {
	err := &InfeasibleOptimizationError{
		Technique: "max sharpe",
		Reason:    "unknown technique",
		Err:       ErrUnsupportedTechnique,
	}

	assert.ErrorIs(t, err, ErrInfeasibleOptimization)
	assert.ErrorIs(t, err, ErrUnsupportedTechnique)
	assert.NotErrorIs(t, err, ErrSolverTimeout)
	assert.Contains(t, err.Error(), "max sharpe")
}

func TestParseTechnique(t *testing.T) {
	assert.Equal(t, TechniqueMaxSharpe, ParseTechnique("max sharpe"))
	assert.Equal(t, TechniqueMinVolatility, ParseTechnique("min_volatility"))
	assert.Equal(t, Technique("bogus"), ParseTechnique("bogus"))
}

func TestSimulationParams_Validate(t *testing.T) {
	ok := SimulationParams{InitialValue: 1000, TimeHorizon: 5, Iterations: 10}
	assert.NoError(t, ok.Validate())
	assert.Equal(t, 1000.0, ok.Contributed())

	bad := ok
	bad.TimeHorizon = 0
	assert.Error(t, bad.Validate())

	bad = ok
	bad.AnnualAddition = -5
	assert.Error(t, bad.Validate())

	withAddition := ok
	withAddition.AnnualAddition = 100
	assert.Equal(t, 1500.0, withAddition.Contributed())
}

func TestAllStagesOrder(t *testing.T) {
	stages := AllStages()
	require.Len(t, stages, 6)
	assert.Equal(t, StageData, stages[0])
	assert.Equal(t, StageExecute, stages[len(stages)-1])
}
