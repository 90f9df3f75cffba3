package estimator

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
)

func series(symbol string, prices ...float64) contracts.PriceSeries {
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	points := make([]contracts.PricePoint, len(prices))
	for i, p := range prices {
		points[i] = contracts.PricePoint{Date: start.AddDate(0, 0, i), AdjClose: p}
	}
	return contracts.PriceSeries{Symbol: symbol, Points: points}
}

func mustMatrix(t *testing.T, s ...contracts.PriceSeries) *PriceMatrix {
	t.Helper()
	m, err := NewPriceMatrix(s)
	require.NoError(t, err)
	return m
}

func sampleCov(x, y []float64) float64 {
	mx, my := 0.0, 0.0
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= float64(len(x))
	my /= float64(len(y))
	total := 0.0
	for i := range x {
		total += (x[i] - mx) * (y[i] - my)
	}
	return total / float64(len(x)-1)
}

func TestNewPriceMatrix(t *testing.T) {
	m := mustMatrix(t, series("AAA", 10, 11, 12), series("BBB", 20, 19, 21))

	assert.Equal(t, []string{"AAA", "BBB"}, m.Assets())
	assert.Equal(t, 3, m.Observations())
	assert.Equal(t, 2, m.NumAssets())
	assert.Equal(t, map[string]float64{"AAA": 12, "BBB": 21}, m.LatestPrices())
}

func TestNewPriceMatrix_RejectsGaps(t *testing.T) {
	tests := []struct {
		name   string
		series []contracts.PriceSeries
	}{
		{"no series", nil},
		{"single observation", []contracts.PriceSeries{series("AAA", 10, 11), series("BBB", 20)}},
		{"missing value", []contracts.PriceSeries{series("AAA", 10, math.NaN(), 12)}},
		{"length mismatch", []contracts.PriceSeries{series("AAA", 10, 11, 12), series("BBB", 20, 21)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPriceMatrix(tt.series)
			require.Error(t, err)
			assert.ErrorIs(t, err, contracts.ErrInsufficientData)
		})
	}
}

func TestNewPriceMatrix_MisalignedDates(t *testing.T) {
	a := series("AAA", 10, 11, 12)
	b := series("BBB", 20, 21, 22)
	b.Points[1].Date = b.Points[1].Date.Add(12 * time.Hour)

	_, err := NewPriceMatrix([]contracts.PriceSeries{a, b})

	var ide *contracts.InsufficientDataError
	require.True(t, errors.As(err, &ide))
	assert.Equal(t, "BBB", ide.Symbol)
}

func TestAlignSeries(t *testing.T) {
	a := series("AAA", 10, 11, 12, 13)
	b := series("BBB", 20, 21, 22, 23)
	// drop BBB's second observation
	b.Points = append(b.Points[:1:1], b.Points[2:]...)

	aligned := AlignSeries([]contracts.PriceSeries{a, b})
	require.Len(t, aligned, 2)
	assert.Equal(t, 3, aligned[0].Len())
	assert.Equal(t, []float64{10, 12, 13}, []float64{
		aligned[0].Points[0].AdjClose, aligned[0].Points[1].AdjClose, aligned[0].Points[2].AdjClose,
	})

	m, err := NewPriceMatrix(aligned)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Observations())
}

func TestReturnsEstimator_Annualises(t *testing.T) {
	m := mustMatrix(t, series("AAA", 100, 110, 121), series("BBB", 50, 50, 50))

	mu, err := NewReturnsEstimator(252).Estimate(m)
	require.NoError(t, err)

	assert.InDelta(t, 0.1*252, mu[0], 1e-9)
	assert.InDelta(t, 0.0, mu[1], 1e-12)
}

func TestReturnsEstimator_CustomPeriods(t *testing.T) {
	m := mustMatrix(t, series("AAA", 100, 102, 99, 101))
	r := []float64{0.02, 99.0/102 - 1, 101.0/99 - 1}
	want := (r[0] + r[1] + r[2]) / 3 * 52

	mu, err := NewReturnsEstimator(52).Estimate(m)
	require.NoError(t, err)
	assert.InDelta(t, want, mu[0], 1e-12)
}

func TestReturnsEstimator_DefaultPeriods(t *testing.T) {
	assert.Equal(t, DefaultPeriodsPerYear, NewReturnsEstimator(0).PeriodsPerYear)
}

func TestCovarianceEstimator_SampleCovariance(t *testing.T) {
	a := []float64{100, 103, 101, 104, 108, 107}
	b := []float64{50, 49, 51, 52, 51, 53}
	m := mustMatrix(t, series("AAA", a...), series("BBB", b...))

	est, err := NewCovarianceEstimator(252, ReturnTypeSimple).Estimate(m)
	require.NoError(t, err)
	assert.False(t, est.Regularized)

	ra := make([]float64, len(a)-1)
	rb := make([]float64, len(b)-1)
	for i := range ra {
		ra[i] = a[i+1]/a[i] - 1
		rb[i] = b[i+1]/b[i] - 1
	}

	assert.InDelta(t, sampleCov(ra, ra)*252, est.Matrix.At(0, 0), 1e-12)
	assert.InDelta(t, sampleCov(rb, rb)*252, est.Matrix.At(1, 1), 1e-12)
	assert.InDelta(t, sampleCov(ra, rb)*252, est.Matrix.At(0, 1), 1e-12)
}

func TestCovarianceEstimator_Symmetric(t *testing.T) {
	m := mustMatrix(t,
		series("AAA", 10, 10.5, 10.2, 10.9, 11.4, 11.1, 11.6),
		series("BBB", 30, 29.1, 29.8, 30.7, 30.2, 31.5, 31.9),
		series("CCC", 5, 5.2, 5.1, 5.3, 5.6, 5.4, 5.5),
	)

	stats, err := Estimate(m, DefaultConfig())
	require.NoError(t, err)

	for i := range stats.Covariance {
		for j := range stats.Covariance {
			assert.Equal(t, stats.Covariance[i][j], stats.Covariance[j][i])
		}
	}
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, stats.Assets)
	assert.Equal(t, 7, stats.Observations)
}

func TestCovarianceEstimator_RegularisesDuplicateAssets(t *testing.T) {
	prices := []float64{10, 10.4, 10.1, 10.8, 11.2, 10.9, 11.5, 11.9}
	m := mustMatrix(t, series("AAA", prices...), series("COPY", prices...), series("BBB", 7, 7.1, 6.9, 7.3, 7.2, 7.4, 7.6, 7.5))

	est, err := NewCovarianceEstimator(252, ReturnTypeSimple).Estimate(m)
	require.NoError(t, err)

	assert.True(t, est.Regularized)
	assert.Greater(t, est.Epsilon, 0.0)
	assert.LessOrEqual(t, est.Epsilon, maxRegularization*meanDiagonal(est.Matrix)*1.01)

	var chol mat.Cholesky
	assert.True(t, chol.Factorize(est.Matrix))
}

func TestCovarianceEstimator_FewerObservationsThanAssets(t *testing.T) {
	m := mustMatrix(t,
		series("A", 10, 11, 10.5),
		series("B", 20, 21, 22),
		series("C", 5, 4.9, 5.2),
		series("D", 8, 8.4, 8.1),
	)

	_, err := NewCovarianceEstimator(252, ReturnTypeSimple).Estimate(m)
	require.Error(t, err)

	var sce *contracts.SingularCovarianceError
	require.True(t, errors.As(err, &sce))
	assert.Equal(t, 4, sce.Assets)
	assert.ErrorIs(t, err, contracts.ErrSingularCovariance)
}

func TestCovarianceEstimator_NeedsTwoReturns(t *testing.T) {
	m := mustMatrix(t, series("A", 10, 11))

	_, err := NewCovarianceEstimator(252, ReturnTypeSimple).Estimate(m)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}

func TestCovarianceEstimator_LogReturns(t *testing.T) {
	m := mustMatrix(t, series("A", 100, 110, 99, 105))

	est, err := NewCovarianceEstimator(1, ReturnTypeLog).Estimate(m)
	require.NoError(t, err)

	r := []float64{math.Log(1.1), math.Log(0.9), math.Log(105.0 / 99)}
	assert.InDelta(t, sampleCov(r, r), est.Matrix.At(0, 0), 1e-12)
}

func TestEstimate_SingleObservationFailsFirst(t *testing.T) {
	_, err := NewPriceMatrix([]contracts.PriceSeries{series("AAA", 10, 11, 12), series("ONE", 5)})
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}

func TestEstimate_RejectsUnknownReturnType(t *testing.T) {
	m := mustMatrix(t, series("A", 10, 11, 12))
	_, err := Estimate(m, Config{PeriodsPerYear: 252, ReturnType: "geometric"})
	assert.Error(t, err)
}

func TestRowsRoundTrip(t *testing.T) {
	rows := [][]float64{{1, 0.25}, {0.75, 2}}
	s := FromRows(rows)
	assert.Equal(t, 0.5, s.At(0, 1))
	assert.Equal(t, [][]float64{{1, 0.5}, {0.5, 2}}, ToRows(s))
}
