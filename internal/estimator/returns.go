package estimator

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
)

// DefaultPeriodsPerYear is the number of trading days used for annualisation
const DefaultPeriodsPerYear = 252

// ReturnType selects how per-period returns are computed
type ReturnType string

const (
	ReturnTypeSimple ReturnType = "simple" // p_t / p_{t-1} - 1
	ReturnTypeLog    ReturnType = "log"    // ln(p_t / p_{t-1})
)

// PeriodReturns returns the (observations-1) × assets matrix of per-period returns
func PeriodReturns(m *PriceMatrix, rt ReturnType) *mat.Dense {
	rows, cols := m.Observations()-1, m.NumAssets()
	out := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			ratio := m.At(i+1, j) / m.At(i, j)
			if rt == ReturnTypeLog {
				out.Set(i, j, math.Log(ratio))
			} else {
				out.Set(i, j, ratio-1)
			}
		}
	}
	return out
}

// ReturnsEstimator derives annualised mean historical returns
type ReturnsEstimator struct {
	PeriodsPerYear int
}

// NewReturnsEstimator creates an estimator; periodsPerYear <= 0 falls back to 252
func NewReturnsEstimator(periodsPerYear int) *ReturnsEstimator {
	if periodsPerYear <= 0 {
		periodsPerYear = DefaultPeriodsPerYear
	}
	return &ReturnsEstimator{PeriodsPerYear: periodsPerYear}
}

// Estimate returns mean simple return per period × periods per year, per asset
func (e *ReturnsEstimator) Estimate(m *PriceMatrix) ([]float64, error) {
	if err := checkObservations(m, contracts.MinObservations); err != nil {
		return nil, err
	}

	returns := PeriodReturns(m, ReturnTypeSimple)
	rows, cols := returns.Dims()
	mu := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, returns)
		mu[j] = stat.Mean(col, nil) * float64(e.PeriodsPerYear)
	}
	return mu, nil
}

func checkObservations(m *PriceMatrix, min int) error {
	if m == nil {
		return &contracts.InsufficientDataError{Reason: "no price matrix"}
	}
	if n := m.Observations(); n < min {
		return &contracts.InsufficientDataError{
			Observations: n,
			Reason:       "too few price observations",
		}
	}
	return nil
}
