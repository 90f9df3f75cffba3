package estimator

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
)

const (
	// Eigenvalues at or below singularTol × scale count as singular
	singularTol = 1e-10

	// Regularisation grid, relative to the mean diagonal
	minRegularization = 1e-6
	maxRegularization = 1e-4
)

// CovarianceEstimate is the annualised sample covariance plus the
// regularisation side channel
type CovarianceEstimate struct {
	Matrix        *mat.SymDense
	Regularized   bool
	Epsilon       float64
	MinEigenvalue float64 // before regularisation
}

// CovarianceEstimator derives an annualised, positive definite covariance
type CovarianceEstimator struct {
	PeriodsPerYear int
	ReturnType     ReturnType
}

// NewCovarianceEstimator creates an estimator; periodsPerYear <= 0 falls back to 252
func NewCovarianceEstimator(periodsPerYear int, rt ReturnType) *CovarianceEstimator {
	if periodsPerYear <= 0 {
		periodsPerYear = DefaultPeriodsPerYear
	}
	if rt == "" {
		rt = ReturnTypeSimple
	}
	return &CovarianceEstimator{PeriodsPerYear: periodsPerYear, ReturnType: rt}
}

// Estimate computes the n-1 sample covariance of per-period returns × periods
// per year. A matrix that is not numerically positive definite gets the
// smallest ε·I on the grid that fixes it; SingularCovarianceError is returned
// when no grid value does or when there are too few returns to identify it.
func (e *CovarianceEstimator) Estimate(m *PriceMatrix) (*CovarianceEstimate, error) {
	// two returns are the minimum for an n-1 sample covariance
	if err := checkObservations(m, contracts.MinObservations+1); err != nil {
		return nil, err
	}

	returns := PeriodReturns(m, e.ReturnType)
	obs, n := returns.Dims()

	cov := mat.NewSymDense(n, nil)
	stat.CovarianceMatrix(cov, returns, nil)
	cov.ScaleSym(float64(e.PeriodsPerYear), cov)

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if v := cov.At(i, j); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &contracts.InsufficientDataError{
					Observations: m.Observations(),
					Reason:       "covariance is not finite",
				}
			}
		}
	}

	scale := meanDiagonal(cov)
	lambda, err := minEigenvalue(cov)
	if err != nil {
		return nil, &contracts.SingularCovarianceError{Assets: n, Observations: obs, MinEigenvalue: math.NaN()}
	}

	est := &CovarianceEstimate{Matrix: cov, MinEigenvalue: lambda}
	if lambda > singularTol*scale {
		return est, nil
	}

	// Rank is at most obs-1, so no ε can add information that was never observed
	if obs-1 < n {
		return nil, &contracts.SingularCovarianceError{Assets: n, Observations: obs, MinEigenvalue: lambda}
	}

	eps := minRegularization * scale
	limit := maxRegularization * scale * (1 + 1e-9)
	for ; eps <= limit; eps *= 10 {
		if lambda+eps > singularTol*scale {
			break
		}
	}
	if eps > limit {
		return nil, &contracts.SingularCovarianceError{Assets: n, Observations: obs, MinEigenvalue: lambda, Epsilon: eps / 10}
	}

	reg := mat.NewSymDense(n, nil)
	reg.CopySym(cov)
	for i := 0; i < n; i++ {
		reg.SetSym(i, i, reg.At(i, i)+eps)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(reg); !ok {
		return nil, &contracts.SingularCovarianceError{Assets: n, Observations: obs, MinEigenvalue: lambda, Epsilon: eps}
	}

	est.Matrix = reg
	est.Regularized = true
	est.Epsilon = eps
	return est, nil
}

func meanDiagonal(s *mat.SymDense) float64 {
	n := s.SymmetricDim()
	total := 0.0
	for i := 0; i < n; i++ {
		total += s.At(i, i)
	}
	if total <= 0 {
		return 1
	}
	return total / float64(n)
}

func minEigenvalue(s *mat.SymDense) (float64, error) {
	var eig mat.EigenSym
	if ok := eig.Factorize(s, false); !ok {
		return 0, errEigenFailed
	}
	values := eig.Values(nil)
	lowest := values[0]
	for _, v := range values[1:] {
		if v < lowest {
			lowest = v
		}
	}
	return lowest, nil
}

var errEigenFailed = errors.New("eigen decomposition did not converge")

// ToRows converts a symmetric matrix to row slices
func ToRows(s mat.Symmetric) [][]float64 {
	n := s.SymmetricDim()
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = make([]float64, n)
		for j := 0; j < n; j++ {
			rows[i][j] = s.At(i, j)
		}
	}
	return rows
}

// FromRows converts row slices into a symmetric matrix, averaging any
// asymmetry between [i][j] and [j][i]
func FromRows(rows [][]float64) *mat.SymDense {
	n := len(rows)
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			s.SetSym(i, j, (rows[i][j]+rows[j][i])/2)
		}
	}
	return s
}
