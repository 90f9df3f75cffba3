package estimator

import (
	"fmt"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
)

// Config holds estimation settings
type Config struct {
	PeriodsPerYear int        `yaml:"periods_per_year"`
	ReturnType     ReturnType `yaml:"return_type"` // covariance only; expected returns are always simple
}

// DefaultConfig returns daily data settings
func DefaultConfig() Config {
	return Config{
		PeriodsPerYear: DefaultPeriodsPerYear,
		ReturnType:     ReturnTypeSimple,
	}
}

// Estimate runs both estimators over the same matrix
// ⭐ SSOT: S1, pure function of the price matrix
func Estimate(m *PriceMatrix, cfg Config) (*contracts.ReturnStats, error) {
	if cfg.ReturnType != "" && cfg.ReturnType != ReturnTypeSimple && cfg.ReturnType != ReturnTypeLog {
		return nil, fmt.Errorf("unknown return type %q", cfg.ReturnType)
	}

	mu, err := NewReturnsEstimator(cfg.PeriodsPerYear).Estimate(m)
	if err != nil {
		return nil, fmt.Errorf("expected returns: %w", err)
	}

	covEst := NewCovarianceEstimator(cfg.PeriodsPerYear, cfg.ReturnType)
	cov, err := covEst.Estimate(m)
	if err != nil {
		return nil, fmt.Errorf("covariance: %w", err)
	}

	return &contracts.ReturnStats{
		Assets:                m.Assets(),
		ExpectedReturns:       mu,
		Covariance:            ToRows(cov.Matrix),
		PeriodsPerYear:        covEst.PeriodsPerYear,
		Observations:          m.Observations(),
		Regularized:           cov.Regularized,
		RegularizationEpsilon: cov.Epsilon,
	}, nil
}
