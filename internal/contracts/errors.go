package contracts

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks.
// The typed errors below unwrap to these.
var (
	ErrInsufficientData       = errors.New("insufficient price data")
	ErrSingularCovariance     = errors.New("singular covariance matrix")
	ErrInfeasibleOptimization = errors.New("infeasible optimization")

	// Wrapped inside InfeasibleOptimizationError
	ErrUnsupportedTechnique = errors.New("unsupported optimisation technique")
	ErrSolverTimeout        = errors.New("solver did not converge in time")
)

// InsufficientDataError is returned when a series is too short or has gaps
type InsufficientDataError struct {
	Symbol       string `json:"symbol,omitempty"`
	Observations int    `json:"observations"`
	Reason       string `json:"reason"`
}

func (e *InsufficientDataError) Error() string {
	if e.Symbol == "" {
		return fmt.Sprintf("%v: %s", ErrInsufficientData, e.Reason)
	}
	return fmt.Sprintf("%v: %s: %s (%d observations)", ErrInsufficientData, e.Symbol, e.Reason, e.Observations)
}

func (e *InsufficientDataError) Unwrap() error {
	return ErrInsufficientData
}

// SingularCovarianceError is returned when regularisation cannot restore
// positive semi-definiteness
type SingularCovarianceError struct {
	Assets        int     `json:"assets"`
	Observations  int     `json:"observations"`
	MinEigenvalue float64 `json:"min_eigenvalue"`
	Epsilon       float64 `json:"epsilon"`
}

func (e *SingularCovarianceError) Error() string {
	return fmt.Sprintf("%v: %d assets, %d return observations, min eigenvalue %.3g after eps=%.3g",
		ErrSingularCovariance, e.Assets, e.Observations, e.MinEigenvalue, e.Epsilon)
}

func (e *SingularCovarianceError) Unwrap() error {
	return ErrSingularCovariance
}

// InfeasibleOptimizationError covers constraint infeasibility, solver
// timeout and unsupported techniques. Err carries the specific cause.
type InfeasibleOptimizationError struct {
	Technique Technique `json:"technique"`
	Reason    string    `json:"reason"`
	Err       error     `json:"-"`
}

func (e *InfeasibleOptimizationError) Error() string {
	msg := fmt.Sprintf("%v (%s): %s", ErrInfeasibleOptimization, e.Technique, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the category sentinel and the cause
func (e *InfeasibleOptimizationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInfeasibleOptimization}
	}
	return []error{ErrInfeasibleOptimization, e.Err}
}

// AllocationSkippedAssetWarning records an asset left out of the discrete
// allocation. It is carried in AllocationResult, never returned as a failure.
type AllocationSkippedAssetWarning struct {
	Symbol string  `json:"symbol"`
	Weight float64 `json:"weight"`
	Reason string  `json:"reason"`
}

func (w AllocationSkippedAssetWarning) Error() string {
	return fmt.Sprintf("allocation skipped %s (weight %.4f): %s", w.Symbol, w.Weight, w.Reason)
}
