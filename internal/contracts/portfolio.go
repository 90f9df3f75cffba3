package contracts

import (
	"fmt"
	"math"
	"time"
)

// Technique selects the efficient frontier objective
type Technique string

const (
	TechniqueMaxSharpe       Technique = "max_sharpe"
	TechniqueMinVolatility   Technique = "min_volatility"
	TechniqueEfficientReturn Technique = "efficient_return"
)

// ParseTechnique maps a config string to a Technique.
// Unknown values are returned as-is so the solver can reject them explicitly.
func ParseTechnique(s string) Technique {
	switch s {
	case "max sharpe", "max-sharpe":
		return TechniqueMaxSharpe
	case "min volatility", "min-volatility":
		return TechniqueMinVolatility
	}
	return Technique(s)
}

// PortfolioSpec is the immutable input of a run
// ⭐ SSOT: constructed once per run and never mutated
type PortfolioSpec struct {
	assets  []string
	weights []float64
	budget  float64
	start   time.Time
	end     time.Time
}

// NewPortfolioSpec validates and copies its inputs
func NewPortfolioSpec(assets []string, weights []float64, budget float64, start, end time.Time) (PortfolioSpec, error) {
	if len(assets) == 0 {
		return PortfolioSpec{}, fmt.Errorf("portfolio spec: at least one asset is required")
	}
	if len(weights) != len(assets) {
		return PortfolioSpec{}, fmt.Errorf("portfolio spec: %d weights for %d assets", len(weights), len(assets))
	}

	seen := make(map[string]bool, len(assets))
	for i, a := range assets {
		if a == "" {
			return PortfolioSpec{}, fmt.Errorf("portfolio spec: empty asset identifier at %d", i)
		}
		if seen[a] {
			return PortfolioSpec{}, fmt.Errorf("portfolio spec: duplicate asset %s", a)
		}
		seen[a] = true
		if weights[i] < 0 || math.IsNaN(weights[i]) {
			return PortfolioSpec{}, fmt.Errorf("portfolio spec: weight for %s must be >= 0", a)
		}
	}

	if !(budget > 0) || math.IsInf(budget, 0) {
		return PortfolioSpec{}, fmt.Errorf("portfolio spec: budget must be > 0")
	}
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		return PortfolioSpec{}, fmt.Errorf("portfolio spec: window end must be after start")
	}

	return PortfolioSpec{
		assets:  append([]string(nil), assets...),
		weights: append([]float64(nil), weights...),
		budget:  budget,
		start:   start,
		end:     end,
	}, nil
}

// EqualWeightSpec builds a spec with 1/n initial weights
func EqualWeightSpec(assets []string, budget float64, start, end time.Time) (PortfolioSpec, error) {
	weights := make([]float64, len(assets))
	for i := range weights {
		weights[i] = 1 / float64(len(assets))
	}
	return NewPortfolioSpec(assets, weights, budget, start, end)
}

// Assets returns a copy of the asset identifiers in input order
func (p PortfolioSpec) Assets() []string { return append([]string(nil), p.assets...) }

// Weights returns a copy of the initial weights. They are only validated;
// the optimiser never reads them and starts from its own feasible point.
func (p PortfolioSpec) Weights() []float64 { return append([]float64(nil), p.weights...) }

func (p PortfolioSpec) Budget() float64 { return p.budget }
func (p PortfolioSpec) Start() time.Time { return p.start }
func (p PortfolioSpec) End() time.Time   { return p.end }

// ReturnStats holds annualised estimates indexed by Assets
// ⭐ SSOT: S1 → S2
type ReturnStats struct {
	Assets          []string    `json:"assets"`
	ExpectedReturns []float64   `json:"expected_returns"`
	Covariance      [][]float64 `json:"covariance"`
	PeriodsPerYear  int         `json:"periods_per_year"`
	Observations    int         `json:"observations"`

	// Side channel for diagonal regularisation
	Regularized           bool    `json:"regularized"`
	RegularizationEpsilon float64 `json:"regularization_epsilon,omitempty"`
}

// OptimizationResult is the cleaned efficient frontier solution
// ⭐ SSOT: S2 → S3/S4, performance is always evaluated at the cleaned weights
type OptimizationResult struct {
	Technique      Technique          `json:"technique"`
	Assets         []string           `json:"assets"`
	Weights        map[string]float64 `json:"weights"`
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	SharpeRatio    float64            `json:"sharpe_ratio"`
	RiskFreeRate   float64            `json:"risk_free_rate"`
	Iterations     int                `json:"iterations"`
}

// WeightVector returns the weights in asset order
func (r *OptimizationResult) WeightVector() []float64 {
	w := make([]float64, len(r.Assets))
	for i, a := range r.Assets {
		w[i] = r.Weights[a]
	}
	return w
}

// TotalWeight returns the sum of all weights
func (r *OptimizationResult) TotalWeight() float64 {
	total := 0.0
	for _, w := range r.Weights {
		total += w
	}
	return total
}

// AllocationResult is the whole-share allocation
// ⭐ SSOT: S3 → S4/S5
type AllocationResult struct {
	Assets   []string                        `json:"assets"`
	Shares   map[string]int                  `json:"shares"`
	Prices   map[string]float64              `json:"prices"`
	Budget   float64                         `json:"budget"`
	Invested float64                         `json:"invested"`
	Leftover float64                         `json:"leftover"`
	Skipped  []AllocationSkippedAssetWarning `json:"skipped"`
}

// IsSkipped reports whether symbol was left out of the allocation
func (r *AllocationResult) IsSkipped(symbol string) bool {
	for _, s := range r.Skipped {
		if s.Symbol == symbol {
			return true
		}
	}
	return false
}

// Value returns qty × price for one asset
func (r *AllocationResult) Value(symbol string) float64 {
	return float64(r.Shares[symbol]) * r.Prices[symbol]
}

// FrontierPoint is one portfolio on the efficient frontier
type FrontierPoint struct {
	TargetReturn float64            `json:"target_return"`
	Volatility   float64            `json:"volatility"`
	SharpeRatio  float64            `json:"sharpe_ratio"`
	Weights      map[string]float64 `json:"weights"`
}
