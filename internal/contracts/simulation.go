package contracts

import "fmt"

// SimulationParams drives the Monte Carlo projection
type SimulationParams struct {
	InitialValue   float64 `json:"initial_value"`
	ExpectedReturn float64 `json:"expected_return"`
	Volatility     float64 `json:"volatility"`
	TimeHorizon    int     `json:"time_horizon"`    // years, >= 1
	AnnualAddition float64 `json:"annual_addition"` // added after each step, >= 0
	Iterations     int     `json:"iterations"`      // >= 1

	// Seed makes the run reproducible; nil draws one from the clock
	Seed *uint64 `json:"seed,omitempty"`

	Workers     int  `json:"workers,omitempty"`
	KeepPaths   bool `json:"keep_paths,omitempty"`
	FloorAtZero bool `json:"floor_at_zero,omitempty"`
}

// Validate checks parameter ranges
func (p SimulationParams) Validate() error {
	if p.TimeHorizon < 1 {
		return fmt.Errorf("time_horizon must be >= 1, got %d", p.TimeHorizon)
	}
	if p.Iterations < 1 {
		return fmt.Errorf("iterations must be >= 1, got %d", p.Iterations)
	}
	if p.AnnualAddition < 0 {
		return fmt.Errorf("annual_addition must be >= 0, got %v", p.AnnualAddition)
	}
	if p.Volatility < 0 {
		return fmt.Errorf("volatility must be >= 0, got %v", p.Volatility)
	}
	return nil
}

// Contributed is the total capital put in over the horizon
func (p SimulationParams) Contributed() float64 {
	return p.InitialValue + p.AnnualAddition*float64(p.TimeHorizon)
}

// SimulationSummary describes the terminal value distribution
type SimulationSummary struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
	Min    float64 `json:"min"`
	P25    float64 `json:"p25"`
	P50    float64 `json:"p50"`
	P75    float64 `json:"p75"`
	Max    float64 `json:"max"`
}

// SimulationResult is the Monte Carlo output
// ⭐ SSOT: S4 output, terminal values are in trial order
type SimulationResult struct {
	RunID          string            `json:"run_id"`
	Params         SimulationParams  `json:"params"`
	Seed           uint64            `json:"seed"`
	TerminalValues []float64         `json:"terminal_values"`
	Paths          [][]float64       `json:"paths,omitempty"`
	Summary        SimulationSummary `json:"summary"`

	ProbabilityOfLoss float64 `json:"probability_of_loss"`
	ValueAtRisk95     float64 `json:"value_at_risk_95"`
}
