package strategyconfig

import (
	"fmt"
	"math"
	"time"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
)

// DateLayout is the window date format
const DateLayout = "2006-01-02"

// ValidationError is a definition that cannot be run
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning flags a legal but risky setting
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.PortfolioID == "" {
		return ValidationError{"meta.portfolio_id", "required"}
	}

	// === Portfolio ===
	p := cfg.Portfolio
	if len(p.Assets) == 0 {
		return ValidationError{"portfolio.assets", "at least one asset is required"}
	}
	seen := make(map[string]bool, len(p.Assets))
	for i, a := range p.Assets {
		if a == "" {
			return ValidationError{fmt.Sprintf("portfolio.assets[%d]", i), "must not be empty"}
		}
		if seen[a] {
			return ValidationError{fmt.Sprintf("portfolio.assets[%d]", i), "duplicate asset " + a}
		}
		seen[a] = true
	}
	if len(p.Weights) > 0 {
		if len(p.Weights) != len(p.Assets) {
			return ValidationError{"portfolio.weights", fmt.Sprintf("%d weights for %d assets", len(p.Weights), len(p.Assets))}
		}
		for i, w := range p.Weights {
			if w < 0 || math.IsNaN(w) {
				return ValidationError{fmt.Sprintf("portfolio.weights[%d]", i), "must be >= 0"}
			}
		}
	}
	if !(p.Budget > 0) || math.IsInf(p.Budget, 0) {
		return ValidationError{"portfolio.budget", "must be > 0"}
	}

	start, err := parseDate(p.Start)
	if err != nil {
		return ValidationError{"portfolio.start", err.Error()}
	}
	end, err := parseDate(p.End)
	if err != nil {
		return ValidationError{"portfolio.end", err.Error()}
	}
	if !start.IsZero() && !end.IsZero() && !end.After(start) {
		return ValidationError{"portfolio", "end must be after start"}
	}

	// === Optimizer ===
	o := cfg.Optimizer
	if o.Technique != "" {
		switch contracts.ParseTechnique(o.Technique) {
		case contracts.TechniqueMaxSharpe, contracts.TechniqueMinVolatility:
		case contracts.TechniqueEfficientReturn:
			if o.TargetReturn == nil {
				return ValidationError{"optimizer.target_return", "required for efficient_return"}
			}
		default:
			return ValidationError{"optimizer.technique", fmt.Sprintf("unsupported technique %q", o.Technique)}
		}
	}
	if o.WeightCutoff != nil && (*o.WeightCutoff < 0 || *o.WeightCutoff >= 1) {
		return ValidationError{"optimizer.weight_cutoff", "must be in [0, 1)"}
	}
	if o.PeriodsPerYear < 0 {
		return ValidationError{"optimizer.periods_per_year", "must be > 0"}
	}
	switch o.ReturnType {
	case "", "simple", "log":
	default:
		return ValidationError{"optimizer.return_type", "must be simple or log"}
	}

	// === Simulation ===
	s := cfg.Simulation
	if s.TimeHorizon < 0 {
		return ValidationError{"simulation.time_horizon", "must be >= 1"}
	}
	if s.Iterations < 0 {
		return ValidationError{"simulation.iterations", "must be >= 1"}
	}
	if s.AnnualAddition != nil && (*s.AnnualAddition < 0 || math.IsNaN(*s.AnnualAddition)) {
		return ValidationError{"simulation.annual_addition", "must be >= 0"}
	}
	if s.Workers < 0 {
		return ValidationError{"simulation.workers", "must be >= 0"}
	}

	return nil
}

// Warn returns non-fatal findings
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Execution.Enabled {
		warnings = append(warnings, Warning{
			Code:    "EXECUTION_ENABLED",
			Message: "orders will be submitted to the broker",
		})
	}
	if cfg.Simulation.Seed == nil {
		warnings = append(warnings, Warning{
			Code:    "NO_SEED",
			Message: "simulation.seed is not set; projections are not reproducible",
		})
	}
	if cfg.Portfolio.Start == "" {
		warnings = append(warnings, Warning{
			Code:    "OPEN_WINDOW",
			Message: "portfolio.start is not set; the full price history is used",
		})
	}

	return warnings
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be %s", DateLayout)
	}
	return t, nil
}
