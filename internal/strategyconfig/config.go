package strategyconfig

// Config is one portfolio definition file
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Portfolio  Portfolio  `yaml:"portfolio" json:"portfolio"`
	Optimizer  Optimizer  `yaml:"optimizer" json:"optimizer"`
	Simulation Simulation `yaml:"simulation" json:"simulation"`
	Execution  Execution  `yaml:"execution" json:"execution"`
}

// Meta identifies the definition
type Meta struct {
	PortfolioID string `yaml:"portfolio_id" json:"portfolio_id"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Portfolio is the S0 input: what to hold, with how much, over which window
type Portfolio struct {
	Assets  []string  `yaml:"assets" json:"assets"`
	Weights []float64 `yaml:"weights,omitempty" json:"weights,omitempty"` // empty = equal weights
	Budget  float64   `yaml:"budget" json:"budget"`
	Start   string    `yaml:"start,omitempty" json:"start,omitempty"` // YYYY-MM-DD
	End     string    `yaml:"end,omitempty" json:"end,omitempty"`     // YYYY-MM-DD

	// AlignDates drops dates missing from any asset instead of failing
	AlignDates bool `yaml:"align_dates,omitempty" json:"align_dates,omitempty"`
}

// Optimizer overrides the environment's optimizer defaults.
// Pointer fields distinguish "unset" from an explicit zero.
type Optimizer struct {
	Technique      string   `yaml:"technique,omitempty" json:"technique,omitempty"`
	RiskFreeRate   *float64 `yaml:"risk_free_rate,omitempty" json:"risk_free_rate,omitempty"`
	TargetReturn   *float64 `yaml:"target_return,omitempty" json:"target_return,omitempty"`
	WeightCutoff   *float64 `yaml:"weight_cutoff,omitempty" json:"weight_cutoff,omitempty"`
	PeriodsPerYear int      `yaml:"periods_per_year,omitempty" json:"periods_per_year,omitempty"`
	ReturnType     string   `yaml:"return_type,omitempty" json:"return_type,omitempty"` // simple | log
}

// Simulation overrides the Monte Carlo defaults
type Simulation struct {
	TimeHorizon    int      `yaml:"time_horizon,omitempty" json:"time_horizon,omitempty"`
	AnnualAddition *float64 `yaml:"annual_addition,omitempty" json:"annual_addition,omitempty"`
	Iterations     int      `yaml:"iterations,omitempty" json:"iterations,omitempty"`
	Seed           *uint64  `yaml:"seed,omitempty" json:"seed,omitempty"`
	Workers        int      `yaml:"workers,omitempty" json:"workers,omitempty"`
	FloorAtZero    bool     `yaml:"floor_at_zero,omitempty" json:"floor_at_zero,omitempty"`
}

// Execution controls S5
type Execution struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	RequireOpenMarket bool `yaml:"require_open_market,omitempty" json:"require_open_market,omitempty"`
}
