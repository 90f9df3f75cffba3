package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/allocation"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/estimator"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/frontier"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/risk"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

// Config defines how a run is constructed
type Config struct {
	Technique  contracts.Technique
	Estimator  estimator.Config
	Simulation SimulationConfig

	// AlignDates drops dates that are missing from any series instead of
	// failing on the gap
	AlignDates bool
}

// SimulationConfig holds the projection settings that are not derived from
// the optimisation result
type SimulationConfig struct {
	TimeHorizon    int
	AnnualAddition float64
	Iterations     int
	Seed           *uint64
	Workers        int
	FloorAtZero    bool
}

// DefaultConfig returns default run configuration
func DefaultConfig() Config {
	return Config{
		Technique: contracts.TechniqueMaxSharpe,
		Estimator: estimator.DefaultConfig(),
		Simulation: SimulationConfig{
			TimeHorizon: 5,
			Iterations:  300,
		},
	}
}

// Constructor runs S0 → S4 for one portfolio spec
// ⭐ SSOT: stage ordering and the single weight vector hand-off live here
type Constructor struct {
	config    Config
	solver    *frontier.Solver
	allocator *allocation.Allocator
	projector *risk.Projector
	logger    *logger.Logger
}

// RunResult holds every artefact of a run
type RunResult struct {
	RunID           string                        `json:"run_id"`
	CreatedAt       time.Time                     `json:"created_at"`
	Assets          []string                      `json:"assets"`
	Budget          float64                       `json:"budget"`
	Technique       contracts.Technique           `json:"technique"`
	Stats           *contracts.ReturnStats        `json:"stats,omitempty"`
	Optimization    *contracts.OptimizationResult `json:"optimization,omitempty"`
	Allocation      *contracts.AllocationResult   `json:"allocation,omitempty"`
	Simulation      *contracts.SimulationResult   `json:"simulation,omitempty"`
	CompletedStages []contracts.Stage             `json:"completed_stages"`
	Duration        time.Duration                 `json:"duration"`
}

// NewConstructor creates a new run constructor
func NewConstructor(
	config Config,
	solver *frontier.Solver,
	allocator *allocation.Allocator,
	projector *risk.Projector,
	log *logger.Logger,
) *Constructor {
	if config.Technique == "" {
		config.Technique = contracts.TechniqueMaxSharpe
	}
	return &Constructor{
		config:    config,
		solver:    solver,
		allocator: allocator,
		projector: projector,
		logger:    log.WithField("module", "portfolio"),
	}
}

// Construct runs the core stages in order. The allocation is computed from
// the same cleaned weights the reported performance was evaluated at, and the
// projection starts from the invested value. On failure the partial result
// is returned together with the error.
func (c *Constructor) Construct(ctx context.Context, spec contracts.PortfolioSpec, series []contracts.PriceSeries) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{
		RunID:           GenerateRunID(),
		CreatedAt:       start,
		Assets:          spec.Assets(),
		Budget:          spec.Budget(),
		Technique:       c.config.Technique,
		CompletedStages: make([]contracts.Stage, 0, len(contracts.AllStages())),
	}

	c.logger.WithFields(map[string]interface{}{
		"run_id":    result.RunID,
		"assets":    len(result.Assets),
		"budget":    result.Budget,
		"technique": result.Technique,
	}).Info("Starting portfolio run")

	// S0: price matrix
	matrix, err := c.buildMatrix(spec, series)
	if err != nil {
		return result, stageError(contracts.StageData, err)
	}
	result.CompletedStages = append(result.CompletedStages, contracts.StageData)

	// S1: estimation
	stats, err := estimator.Estimate(matrix, c.config.Estimator)
	if err != nil {
		return result, stageError(contracts.StageEstimate, err)
	}
	result.Stats = stats
	result.CompletedStages = append(result.CompletedStages, contracts.StageEstimate)

	// S2: optimisation
	opt, err := c.solver.Optimize(ctx, stats, c.config.Technique)
	if err != nil {
		return result, stageError(contracts.StageOptimize, err)
	}
	result.Optimization = opt
	result.CompletedStages = append(result.CompletedStages, contracts.StageOptimize)

	// S3: allocation at the last prices inside the window
	alloc, err := c.allocator.AllocateResult(opt, matrix.LatestPrices(), spec.Budget())
	if err != nil {
		return result, stageError(contracts.StageAllocate, err)
	}
	result.Allocation = alloc
	result.CompletedStages = append(result.CompletedStages, contracts.StageAllocate)

	// S4: projection
	sim, err := c.projector.Project(ctx, c.simulationParams(opt, alloc))
	if err != nil {
		return result, stageError(contracts.StageProject, err)
	}
	result.Simulation = sim
	result.CompletedStages = append(result.CompletedStages, contracts.StageProject)

	result.Duration = time.Since(start)

	c.logger.WithFields(map[string]interface{}{
		"run_id":          result.RunID,
		"expected_return": opt.ExpectedReturn,
		"volatility":      opt.Volatility,
		"sharpe":          opt.SharpeRatio,
		"invested":        alloc.Invested,
		"leftover":        alloc.Leftover,
		"skipped":         len(alloc.Skipped),
		"duration_ms":     result.Duration.Milliseconds(),
	}).Info("Portfolio run completed")

	return result, nil
}

// Optimize runs S0 → S2 only
func (c *Constructor) Optimize(ctx context.Context, spec contracts.PortfolioSpec, series []contracts.PriceSeries) (*contracts.ReturnStats, *contracts.OptimizationResult, error) {
	matrix, err := c.buildMatrix(spec, series)
	if err != nil {
		return nil, nil, stageError(contracts.StageData, err)
	}
	stats, err := estimator.Estimate(matrix, c.config.Estimator)
	if err != nil {
		return nil, nil, stageError(contracts.StageEstimate, err)
	}
	opt, err := c.solver.Optimize(ctx, stats, c.config.Technique)
	if err != nil {
		return stats, nil, stageError(contracts.StageOptimize, err)
	}
	return stats, opt, nil
}

// Frontier traces the efficient frontier for the spec's assets
func (c *Constructor) Frontier(ctx context.Context, spec contracts.PortfolioSpec, series []contracts.PriceSeries, points int) ([]contracts.FrontierPoint, error) {
	matrix, err := c.buildMatrix(spec, series)
	if err != nil {
		return nil, stageError(contracts.StageData, err)
	}
	stats, err := estimator.Estimate(matrix, c.config.Estimator)
	if err != nil {
		return nil, stageError(contracts.StageEstimate, err)
	}
	return c.solver.Frontier(ctx, stats, points)
}

// Simulate runs S4 on its own
func (c *Constructor) Simulate(ctx context.Context, params contracts.SimulationParams) (*contracts.SimulationResult, error) {
	sim, err := c.projector.Project(ctx, params)
	if err != nil {
		return nil, stageError(contracts.StageProject, err)
	}
	return sim, nil
}

func (c *Constructor) simulationParams(opt *contracts.OptimizationResult, alloc *contracts.AllocationResult) contracts.SimulationParams {
	sc := c.config.Simulation
	return contracts.SimulationParams{
		InitialValue:   alloc.Invested,
		ExpectedReturn: opt.ExpectedReturn,
		Volatility:     opt.Volatility,
		TimeHorizon:    sc.TimeHorizon,
		AnnualAddition: sc.AnnualAddition,
		Iterations:     sc.Iterations,
		Seed:           sc.Seed,
		Workers:        sc.Workers,
		FloorAtZero:    sc.FloorAtZero,
	}
}

// buildMatrix orders the series by the spec's assets and trims them to the
// spec's window
func (c *Constructor) buildMatrix(spec contracts.PortfolioSpec, series []contracts.PriceSeries) (*estimator.PriceMatrix, error) {
	bySymbol := make(map[string]contracts.PriceSeries, len(series))
	for _, s := range series {
		bySymbol[s.Symbol] = s
	}

	ordered := make([]contracts.PriceSeries, 0, len(series))
	for _, asset := range spec.Assets() {
		s, ok := bySymbol[asset]
		if !ok {
			return nil, &contracts.InsufficientDataError{
				Symbol: asset,
				Reason: "no price history",
			}
		}
		ordered = append(ordered, window(s, spec.Start(), spec.End()))
	}

	if c.config.AlignDates {
		ordered = estimator.AlignSeries(ordered)
	}
	return estimator.NewPriceMatrix(ordered)
}

// window keeps the points inside [start, end]; zero bounds are open
func window(s contracts.PriceSeries, start, end time.Time) contracts.PriceSeries {
	if start.IsZero() && end.IsZero() {
		return s
	}
	points := make([]contracts.PricePoint, 0, len(s.Points))
	for _, p := range s.Points {
		if !start.IsZero() && p.Date.Before(start) {
			continue
		}
		if !end.IsZero() && p.Date.After(end) {
			continue
		}
		points = append(points, p)
	}
	return contracts.PriceSeries{Symbol: s.Symbol, Points: points}
}

func stageError(stage contracts.Stage, err error) error {
	return fmt.Errorf("%s failed: %w", stage, err)
}

// GenerateRunID generates a unique run ID
func GenerateRunID() string {
	return fmt.Sprintf("run_%s_%s", time.Now().Format("20060102_150405"), uuid.NewString()[:8])
}
