package strategyconfig

import (
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/estimator"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/execution"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/frontier"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/portfolio"
)

// Spec builds the immutable run input; missing weights are equal
func (c *Config) Spec() (contracts.PortfolioSpec, error) {
	start, err := parseDate(c.Portfolio.Start)
	if err != nil {
		return contracts.PortfolioSpec{}, ValidationError{"portfolio.start", err.Error()}
	}
	end, err := parseDate(c.Portfolio.End)
	if err != nil {
		return contracts.PortfolioSpec{}, ValidationError{"portfolio.end", err.Error()}
	}

	if len(c.Portfolio.Weights) == 0 {
		return contracts.EqualWeightSpec(c.Portfolio.Assets, c.Portfolio.Budget, start, end)
	}
	return contracts.NewPortfolioSpec(c.Portfolio.Assets, c.Portfolio.Weights, c.Portfolio.Budget, start, end)
}

// RunConfig applies the definition's overrides to base
func (c *Config) RunConfig(base portfolio.Config) portfolio.Config {
	o, s := c.Optimizer, c.Simulation

	if o.Technique != "" {
		base.Technique = contracts.ParseTechnique(o.Technique)
	}
	if o.PeriodsPerYear > 0 {
		base.Estimator.PeriodsPerYear = o.PeriodsPerYear
	}
	if o.ReturnType != "" {
		base.Estimator.ReturnType = estimator.ReturnType(o.ReturnType)
	}
	if s.TimeHorizon > 0 {
		base.Simulation.TimeHorizon = s.TimeHorizon
	}
	if s.AnnualAddition != nil {
		base.Simulation.AnnualAddition = *s.AnnualAddition
	}
	if s.Iterations > 0 {
		base.Simulation.Iterations = s.Iterations
	}
	if s.Seed != nil {
		seed := *s.Seed
		base.Simulation.Seed = &seed
	}
	if s.Workers > 0 {
		base.Simulation.Workers = s.Workers
	}
	base.Simulation.FloorAtZero = base.Simulation.FloorAtZero || s.FloorAtZero
	base.AlignDates = base.AlignDates || c.Portfolio.AlignDates

	return base
}

// SolverConfig applies the optimizer overrides to base
func (c *Config) SolverConfig(base frontier.Config) frontier.Config {
	o := c.Optimizer
	if o.RiskFreeRate != nil {
		base.RiskFreeRate = *o.RiskFreeRate
	}
	if o.TargetReturn != nil {
		base.TargetReturn = *o.TargetReturn
	}
	if o.WeightCutoff != nil {
		base.WeightCutoff = *o.WeightCutoff
	}
	return base
}

// ExecutionConfig applies the execution settings to base
func (c *Config) ExecutionConfig(base execution.ExecutionConfig) execution.ExecutionConfig {
	base.RequireOpenMarket = base.RequireOpenMarket || c.Execution.RequireOpenMarket
	return base
}
