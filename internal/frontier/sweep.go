package frontier

import (
	"context"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
)

// Frontier traces the efficient frontier from the minimum volatility
// portfolio up to the highest single-asset expected return.
func (s *Solver) Frontier(ctx context.Context, stats *contracts.ReturnStats, points int) ([]contracts.FrontierPoint, error) {
	if points < 2 {
		return nil, fmt.Errorf("frontier needs at least 2 points, got %d", points)
	}

	mu, cov, err := unpack(stats)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	minVol, err := s.minVolatility(ctx, cov)
	if err != nil {
		return nil, s.infeasible(contracts.TechniqueMinVolatility, err)
	}

	lo := floats.Dot(minVol.x, mu)
	hi := floats.Max(mu)
	if hi < lo {
		hi = lo
	}

	targets := make([]float64, points)
	floats.Span(targets, lo, hi)

	out := make([]contracts.FrontierPoint, 0, points)
	for _, target := range targets {
		sol, err := s.efficientReturn(ctx, mu, cov, target)
		if err != nil {
			return nil, s.infeasible(contracts.TechniqueEfficientReturn, err)
		}

		w, err := CleanWeights(sol.x, s.cfg.WeightCutoff)
		if err != nil {
			return nil, s.infeasible(contracts.TechniqueEfficientReturn, err)
		}
		perf := Evaluate(w, mu, cov, s.cfg.RiskFreeRate)

		weights := make(map[string]float64, len(w))
		for i, a := range stats.Assets {
			weights[a] = w[i]
		}
		out = append(out, contracts.FrontierPoint{
			TargetReturn: target,
			Volatility:   perf.Volatility,
			SharpeRatio:  perf.SharpeRatio,
			Weights:      weights,
		})
	}

	return out, nil
}
