package risk

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

// Projector runs Monte Carlo projections of portfolio value
// ⭐ SSOT: S4 projection, one independent random stream per trial
type Projector struct {
	workers int
	logger  *logger.Logger
}

// NewProjector creates a projector; workers <= 0 means GOMAXPROCS
func NewProjector(workers int, log *logger.Logger) *Projector {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Projector{
		workers: workers,
		logger:  log.WithField("module", "risk"),
	}
}

// Project simulates params.Iterations trials. Each trial compounds the value
// once per year with a return drawn from N(ExpectedReturn, Volatility) and
// then adds AnnualAddition. Trial i always uses the stream (seed, i), so the
// terminal values do not depend on how trials are split across workers.
func (p *Projector) Project(ctx context.Context, params contracts.SimulationParams) (*contracts.SimulationResult, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid simulation params: %w", err)
	}

	seed := uint64(time.Now().UnixNano())
	if params.Seed != nil {
		seed = *params.Seed
	}

	workers := p.workers
	if params.Workers > 0 {
		workers = params.Workers
	}
	if workers > params.Iterations {
		workers = params.Iterations
	}

	n := params.Iterations
	terminal := make([]float64, n)
	var paths [][]float64
	if params.KeepPaths {
		paths = make([][]float64, n)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	chunk := (n + workers - 1) / workers
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				value, path := runTrial(params, seed, i, paths != nil)
				terminal[i] = value
				if paths != nil {
					paths[i] = path
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("monte carlo interrupted: %w", err)
	}

	contributed := params.Contributed()
	result := &contracts.SimulationResult{
		RunID:             uuid.New().String(),
		Params:            params,
		Seed:              seed,
		TerminalValues:    terminal,
		Paths:             paths,
		Summary:           Summarize(terminal),
		ProbabilityOfLoss: ProbabilityBelow(terminal, contributed),
		ValueAtRisk95:     ValueAtRisk(terminal, contributed, 0.95),
	}
	result.Params.Seed = &result.Seed

	p.logger.WithFields(map[string]interface{}{
		"run_id":     result.RunID,
		"iterations": n,
		"workers":    workers,
		"seed":       seed,
		"mean":       result.Summary.Mean,
		"elapsed_ms": time.Since(start).Milliseconds(),
	}).Info("Monte Carlo projection completed")

	return result, nil
}

// runTrial compounds one trial; with keepPath the yearly values are
// returned too, starting with the initial value
func runTrial(params contracts.SimulationParams, seed uint64, trial int, keepPath bool) (float64, []float64) {
	dist := distuv.Normal{
		Mu:    params.ExpectedReturn,
		Sigma: params.Volatility,
		Src:   rand.NewPCG(seed, uint64(trial)),
	}

	var path []float64
	value := params.InitialValue
	if keepPath {
		path = make([]float64, 0, params.TimeHorizon+1)
		path = append(path, value)
	}
	for year := 0; year < params.TimeHorizon; year++ {
		value = value*(1+dist.Rand()) + params.AnnualAddition
		if params.FloorAtZero && value < 0 {
			value = 0
		}
		if keepPath {
			path = append(path, value)
		}
	}
	return value, path
}
