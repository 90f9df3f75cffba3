package frontier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/estimator"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

// Config holds solver settings
type Config struct {
	RiskFreeRate  float64       `yaml:"risk_free_rate"`
	WeightCutoff  float64       `yaml:"weight_cutoff"`
	Timeout       time.Duration `yaml:"timeout"`
	MaxIterations int           `yaml:"max_iterations"`

	// TargetReturn is only used by efficient_return
	TargetReturn float64 `yaml:"target_return"`
}

// DefaultConfig returns the default solver settings
func DefaultConfig() Config {
	return Config{
		RiskFreeRate:  0.02,
		WeightCutoff:  DefaultWeightCutoff,
		Timeout:       5 * time.Second,
		MaxIterations: 1000,
	}
}

// ridge keeps the QP strictly convex when Σ is only semi-definite
const ridge = 1e-10

// Solver finds long-only efficient frontier portfolios
// ⭐ SSOT: S2 weight optimisation lives here
type Solver struct {
	cfg    Config
	logger *logger.Logger
}

// NewSolver creates a solver
func NewSolver(cfg Config, log *logger.Logger) *Solver {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultConfig().MaxIterations
	}
	return &Solver{
		cfg:    cfg,
		logger: log.WithField("module", "frontier"),
	}
}

// Config returns the solver settings
func (s *Solver) Config() Config {
	return s.cfg
}

// Optimize solves for the requested technique, cleans the weights and
// reports performance evaluated at the cleaned weights.
func (s *Solver) Optimize(ctx context.Context, stats *contracts.ReturnStats, technique contracts.Technique) (*contracts.OptimizationResult, error) {
	mu, cov, err := unpack(stats)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var raw *qpSolution
	switch technique {
	case contracts.TechniqueMaxSharpe:
		raw, err = s.maxSharpe(ctx, mu, cov)
	case contracts.TechniqueMinVolatility:
		raw, err = s.minVolatility(ctx, cov)
	case contracts.TechniqueEfficientReturn:
		raw, err = s.efficientReturn(ctx, mu, cov, s.cfg.TargetReturn)
	default:
		return nil, &contracts.InfeasibleOptimizationError{
			Technique: technique,
			Reason:    "expected one of max_sharpe, min_volatility, efficient_return",
			Err:       contracts.ErrUnsupportedTechnique,
		}
	}
	if err != nil {
		return nil, s.infeasible(technique, err)
	}

	cleaned, err := CleanWeights(raw.x, s.cfg.WeightCutoff)
	if err != nil {
		return nil, s.infeasible(technique, err)
	}

	perf := Evaluate(cleaned, mu, cov, s.cfg.RiskFreeRate)

	weights := make(map[string]float64, len(stats.Assets))
	for i, a := range stats.Assets {
		weights[a] = cleaned[i]
	}

	s.logger.WithFields(map[string]interface{}{
		"technique":       technique,
		"assets":          len(stats.Assets),
		"iterations":      raw.iterations,
		"expected_return": perf.ExpectedReturn,
		"volatility":      perf.Volatility,
		"sharpe":          perf.SharpeRatio,
	}).Debug("Optimization completed")

	return &contracts.OptimizationResult{
		Technique:      technique,
		Assets:         append([]string(nil), stats.Assets...),
		Weights:        weights,
		ExpectedReturn: perf.ExpectedReturn,
		Volatility:     perf.Volatility,
		SharpeRatio:    perf.SharpeRatio,
		RiskFreeRate:   s.cfg.RiskFreeRate,
		Iterations:     raw.iterations,
	}, nil
}

// minVolatility solves min wᵀΣw over the simplex
func (s *Solver) minVolatility(ctx context.Context, cov *mat.SymDense) (*qpSolution, error) {
	n := cov.SymmetricDim()
	return solveActiveSet(ctx, qpProblem{
		Q: ridged(cov),
		A: mat.NewDense(1, n, ones(n)),
		b: []float64{1},
	}, uniform(n), s.cfg.MaxIterations)
}

// maxSharpe uses the homogenised form min yᵀΣy s.t. (μ-r_f)ᵀy = 1, y ≥ 0,
// then rescales w = y / Σy.
func (s *Solver) maxSharpe(ctx context.Context, mu []float64, cov *mat.SymDense) (*qpSolution, error) {
	n := len(mu)
	excess := make([]float64, n)
	best := 0
	for i := range mu {
		excess[i] = mu[i] - s.cfg.RiskFreeRate
		if excess[i] > excess[best] {
			best = i
		}
	}
	if excess[best] <= 0 {
		return nil, fmt.Errorf("no asset has an expected return above the risk-free rate %.4f", s.cfg.RiskFreeRate)
	}

	y0 := make([]float64, n)
	y0[best] = 1 / excess[best]

	sol, err := solveActiveSet(ctx, qpProblem{
		Q: ridged(cov),
		A: mat.NewDense(1, n, excess),
		b: []float64{1},
	}, y0, s.cfg.MaxIterations)
	if err != nil {
		return nil, err
	}

	total := floats.Sum(sol.x)
	if !(total > 0) {
		return nil, fmt.Errorf("degenerate max sharpe solution")
	}
	floats.Scale(1/total, sol.x)
	return sol, nil
}

// efficientReturn minimises variance subject to wᵀμ = target
func (s *Solver) efficientReturn(ctx context.Context, mu []float64, cov *mat.SymDense, target float64) (*qpSolution, error) {
	n := len(mu)
	lo, hi := floats.Min(mu), floats.Max(mu)
	if target < lo-1e-12 || target > hi+1e-12 {
		return nil, fmt.Errorf("target return %.4f outside attainable range [%.4f, %.4f]", target, lo, hi)
	}

	// identical returns: every simplex point hits the target
	if hi-lo < 1e-12 {
		return s.minVolatility(ctx, cov)
	}

	// the ends of the range are only reachable by the assets sitting on them
	switch {
	case target >= hi-1e-12:
		return s.extremeReturn(ctx, mu, cov, hi)
	case target <= lo+1e-12:
		return s.extremeReturn(ctx, mu, cov, lo)
	}

	// feasible start mixing the lowest and highest return assets
	iLo, iHi := floats.MinIdx(mu), floats.MaxIdx(mu)
	theta := math.Min(1, math.Max(0, (target-lo)/(hi-lo)))
	x0 := make([]float64, n)
	x0[iLo] = 1 - theta
	x0[iHi] += theta

	a := mat.NewDense(2, n, nil)
	a.SetRow(0, ones(n))
	a.SetRow(1, mu)

	return solveActiveSet(ctx, qpProblem{
		Q: ridged(cov),
		A: a,
		b: []float64{1, target},
	}, x0, s.cfg.MaxIterations)
}

// extremeReturn solves min variance over the assets whose expected return
// equals level; every other asset gets zero weight.
func (s *Solver) extremeReturn(ctx context.Context, mu []float64, cov *mat.SymDense, level float64) (*qpSolution, error) {
	var idx []int
	for i, m := range mu {
		if math.Abs(m-level) <= 1e-12 {
			idx = append(idx, i)
		}
	}

	x := make([]float64, len(mu))
	if len(idx) == 1 {
		x[idx[0]] = 1
		return &qpSolution{x: x}, nil
	}

	sub := mat.NewSymDense(len(idx), nil)
	for r, i := range idx {
		for c := r; c < len(idx); c++ {
			sub.SetSym(r, c, cov.At(i, idx[c]))
		}
	}
	sol, err := s.minVolatility(ctx, sub)
	if err != nil {
		return nil, err
	}
	for r, i := range idx {
		x[i] = sol.x[r]
	}
	return &qpSolution{x: x, iterations: sol.iterations}, nil
}

func (s *Solver) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.Timeout > 0 {
		return context.WithTimeout(ctx, s.cfg.Timeout)
	}
	return context.WithCancel(ctx)
}

// infeasible maps solver failures onto InfeasibleOptimizationError
func (s *Solver) infeasible(technique contracts.Technique, err error) error {
	var already *contracts.InfeasibleOptimizationError
	if errors.As(err, &already) {
		return err
	}

	e := &contracts.InfeasibleOptimizationError{Technique: technique, Reason: err.Error()}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		e.Reason = "solver stopped before converging"
		e.Err = fmt.Errorf("%w: %w", contracts.ErrSolverTimeout, err)
	case errors.Is(err, errIterationLimit):
		e.Reason = fmt.Sprintf("no convergence after %d iterations", s.cfg.MaxIterations)
		e.Err = contracts.ErrSolverTimeout
	}

	s.logger.WithError(err).WithField("technique", technique).Warn("Optimization infeasible")
	return e
}

// unpack validates stats and converts them to gonum types
func unpack(stats *contracts.ReturnStats) ([]float64, *mat.SymDense, error) {
	if stats == nil {
		return nil, nil, fmt.Errorf("return stats are required")
	}
	n := len(stats.Assets)
	if n == 0 {
		return nil, nil, fmt.Errorf("return stats contain no assets")
	}
	if len(stats.ExpectedReturns) != n || len(stats.Covariance) != n {
		return nil, nil, fmt.Errorf("return stats dimensions disagree: %d assets, %d returns, %d covariance rows",
			n, len(stats.ExpectedReturns), len(stats.Covariance))
	}
	for i, row := range stats.Covariance {
		if len(row) != n {
			return nil, nil, fmt.Errorf("covariance row %d has %d columns, want %d", i, len(row), n)
		}
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, nil, fmt.Errorf("covariance row %d is not finite", i)
			}
		}
		if math.IsNaN(stats.ExpectedReturns[i]) || math.IsInf(stats.ExpectedReturns[i], 0) {
			return nil, nil, fmt.Errorf("expected return for %s is not finite", stats.Assets[i])
		}
	}

	return append([]float64(nil), stats.ExpectedReturns...), estimator.FromRows(stats.Covariance), nil
}

func ridged(cov *mat.SymDense) *mat.SymDense {
	n := cov.SymmetricDim()
	scale := 0.0
	for i := 0; i < n; i++ {
		scale += math.Abs(cov.At(i, i))
	}
	scale = math.Max(scale/float64(n), 1e-12)

	q := mat.NewSymDense(n, nil)
	q.CopySym(cov)
	for i := 0; i < n; i++ {
		q.SetSym(i, i, q.At(i, i)+ridge*scale)
	}
	return q
}

func ones(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

func uniform(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 1 / float64(n)
	}
	return v
}
