package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/risk"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

// simulateCmd represents the simulate command
var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Project a portfolio value with Monte Carlo",
	Long: `Runs the yearly compounding Monte Carlo projection for a given
starting value, expected annual return and annual volatility.

Unset horizon, addition and iteration flags fall back to MC_* settings.

Example:
  go run ./cmd/quant simulate --initial 100000 --return 0.12 --volatility 0.2
  go run ./cmd/quant simulate --initial 50000 --return 0.08 --volatility 0.15 --horizon 15 --addition 10000 --seed 42`,
	RunE: runSimulate,
}

var (
	simInitial    float64
	simReturn     float64
	simVolatility float64
	simHorizon    int
	simAddition   float64
	simIterations int
	simSeed       uint64
	simFloor      bool
)

func init() {
	rootCmd.AddCommand(simulateCmd)

	simulateCmd.Flags().Float64Var(&simInitial, "initial", 0, "starting portfolio value")
	simulateCmd.Flags().Float64Var(&simReturn, "return", 0, "expected annual return, e.g. 0.12")
	simulateCmd.Flags().Float64Var(&simVolatility, "volatility", 0, "annual volatility, e.g. 0.2")
	simulateCmd.Flags().IntVar(&simHorizon, "horizon", 0, "years to project")
	simulateCmd.Flags().Float64Var(&simAddition, "addition", 0, "amount added at the end of each year")
	simulateCmd.Flags().IntVar(&simIterations, "iterations", 0, "number of trials")
	simulateCmd.Flags().Uint64Var(&simSeed, "seed", 0, "seed for a reproducible run")
	simulateCmd.Flags().BoolVar(&simFloor, "floor-at-zero", false, "clamp path values at zero")
	_ = simulateCmd.MarkFlagRequired("initial")
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg)

	params := contracts.SimulationParams{
		InitialValue:   simInitial,
		ExpectedReturn: simReturn,
		Volatility:     simVolatility,
		TimeHorizon:    cfg.MonteCarlo.TimeHorizon,
		AnnualAddition: cfg.MonteCarlo.AnnualAddition,
		Iterations:     cfg.MonteCarlo.Iterations,
		FloorAtZero:    simFloor,
	}
	flags := cmd.Flags()
	if flags.Changed("horizon") {
		params.TimeHorizon = simHorizon
	}
	if flags.Changed("addition") {
		params.AnnualAddition = simAddition
	}
	if flags.Changed("iterations") {
		params.Iterations = simIterations
	}
	if flags.Changed("seed") {
		seed := simSeed
		params.Seed = &seed
	}
	if err := params.Validate(); err != nil {
		return err
	}

	result, err := risk.NewProjector(cfg.MonteCarlo.Workers, log).Project(ctx, params)
	if err != nil {
		return err
	}

	PrintSimulation(cmd.OutOrStdout(), result)
	return nil
}
