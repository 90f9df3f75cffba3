package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/allocation"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/execution"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/frontier"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/marketdata"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/portfolio"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/risk"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/strategyconfig"
)

// optimizeCmd represents the optimize command
var optimizeCmd = &cobra.Command{
	Use:   "optimize <portfolio.yaml>",
	Short: "Run a full portfolio construction",
	Long: `Fetches prices, estimates returns and covariance, solves for optimal
weights, allocates whole shares and runs the Monte Carlo projection.

With --execute the allocation is submitted to the broker as market orders.
With --save the run report is stored in Postgres.

Example:
  go run ./cmd/quant optimize config/portfolios/techtest.yaml
  go run ./cmd/quant optimize config/portfolios/techtest.yaml --save --execute`,
	Args: cobra.ExactArgs(1),
	RunE: runOptimize,
}

var (
	optimizeExecute bool
	optimizeSave    bool
	optimizeJSON    bool
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().BoolVar(&optimizeExecute, "execute", false, "submit the allocation to the broker")
	optimizeCmd.Flags().BoolVar(&optimizeSave, "save", false, "store the run report in Postgres")
	optimizeCmd.Flags().BoolVar(&optimizeJSON, "json", false, "print the run report as JSON")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	out := cmd.OutOrStdout()

	strat, _, err := strategyconfig.Load(args[0])
	if err != nil {
		return err
	}
	PrintWarnings(out, strategyconfig.Warn(strat))

	spec, err := strat.Spec()
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Fail before the expensive part when a requested sink is missing
	if optimizeSave {
		if err := a.requireDB("--save"); err != nil {
			return err
		}
	}

	series, err := a.collector().FetchSpecSeries(ctx, spec, a.defaults().Collector)
	if err != nil {
		return fmt.Errorf("fetch prices: %w", err)
	}
	for _, issue := range marketdata.NewQualityGate(marketdata.DefaultQualityConfig()).Check(series).Issues {
		PrintWarning(out, issue)
	}

	run, err := newConstructor(a, strat).Construct(ctx, spec, series)
	if err != nil {
		if run != nil {
			PrintError(out, fmt.Sprintf("run stopped after %s", stageList(run.CompletedStages)))
		}
		return err
	}

	if optimizeJSON {
		stripped := *run
		if run.Simulation != nil {
			sim := *run.Simulation
			sim.Paths = nil
			stripped.Simulation = &sim
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stripped); err != nil {
			return err
		}
	} else {
		PrintRun(out, run)
	}

	if optimizeSave {
		hash, err := strategyconfig.Hash(strat)
		if err != nil {
			return fmt.Errorf("hash portfolio definition: %w", err)
		}
		if err := a.runStore().SaveRun(ctx, run, hash); err != nil {
			return err
		}
		PrintSuccess(out, "Run saved as "+run.RunID)
	}

	if optimizeExecute || strat.Execution.Enabled {
		return executeRun(ctx, out, a, strat, run)
	}
	return nil
}

// newConstructor combines environment defaults with the portfolio definition
func newConstructor(a *app, strat *strategyconfig.Config) *portfolio.Constructor {
	d := a.defaults()
	return portfolio.NewConstructor(
		strat.RunConfig(d.Run),
		frontier.NewSolver(strat.SolverConfig(d.Solver), a.log),
		allocation.NewAllocator(a.log),
		risk.NewProjector(a.cfg.MonteCarlo.Workers, a.log),
		a.log,
	)
}

// executeRun submits the run's allocation and stores each order outcome
func executeRun(ctx context.Context, out io.Writer, a *app, strat *strategyconfig.Config, run *portfolio.RunResult) error {
	if run.Allocation == nil {
		return errors.New("run has no allocation to execute")
	}

	broker, err := a.broker()
	if err != nil {
		return err
	}

	var store execution.OrderStore
	if a.db != nil {
		store = execution.NewRepository(a.db.Pool)
	}

	executor := execution.NewExecutor(broker, strat.ExecutionConfig(execution.DefaultExecutionConfig()), store, a.log)
	report, err := executor.Execute(ctx, run.RunID, run.Allocation)
	if report != nil {
		PrintExecution(out, report)
	}
	return err
}

func stageList(stages []contracts.Stage) string {
	if len(stages) == 0 {
		return "no stages"
	}
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
