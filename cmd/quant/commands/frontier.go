package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/strategyconfig"
)

// frontierCmd represents the frontier command
var frontierCmd = &cobra.Command{
	Use:   "frontier <portfolio.yaml>",
	Short: "Trace the efficient frontier of a portfolio",
	Long: `Solves the minimum-volatility portfolio for evenly spaced target returns
between the minimum-variance return and the highest asset return.

Example:
  go run ./cmd/quant frontier config/portfolios/techtest.yaml --points 30`,
	Args: cobra.ExactArgs(1),
	RunE: runFrontier,
}

var frontierPoints int

func init() {
	rootCmd.AddCommand(frontierCmd)

	frontierCmd.Flags().IntVar(&frontierPoints, "points", 20, "number of frontier points (2-200)")
}

func runFrontier(cmd *cobra.Command, args []string) error {
	if frontierPoints < 2 || frontierPoints > 200 {
		return fmt.Errorf("--points must be between 2 and 200, got %d", frontierPoints)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	strat, _, err := strategyconfig.Load(args[0])
	if err != nil {
		return err
	}
	spec, err := strat.Spec()
	if err != nil {
		return err
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	series, err := a.collector().FetchSpecSeries(ctx, spec, a.defaults().Collector)
	if err != nil {
		return fmt.Errorf("fetch prices: %w", err)
	}

	points, err := newConstructor(a, strat).Frontier(ctx, spec, series, frontierPoints)
	if err != nil {
		return err
	}

	PrintFrontier(cmd.OutOrStdout(), spec.Assets(), points)
	return nil
}
