package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "quant",
	Short: "Mean-variance portfolio construction and execution",
	Long: `Portfolio Optimisation CLI

Fetches adjusted close history, estimates annualised returns and covariance,
solves the long-only efficient frontier, converts weights into whole shares
and projects the portfolio forward with a Monte Carlo simulation.

Usage:
  go run ./cmd/quant [command]

Examples:
  go run ./cmd/quant optimize config/portfolios/techtest.yaml
  go run ./cmd/quant frontier config/portfolios/techtest.yaml --points 30
  go run ./cmd/quant simulate --initial 100000 --return 0.12 --volatility 0.2
  go run ./cmd/quant serve
  go run ./cmd/quant test-db`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "env file to load (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production|test)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
