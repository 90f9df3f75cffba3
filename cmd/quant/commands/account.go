package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

// accountCmd represents the account command
var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Show the broker account and positions",
	Long: `Reads the Alpaca account, open positions and the market clock.
Credentials come from ALPACA_API_KEY_ID and ALPACA_SECRET_KEY.

Example:
  go run ./cmd/quant account`,
	RunE: runAccount,
}

func init() {
	rootCmd.AddCommand(accountCmd)
}

func runAccount(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	broker, err := a.broker()
	if err != nil {
		return err
	}

	account, err := broker.GetAccount(ctx)
	if err != nil {
		return err
	}
	positions, err := broker.ListPositions(ctx)
	if err != nil {
		return err
	}
	open, err := broker.IsMarketOpen(ctx)
	if err != nil {
		return err
	}

	PrintAccount(cmd.OutOrStdout(), account, positions, open)
	return nil
}
