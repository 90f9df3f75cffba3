package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/marketdata"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/strategyconfig"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch [symbols...]",
	Short: "Collect daily prices into Postgres",
	Long: `Fetches adjusted close history and upserts it into the prices table.

Symbols come from the arguments or from --portfolio. Dates default to the
portfolio window, or to the last five years.

Example:
  go run ./cmd/quant fetch AAPL MSFT --from 2020-01-01
  go run ./cmd/quant fetch --portfolio config/portfolios/techtest.yaml`,
	RunE: runFetch,
}

var (
	fetchPortfolio string
	fetchFrom      string
	fetchTo        string
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchPortfolio, "portfolio", "", "portfolio definition to take symbols and dates from")
	fetchCmd.Flags().StringVar(&fetchFrom, "from", "", "first date (YYYY-MM-DD)")
	fetchCmd.Flags().StringVar(&fetchTo, "to", "", "last date (YYYY-MM-DD)")
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	out := cmd.OutOrStdout()

	symbols := args
	end := time.Now().UTC().Truncate(24 * time.Hour)
	start := end.AddDate(-5, 0, 0)

	if fetchPortfolio != "" {
		strat, _, err := strategyconfig.Load(fetchPortfolio)
		if err != nil {
			return err
		}
		spec, err := strat.Spec()
		if err != nil {
			return err
		}
		if len(symbols) == 0 {
			symbols = spec.Assets()
		}
		if !spec.Start().IsZero() {
			start = spec.Start()
		}
		if !spec.End().IsZero() {
			end = spec.End()
		}
	}
	if len(symbols) == 0 {
		return fmt.Errorf("no symbols given")
	}

	var err error
	if fetchFrom != "" {
		if start, err = time.Parse(strategyconfig.DateLayout, fetchFrom); err != nil {
			return fmt.Errorf("--from: %w", err)
		}
	}
	if fetchTo != "" {
		if end, err = time.Parse(strategyconfig.DateLayout, fetchTo); err != nil {
			return fmt.Errorf("--to: %w", err)
		}
	}
	if start.After(end) {
		return fmt.Errorf("start %s is after end %s", start.Format(strategyconfig.DateLayout), end.Format(strategyconfig.DateLayout))
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.requireDB("fetch"); err != nil {
		return err
	}

	PrintHeader(out, "Price Collection")
	PrintKeyValue(out, "Period", start.Format(strategyconfig.DateLayout)+" ~ "+end.Format(strategyconfig.DateLayout), 8)
	PrintKeyValue(out, "Symbols", strings.Join(symbols, ", "), 8)
	PrintSeparator(out)

	began := time.Now()
	results := a.collector().FetchAll(ctx, symbols, start, end, marketdata.Config{Workers: a.cfg.MarketData.Workers})

	fetched := make([]contracts.PriceSeries, 0, len(results))
	for _, r := range results {
		if r.Error == nil {
			fetched = append(fetched, r.Series)
		}
	}
	quality := marketdata.NewQualityGate(marketdata.DefaultQualityConfig()).Check(fetched)

	widths := []int{8, 8, 12, 10, 40}
	PrintTableHeader(out, []string{"Symbol", "Rows", "Last Close", "Coverage", "Status"}, widths)
	for _, r := range results {
		status, last, coverage := "ok", "-", "-"
		if r.Error != nil {
			status = r.Error.Error()
		} else {
			coverage = FormatPercent(quality.Coverage[r.Symbol])
		}
		if price, ok := r.Series.Latest(); ok {
			last = fmt.Sprintf("%.2f", price)
		}
		PrintTableRow(out, []string{r.Symbol, fmt.Sprintf("%d", r.Series.Len()), last, coverage, status}, widths)
	}
	fmt.Fprintln(out)
	for _, issue := range quality.Issues {
		PrintWarning(out, issue)
	}

	if failed := results.Failed(); failed > 0 {
		return fmt.Errorf("%d of %d symbols failed", failed, len(results))
	}
	PrintSuccess(out, fmt.Sprintf("Collected %d symbols in %.2fs", len(results), time.Since(began).Seconds()))
	return nil
}
