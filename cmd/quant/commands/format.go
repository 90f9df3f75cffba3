package commands

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/execution"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/external/alpaca"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/portfolio"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/strategyconfig"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// Every command renders through these so output stays uniform.
// Money is rounded to cents here and nowhere in the core.
// ═══════════════════════════════════════════════════════════

const (
	doubleRule = "═══════════════════════════════════════════════════════════"
	singleRule = "───────────────────────────────────────────────────────────"
)

// PrintHeader prints a titled header block
func PrintHeader(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleRule)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, singleRule)
}

// PrintSeparator prints a visual separator
func PrintSeparator(w io.Writer) {
	fmt.Fprintln(w, singleRule)
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, message string) {
	fmt.Fprintf(w, "⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, message string) {
	fmt.Fprintf(w, "✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(w io.Writer, message string) {
	fmt.Fprintf(w, "❌ %s\n", message)
}

// PrintInfo prints an info message
func PrintInfo(w io.Writer, message string) {
	fmt.Fprintf(w, "ℹ️  %s\n", message)
}

// PrintKeyValue prints a key-value pair
func PrintKeyValue(w io.Writer, key string, value string, keyWidth int) {
	fmt.Fprintf(w, "   %-*s : %s\n", keyWidth, key, value)
}

// PrintTableHeader prints a table header
func PrintTableHeader(w io.Writer, columns []string, widths []int) {
	PrintTableRow(w, columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Fprintln(w, "   "+strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(w io.Writer, values []string, widths []int) {
	fmt.Fprint(w, "   ")
	for i, val := range values {
		fmt.Fprintf(w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(w, "  ")
		}
	}
	fmt.Fprintln(w)
}

// FormatMoney rounds to cents with thousands separators
func FormatMoney(v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	fixed := d.StringFixed(2)
	whole, cents, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "." + cents
}

// FormatPercent renders a fraction as a percentage
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

// PrintWarnings renders strategy config warnings
func PrintWarnings(w io.Writer, warnings []strategyconfig.Warning) {
	for _, warn := range warnings {
		PrintWarning(w, fmt.Sprintf("[%s] %s", warn.Code, warn.Message))
	}
}

// PrintRun renders every completed stage of a run
func PrintRun(w io.Writer, run *portfolio.RunResult) {
	PrintHeader(w, "Portfolio Run")
	PrintKeyValue(w, "Run ID", run.RunID, 10)
	PrintKeyValue(w, "Assets", strings.Join(run.Assets, ", "), 10)
	PrintKeyValue(w, "Budget", FormatMoney(run.Budget), 10)
	PrintKeyValue(w, "Technique", string(run.Technique), 10)
	PrintKeyValue(w, "Duration", run.Duration.String(), 10)

	if run.Stats != nil && run.Stats.Regularized {
		PrintWarning(w, fmt.Sprintf("covariance regularised (epsilon %.2e)", run.Stats.RegularizationEpsilon))
	}
	if run.Optimization != nil {
		PrintOptimization(w, run.Optimization)
	}
	if run.Allocation != nil {
		PrintAllocation(w, run.Allocation)
	}
	if run.Simulation != nil {
		PrintSimulation(w, run.Simulation)
	}
}

// PrintOptimization renders the cleaned weights and their performance
func PrintOptimization(w io.Writer, opt *contracts.OptimizationResult) {
	PrintHeader(w, "Optimal Weights ("+string(opt.Technique)+")")
	widths := []int{8, 10}
	PrintTableHeader(w, []string{"Asset", "Weight"}, widths)
	for _, asset := range opt.Assets {
		PrintTableRow(w, []string{asset, FormatPercent(opt.Weights[asset])}, widths)
	}
	fmt.Fprintln(w)
	PrintKeyValue(w, "Expected annual return", FormatPercent(opt.ExpectedReturn), 22)
	PrintKeyValue(w, "Annual volatility", FormatPercent(opt.Volatility), 22)
	PrintKeyValue(w, "Sharpe ratio", fmt.Sprintf("%.2f", opt.SharpeRatio), 22)
}

// PrintAllocation renders whole-share holdings
func PrintAllocation(w io.Writer, alloc *contracts.AllocationResult) {
	PrintHeader(w, "Discrete Allocation")
	widths := []int{8, 8, 12, 14}
	PrintTableHeader(w, []string{"Asset", "Shares", "Price", "Value"}, widths)
	for _, asset := range alloc.Assets {
		shares := alloc.Shares[asset]
		if shares == 0 {
			continue
		}
		price := alloc.Prices[asset]
		PrintTableRow(w, []string{
			asset,
			fmt.Sprintf("%d", shares),
			FormatMoney(price),
			FormatMoney(price * float64(shares)),
		}, widths)
	}
	fmt.Fprintln(w)
	PrintKeyValue(w, "Invested", FormatMoney(alloc.Invested), 9)
	PrintKeyValue(w, "Leftover", FormatMoney(alloc.Leftover), 9)
	for _, s := range alloc.Skipped {
		PrintWarning(w, s.Error())
	}
}

// PrintSimulation renders the terminal value distribution
func PrintSimulation(w io.Writer, sim *contracts.SimulationResult) {
	PrintHeader(w, fmt.Sprintf("Monte Carlo Projection (%d years, %d trials)", sim.Params.TimeHorizon, sim.Params.Iterations))
	s := sim.Summary
	PrintKeyValue(w, "Initial value", FormatMoney(sim.Params.InitialValue), 16)
	PrintKeyValue(w, "Contributed", FormatMoney(sim.Params.Contributed()), 16)
	PrintKeyValue(w, "Mean", FormatMoney(s.Mean), 16)
	PrintKeyValue(w, "Std deviation", FormatMoney(s.StdDev), 16)
	PrintKeyValue(w, "Min", FormatMoney(s.Min), 16)
	PrintKeyValue(w, "25th percentile", FormatMoney(s.P25), 16)
	PrintKeyValue(w, "Median", FormatMoney(s.P50), 16)
	PrintKeyValue(w, "75th percentile", FormatMoney(s.P75), 16)
	PrintKeyValue(w, "Max", FormatMoney(s.Max), 16)
	PrintKeyValue(w, "P(loss)", FormatPercent(sim.ProbabilityOfLoss), 16)
	PrintKeyValue(w, "VaR 95%", FormatMoney(sim.ValueAtRisk95), 16)
	PrintKeyValue(w, "Seed", fmt.Sprintf("%d", sim.Seed), 16)
}

// PrintFrontier renders frontier points from lowest to highest return
func PrintFrontier(w io.Writer, assets []string, points []contracts.FrontierPoint) {
	PrintHeader(w, fmt.Sprintf("Efficient Frontier (%d points)", len(points)))
	widths := []int{10, 10, 8, 40}
	PrintTableHeader(w, []string{"Return", "Volatility", "Sharpe", "Weights"}, widths)
	for _, p := range points {
		PrintTableRow(w, []string{
			FormatPercent(p.TargetReturn),
			FormatPercent(p.Volatility),
			fmt.Sprintf("%.2f", p.SharpeRatio),
			formatWeights(assets, p.Weights),
		}, widths)
	}
}

// formatWeights lists non-zero weights in asset order
func formatWeights(assets []string, weights map[string]float64) string {
	parts := make([]string, 0, len(assets))
	for _, a := range assets {
		if weights[a] > 0 {
			parts = append(parts, fmt.Sprintf("%s %.1f%%", a, weights[a]*100))
		}
	}
	return strings.Join(parts, " ")
}

// PrintExecution renders per-order outcomes
func PrintExecution(w io.Writer, report *execution.Report) {
	PrintHeader(w, "Order Execution")
	PrintKeyValue(w, "Market open", fmt.Sprintf("%t", report.MarketOpen), 11)
	widths := []int{8, 6, 14, 30}
	PrintTableHeader(w, []string{"Asset", "Qty", "Status", "Detail"}, widths)
	for _, o := range report.Orders {
		detail := o.Reason
		if detail == "" {
			detail = o.BrokerID
		}
		PrintTableRow(w, []string{o.Symbol, fmt.Sprintf("%d", o.Qty), string(o.Status), detail}, widths)
	}
	fmt.Fprintln(w)
	PrintKeyValue(w, "Submitted", fmt.Sprintf("%d", report.Count(contracts.StatusSubmitted)), 11)
	PrintKeyValue(w, "Rejected", fmt.Sprintf("%d", report.Count(contracts.StatusRejected)), 11)
}

// PrintAccount renders the broker account and open positions
func PrintAccount(w io.Writer, account *alpaca.Account, positions []alpaca.Position, marketOpen bool) {
	PrintHeader(w, "Broker Account "+account.AccountNumber)
	PrintKeyValue(w, "Status", account.Status, 15)
	PrintKeyValue(w, "Cash", FormatMoney(account.Cash.InexactFloat64()), 15)
	PrintKeyValue(w, "Buying power", FormatMoney(account.BuyingPower.InexactFloat64()), 15)
	PrintKeyValue(w, "Portfolio value", FormatMoney(account.PortfolioValue.InexactFloat64()), 15)
	PrintKeyValue(w, "Market open", fmt.Sprintf("%t", marketOpen), 15)
	if account.TradingBlocked || account.AccountBlocked {
		PrintWarning(w, "trading is blocked on this account")
	}

	if len(positions) == 0 {
		fmt.Fprintln(w)
		PrintInfo(w, "No open positions")
		return
	}

	sort.Slice(positions, func(i, j int) bool { return positions[i].Symbol < positions[j].Symbol })
	fmt.Fprintln(w)
	widths := []int{8, 8, 14, 14}
	PrintTableHeader(w, []string{"Asset", "Qty", "Value", "Unrealised"}, widths)
	for _, p := range positions {
		PrintTableRow(w, []string{
			p.Symbol,
			p.Qty.String(),
			FormatMoney(p.MarketValue.InexactFloat64()),
			FormatMoney(p.UnrealizedPL.InexactFloat64()),
		}, widths)
	}
}
