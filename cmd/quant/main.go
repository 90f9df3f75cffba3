package main

import (
	"os"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/cmd/quant/commands"
)

// main is the entry point for the portfolio CLI
// ⭐ single CLI entry point: go run ./cmd/quant [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
