package logger_test

import (
	"errors"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/config"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

// Example_withFields demonstrates structured logging with fields
func Example_withFields() {
	cfg := &config.Config{
		Env:       "production",
		LogLevel:  "info",
		LogFormat: "json",
	}

	log := logger.New(cfg).WithField("module", "portfolio")

	log.WithFields(map[string]interface{}{
		"run_id":    "3f2a",
		"technique": "max_sharpe",
		"assets":    7,
	}).Info("Run completed")

	log.WithError(errors.New("no asset beats the risk-free rate")).
		WithField("stage", "S2_OPTIMIZE").
		Error("Run failed")
}
