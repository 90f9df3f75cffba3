package execution

import (
	"time"

	"github.com/google/uuid"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

// Planner implements S5 order planning
// ⭐ SSOT: allocation → order conversion happens here only
type Planner struct {
	config ExecutionConfig
	logger *logger.Logger
}

// ExecutionConfig defines execution parameters
type ExecutionConfig struct {
	OrderType   contracts.OrderType
	TimeInForce contracts.TimeInForce

	// RequireOpenMarket skips every order while the market is closed.
	// Off by default: GTC orders queue until the next open.
	RequireOpenMarket bool
}

// DefaultExecutionConfig returns market GTC orders
func DefaultExecutionConfig() ExecutionConfig {
	return ExecutionConfig{
		OrderType:   contracts.OrderTypeMarket,
		TimeInForce: contracts.TimeInForceGTC,
	}
}

// NewPlanner creates a new execution planner
func NewPlanner(config ExecutionConfig, log *logger.Logger) *Planner {
	return &Planner{
		config: config,
		logger: log.WithField("module", "execution"),
	}
}

// Plan creates one buy order per allocated asset, in asset order.
// Assets with zero shares (skipped or unaffordable) get no order.
func (p *Planner) Plan(alloc *contracts.AllocationResult) []contracts.Order {
	if alloc == nil {
		return nil
	}

	now := time.Now().UTC()
	orders := make([]contracts.Order, 0, len(alloc.Assets))
	for _, symbol := range alloc.Assets {
		qty := alloc.Shares[symbol]
		if qty <= 0 {
			continue
		}
		orders = append(orders, contracts.Order{
			ID:          uuid.NewString(),
			Symbol:      symbol,
			Side:        contracts.OrderSideBuy,
			Qty:         qty,
			OrderType:   p.config.OrderType,
			TimeInForce: p.config.TimeInForce,
			Status:      contracts.StatusPending,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}

	p.logger.WithFields(map[string]interface{}{
		"total_orders": len(orders),
		"skipped":      len(alloc.Skipped),
	}).Info("Execution plan created")

	return orders
}

var _ contracts.ExecutionPlanner = (*Planner)(nil)
