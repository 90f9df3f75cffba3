package execution

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/external/alpaca"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

// ErrTradingBlocked is returned when the account cannot trade
var ErrTradingBlocked = errors.New("account is blocked from trading")

// Order outcome reasons
const (
	ReasonMarketClosed = "market closed"
	ReasonNotTradable  = "asset is not tradable"
)

// OrderStore persists order outcomes
type OrderStore interface {
	SaveOrder(ctx context.Context, runID string, order *contracts.Order) error
}

// Report is the outcome of one execution
type Report struct {
	RunID      string            `json:"run_id"`
	MarketOpen bool              `json:"market_open"`
	Orders     []contracts.Order `json:"orders"`
}

// Count returns the number of orders with status
func (r *Report) Count(status contracts.Status) int {
	n := 0
	for _, o := range r.Orders {
		if o.Status == status {
			n++
		}
	}
	return n
}

// Executor implements S5: it submits planned orders and records each outcome
// ⭐ SSOT: orders reach the broker from here only
type Executor struct {
	broker  Broker
	planner *Planner
	store   OrderStore
	config  ExecutionConfig
	logger  *logger.Logger
}

// NewExecutor creates an executor; store may be nil
func NewExecutor(broker Broker, config ExecutionConfig, store OrderStore, log *logger.Logger) *Executor {
	return &Executor{
		broker:  broker,
		planner: NewPlanner(config, log),
		store:   store,
		config:  config,
		logger:  log.WithField("module", "execution"),
	}
}

// Execute plans and submits orders for alloc.
// A failed order is recorded and the rest still go out; only account
// and clock failures abort the run.
func (e *Executor) Execute(ctx context.Context, runID string, alloc *contracts.AllocationResult) (*Report, error) {
	account, err := e.broker.GetAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("account check failed: %w", err)
	}
	if account.TradingBlocked || account.AccountBlocked {
		return nil, ErrTradingBlocked
	}

	open, err := e.broker.IsMarketOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("market clock check failed: %w", err)
	}
	if !open {
		e.logger.WithField("require_open", e.config.RequireOpenMarket).Warn("Market is closed")
	}

	report := &Report{RunID: runID, MarketOpen: open}
	for _, order := range e.planner.Plan(alloc) {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		switch {
		case !open && e.config.RequireOpenMarket:
			order.Status = contracts.StatusSkipped
			order.Reason = ReasonMarketClosed
		default:
			e.submit(ctx, &order)
		}
		order.UpdatedAt = time.Now().UTC()

		e.record(ctx, runID, &order)
		report.Orders = append(report.Orders, order)
	}

	e.logger.WithFields(map[string]interface{}{
		"run_id":       runID,
		"submitted":    report.Count(contracts.StatusSubmitted),
		"rejected":     report.Count(contracts.StatusRejected),
		"not_tradable": report.Count(contracts.StatusNotTradable),
		"skipped":      report.Count(contracts.StatusSkipped),
	}).Info("Execution completed")

	return report, nil
}

// submit checks the asset and sends the order, setting its final status
func (e *Executor) submit(ctx context.Context, order *contracts.Order) {
	asset, err := e.broker.GetAsset(ctx, order.Symbol)
	if err != nil {
		order.Status = contracts.StatusRejected
		order.Reason = err.Error()
		return
	}
	if !asset.Tradable {
		order.Status = contracts.StatusNotTradable
		order.Reason = ReasonNotTradable
		return
	}

	placed, err := e.broker.SubmitOrder(ctx, alpaca.OrderRequest{
		Symbol:        order.Symbol,
		Qty:           strconv.Itoa(order.Qty),
		Side:          string(order.Side),
		Type:          string(order.OrderType),
		TimeInForce:   string(order.TimeInForce),
		ClientOrderID: order.ID,
	})
	if err != nil {
		order.Status = contracts.StatusRejected
		order.Reason = err.Error()
		return
	}

	order.Status = contracts.StatusSubmitted
	order.BrokerID = placed.ID
}

// record logs the outcome and persists it when a store is configured
func (e *Executor) record(ctx context.Context, runID string, order *contracts.Order) {
	fields := map[string]interface{}{
		"symbol": order.Symbol,
		"qty":    order.Qty,
		"status": order.Status,
	}
	if order.Reason != "" {
		fields["reason"] = order.Reason
	}
	if order.IsSubmitted() {
		e.logger.WithFields(fields).Info("Order recorded")
	} else {
		e.logger.WithFields(fields).Warn("Order recorded")
	}

	if e.store == nil {
		return
	}
	if err := e.store.SaveOrder(ctx, runID, order); err != nil {
		e.logger.WithError(err).WithField("symbol", order.Symbol).Warn("Failed to save order")
	}
}
