package contracts

import (
	"context"
	"time"
)

// PriceSource supplies adjusted close history (S0)
// ⭐ SSOT: market data collaborators implement this
type PriceSource interface {
	FetchSeries(ctx context.Context, symbol string, start, end time.Time) (PriceSeries, error)
}

// ExecutionPlanner turns an allocation into orders (S5)
type ExecutionPlanner interface {
	Plan(alloc *AllocationResult) []Order
}
