package execution

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
)

// Repository handles order persistence
// ⭐ SSOT: orders table reads and writes happen here only
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new execution repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ OrderStore = (*Repository)(nil)

// SaveOrder upserts an order outcome
func (r *Repository) SaveOrder(ctx context.Context, runID string, order *contracts.Order) error {
	query := `
		INSERT INTO orders (
			order_id, run_id, symbol, side, qty, order_type, time_in_force,
			status, broker_id, reason, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (order_id) DO UPDATE SET
			status = EXCLUDED.status,
			broker_id = EXCLUDED.broker_id,
			reason = EXCLUDED.reason,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.pool.Exec(ctx, query,
		order.ID, runID, order.Symbol, string(order.Side), order.Qty,
		string(order.OrderType), string(order.TimeInForce), string(order.Status),
		order.BrokerID, order.Reason, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	return nil
}

// GetOrdersByRun retrieves the orders of one run in creation order
func (r *Repository) GetOrdersByRun(ctx context.Context, runID string) ([]contracts.Order, error) {
	query := `
		SELECT order_id, symbol, side, qty, order_type, time_in_force,
		       status, broker_id, reason, created_at, updated_at
		FROM orders
		WHERE run_id = $1
		ORDER BY created_at ASC, symbol ASC
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]contracts.Order, 0)
	for rows.Next() {
		var (
			order                        contracts.Order
			side, orderType, tif, status string
		)
		if err := rows.Scan(
			&order.ID, &order.Symbol, &side, &order.Qty, &orderType, &tif,
			&status, &order.BrokerID, &order.Reason, &order.CreatedAt, &order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		order.Side = contracts.OrderSide(side)
		order.OrderType = contracts.OrderType(orderType)
		order.TimeInForce = contracts.TimeInForce(tif)
		order.Status = contracts.Status(status)
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}
