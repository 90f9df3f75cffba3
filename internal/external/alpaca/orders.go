package alpaca

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// SubmitOrder places an order; an empty ClientOrderID gets a fresh uuid
func (c *Client) SubmitOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	if req.ClientOrderID == "" {
		req.ClientOrderID = uuid.New().String()
	}

	var order Order
	if err := c.post(ctx, "/v2/orders", req, &order); err != nil {
		return nil, fmt.Errorf("submit order %s: %w", req.Symbol, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":          order.Symbol,
		"qty":             req.Qty,
		"side":            order.Side,
		"order_id":        order.ID,
		"client_order_id": order.ClientOrderID,
		"status":          order.Status,
	}).Info("Order submitted")

	return &order, nil
}

// MarketBuy places a good-till-cancelled market buy for qty whole shares
func (c *Client) MarketBuy(ctx context.Context, symbol string, qty int, clientOrderID string) (*Order, error) {
	return c.SubmitOrder(ctx, OrderRequest{
		Symbol:        symbol,
		Qty:           strconv.Itoa(qty),
		Side:          "buy",
		Type:          "market",
		TimeInForce:   "gtc",
		ClientOrderID: clientOrderID,
	})
}
