package alpaca

import (
	"context"
	"fmt"
)

// GetAccount returns the account snapshot
func (c *Client) GetAccount(ctx context.Context) (*Account, error) {
	var account Account
	if err := c.get(ctx, "/v2/account", &account); err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return &account, nil
}

// ListPositions returns all open positions
func (c *Client) ListPositions(ctx context.Context) ([]Position, error) {
	var positions []Position
	if err := c.get(ctx, "/v2/positions", &positions); err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	return positions, nil
}

// GetClock returns the market clock
func (c *Client) GetClock(ctx context.Context) (*Clock, error) {
	var clock Clock
	if err := c.get(ctx, "/v2/clock", &clock); err != nil {
		return nil, fmt.Errorf("get clock: %w", err)
	}
	return &clock, nil
}

// IsMarketOpen reports whether the market is open now
func (c *Client) IsMarketOpen(ctx context.Context) (bool, error) {
	clock, err := c.GetClock(ctx)
	if err != nil {
		return false, err
	}
	return clock.IsOpen, nil
}
