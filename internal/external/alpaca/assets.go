package alpaca

import (
	"context"
	"fmt"
	"net/url"
)

// ListAssets returns active assets
func (c *Client) ListAssets(ctx context.Context) ([]Asset, error) {
	var assets []Asset
	if err := c.get(ctx, "/v2/assets?status=active", &assets); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

// GetAsset returns one asset by symbol
func (c *Client) GetAsset(ctx context.Context, symbol string) (*Asset, error) {
	var asset Asset
	if err := c.get(ctx, "/v2/assets/"+url.PathEscape(symbol), &asset); err != nil {
		return nil, fmt.Errorf("get asset %s: %w", symbol, err)
	}
	return &asset, nil
}
