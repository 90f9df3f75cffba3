package alpaca

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/config"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/httputil"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

// ErrMissingCredentials is returned when no API key pair is configured
var ErrMissingCredentials = errors.New("alpaca: API key id and secret are required")

// Client handles communication with the Alpaca trading API
// ⭐ SSOT: brokerage API calls are made from this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Alpaca API client.
// Credentials are attached as headers to every request.
func NewClient(cfg config.AlpacaConfig, httpClient *httputil.Client, log *logger.Logger) (*Client, error) {
	if cfg.KeyID == "" || cfg.SecretKey == "" {
		return nil, ErrMissingCredentials
	}

	return &Client{
		httpClient: httpClient.
			WithHeader("APCA-API-KEY-ID", cfg.KeyID).
			WithHeader("APCA-API-SECRET-KEY", cfg.SecretKey),
		logger:  log.WithField("module", "alpaca"),
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
	}, nil
}

// get decodes GET path into dest
func (c *Client) get(ctx context.Context, path string, dest interface{}) error {
	return c.httpClient.GetJSON(ctx, c.baseURL+path, dest)
}

// post sends body as JSON and decodes the reply into dest
func (c *Client) post(ctx context.Context, path string, body, dest interface{}) error {
	return c.httpClient.DoJSON(ctx, http.MethodPost, c.baseURL+path, body, dest)
}
