package yahoo

import (
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/httputil"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

// DefaultBaseURL is the public chart API host
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// Client fetches adjusted close history from the Yahoo chart API
// ⭐ SSOT: Yahoo calls are made from this client only
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
}

// NewClient creates a new Yahoo client; an empty baseURL uses DefaultBaseURL
func NewClient(httpClient *httputil.Client, baseURL string, log *logger.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient.WithHeader("User-Agent", "Mozilla/5.0 (compatible; portfolio-optimiser)"),
		logger:     log.WithField("module", "yahoo"),
		baseURL:    baseURL,
	}
}
