package execution

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/external/alpaca"
)

// Broker defines the brokerage operations execution needs
// ⭐ SSOT: the brokerage interface is defined here only
type Broker interface {
	// GetAccount retrieves the account snapshot
	GetAccount(ctx context.Context) (*alpaca.Account, error)

	// IsMarketOpen reports whether the market is open now
	IsMarketOpen(ctx context.Context) (bool, error)

	// GetAsset retrieves an instrument, including its tradable flag
	GetAsset(ctx context.Context, symbol string) (*alpaca.Asset, error)

	// SubmitOrder submits an order to the broker
	SubmitOrder(ctx context.Context, req alpaca.OrderRequest) (*alpaca.Order, error)

	// ListPositions retrieves current holdings
	ListPositions(ctx context.Context) ([]alpaca.Position, error)
}

var _ Broker = (*alpaca.Client)(nil)

// MockBroker implements Broker in memory for tests and dry runs
// ⭐ production uses alpaca.Client
type MockBroker struct {
	mu        sync.Mutex
	account   alpaca.Account
	open      bool
	assets    map[string]alpaca.Asset
	positions map[string]alpaca.Position
	submitted []alpaca.OrderRequest
	rejects   map[string]error
}

// NewMockBroker creates a mock broker with an open market and 100k cash
func NewMockBroker() *MockBroker {
	cash := decimal.NewFromInt(100_000)
	return &MockBroker{
		account: alpaca.Account{
			ID:             "MOCK",
			Status:         "ACTIVE",
			Currency:       "USD",
			Cash:           cash,
			BuyingPower:    cash,
			PortfolioValue: cash,
			Equity:         cash,
		},
		open:      true,
		assets:    make(map[string]alpaca.Asset),
		positions: make(map[string]alpaca.Position),
		rejects:   make(map[string]error),
	}
}

// GetAccount returns the mock account
func (b *MockBroker) GetAccount(ctx context.Context) (*alpaca.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	account := b.account
	return &account, nil
}

// IsMarketOpen returns the configured market state
func (b *MockBroker) IsMarketOpen(ctx context.Context) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open, nil
}

// GetAsset returns a registered asset; unknown symbols are tradable
func (b *MockBroker) GetAsset(ctx context.Context, symbol string) (*alpaca.Asset, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if asset, ok := b.assets[symbol]; ok {
		return &asset, nil
	}
	return &alpaca.Asset{Symbol: symbol, Status: "active", Tradable: true}, nil
}

// SubmitOrder records the request and adds the quantity to positions
func (b *MockBroker) SubmitOrder(ctx context.Context, req alpaca.OrderRequest) (*alpaca.Order, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err, ok := b.rejects[req.Symbol]; ok {
		return nil, err
	}

	qty, err := decimal.NewFromString(req.Qty)
	if err != nil {
		return nil, fmt.Errorf("invalid qty %q: %w", req.Qty, err)
	}

	b.submitted = append(b.submitted, req)
	pos := b.positions[req.Symbol]
	pos.Symbol = req.Symbol
	pos.Qty = pos.Qty.Add(qty)
	b.positions[req.Symbol] = pos

	return &alpaca.Order{
		ID:            "MOCK-" + uuid.NewString(),
		ClientOrderID: req.ClientOrderID,
		Symbol:        req.Symbol,
		Qty:           qty,
		Side:          req.Side,
		Type:          req.Type,
		TimeInForce:   req.TimeInForce,
		Status:        "accepted",
	}, nil
}

// ListPositions returns positions built from submitted orders
func (b *MockBroker) ListPositions(ctx context.Context) ([]alpaca.Position, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	positions := make([]alpaca.Position, 0, len(b.positions))
	for _, p := range b.positions {
		positions = append(positions, p)
	}
	return positions, nil
}

// SetMarketOpen sets the market state
func (b *MockBroker) SetMarketOpen(open bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.open = open
}

// SetAsset registers an asset
func (b *MockBroker) SetAsset(asset alpaca.Asset) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.assets[asset.Symbol] = asset
}

// RejectOrders makes SubmitOrder fail for symbol
func (b *MockBroker) RejectOrders(symbol string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rejects[symbol] = err
}

// Submitted returns the accepted order requests in submission order
func (b *MockBroker) Submitted() []alpaca.OrderRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]alpaca.OrderRequest(nil), b.submitted...)
}
