package execution

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/external/alpaca"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

type memoryStore struct {
	mu     sync.Mutex
	orders map[string][]contracts.Order
}

func (s *memoryStore) SaveOrder(ctx context.Context, runID string, order *contracts.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orders == nil {
		s.orders = make(map[string][]contracts.Order)
	}
	s.orders[runID] = append(s.orders[runID], *order)
	return nil
}

func TestExecute_SubmitsAll(t *testing.T) {
	broker := NewMockBroker()
	store := &memoryStore{}

	report, err := NewExecutor(broker, DefaultExecutionConfig(), store, logger.NewNop()).
		Execute(context.Background(), "run-1", testAllocation())
	require.NoError(t, err)

	assert.True(t, report.MarketOpen)
	require.Len(t, report.Orders, 2)
	assert.Equal(t, 2, report.Count(contracts.StatusSubmitted))
	for _, o := range report.Orders {
		assert.NotEmpty(t, o.BrokerID)
	}

	submitted := broker.Submitted()
	require.Len(t, submitted, 2)
	assert.Equal(t, alpaca.OrderRequest{
		Symbol:        "FB",
		Qty:           "10",
		Side:          "buy",
		Type:          "market",
		TimeInForce:   "gtc",
		ClientOrderID: report.Orders[0].ID,
	}, submitted[0])

	positions, err := broker.ListPositions(context.Background())
	require.NoError(t, err)
	assert.Len(t, positions, 2)

	assert.Len(t, store.orders["run-1"], 2)
}

func TestExecute_NotTradable(t *testing.T) {
	broker := NewMockBroker()
	broker.SetAsset(alpaca.Asset{Symbol: "FB", Tradable: false})

	report, err := NewExecutor(broker, DefaultExecutionConfig(), nil, logger.NewNop()).
		Execute(context.Background(), "run-2", testAllocation())
	require.NoError(t, err)

	assert.Equal(t, contracts.StatusNotTradable, report.Orders[0].Status)
	assert.Equal(t, ReasonNotTradable, report.Orders[0].Reason)
	assert.Equal(t, contracts.StatusSubmitted, report.Orders[1].Status)
	assert.Len(t, broker.Submitted(), 1)
}

func TestExecute_RejectionDoesNotStopOthers(t *testing.T) {
	broker := NewMockBroker()
	broker.RejectOrders("FB", errors.New("insufficient buying power"))

	report, err := NewExecutor(broker, DefaultExecutionConfig(), nil, logger.NewNop()).
		Execute(context.Background(), "run-3", testAllocation())
	require.NoError(t, err)

	assert.Equal(t, contracts.StatusRejected, report.Orders[0].Status)
	assert.Contains(t, report.Orders[0].Reason, "insufficient buying power")
	assert.Equal(t, contracts.StatusSubmitted, report.Orders[1].Status)
}

func TestExecute_MarketClosed(t *testing.T) {
	broker := NewMockBroker()
	broker.SetMarketOpen(false)

	// GTC orders still go out by default
	report, err := NewExecutor(broker, DefaultExecutionConfig(), nil, logger.NewNop()).
		Execute(context.Background(), "run-4", testAllocation())
	require.NoError(t, err)
	assert.False(t, report.MarketOpen)
	assert.Equal(t, 2, report.Count(contracts.StatusSubmitted))

	cfg := DefaultExecutionConfig()
	cfg.RequireOpenMarket = true
	closed := NewMockBroker()
	closed.SetMarketOpen(false)

	report, err = NewExecutor(closed, cfg, nil, logger.NewNop()).
		Execute(context.Background(), "run-5", testAllocation())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Count(contracts.StatusSkipped))
	assert.Equal(t, ReasonMarketClosed, report.Orders[0].Reason)
	assert.Empty(t, closed.Submitted())
}

type blockedBroker struct{ *MockBroker }

func (b blockedBroker) GetAccount(ctx context.Context) (*alpaca.Account, error) {
	return &alpaca.Account{TradingBlocked: true}, nil
}

func TestExecute_TradingBlocked(t *testing.T) {
	_, err := NewExecutor(blockedBroker{NewMockBroker()}, DefaultExecutionConfig(), nil, logger.NewNop()).
		Execute(context.Background(), "run-6", testAllocation())
	assert.ErrorIs(t, err, ErrTradingBlocked)
}

func TestExecute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	broker := NewMockBroker()
	report, err := NewExecutor(broker, DefaultExecutionConfig(), nil, logger.NewNop()).
		Execute(ctx, "run-7", testAllocation())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Orders)
	assert.Empty(t, broker.Submitted())
}
