package execution

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

func testAllocation() *contracts.AllocationResult {
	return &contracts.AllocationResult{
		Assets: []string{"FB", "AMZN", "AAPL", "SNAP"},
		Shares: map[string]int{"FB": 10, "AMZN": 0, "AAPL": 25, "SNAP": 0},
		Prices: map[string]float64{"FB": 260, "AMZN": 3200, "AAPL": 120},
		Skipped: []contracts.AllocationSkippedAssetWarning{
			{Symbol: "SNAP", Weight: 0.1, Reason: "no tradable price available"},
		},
	}
}

func TestPlan_BuyOrdersInAssetOrder(t *testing.T) {
	orders := NewPlanner(DefaultExecutionConfig(), logger.NewNop()).Plan(testAllocation())

	require.Len(t, orders, 2)
	assert.Equal(t, "FB", orders[0].Symbol)
	assert.Equal(t, 10, orders[0].Qty)
	assert.Equal(t, "AAPL", orders[1].Symbol)
	assert.Equal(t, 25, orders[1].Qty)

	for _, o := range orders {
		assert.Equal(t, contracts.OrderSideBuy, o.Side)
		assert.True(t, o.IsMarketOrder())
		assert.Equal(t, contracts.TimeInForceGTC, o.TimeInForce)
		assert.Equal(t, contracts.StatusPending, o.Status)
		assert.NotEmpty(t, o.ID)
	}
	assert.NotEqual(t, orders[0].ID, orders[1].ID)
}

func TestPlan_NilAllocation(t *testing.T) {
	assert.Empty(t, NewPlanner(DefaultExecutionConfig(), logger.NewNop()).Plan(nil))
}

func TestPlan_NothingAllocated(t *testing.T) {
	alloc := &contracts.AllocationResult{
		Assets: []string{"AAA"},
		Shares: map[string]int{"AAA": 0},
	}
	assert.Empty(t, NewPlanner(DefaultExecutionConfig(), logger.NewNop()).Plan(alloc))
}
