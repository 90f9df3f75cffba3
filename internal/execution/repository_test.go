package execution

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/config"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/database"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

func TestRepository_SaveAndList(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg.Database)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	runID := "test_" + time.Now().Format("20060102_150405.000000")
	repo := NewRepository(db.Pool)

	report, err := NewExecutor(NewMockBroker(), DefaultExecutionConfig(), repo, logger.NewNop()).
		Execute(ctx, runID, testAllocation())
	require.NoError(t, err)

	orders, err := repo.GetOrdersByRun(ctx, runID)
	require.NoError(t, err)
	require.Len(t, orders, len(report.Orders))
	for _, o := range orders {
		assert.Equal(t, contracts.StatusSubmitted, o.Status)
		assert.NotEmpty(t, o.BrokerID)
	}
}
