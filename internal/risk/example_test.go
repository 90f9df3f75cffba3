package risk_test

import (
	"context"
	"fmt"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/risk"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

func ExampleProjector_Project() {
	seed := uint64(42)
	result, err := risk.NewProjector(2, logger.NewNop()).Project(context.Background(), contracts.SimulationParams{
		InitialValue:   10000,
		ExpectedReturn: 0.10,
		Volatility:     0, // every trial follows the closed form
		TimeHorizon:    2,
		AnnualAddition: 1000,
		Iterations:     100,
		Seed:           &seed,
	})
	if err != nil {
		fmt.Println(err)
		return
	}

	fmt.Printf("median %.2f contributed %.2f loss %.2f\n",
		result.Summary.P50, result.Params.Contributed(), result.ProbabilityOfLoss)

	// Output:
	// median 14200.00 contributed 12000.00 loss 0.00
}
