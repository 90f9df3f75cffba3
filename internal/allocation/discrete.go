package allocation

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

const (
	ReasonNoPrice      = "no tradable price available"
	ReasonInvalidPrice = "price is not positive"
)

// Allocator converts target weights into whole shares
// ⭐ SSOT: S3 discrete allocation lives here
type Allocator struct {
	logger *logger.Logger
}

// NewAllocator creates an allocator
func NewAllocator(log *logger.Logger) *Allocator {
	return &Allocator{logger: log.WithField("module", "allocation")}
}

type position struct {
	symbol string
	weight float64
	price  decimal.Decimal
	target decimal.Decimal
	qty    int64
}

// value is the dollar amount currently held
func (p *position) value() decimal.Decimal {
	return p.price.Mul(decimal.NewFromInt(p.qty))
}

// shortfall is (target - value) / target
func (p *position) shortfall() decimal.Decimal {
	return p.target.Sub(p.value()).Div(p.target)
}

// AllocateResult allocates the budget against an optimisation result so the
// holdings come from exactly the weights whose performance was reported.
func (a *Allocator) AllocateResult(opt *contracts.OptimizationResult, prices map[string]float64, budget float64) (*contracts.AllocationResult, error) {
	return a.Allocate(opt.Assets, opt.Weights, prices, budget)
}

// Allocate floors every target dollar amount into shares, then buys one share
// at a time for the affordable asset with the largest relative shortfall
// until no priced asset fits in the remaining cash. Ties go to the asset
// listed first. Assets with weight but no usable price are reported in
// Skipped; assets with zero weight get zero shares.
func (a *Allocator) Allocate(assets []string, weights map[string]float64, prices map[string]float64, budget float64) (*contracts.AllocationResult, error) {
	if !(budget > 0) || math.IsInf(budget, 0) {
		return nil, fmt.Errorf("allocation budget must be positive, got %v", budget)
	}

	totalWeight := 0.0
	for _, sym := range assets {
		w := weights[sym]
		if w < 0 || math.IsNaN(w) {
			return nil, fmt.Errorf("weight for %s must be >= 0, got %v", sym, w)
		}
		totalWeight += w
	}
	if totalWeight > 1+1e-6 {
		return nil, fmt.Errorf("weights sum to %.6f, more than the budget", totalWeight)
	}

	cash := decimal.NewFromFloat(budget)
	result := &contracts.AllocationResult{
		Assets:  append([]string(nil), assets...),
		Shares:  make(map[string]int, len(assets)),
		Prices:  make(map[string]float64, len(assets)),
		Budget:  budget,
		Skipped: []contracts.AllocationSkippedAssetWarning{},
	}

	positions := make([]*position, 0, len(assets))
	for _, sym := range assets {
		result.Shares[sym] = 0
		w := weights[sym]
		if w == 0 {
			continue
		}

		price, ok := prices[sym]
		if !ok {
			result.Skipped = append(result.Skipped, a.skip(sym, w, ReasonNoPrice))
			continue
		}
		if !(price > 0) || math.IsInf(price, 0) {
			result.Skipped = append(result.Skipped, a.skip(sym, w, ReasonInvalidPrice))
			continue
		}

		p := decimal.NewFromFloat(price)
		target := decimal.NewFromFloat(w).Mul(cash)
		positions = append(positions, &position{
			symbol: sym,
			weight: w,
			price:  p,
			target: target,
			qty:    target.Div(p).Floor().IntPart(),
		})
		result.Prices[sym] = price
	}

	remaining := cash
	for _, p := range positions {
		remaining = remaining.Sub(p.value())
	}
	if remaining.IsNegative() {
		return nil, fmt.Errorf("floor allocation overspent the budget by %s", remaining.Neg().StringFixed(2))
	}

	for {
		var best *position
		var bestShortfall decimal.Decimal
		affordable := 0
		for _, p := range positions {
			if p.price.GreaterThan(remaining) {
				continue
			}
			affordable++
			sf := p.shortfall()
			if best == nil || sf.GreaterThan(bestShortfall) {
				best, bestShortfall = p, sf
			}
		}
		if best == nil {
			break
		}

		// cash only shrinks, so a lone affordable asset stays the only pick
		qty := int64(1)
		if affordable == 1 {
			qty = remaining.Div(best.price).Floor().IntPart()
		}
		best.qty += qty
		remaining = remaining.Sub(best.price.Mul(decimal.NewFromInt(qty)))
	}

	invested := decimal.Zero
	for _, p := range positions {
		result.Shares[p.symbol] = int(p.qty)
		invested = invested.Add(p.value())
	}
	result.Invested = invested.InexactFloat64()
	result.Leftover = remaining.InexactFloat64()

	a.logger.WithFields(map[string]interface{}{
		"assets":   len(assets),
		"priced":   len(positions),
		"skipped":  len(result.Skipped),
		"invested": result.Invested,
		"leftover": result.Leftover,
	}).Debug("Discrete allocation completed")

	return result, nil
}

func (a *Allocator) skip(symbol string, weight float64, reason string) contracts.AllocationSkippedAssetWarning {
	w := contracts.AllocationSkippedAssetWarning{Symbol: symbol, Weight: weight, Reason: reason}
	a.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"weight": weight,
	}).Warn(w.Error())
	return w
}
