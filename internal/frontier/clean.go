package frontier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// DefaultWeightCutoff is the smallest weight kept by CleanWeights
const DefaultWeightCutoff = 1e-4

// VarianceFloor keeps volatility and Sharpe finite for degenerate portfolios
const VarianceFloor = 1e-10

// CleanWeights zeroes weights below cutoff and renormalises the rest to sum
// to 1. Renormalising can push a weight back under the cutoff, so the pass
// repeats until nothing changes. Clean weights come back unchanged.
func CleanWeights(w []float64, cutoff float64) ([]float64, error) {
	out := append([]float64(nil), w...)

	for {
		for i, v := range out {
			if v != 0 && (v < cutoff || math.IsNaN(v)) {
				out[i] = 0
			}
		}

		total := floats.Sum(out)
		if !(total > 0) {
			return nil, fmt.Errorf("every weight is below the cutoff %.2g", cutoff)
		}
		if math.Abs(total-1) > 1e-12 {
			floats.Scale(1/total, out)
		}

		if !belowCutoff(out, cutoff) {
			return out, nil
		}
	}
}

func belowCutoff(w []float64, cutoff float64) bool {
	for _, v := range w {
		if v != 0 && v < cutoff {
			return true
		}
	}
	return false
}

// Performance is expected return, volatility and Sharpe of one weight vector
type Performance struct {
	ExpectedReturn float64
	Volatility     float64
	SharpeRatio    float64
}

// Evaluate computes annual performance of w; wᵀΣw is floored at VarianceFloor
func Evaluate(w, mu []float64, cov mat.Symmetric, riskFreeRate float64) Performance {
	ret := floats.Dot(w, mu)

	wv := mat.NewVecDense(len(w), append([]float64(nil), w...))
	variance := math.Max(mat.Inner(wv, cov, wv), VarianceFloor)
	vol := math.Sqrt(variance)

	return Performance{
		ExpectedReturn: ret,
		Volatility:     vol,
		SharpeRatio:    (ret - riskFreeRate) / vol,
	}
}
