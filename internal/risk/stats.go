package risk

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
)

// Summarize computes the terminal value summary; values are not modified
func Summarize(values []float64) contracts.SimulationSummary {
	if len(values) == 0 {
		return contracts.SimulationSummary{}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	return contracts.SimulationSummary{
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		StdDev: StdDev(values),
		Min:    floats.Min(values),
		P25:    Percentile(sorted, 25),
		P50:    Percentile(sorted, 50),
		P75:    Percentile(sorted, 75),
		Max:    floats.Max(values),
	}
}

// StdDev is the sample standard deviation, 0 for fewer than 2 values
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return stat.StdDev(values, nil)
}

// Percentile interpolates linearly between the closest ranks of sorted,
// with rank p/100*(n-1). p is in [0, 100].
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}

	idx := p / 100.0 * float64(len(sorted)-1)
	lower := int(math.Floor(idx))
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}

	weight := idx - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// ProbabilityBelow is the share of values strictly below threshold
func ProbabilityBelow(values []float64, threshold float64) float64 {
	if len(values) == 0 {
		return 0
	}
	below := 0
	for _, v := range values {
		if v < threshold {
			below++
		}
	}
	return float64(below) / float64(len(values))
}

// ValueAtRisk is the loss against reference at the given confidence,
// reported as a positive amount; no loss gives 0
func ValueAtRisk(values []float64, reference, confidence float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	tail := Percentile(sorted, (1-confidence)*100)
	return math.Max(reference-tail, 0)
}
