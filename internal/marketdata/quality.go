package marketdata

import (
	"fmt"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
)

// QualityConfig holds coverage thresholds
type QualityConfig struct {
	MinCoverage     float64 `yaml:"min_coverage"`     // share of the union of dates, 0.95
	MinObservations int     `yaml:"min_observations"` // rows per series, 2 yields one return
}

// DefaultQualityConfig returns the default thresholds
func DefaultQualityConfig() QualityConfig {
	return QualityConfig{
		MinCoverage:     0.95,
		MinObservations: 2,
	}
}

// QualitySnapshot is the coverage report of a set of series
type QualitySnapshot struct {
	TradingDays  int                `json:"trading_days"` // union of all dates
	CommonDays   int                `json:"common_days"`  // dates present in every series
	Coverage     map[string]float64 `json:"coverage"`
	QualityScore float64            `json:"quality_score"` // mean coverage
	Issues       []string           `json:"issues,omitempty"`
}

// Passed reports whether no threshold was breached
func (s *QualitySnapshot) Passed() bool {
	return len(s.Issues) == 0
}

// QualityGate checks fetched series before they reach the estimator
// ⭐ SSOT: price coverage checks live here
type QualityGate struct {
	config QualityConfig
}

// NewQualityGate creates a new quality gate
func NewQualityGate(config QualityConfig) *QualityGate {
	return &QualityGate{config: config}
}

// Check measures each series against the union of dates. Gaps here are
// what makes an unaligned price matrix fail.
func (g *QualityGate) Check(series []contracts.PriceSeries) *QualitySnapshot {
	snapshot := &QualitySnapshot{Coverage: make(map[string]float64, len(series))}
	if len(series) == 0 {
		return snapshot
	}

	counts := make(map[int64]int)
	for _, s := range series {
		for _, d := range s.Dates() {
			counts[d.Unix()]++
		}
	}
	snapshot.TradingDays = len(counts)
	for _, n := range counts {
		if n == len(series) {
			snapshot.CommonDays++
		}
	}

	total := 0.0
	for _, s := range series {
		cov := 0.0
		if snapshot.TradingDays > 0 {
			cov = float64(s.Len()) / float64(snapshot.TradingDays)
		}
		snapshot.Coverage[s.Symbol] = cov
		total += cov

		if s.Len() < g.config.MinObservations {
			snapshot.Issues = append(snapshot.Issues,
				fmt.Sprintf("%s has %d rows, need %d", s.Symbol, s.Len(), g.config.MinObservations))
		} else if cov < g.config.MinCoverage {
			snapshot.Issues = append(snapshot.Issues,
				fmt.Sprintf("%s covers %.1f%% of %d trading days", s.Symbol, cov*100, snapshot.TradingDays))
		}
	}
	snapshot.QualityScore = total / float64(len(series))

	return snapshot
}
