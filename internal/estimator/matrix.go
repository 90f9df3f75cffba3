package estimator

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
)

// PriceMatrix is a fixed-shape observations × assets price table.
// Columns follow the input asset order; rows are chronological.
type PriceMatrix struct {
	assets []string
	dates  []time.Time
	prices *mat.Dense
}

// NewPriceMatrix assembles validated series into one matrix.
// Every series must carry the same dates; a date missing from any series is
// an unresolved gap and fails with InsufficientDataError.
func NewPriceMatrix(series []contracts.PriceSeries) (*PriceMatrix, error) {
	if len(series) == 0 {
		return nil, &contracts.InsufficientDataError{Reason: "no price series supplied"}
	}

	seen := make(map[string]bool, len(series))
	for _, s := range series {
		if seen[s.Symbol] {
			return nil, fmt.Errorf("duplicate series for %s", s.Symbol)
		}
		seen[s.Symbol] = true

		if err := s.Validate(); err != nil {
			return nil, err
		}
	}

	ref := series[0]
	for _, s := range series[1:] {
		if err := sameDates(ref, s); err != nil {
			return nil, err
		}
	}

	rows, cols := ref.Len(), len(series)
	prices := mat.NewDense(rows, cols, nil)
	assets := make([]string, cols)
	for j, s := range series {
		assets[j] = s.Symbol
		for i, p := range s.Points {
			prices.Set(i, j, p.AdjClose)
		}
	}

	return &PriceMatrix{
		assets: assets,
		dates:  ref.Dates(),
		prices: prices,
	}, nil
}

func sameDates(ref, s contracts.PriceSeries) error {
	gap := func(reason string) error {
		return &contracts.InsufficientDataError{
			Symbol:       s.Symbol,
			Observations: s.Len(),
			Reason:       reason,
		}
	}

	if s.Len() != ref.Len() {
		return gap(fmt.Sprintf("%d observations against %d for %s; unresolved gap", s.Len(), ref.Len(), ref.Symbol))
	}
	for i := range s.Points {
		if !s.Points[i].Date.Equal(ref.Points[i].Date) {
			return gap(fmt.Sprintf("date %s does not line up with %s", s.Points[i].Date.Format("2006-01-02"), ref.Symbol))
		}
	}
	return nil
}

// Assets returns a copy of the column order
func (m *PriceMatrix) Assets() []string {
	return append([]string(nil), m.assets...)
}

// Dates returns a copy of the row dates
func (m *PriceMatrix) Dates() []time.Time {
	return append([]time.Time(nil), m.dates...)
}

// Observations returns the number of price rows
func (m *PriceMatrix) Observations() int {
	r, _ := m.prices.Dims()
	return r
}

// NumAssets returns the number of columns
func (m *PriceMatrix) NumAssets() int {
	_, c := m.prices.Dims()
	return c
}

// At returns the price of asset j at row i
func (m *PriceMatrix) At(i, j int) float64 {
	return m.prices.At(i, j)
}

// LatestPrices returns the last row keyed by asset
func (m *PriceMatrix) LatestPrices() map[string]float64 {
	last := m.Observations() - 1
	out := make(map[string]float64, len(m.assets))
	for j, a := range m.assets {
		out[a] = m.prices.At(last, j)
	}
	return out
}

// AlignSeries keeps only the dates shared by every series.
// It never fills values in; dropped dates are simply absent from all series.
func AlignSeries(series []contracts.PriceSeries) []contracts.PriceSeries {
	if len(series) == 0 {
		return nil
	}

	counts := make(map[int64]int)
	for _, s := range series {
		for _, p := range s.Points {
			counts[p.Date.Unix()]++
		}
	}

	shared := make(map[int64]bool, len(counts))
	for ts, n := range counts {
		if n == len(series) {
			shared[ts] = true
		}
	}

	out := make([]contracts.PriceSeries, len(series))
	for i, s := range series {
		points := make([]contracts.PricePoint, 0, len(shared))
		for _, p := range s.Points {
			if shared[p.Date.Unix()] {
				points = append(points, p)
			}
		}
		sort.Slice(points, func(a, b int) bool { return points[a].Date.Before(points[b].Date) })
		out[i] = contracts.PriceSeries{Symbol: s.Symbol, Points: points}
	}
	return out
}
