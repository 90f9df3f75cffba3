package contracts

import (
	"math"
	"time"
)

// PricePoint is one adjusted close observation
type PricePoint struct {
	Date     time.Time `json:"date"`
	AdjClose float64   `json:"adj_close"`
}

// PriceSeries is the adjusted close history of one asset
// ⭐ SSOT: S0 → S1 price history, one immutable series per asset
type PriceSeries struct {
	Symbol string       `json:"symbol"`
	Points []PricePoint `json:"points"`
}

// MinObservations is the shortest usable series (one return needs two prices)
const MinObservations = 2

// Len returns the number of observations
func (s PriceSeries) Len() int {
	return len(s.Points)
}

// Latest returns the last adjusted close, or false for an empty series
func (s PriceSeries) Latest() (float64, bool) {
	if len(s.Points) == 0 {
		return 0, false
	}
	return s.Points[len(s.Points)-1].AdjClose, true
}

// Dates returns the observation dates in order
func (s PriceSeries) Dates() []time.Time {
	dates := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		dates[i] = p.Date
	}
	return dates
}

// Validate rejects short series, gaps and ordering problems.
// A missing value (NaN, Inf or non-positive) is a gap; nothing is interpolated.
func (s PriceSeries) Validate() error {
	if len(s.Points) < MinObservations {
		return &InsufficientDataError{
			Symbol:       s.Symbol,
			Observations: len(s.Points),
			Reason:       "at least 2 price observations are required",
		}
	}

	for i, p := range s.Points {
		if math.IsNaN(p.AdjClose) || math.IsInf(p.AdjClose, 0) || p.AdjClose <= 0 {
			return &InsufficientDataError{
				Symbol:       s.Symbol,
				Observations: len(s.Points),
				Reason:       "missing price on " + p.Date.Format("2006-01-02"),
			}
		}
		if i > 0 && !p.Date.After(s.Points[i-1].Date) {
			return &InsufficientDataError{
				Symbol:       s.Symbol,
				Observations: len(s.Points),
				Reason:       "dates are not strictly increasing at " + p.Date.Format("2006-01-02"),
			}
		}
	}

	return nil
}
