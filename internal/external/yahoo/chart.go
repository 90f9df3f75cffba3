package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// FetchSeries returns the daily adjusted closes of symbol for [start, end].
// Days the API reports as null are left out; nothing is filled in.
// A zero start asks for the full history and a zero end means today.
func (c *Client) FetchSeries(ctx context.Context, symbol string, start, end time.Time) (contracts.PriceSeries, error) {
	if start.IsZero() {
		start = time.Unix(0, 0).UTC()
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}

	params := url.Values{}
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	// period2 is exclusive
	params.Set("period2", strconv.FormatInt(end.AddDate(0, 0, 1).Unix(), 10))
	params.Set("interval", "1d")
	params.Set("events", "div,splits")
	params.Set("includeAdjustedClose", "true")

	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), params.Encode())

	var resp chartResponse
	if err := c.httpClient.GetJSON(ctx, fullURL, &resp); err != nil {
		return contracts.PriceSeries{}, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}

	series, dropped, err := parseChart(symbol, &resp)
	if err != nil {
		return contracts.PriceSeries{}, err
	}

	c.logger.WithFields(map[string]interface{}{
		"symbol":  symbol,
		"points":  series.Len(),
		"dropped": dropped,
	}).Debug("Fetched price history")

	return series, nil
}

// parseChart converts a chart response into a series keyed by exchange-local
// trading date (UTC midnight); it returns the number of null closes dropped
func parseChart(symbol string, resp *chartResponse) (contracts.PriceSeries, int, error) {
	if resp.Chart.Error != nil {
		return contracts.PriceSeries{}, 0, fmt.Errorf("yahoo chart %s: %s: %s", symbol, resp.Chart.Error.Code, resp.Chart.Error.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return contracts.PriceSeries{}, 0, fmt.Errorf("yahoo chart %s: no result", symbol)
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.AdjClose) == 0 {
		return contracts.PriceSeries{Symbol: symbol}, 0, nil
	}
	closes := result.Indicators.AdjClose[0].AdjClose
	if len(closes) != len(result.Timestamp) {
		return contracts.PriceSeries{}, 0, fmt.Errorf("yahoo chart %s: %d closes for %d timestamps", symbol, len(closes), len(result.Timestamp))
	}

	points := make([]contracts.PricePoint, 0, len(closes))
	dropped := 0
	for i, ts := range result.Timestamp {
		if closes[i] == nil {
			dropped++
			continue
		}
		local := time.Unix(ts+result.Meta.GMTOffset, 0).UTC()
		date := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)

		// intraday rows for the current session repeat the last date
		if n := len(points); n > 0 && points[n-1].Date.Equal(date) {
			points[n-1].AdjClose = *closes[i]
			continue
		}
		points = append(points, contracts.PricePoint{Date: date, AdjClose: *closes[i]})
	}

	return contracts.PriceSeries{Symbol: symbol, Points: points}, dropped, nil
}
