package httputil_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/httputil"
	"github.com/bben1/PortfolioOptimisation-and-TradingBot/pkg/logger"
)

// Example_getJSON decodes a JSON response and reports non-2xx statuses
func Example_getJSON() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v2/clock" {
			w.Write([]byte(`{"is_open":true}`))
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := httputil.New(logger.NewNop()).DisableRetry().WithRate(10, 1)

	var clock struct {
		IsOpen bool `json:"is_open"`
	}
	if err := client.GetJSON(context.Background(), server.URL+"/v2/clock", &clock); err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Println("market open:", clock.IsOpen)

	err := client.GetJSON(context.Background(), server.URL+"/v2/missing", nil)
	var statusErr *httputil.StatusError
	if errors.As(err, &statusErr) {
		fmt.Println("status:", statusErr.StatusCode)
	}

	// Output:
	// market open: true
	// status: 404
}
