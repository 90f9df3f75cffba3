package contracts

import "time"

// Order is a buy/sell intent handed to the broker
// ⭐ SSOT: S5 → Broker order payload
type Order struct {
	ID          string      `json:"id"` // client order id
	Symbol      string      `json:"symbol"`
	Side        OrderSide   `json:"side"`
	Qty         int         `json:"qty"`
	OrderType   OrderType   `json:"order_type"`
	TimeInForce TimeInForce `json:"time_in_force"`
	Status      Status      `json:"status"`
	BrokerID    string      `json:"broker_id,omitempty"`
	Reason      string      `json:"reason,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// OrderSide represents buy or sell
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// OrderType represents market or limit order
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// TimeInForce controls how long an order stays open
type TimeInForce string

const (
	TimeInForceDay TimeInForce = "day"
	TimeInForceGTC TimeInForce = "gtc"
)

// Status represents order status
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusSubmitted   Status = "SUBMITTED"
	StatusFilled      Status = "FILLED"
	StatusRejected    Status = "REJECTED"
	StatusNotTradable Status = "NOT_TRADABLE"
	StatusSkipped     Status = "SKIPPED"
)

// IsMarketOrder checks if the order is a market order
func (o *Order) IsMarketOrder() bool {
	return o.OrderType == OrderTypeMarket
}

// IsSubmitted reports whether the broker accepted the order
func (o *Order) IsSubmitted() bool {
	return o.Status == StatusSubmitted || o.Status == StatusFilled
}
