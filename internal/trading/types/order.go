// Package types holds the order/side/type vocabulary shared by the order
// book, matching engine, and risk packages.
package types

import (
	"math"
	"time"
)

// OrderSide is the side of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType is the order's matching behavior.
type OrderType string

const (
	OrderTypeMarket       OrderType = "MARKET"
	OrderTypeLimit        OrderType = "LIMIT"
	OrderTypeStopLoss     OrderType = "STOP_LOSS"
	OrderTypeStopLimit    OrderType = "STOP_LIMIT"
	OrderTypeTrailingStop OrderType = "TRAILING_STOP"
	OrderTypeIceberg      OrderType = "ICEBERG"
)

// IsContingent reports whether the type is held by the engine rather than
// resting directly on an OrderBook.
func (t OrderType) IsContingent() bool {
	switch t {
	case OrderTypeStopLoss, OrderTypeStopLimit, OrderTypeTrailingStop, OrderTypeIceberg:
		return true
	default:
		return false
	}
}

// TimeInForce governs what happens to residual quantity after a match pass.
type TimeInForce string

const (
	TimeInForceGTC TimeInForce = "GTC"
	TimeInForceIOC TimeInForce = "IOC"
)

// ParseTimeInForce coerces a string alias to a TimeInForce, defaulting to GTC
// for an empty string.
func ParseTimeInForce(s string) (TimeInForce, bool) {
	switch s {
	case "", string(TimeInForceGTC):
		return TimeInForceGTC, true
	case string(TimeInForceIOC):
		return TimeInForceIOC, true
	default:
		return "", false
	}
}

// Order is the mutable residual-quantity order record described in the
// matching engine's data model. Identity (ID, Type, Side) is set at
// construction and never mutated; Quantity, Price (for TRAILING_STOP) and
// AuxPrice (trailing peak/trough tracker) are the mutable fields.
type Order struct {
	ID       string
	Type     OrderType
	Side     OrderSide
	Price    *float64
	Quantity float64
	Timestamp time.Time
	Symbol   string
	TraderID string
	TIF      TimeInForce

	// AuxPrice is the STOP_LIMIT limit price, or the running peak/trough for
	// TRAILING_STOP.
	AuxPrice *float64
	// TrailingOffset is the positive absolute offset for TRAILING_STOP.
	TrailingOffset *float64
	// DisplayQuantity is the visible slice for ICEBERG.
	DisplayQuantity *float64

	// ParentID links an iceberg child back to its parent order id. Empty for
	// every other order.
	ParentID string

	// Seq is the book-assigned arrival sequence, used to break price/time
	// ties. Zero until the order is added to an OrderBook.
	Seq uint64
	// Index is maintained by container/heap and must not be set by callers.
	Index int
}

// RemainingQuantity returns the order's residual quantity. Quantity already
// *is* the residual (it is decremented in place on every partial fill), so
// this is a readability alias used by matching code that talks about
// "remaining" quantity explicitly.
func (o *Order) RemainingQuantity() float64 {
	return o.Quantity
}

// IsIceberg reports whether this order is an iceberg parent.
func (o *Order) IsIceberg() bool {
	return o.Type == OrderTypeIceberg
}

// EffectivePrice returns the comparison key used for price-time ordering:
// +Inf for a market buy, 0 for a market sell, else the order's price.
func (o *Order) EffectivePrice() float64 {
	if o.Price == nil {
		if o.Side == OrderSideBuy {
			return math.Inf(1)
		}
		return 0
	}
	return *o.Price
}
