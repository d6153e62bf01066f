// Package matching implements the order book and matching engine: a
// price-time (and optionally pro-rata) priority book per symbol, with fee
// attribution and contingent-order support layered on top in
// internal/matching.
package matching

import (
	"time"

	"github.com/quantforge/simtrader/internal/trading/types"
)

// Trade is an immutable record of one execution between a resting maker
// order and an incoming taker order.
type Trade struct {
	ID     string
	Symbol string

	// BuyOrderID/SellOrderID are the external payload shape from §6: the
	// trade's buy- and sell-side order ids, regardless of which side was
	// maker or taker.
	BuyOrderID  string
	SellOrderID string

	MakerOrderID  string
	TakerOrderID  string
	MakerTraderID string
	TakerTraderID string

	Price     float64
	Quantity  float64
	TakerSide types.OrderSide
	MakerFee  float64
	TakerFee  float64
	Timestamp time.Time
}

// PriceLevel summarizes the aggregate resting quantity at one price.
type PriceLevel struct {
	Price    float64
	Quantity float64
	Orders   int
}

// Snapshot is a read-only view of both sides of a book's depth, best bid
// first / best ask first.
type Snapshot struct {
	Symbol string
	Bids   []PriceLevel
	Asks   []PriceLevel
}

// FeeSchedule holds the maker/taker fee rates applied to every trade's
// notional value. Rates are fractions of notional (0.001 == 10 bps).
type FeeSchedule struct {
	MakerRate float64
	TakerRate float64
}

// DefaultFeeSchedule matches the fee rates the teacher's matching engine
// used: 5 bps maker, 10 bps taker.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{MakerRate: 0.0005, TakerRate: 0.001}
}
