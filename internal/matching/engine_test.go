package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/simtrader/internal/risk"
	"github.com/quantforge/simtrader/internal/trading/types"
	pkgmatching "github.com/quantforge/simtrader/pkg/matching"
)

func newTestEngine(t *testing.T, symbol string) *Engine {
	t.Helper()
	e := NewEngine()
	e.AddOrderBook(pkgmatching.NewOrderBook(symbol, e.bus, nil))
	return e
}

func submit(t *testing.T, e *Engine, o *types.Order, err error) *types.Order {
	t.Helper()
	require.NoError(t, err)
	require.NoError(t, e.SubmitOrder(o))
	return o
}

// Scenario 1: basic cross.
func TestScenarioBasicCross(t *testing.T) {
	e := newTestEngine(t, "AAPL")
	b1, err := types.NewLimitOrder("b1", "AAPL", "", types.OrderSideBuy, 101.0, 2, types.TimeInForceGTC)
	submit(t, e, b1, err)
	a1, err := types.NewLimitOrder("a1", "AAPL", "", types.OrderSideSell, 100.5, 1, types.TimeInForceGTC)
	submit(t, e, a1, err)

	trades := e.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "b1", trades[0].BuyOrderID)
	assert.Equal(t, "a1", trades[0].SellOrderID)
	assert.Equal(t, 100.5, trades[0].Price)
	assert.Equal(t, 1.0, trades[0].Quantity)

	book := e.books["AAPL"]
	assert.Equal(t, 1.0, book.GetOrder("b1").Quantity)
	assert.Nil(t, book.GetOrder("a1"))
}

// Scenario 2: price-time tie-break.
func TestScenarioPriceTimeTieBreak(t *testing.T) {
	e := newTestEngine(t, "AAPL")
	b1, err := types.NewLimitOrder("b1", "AAPL", "", types.OrderSideBuy, 100.0, 1, types.TimeInForceGTC)
	submit(t, e, b1, err)
	b2, err := types.NewLimitOrder("b2", "AAPL", "", types.OrderSideBuy, 100.0, 1, types.TimeInForceGTC)
	submit(t, e, b2, err)
	a1, err := types.NewLimitOrder("a1", "AAPL", "", types.OrderSideSell, 100.0, 1, types.TimeInForceGTC)
	submit(t, e, a1, err)

	trades := e.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "b1", trades[0].BuyOrderID)
}

// Scenario 3: IOC residue cancelled.
func TestScenarioIOCResidueCancelled(t *testing.T) {
	e := newTestEngine(t, "AAPL")
	a1, err := types.NewLimitOrder("a1", "AAPL", "", types.OrderSideSell, 100.0, 1, types.TimeInForceGTC)
	submit(t, e, a1, err)

	buy, err := types.NewLimitOrder("b1", "AAPL", "", types.OrderSideBuy, 100.0, 5, types.TimeInForceIOC)
	submit(t, e, buy, err)

	trades := e.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, 1.0, trades[0].Quantity)

	book := e.books["AAPL"]
	assert.Nil(t, book.GetOrder("b1"), "IOC residue must not remain on the book")
}

// Scenario 4: stop triggers on last price.
func TestScenarioStopTriggersOnLastPrice(t *testing.T) {
	e := newTestEngine(t, "AAPL")
	e.lastPriceBySymbol["AAPL"] = 98.0
	e.lastPriceGlobal = 98.0

	buyer := risk.NewTrader("buyer", 1_000_000, risk.Config{}, nil)
	seller := risk.NewTrader("seller", 1_000_000, risk.Config{}, nil)
	stopTrader := risk.NewTrader("stopper", 1_000_000, risk.Config{}, nil)
	e.RegisterTrader(buyer)
	e.RegisterTrader(seller)
	e.RegisterTrader(stopTrader)

	stop, err := types.NewStopLossOrder("s1", "AAPL", "stopper", types.OrderSideSell, 99.0, 3, types.TimeInForceGTC)
	submit(t, e, stop, err)

	// Drive a print at 98.5 via a resting ask crossed by an incoming bid.
	ask, err := types.NewLimitOrder("a1", "AAPL", "seller", types.OrderSideSell, 98.5, 10, types.TimeInForceGTC)
	submit(t, e, ask, err)
	bid, err := types.NewLimitOrder("b1", "AAPL", "buyer", types.OrderSideBuy, 98.5, 10, types.TimeInForceGTC)
	submit(t, e, bid, err)

	book := e.books["AAPL"]
	derived := book.GetOrder("s1-mkt")
	require.NotNil(t, derived, "the stop should have triggered and been replaced by a derived market order")
	assert.Equal(t, 3.0, derived.Quantity)
	assert.Equal(t, types.OrderTypeMarket, derived.Type)

	trades := e.Trades()
	require.Len(t, trades, 1, "the ask/bid cross at 98.5; the derived market sell has no resting bid left to match")
}

// Scenario 5: iceberg replenishment.
func TestScenarioIcebergReplenishment(t *testing.T) {
	e := newTestEngine(t, "AAPL")
	parent, err := types.NewIcebergOrder("ice1", "AAPL", "", types.OrderSideBuy, 100.0, 10, 2, types.TimeInForceGTC)
	submit(t, e, parent, err)

	book := e.books["AAPL"]
	state := e.icebergs["ice1"]
	require.NotNil(t, state)
	firstChild := state.childID
	require.NotNil(t, book.GetOrder(firstChild))
	assert.Equal(t, 2.0, book.GetOrder(firstChild).Quantity)

	sell, err := types.NewLimitOrder("a1", "AAPL", "", types.OrderSideSell, 100.0, 2, types.TimeInForceGTC)
	submit(t, e, sell, err)

	assert.Nil(t, book.GetOrder(firstChild), "the filled child should be gone")
	newState := e.icebergs["ice1"]
	require.NotNil(t, newState)
	assert.NotEqual(t, firstChild, newState.childID)
	require.NotNil(t, book.GetOrder(newState.childID))
	assert.Equal(t, 2.0, book.GetOrder(newState.childID).Quantity)
	assert.Equal(t, 6.0, newState.remaining) // 10 - 2 (first child) - 2 (second child spawned)
}

// Scenario 6: pro-rata allocation.
func TestScenarioProRataAllocation(t *testing.T) {
	e := NewEngine(WithStrategy(StrategyProRata))
	e.AddOrderBook(pkgmatching.NewOrderBook("AAPL", e.bus, nil))

	b1, err := types.NewLimitOrder("b1", "AAPL", "", types.OrderSideBuy, 100.0, 30, types.TimeInForceGTC)
	submit(t, e, b1, err)
	b2, err := types.NewLimitOrder("b2", "AAPL", "", types.OrderSideBuy, 100.0, 70, types.TimeInForceGTC)
	submit(t, e, b2, err)

	sell, err := types.NewLimitOrder("a1", "AAPL", "", types.OrderSideSell, 100.0, 50, types.TimeInForceGTC)
	submit(t, e, sell, err)

	trades := e.Trades()
	require.Len(t, trades, 2)
	var qtyB1, qtyB2 float64
	for _, tr := range trades {
		assert.Equal(t, 100.0, tr.Price)
		switch tr.BuyOrderID {
		case "b1":
			qtyB1 += tr.Quantity
		case "b2":
			qtyB2 += tr.Quantity
		}
	}
	assert.InDelta(t, 15.0, qtyB1, 1e-9)
	assert.InDelta(t, 35.0, qtyB2, 1e-9)
}

// Mirror image of scenario 6: the ask side holds the plural resting
// population, so it must be the one allocated proportionally, with the
// single resting bid drawn from sequentially.
func TestScenarioProRataAllocationMirrored(t *testing.T) {
	e := NewEngine(WithStrategy(StrategyProRata))
	e.AddOrderBook(pkgmatching.NewOrderBook("AAPL", e.bus, nil))

	a1, err := types.NewLimitOrder("a1", "AAPL", "", types.OrderSideSell, 100.0, 30, types.TimeInForceGTC)
	submit(t, e, a1, err)
	a2, err := types.NewLimitOrder("a2", "AAPL", "", types.OrderSideSell, 100.0, 70, types.TimeInForceGTC)
	submit(t, e, a2, err)

	buy, err := types.NewLimitOrder("b1", "AAPL", "", types.OrderSideBuy, 100.0, 50, types.TimeInForceGTC)
	submit(t, e, buy, err)

	trades := e.Trades()
	require.Len(t, trades, 2)
	var qtyA1, qtyA2 float64
	for _, tr := range trades {
		assert.Equal(t, 100.0, tr.Price)
		switch tr.SellOrderID {
		case "a1":
			qtyA1 += tr.Quantity
		case "a2":
			qtyA2 += tr.Quantity
		}
	}
	assert.InDelta(t, 15.0, qtyA1, 1e-9)
	assert.InDelta(t, 35.0, qtyA2, 1e-9)
}

func TestMatchOrdersIdempotentAtQuiescence(t *testing.T) {
	e := newTestEngine(t, "AAPL")
	b1, err := types.NewLimitOrder("b1", "AAPL", "", types.OrderSideBuy, 100.0, 1, types.TimeInForceGTC)
	submit(t, e, b1, err)

	e.MatchOrders("AAPL")
	before := len(e.Trades())
	e.MatchOrders("AAPL")
	assert.Equal(t, before, len(e.Trades()))
}

func TestCancelOrderRemovesFromBook(t *testing.T) {
	e := newTestEngine(t, "AAPL")
	b1, err := types.NewLimitOrder("b1", "AAPL", "", types.OrderSideBuy, 100.0, 1, types.TimeInForceGTC)
	submit(t, e, b1, err)

	removed := e.CancelOrder("b1", "AAPL")
	require.NotNil(t, removed)
	assert.Nil(t, e.books["AAPL"].GetOrder("b1"))
}

func TestSubmitOrderUnknownSymbolRejected(t *testing.T) {
	e := NewEngine()
	o, err := types.NewLimitOrder("b1", "ZZZZ", "", types.OrderSideBuy, 1, 1, types.TimeInForceGTC)
	require.NoError(t, err)
	err = e.SubmitOrder(o)
	assert.ErrorIs(t, err, types.ErrUnknownSymbol)
}

func TestPnLReportUnknownTrader(t *testing.T) {
	e := NewEngine()
	_, err := e.PnLReport("nobody")
	assert.ErrorIs(t, err, types.ErrUnknownTrader)
}

func TestTradeTimestampIsUTC(t *testing.T) {
	e := newTestEngine(t, "AAPL")
	b1, err := types.NewLimitOrder("b1", "AAPL", "", types.OrderSideBuy, 101.0, 1, types.TimeInForceGTC)
	submit(t, e, b1, err)
	a1, err := types.NewLimitOrder("a1", "AAPL", "", types.OrderSideSell, 100.0, 1, types.TimeInForceGTC)
	submit(t, e, a1, err)

	trades := e.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, time.UTC, trades[0].Timestamp.Location())
}
