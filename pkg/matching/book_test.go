package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantforge/simtrader/internal/trading/types"
)

func mustLimit(t *testing.T, id, symbol string, side types.OrderSide, price, qty float64) *types.Order {
	t.Helper()
	o, err := types.NewLimitOrder(id, symbol, "", side, price, qty, types.TimeInForceGTC)
	require.NoError(t, err)
	return o
}

func TestOrderBookRejectsSymbolMismatch(t *testing.T) {
	b := NewOrderBook("AAPL", nil, nil)
	o := mustLimit(t, "o1", "MSFT", types.OrderSideBuy, 1, 1)
	err := b.AddOrder(o)
	assert.ErrorIs(t, err, types.ErrSymbolMismatch)
}

func TestOrderBookRejectsContingentOrders(t *testing.T) {
	b := NewOrderBook("AAPL", nil, nil)
	o, err := types.NewStopLossOrder("o1", "AAPL", "", types.OrderSideSell, 100, 1, types.TimeInForceGTC)
	require.NoError(t, err)
	err = b.AddOrder(o)
	assert.ErrorIs(t, err, types.ErrNotRoutable)
}

func TestBestBidBestAskPriority(t *testing.T) {
	b := NewOrderBook("AAPL", nil, nil)
	require.NoError(t, b.AddOrder(mustLimit(t, "b1", "AAPL", types.OrderSideBuy, 99, 1)))
	require.NoError(t, b.AddOrder(mustLimit(t, "b2", "AAPL", types.OrderSideBuy, 101, 1)))
	require.NoError(t, b.AddOrder(mustLimit(t, "a1", "AAPL", types.OrderSideSell, 105, 1)))
	require.NoError(t, b.AddOrder(mustLimit(t, "a2", "AAPL", types.OrderSideSell, 103, 1)))

	assert.Equal(t, "b2", b.BestBid().ID)
	assert.Equal(t, "a2", b.BestAsk().ID)
}

func TestBestBidTieBreaksByArrivalSequence(t *testing.T) {
	b := NewOrderBook("AAPL", nil, nil)
	require.NoError(t, b.AddOrder(mustLimit(t, "first", "AAPL", types.OrderSideBuy, 100, 1)))
	require.NoError(t, b.AddOrder(mustLimit(t, "second", "AAPL", types.OrderSideBuy, 100, 1)))

	assert.Equal(t, "first", b.BestBid().ID)
}

func TestRemoveOrderTombstonesAndSkipsOnNextQuery(t *testing.T) {
	b := NewOrderBook("AAPL", nil, nil)
	require.NoError(t, b.AddOrder(mustLimit(t, "b1", "AAPL", types.OrderSideBuy, 101, 1)))
	require.NoError(t, b.AddOrder(mustLimit(t, "b2", "AAPL", types.OrderSideBuy, 100, 1)))

	removed := b.RemoveOrder("b1")
	require.NotNil(t, removed)
	assert.Equal(t, "b2", b.BestBid().ID)
	assert.Nil(t, b.GetOrder("b1"))
}

func TestRemoveOrderUnknownIDIsNoop(t *testing.T) {
	b := NewOrderBook("AAPL", nil, nil)
	assert.Nil(t, b.RemoveOrder("nope"))
}

func TestDepthAggregatesByPriceAndExcludesMarketOrders(t *testing.T) {
	b := NewOrderBook("AAPL", nil, nil)
	require.NoError(t, b.AddOrder(mustLimit(t, "b1", "AAPL", types.OrderSideBuy, 100, 3)))
	require.NoError(t, b.AddOrder(mustLimit(t, "b2", "AAPL", types.OrderSideBuy, 100, 2)))
	require.NoError(t, b.AddOrder(mustLimit(t, "b3", "AAPL", types.OrderSideBuy, 99, 5)))
	mktOrder, err := types.NewMarketOrder("m1", "AAPL", "", types.OrderSideBuy, 10, types.TimeInForceGTC)
	require.NoError(t, err)
	require.NoError(t, b.AddOrder(mktOrder))

	depth := b.Depth(10)
	require.Len(t, depth.Bids, 2)
	assert.Equal(t, 100.0, depth.Bids[0].Price)
	assert.Equal(t, 5.0, depth.Bids[0].Quantity)
	assert.Equal(t, 2, depth.Bids[0].Orders)
	assert.Equal(t, 99.0, depth.Bids[1].Price)
}

func TestDepthTruncatesToLevels(t *testing.T) {
	b := NewOrderBook("AAPL", nil, nil)
	require.NoError(t, b.AddOrder(mustLimit(t, "b1", "AAPL", types.OrderSideBuy, 100, 1)))
	require.NoError(t, b.AddOrder(mustLimit(t, "b2", "AAPL", types.OrderSideBuy, 99, 1)))
	require.NoError(t, b.AddOrder(mustLimit(t, "b3", "AAPL", types.OrderSideBuy, 98, 1)))

	depth := b.Depth(2)
	assert.Len(t, depth.Bids, 2)
}

func TestAddThenCancelLeavesBookEmpty(t *testing.T) {
	b := NewOrderBook("AAPL", nil, nil)
	o := mustLimit(t, "b1", "AAPL", types.OrderSideBuy, 100, 1)
	require.NoError(t, b.AddOrder(o))
	b.RemoveOrder("b1")

	assert.Nil(t, b.BestBid())
	assert.Nil(t, b.GetOrder("b1"))
}
