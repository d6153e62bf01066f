package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMarketOrder(t *testing.T) {
	o, err := NewMarketOrder("o1", "BTC-USD", "trader-1", OrderSideBuy, 1.5, "")
	require.NoError(t, err)
	assert.Nil(t, o.Price)
	assert.Equal(t, TimeInForceGTC, o.TIF)
	assert.False(t, o.Timestamp.IsZero())

	_, err = NewMarketOrder("", "BTC-USD", "trader-1", OrderSideBuy, 1.5, "")
	assert.Error(t, err)

	_, err = NewMarketOrder("o1", "BTC-USD", "trader-1", OrderSideBuy, 0, "")
	assert.Error(t, err)
}

func TestNewLimitOrder(t *testing.T) {
	o, err := NewLimitOrder("o1", "BTC-USD", "trader-1", OrderSideSell, 100, 2, TimeInForceIOC)
	require.NoError(t, err)
	require.NotNil(t, o.Price)
	assert.Equal(t, 100.0, *o.Price)

	_, err = NewLimitOrder("o1", "BTC-USD", "trader-1", OrderSideSell, 0, 2, TimeInForceIOC)
	assert.Error(t, err)
}

func TestNewStopLimitOrderRequiresBothPrices(t *testing.T) {
	_, err := NewStopLimitOrder("o1", "BTC-USD", "trader-1", OrderSideBuy, 0, 0, 1, TimeInForceGTC)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price")
	assert.Contains(t, err.Error(), "aux_price")

	o, err := NewStopLimitOrder("o1", "BTC-USD", "trader-1", OrderSideBuy, 100, 99, 1, TimeInForceGTC)
	require.NoError(t, err)
	assert.Equal(t, 100.0, *o.Price)
	assert.Equal(t, 99.0, *o.AuxPrice)
}

func TestNewIcebergOrderDisplayQuantityBounds(t *testing.T) {
	_, err := NewIcebergOrder("o1", "BTC-USD", "trader-1", OrderSideBuy, 100, 10, 20, TimeInForceGTC)
	assert.Error(t, err, "display quantity greater than total quantity must be rejected")

	o, err := NewIcebergOrder("o1", "BTC-USD", "trader-1", OrderSideBuy, 100, 10, 2, TimeInForceGTC)
	require.NoError(t, err)
	assert.Equal(t, 2.0, *o.DisplayQuantity)
	assert.True(t, o.IsIceberg())
}

func TestOrderFromMapAggregatesAllInvalidFields(t *testing.T) {
	_, err := OrderFromMap(map[string]interface{}{
		"type":     "limit",
		"side":     "sideways",
		"id":       "",
		"quantity": 0,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "side")
	assert.Contains(t, err.Error(), "id")
	assert.Contains(t, err.Error(), "quantity")
}

func TestOrderFromMapDispatchesByType(t *testing.T) {
	o, err := OrderFromMap(map[string]interface{}{
		"type":     "market",
		"side":     "buy",
		"id":       "o1",
		"symbol":   "ETH-USD",
		"quantity": 3.0,
	})
	require.NoError(t, err)
	assert.Equal(t, OrderTypeMarket, o.Type)
	assert.Equal(t, OrderSideBuy, o.Side)
}

func TestEffectivePrice(t *testing.T) {
	buy, _ := NewMarketOrder("o1", "S", "t", OrderSideBuy, 1, "")
	sell, _ := NewMarketOrder("o2", "S", "t", OrderSideSell, 1, "")
	assert.True(t, buy.EffectivePrice() > 1e300)
	assert.Equal(t, 0.0, sell.EffectivePrice())

	limit, _ := NewLimitOrder("o3", "S", "t", OrderSideBuy, 42, 1, "")
	assert.Equal(t, 42.0, limit.EffectivePrice())
}
