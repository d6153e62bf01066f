package matching

import "gonum.org/v1/gonum/stat"

// TradeStats summarizes a symbol's trade tape. This is reporting-only: no
// OHLC/candle aggregation lives here, that belongs to the out-of-scope
// external candle aggregator.
type TradeStats struct {
	Count  int
	VWAP   float64
	StdDev float64
}

// ComputeTradeStats computes the volume-weighted average price and the
// (unweighted) sample standard deviation of trade prices for trades.
func ComputeTradeStats(trades []Trade) TradeStats {
	if len(trades) == 0 {
		return TradeStats{}
	}
	prices := make([]float64, len(trades))
	weights := make([]float64, len(trades))
	for i, t := range trades {
		prices[i] = t.Price
		weights[i] = t.Quantity
	}
	vwap := stat.Mean(prices, weights)
	sd := stat.StdDev(prices, nil)
	return TradeStats{Count: len(trades), VWAP: vwap, StdDev: sd}
}
