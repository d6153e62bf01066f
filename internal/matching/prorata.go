package matching

import (
	"github.com/quantforge/simtrader/internal/trading/types"
	pkgmatching "github.com/quantforge/simtrader/pkg/matching"
)

// matchProRataPass executes one full pro-rata batch at the current best
// price level per §4.5 and the literal pro-rata scenario in §8: the matched
// volume is min(total bid, total ask) at that level; on whichever side holds
// more resting orders (the bid side on a tie), each order is allocated a share proportional to its
// quantity of that side's total, capped by its own quantity and the
// remaining matched volume, and each allocation is satisfied by drawing
// sequentially from the other side (exhaustion of the current order on
// that side advances to the next one). Returns whether any trade occurred.
func (e *Engine) matchProRataPass(book *pkgmatching.OrderBook) bool {
	bid := book.BestBid()
	ask := book.BestAsk()
	if bid == nil || ask == nil || bid.Price == nil || ask.Price == nil {
		return false
	}
	if *bid.Price < *ask.Price {
		return false
	}

	bidPrice, askPrice := *bid.Price, *ask.Price
	return e.runProRataBatch(book, bidPrice, askPrice)
}

// runProRataBatch collects the full resting population at the crossing
// price levels and allocates fills. The side with more resting orders (or,
// if both have the same number, the bid side) is treated as the
// proportional side; the other is drawn from sequentially.
func (e *Engine) runProRataBatch(book *pkgmatching.OrderBook, bidPrice, askPrice float64) bool {
	bids := book.RestingBidsAt(bidPrice)
	asks := book.RestingAsksAt(askPrice)
	if len(bids) == 0 || len(asks) == 0 {
		return false
	}

	var totalBid, totalAsk float64
	for _, o := range bids {
		totalBid += o.Quantity
	}
	for _, o := range asks {
		totalAsk += o.Quantity
	}
	matchedVolume := totalBid
	if totalAsk < matchedVolume {
		matchedVolume = totalAsk
	}
	if matchedVolume <= 0 {
		return false
	}

	if len(asks) > len(bids) {
		return e.allocateProRata(book, asks, totalAsk, bids, matchedVolume, askPrice, false)
	}
	return e.allocateProRata(book, bids, totalBid, asks, matchedVolume, askPrice, true)
}

// allocateProRata allocates matchedVolume proportionally across
// proportional (by each order's share of proportionalTotal), drawing each
// share sequentially from sequential. proportionalIsBid tells executeTrade
// which side proportional/sequential correspond to, since executeTrade
// always takes (bid, ask) in that order.
func (e *Engine) allocateProRata(book *pkgmatching.OrderBook, proportional []*types.Order, proportionalTotal float64, sequential []*types.Order, matchedVolume, price float64, proportionalIsBid bool) bool {
	traded := false
	seqIdx := 0
	remainingVolume := matchedVolume
	for _, p := range proportional {
		if remainingVolume <= 0 || seqIdx >= len(sequential) {
			break
		}
		share := matchedVolume * (p.Quantity / proportionalTotal)
		if share > remainingVolume {
			share = remainingVolume
		}
		for share > 0 && seqIdx < len(sequential) {
			s := sequential[seqIdx]
			if s.Quantity <= 0 {
				seqIdx++
				continue
			}
			draw := share
			if s.Quantity < draw {
				draw = s.Quantity
			}
			if draw <= 0 {
				break
			}
			if proportionalIsBid {
				e.executeTrade(book, p, s, price, draw)
			} else {
				e.executeTrade(book, s, p, price, draw)
			}
			traded = true
			share -= draw
			remainingVolume -= draw
			if s.Quantity <= 0 {
				seqIdx++
			}
			if p.Quantity <= 0 {
				break
			}
		}
	}
	return traded
}
