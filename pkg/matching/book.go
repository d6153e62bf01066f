package matching

import (
	"container/heap"
	"sort"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/quantforge/simtrader/internal/events"
	"github.com/quantforge/simtrader/internal/trading/types"
)

// OrderBook exclusively owns the set of resting LIMIT and MARKET orders for
// one symbol. Price-time priority is maintained by a pair of heaps with
// lazy tombstone cleanup, per the teacher's pkg/matching engine (corrected,
// see heap.go).
type OrderBook struct {
	Symbol string

	bids *orderHeap
	asks *orderHeap
	byID map[string]*types.Order

	tombstoned map[string]bool
	seq        uint64

	bus    *events.Bus
	logger *zap.Logger
}

// NewOrderBook creates an empty book for symbol. bus may be nil, in which
// case order_added/order_removed are never published (useful in tests that
// only exercise matching directly).
func NewOrderBook(symbol string, bus *events.Bus, logger *zap.Logger) *OrderBook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderBook{
		Symbol:     symbol,
		bids:       newOrderHeap(types.OrderSideBuy),
		asks:       newOrderHeap(types.OrderSideSell),
		byID:       make(map[string]*types.Order),
		tombstoned: make(map[string]bool),
		bus:        bus,
		logger:     logger,
	}
}

func (b *OrderBook) heapFor(side types.OrderSide) *orderHeap {
	if side == types.OrderSideBuy {
		return b.bids
	}
	return b.asks
}

// AddOrder validates routing and inserts o, per §4.2: rejects a symbol
// mismatch, rejects any contingent type (those are the engine's concern),
// assigns the book's arrival sequence, and fires order_added.
func (b *OrderBook) AddOrder(o *types.Order) error {
	if o.Symbol != "" && o.Symbol != b.Symbol {
		return types.ErrSymbolMismatch
	}
	if o.Type.IsContingent() {
		return types.ErrNotRoutable
	}

	o.Symbol = b.Symbol
	o.Seq = atomic.AddUint64(&b.seq, 1)

	b.byID[o.ID] = o
	delete(b.tombstoned, o.ID)
	heap.Push(b.heapFor(o.Side), o)

	b.logger.Debug("order added", zap.String("symbol", b.Symbol), zap.String("id", o.ID))
	if b.bus != nil {
		b.bus.Publish(events.TopicOrderAdded, o)
	}
	return nil
}

// RemoveOrder detaches id from the book, removes it from its heap at once,
// records the id as tombstoned, and fires order_removed. Returns the
// detached order, or nil if id is unknown.
func (b *OrderBook) RemoveOrder(id string) *types.Order {
	o, ok := b.byID[id]
	if !ok {
		return nil
	}
	delete(b.byID, id)
	b.tombstoned[id] = true
	b.heapFor(o.Side).remove(o)

	b.logger.Debug("order removed", zap.String("symbol", b.Symbol), zap.String("id", id))
	if b.bus != nil {
		b.bus.Publish(events.TopicOrderRemoved, o)
	}
	return o
}

// GetOrder is an O(1) lookup; returns nil if id is not resting in this book.
func (b *OrderBook) GetOrder(id string) *types.Order {
	return b.byID[id]
}

// cleanTop discards dead entries (tombstoned, removed, or fully filled) from
// the front of h.
func (b *OrderBook) cleanTop(h *orderHeap) {
	for {
		top := h.peek()
		if top == nil {
			return
		}
		if b.tombstoned[top.ID] || top.Quantity <= 0 || b.byID[top.ID] != top {
			h.remove(top)
			delete(b.tombstoned, top.ID)
			continue
		}
		return
	}
}

// BestBid returns the highest-priority resting buy order, or nil.
func (b *OrderBook) BestBid() *types.Order {
	b.cleanTop(b.bids)
	return b.bids.peek()
}

// BestAsk returns the highest-priority resting sell order, or nil.
func (b *OrderBook) BestAsk() *types.Order {
	b.cleanTop(b.asks)
	return b.asks.peek()
}

// Touch re-establishes heap order for o after its Quantity changed in place
// (a partial fill), without removing and reinserting it.
func (b *OrderBook) Touch(o *types.Order) {
	b.heapFor(o.Side).fix(o)
}

// Depth aggregates resting (non-MARKET) residual quantity by price,
// descending for bids and ascending for asks, truncated to levels.
func (b *OrderBook) Depth(levels int) Snapshot {
	return Snapshot{
		Symbol: b.Symbol,
		Bids:   aggregate(b.bids.orders, b.tombstoned, b.byID, true, levels),
		Asks:   aggregate(b.asks.orders, b.tombstoned, b.byID, false, levels),
	}
}

func aggregate(orders []*types.Order, tombstoned map[string]bool, byID map[string]*types.Order, descending bool, levels int) []PriceLevel {
	totals := make(map[float64]*PriceLevel)
	var prices []float64
	for _, o := range orders {
		if tombstoned[o.ID] || o.Quantity <= 0 || byID[o.ID] != o || o.Price == nil {
			continue
		}
		pl, ok := totals[*o.Price]
		if !ok {
			pl = &PriceLevel{Price: *o.Price}
			totals[*o.Price] = pl
			prices = append(prices, *o.Price)
		}
		pl.Quantity += o.Quantity
		pl.Orders++
	}
	sort.Slice(prices, func(i, j int) bool {
		if descending {
			return prices[i] > prices[j]
		}
		return prices[i] < prices[j]
	})
	if levels > 0 && len(prices) > levels {
		prices = prices[:levels]
	}
	out := make([]PriceLevel, 0, len(prices))
	for _, p := range prices {
		out = append(out, *totals[p])
	}
	return out
}

// RestingBidsAt returns every live bid resting at exactly price, in
// priority order. Used by the pro-rata matcher to collect a price level's
// full population.
func (b *OrderBook) RestingBidsAt(price float64) []*types.Order {
	return b.restingAtPrice(types.OrderSideBuy, price)
}

// RestingAsksAt returns every live ask resting at exactly price, in
// priority order.
func (b *OrderBook) RestingAsksAt(price float64) []*types.Order {
	return b.restingAtPrice(types.OrderSideSell, price)
}

// restingAtPrice returns every live order on side resting at exactly price,
// in heap (priority) order. Used by the pro-rata matcher to collect a price
// level's full population.
func (b *OrderBook) restingAtPrice(side types.OrderSide, price float64) []*types.Order {
	h := b.heapFor(side)
	b.cleanTop(h)
	var out []*types.Order
	for _, o := range h.orders {
		if b.tombstoned[o.ID] || o.Quantity <= 0 || b.byID[o.ID] != o {
			continue
		}
		if o.Price != nil && *o.Price == price {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
