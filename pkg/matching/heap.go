package matching

import (
	"container/heap"

	"github.com/quantforge/simtrader/internal/trading/types"
)

// orderHeap is a container/heap.Interface over resting orders on one side of
// the book. For bids it orders by descending price then ascending Seq
// (price-time priority: best bid first, oldest first on a tie). For asks it
// orders by ascending price then ascending Seq.
//
// Grounded on the teacher's pkg/matching OrderHeap, with one correction:
// Swap now keeps each Order's Index field in sync with its slot. The
// teacher's heap never did this, which silently corrupts heap.Remove after
// any reordering — any Remove call after the first sift could evict the
// wrong order.
type orderHeap struct {
	orders []*types.Order
	side   types.OrderSide
}

func newOrderHeap(side types.OrderSide) *orderHeap {
	return &orderHeap{side: side}
}

func (h *orderHeap) Len() int { return len(h.orders) }

func (h *orderHeap) Less(i, j int) bool {
	a, b := h.orders[i], h.orders[j]
	pa, pb := a.EffectivePrice(), b.EffectivePrice()
	if pa != pb {
		if h.side == types.OrderSideBuy {
			return pa > pb // best bid = highest price
		}
		return pa < pb // best ask = lowest price
	}
	// Seq is assigned monotonically alongside arrival timestamp, so
	// breaking ties on Seq alone is equivalent to timestamp-then-Seq.
	return a.Seq < b.Seq // earlier arrival wins a price tie
}

func (h *orderHeap) Swap(i, j int) {
	h.orders[i], h.orders[j] = h.orders[j], h.orders[i]
	h.orders[i].Index = i
	h.orders[j].Index = j
}

func (h *orderHeap) Push(x interface{}) {
	o := x.(*types.Order)
	o.Index = len(h.orders)
	h.orders = append(h.orders, o)
}

func (h *orderHeap) Pop() interface{} {
	old := h.orders
	n := len(old)
	o := old[n-1]
	old[n-1] = nil
	o.Index = -1
	h.orders = old[:n-1]
	return o
}

// peek returns the top of the heap without removing it, or nil if empty.
func (h *orderHeap) peek() *types.Order {
	if len(h.orders) == 0 {
		return nil
	}
	return h.orders[0]
}

// remove deletes o from the heap by its last-known Index. It is a no-op if
// o.Index is out of range for this heap (already removed).
func (h *orderHeap) remove(o *types.Order) {
	if o.Index < 0 || o.Index >= len(h.orders) || h.orders[o.Index] != o {
		return
	}
	heap.Remove(h, o.Index)
}

func (h *orderHeap) fix(o *types.Order) {
	if o.Index < 0 || o.Index >= len(h.orders) || h.orders[o.Index] != o {
		return
	}
	heap.Fix(h, o.Index)
}
