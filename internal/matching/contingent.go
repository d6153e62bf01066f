package matching

import (
	"strconv"

	"github.com/quantforge/simtrader/internal/trading/types"
)

// runContingentActivators runs, in the required order, every contingent
// check against symbol's current last price: stop, stop-limit, trailing
// update, trailing activate, iceberg replenishment (§4.5 step 8).
// Iceberg replenishment is event-driven (see onChildRemoved) rather than a
// scan, so it has no step here.
func (e *Engine) runContingentActivators(symbol string) {
	e.activateStops(symbol)
	e.activateStopLimits(symbol)
	e.updateTrailing(symbol)
	e.activateTrailing(symbol)
}

// activateStops implements §4.8 for STOP_LOSS: SELL triggers when
// last <= stop_price, BUY triggers when last >= stop_price. A triggered
// entry is replaced by a derived MARKET order and resubmitted.
func (e *Engine) activateStops(symbol string) {
	last, ok := e.lastPrice(symbol)
	if !ok {
		return
	}
	kept := e.stops[:0]
	for _, o := range e.stops {
		if o.Symbol != symbol {
			kept = append(kept, o)
			continue
		}
		if !stopTriggered(o, last) {
			kept = append(kept, o)
			continue
		}
		mkt, err := types.NewMarketOrder(o.ID+"-mkt", o.Symbol, o.TraderID, o.Side, o.Quantity, o.TIF)
		if err == nil {
			e.submitLocked(mkt)
		}
	}
	e.stops = kept
}

// activateStopLimits implements §4.8 for STOP_LIMIT: a triggered entry is
// replaced by a LIMIT order at aux_price (the stored limit price).
func (e *Engine) activateStopLimits(symbol string) {
	last, ok := e.lastPrice(symbol)
	if !ok {
		return
	}
	kept := e.stopLimits[:0]
	for _, o := range e.stopLimits {
		if o.Symbol != symbol {
			kept = append(kept, o)
			continue
		}
		if !stopTriggered(o, last) {
			kept = append(kept, o)
			continue
		}
		lmt, err := types.NewLimitOrder(o.ID+"-lmt", o.Symbol, o.TraderID, o.Side, *o.AuxPrice, o.Quantity, o.TIF)
		if err == nil {
			e.submitLocked(lmt)
		}
	}
	e.stopLimits = kept
}

func stopTriggered(o *types.Order, last float64) bool {
	if o.Price == nil {
		return false
	}
	stopPrice := *o.Price
	if o.Side == types.OrderSideSell {
		return last <= stopPrice
	}
	return last >= stopPrice
}

// updateTrailing implements the trailing-update half of §4.9: maintain
// aux_price as the running peak (SELL) or trough (BUY) of the last price,
// then recompute price = peak-offset (SELL) or trough+offset (BUY).
func (e *Engine) updateTrailing(symbol string) {
	last, ok := e.lastPrice(symbol)
	if !ok {
		return
	}
	for _, o := range e.trailing {
		if o.Symbol != symbol || o.TrailingOffset == nil {
			continue
		}
		offset := *o.TrailingOffset
		if o.AuxPrice == nil {
			o.AuxPrice = new(float64)
			*o.AuxPrice = last
		} else if o.Side == types.OrderSideSell {
			if last > *o.AuxPrice {
				*o.AuxPrice = last
			}
		} else {
			if last < *o.AuxPrice {
				*o.AuxPrice = last
			}
		}
		var p float64
		if o.Side == types.OrderSideSell {
			p = *o.AuxPrice - offset
		} else {
			p = *o.AuxPrice + offset
		}
		o.Price = &p
	}
}

// activateTrailing applies the same trigger logic as a stop against the
// trailing order's current (derived) price, emitting a MARKET replacement.
func (e *Engine) activateTrailing(symbol string) {
	last, ok := e.lastPrice(symbol)
	if !ok {
		return
	}
	kept := e.trailing[:0]
	for _, o := range e.trailing {
		if o.Symbol != symbol {
			kept = append(kept, o)
			continue
		}
		if !stopTriggered(o, last) {
			kept = append(kept, o)
			continue
		}
		mkt, err := types.NewMarketOrder(o.ID+"-mkt", o.Symbol, o.TraderID, o.Side, o.Quantity, o.TIF)
		if err == nil {
			e.submitLocked(mkt)
		}
	}
	e.trailing = kept
}

// openIceberg records a new parent and spawns its first visible child
// (§4.9).
func (e *Engine) openIceberg(parent *types.Order) {
	display := *parent.DisplayQuantity
	state := &icebergState{parent: parent, remaining: parent.Quantity}
	e.icebergs[parent.ID] = state
	e.spawnIcebergChild(state, display)
}

// spawnIcebergChild slices up to size off the parent's remaining quantity
// into a new resting LIMIT child.
func (e *Engine) spawnIcebergChild(state *icebergState, size float64) {
	if state.remaining <= 0 {
		delete(e.icebergs, state.parent.ID)
		return
	}
	qty := size
	if qty > state.remaining {
		qty = state.remaining
	}
	state.childSeq++
	childID := state.parent.ID + "-child-" + strconv.Itoa(state.childSeq)

	child, err := types.NewLimitOrder(childID, state.parent.Symbol, state.parent.TraderID, state.parent.Side, *state.parent.Price, qty, state.parent.TIF)
	if err != nil {
		return
	}
	child.ParentID = state.parent.ID

	state.remaining -= qty
	state.childID = childID
	e.childParent[childID] = state.parent.ID

	book := e.books[state.parent.Symbol]
	if book == nil {
		return
	}
	if err := book.AddOrder(child); err != nil {
		return
	}
	e.matchSymbolLocked(state.parent.Symbol)
}

// onChildRemoved implements the replenishment half of §4.9: when a
// formerly-tracked iceberg child is removed (filled or cancelled), spawn
// the next slice, or release tracking once the parent is exhausted.
func (e *Engine) onChildRemoved(orderID string) {
	parentID, ok := e.childParent[orderID]
	if !ok {
		return
	}
	delete(e.childParent, orderID)

	state, ok := e.icebergs[parentID]
	if !ok || state.childID != orderID {
		return
	}
	if state.remaining <= 0 {
		delete(e.icebergs, parentID)
		return
	}
	display := *state.parent.DisplayQuantity
	e.spawnIcebergChild(state, display)
}
