// Package risk holds per-trader accounting: cash, positions, average cost,
// realized/unrealized P&L, and the risk-admission checks the matching
// engine runs before accepting an order.
//
// Fill application is grounded line-for-line on the original implementation's
// Trader.apply_fill: the same weighted-average-on-growth,
// realize-on-reduction, reset-on-cross bookkeeping, translated to Go.
package risk

import (
	"math"

	"go.uber.org/zap"

	"github.com/quantforge/simtrader/internal/trading/types"
)

const positionEpsilon = 1e-12

// Config holds the per-trader risk limits. A zero value for any field means
// "unset" (the corresponding check is skipped), matching the source's
// optional-limit semantics.
type Config struct {
	MaxExposurePerSymbol  float64
	MaxOrderNotional      float64
	RiskPerTradeFraction  float64
	DailyLossLimit        float64 // reserved: declared, never enforced (see original_source)
}

// SymbolPnL is one row of a combined per-symbol P&L report.
type SymbolPnL struct {
	Quantity   float64
	AvgPrice   float64
	LastPrice  float64
	Unrealized float64
	Realized   float64
}

// Trader tracks one account's cash, positions, and P&L across every symbol
// it has traded.
type Trader struct {
	ID      string
	Balance float64
	Config  Config

	positions  map[string]float64
	avgPrice   map[string]float64
	lastPrice  map[string]float64
	realized   map[string]float64
	realizedPnL float64

	orderHistory []string

	logger *zap.Logger
}

// NewTrader creates a trader with the given starting cash balance.
func NewTrader(id string, startingBalance float64, cfg Config, logger *zap.Logger) *Trader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Trader{
		ID:        id,
		Balance:   startingBalance,
		Config:    cfg,
		positions: make(map[string]float64),
		avgPrice:  make(map[string]float64),
		lastPrice: make(map[string]float64),
		realized:  make(map[string]float64),
		logger:    logger,
	}
}

// Deposit credits amount to the trader's balance. amount must be positive.
func (t *Trader) Deposit(amount float64) error {
	if amount <= 0 {
		return &types.BalanceViolation{TraderID: t.ID, Reason: "deposit amount must be positive"}
	}
	t.Balance += amount
	return nil
}

// Withdraw debits amount from the trader's balance. amount must be positive
// and no greater than the current balance.
func (t *Trader) Withdraw(amount float64) error {
	if amount <= 0 {
		return &types.BalanceViolation{TraderID: t.ID, Reason: "withdraw amount must be positive"}
	}
	if amount > t.Balance {
		return &types.BalanceViolation{TraderID: t.ID, Reason: "withdraw amount exceeds balance"}
	}
	t.Balance -= amount
	return nil
}

// RecordOrder appends orderID to the trader's order history.
func (t *Trader) RecordOrder(orderID string) {
	t.orderHistory = append(t.orderHistory, orderID)
}

// Position returns the trader's current signed quantity in symbol (0 if
// flat or never traded).
func (t *Trader) Position(symbol string) float64 {
	return t.positions[symbol]
}

// MarkPrice updates the last-seen trade price for symbol, used for
// unrealized P&L. A non-positive price is ignored.
func (t *Trader) MarkPrice(symbol string, price float64) {
	if price <= 0 {
		return
	}
	t.lastPrice[symbol] = price
}

// RealizedPnL returns the trader's total realized P&L across all symbols.
func (t *Trader) RealizedPnL() float64 {
	return t.realizedPnL
}

// UnrealizedPnL sums (mark-avg)*qty for longs and (avg-mark)*|qty| for
// shorts, across every symbol with both a position and a mark.
func (t *Trader) UnrealizedPnL() float64 {
	var total float64
	for symbol, qty := range t.positions {
		last, ok := t.lastPrice[symbol]
		if !ok {
			continue
		}
		avg := t.avgPrice[symbol]
		if qty >= 0 {
			total += (last - avg) * qty
		} else {
			total += (avg - last) * (-qty)
		}
	}
	return total
}

// Equity returns balance + realized + unrealized P&L.
func (t *Trader) Equity() float64 {
	return t.Balance + t.RealizedPnL() + t.UnrealizedPnL()
}

// ApplyFill updates cash, position, average cost, and realized P&L for one
// side of a trade. feePaid is debited from balance regardless of side.
//
// The crossing logic (grow on same-direction fill, realize-and-possibly-flip
// on an opposing fill) mirrors the original Trader.apply_fill exactly.
func (t *Trader) ApplyFill(symbol string, side types.OrderSide, price, quantity, feePaid float64) {
	notional := price * quantity
	current := t.positions[symbol]
	avg := t.avgPrice[symbol]

	if side == types.OrderSideBuy {
		t.Balance -= notional + feePaid
		switch {
		case current >= 0:
			newQty := current + quantity
			if newQty == 0 {
				delete(t.positions, symbol)
				delete(t.avgPrice, symbol)
			} else {
				t.avgPrice[symbol] = (avg*current + notional) / newQty
				t.positions[symbol] = newQty
			}
		default:
			// Buying into a short: realize on the covered portion.
			covered := math.Min(quantity, -current)
			t.addRealized(symbol, (avg-price)*covered)
			newQty := current + quantity
			t.finishCross(symbol, newQty, price)
		}
	} else {
		t.Balance += notional
		t.Balance -= feePaid
		switch {
		case current <= 0:
			newQty := current - quantity
			if newQty == 0 {
				delete(t.positions, symbol)
				delete(t.avgPrice, symbol)
			} else {
				t.avgPrice[symbol] = (avg*(-current) + notional) / (-newQty)
				t.positions[symbol] = newQty
			}
		default:
			// Selling out of a long: realize on the reduced portion.
			reduced := math.Min(quantity, current)
			t.addRealized(symbol, (price-avg)*reduced)
			newQty := current - quantity
			t.finishCross(symbol, newQty, price)
		}
	}

	t.MarkPrice(symbol, price)
}

// finishCross settles the position after a fill that may have flattened or
// flipped it: flat removes the entry, otherwise the remaining quantity
// (now on the opposite side from before) gets a fresh average price equal
// to the trade price.
func (t *Trader) finishCross(symbol string, newQty, price float64) {
	if math.Abs(newQty) < positionEpsilon {
		delete(t.positions, symbol)
		delete(t.avgPrice, symbol)
		return
	}
	t.positions[symbol] = newQty
	t.avgPrice[symbol] = price
}

func (t *Trader) addRealized(symbol string, amount float64) {
	t.realized[symbol] += amount
	t.realizedPnL += amount
}

// PnLBySymbol returns a combined per-symbol report over the union of every
// symbol with a position, an average price, a mark, or a realized bucket —
// the supplemental feature named in the original implementation, not spelled
// out as an operation in the distilled specification.
func (t *Trader) PnLBySymbol() map[string]SymbolPnL {
	symbols := make(map[string]struct{})
	for s := range t.positions {
		symbols[s] = struct{}{}
	}
	for s := range t.lastPrice {
		symbols[s] = struct{}{}
	}
	for s := range t.realized {
		symbols[s] = struct{}{}
	}

	out := make(map[string]SymbolPnL, len(symbols))
	for s := range symbols {
		qty := t.positions[s]
		avg := t.avgPrice[s]
		last := t.lastPrice[s]
		var unrealized float64
		if _, marked := t.lastPrice[s]; marked {
			if qty >= 0 {
				unrealized = (last - avg) * qty
			} else {
				unrealized = (avg - last) * (-qty)
			}
		}
		out[s] = SymbolPnL{
			Quantity:   qty,
			AvgPrice:   avg,
			LastPrice:  last,
			Unrealized: unrealized,
			Realized:   t.realized[s],
		}
	}
	return out
}
