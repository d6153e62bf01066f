package risk

import (
	"math"

	"github.com/quantforge/simtrader/internal/trading/types"
)

// CheckAdmission runs the risk checks from §4.4 against an already-computed
// notional estimate. notionalKnown is false when the caller (the matching
// engine) could not establish a notional for the order — per the documented
// open question, an unknown notional silently bypasses every
// notional-dependent check.
func (t *Trader) CheckAdmission(orderID string, side types.OrderSide, symbol string, quantity float64, notional float64, notionalKnown bool) error {
	if notionalKnown {
		if t.Config.MaxOrderNotional > 0 && notional > t.Config.MaxOrderNotional {
			return &types.RiskViolation{
				Kind: types.RiskNotionalExceeded, OrderID: orderID, TraderID: t.ID,
				Limit: t.Config.MaxOrderNotional, Actual: notional,
			}
		}
		if t.Config.RiskPerTradeFraction > 0 {
			limit := t.Equity() * t.Config.RiskPerTradeFraction
			if notional > limit {
				return &types.RiskViolation{
					Kind: types.RiskFractionExceeded, OrderID: orderID, TraderID: t.ID,
					Limit: limit, Actual: notional,
				}
			}
		}
		if side == types.OrderSideBuy && t.Balance < notional {
			return &types.RiskViolation{
				Kind: types.RiskInsufficientBalance, OrderID: orderID, TraderID: t.ID,
				Limit: t.Balance, Actual: notional,
			}
		}
	}

	if t.Config.MaxExposurePerSymbol > 0 && symbol != "" {
		current := t.positions[symbol]
		signed := quantity
		if side == types.OrderSideSell {
			signed = -quantity
		}
		projected := math.Abs(current + signed)
		if projected > t.Config.MaxExposurePerSymbol {
			return &types.RiskViolation{
				Kind: types.RiskExposureExceeded, OrderID: orderID, TraderID: t.ID,
				Limit: t.Config.MaxExposurePerSymbol, Actual: projected,
			}
		}
	}

	return nil
}
