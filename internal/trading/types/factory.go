package types

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// validateCommon checks the fields every order type shares.
func validateCommon(o *Order) error {
	var err error
	if strings.TrimSpace(o.ID) == "" {
		err = multierr.Append(err, &ValidationError{Field: "id", Reason: "must not be empty"})
	}
	if o.Quantity <= 0 {
		err = multierr.Append(err, &ValidationError{Field: "quantity", Reason: "must be positive"})
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = time.Now().UTC()
	} else {
		o.Timestamp = o.Timestamp.UTC()
	}
	if o.TIF == "" {
		o.TIF = TimeInForceGTC
	}
	return err
}

// NewMarketOrder builds an order that matches immediately against resting
// liquidity at whatever price is available.
func NewMarketOrder(id, symbol, traderID string, side OrderSide, quantity float64, tif TimeInForce) (*Order, error) {
	o := &Order{ID: id, Type: OrderTypeMarket, Side: side, Symbol: symbol, TraderID: traderID, Quantity: quantity, TIF: tif}
	if err := validateCommon(o); err != nil {
		return nil, err
	}
	return o, nil
}

// NewLimitOrder builds an order that rests on the book at price until fully
// filled or cancelled.
func NewLimitOrder(id, symbol, traderID string, side OrderSide, price, quantity float64, tif TimeInForce) (*Order, error) {
	o := &Order{ID: id, Type: OrderTypeLimit, Side: side, Symbol: symbol, TraderID: traderID, Quantity: quantity, TIF: tif}
	err := validateCommon(o)
	if price <= 0 {
		err = multierr.Append(err, &ValidationError{Field: "price", Reason: "must be positive for a limit order"})
	} else {
		o.Price = &price
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// NewStopLossOrder builds a contingent order that becomes a market order once
// the last traded price crosses triggerPrice.
func NewStopLossOrder(id, symbol, traderID string, side OrderSide, triggerPrice, quantity float64, tif TimeInForce) (*Order, error) {
	o := &Order{ID: id, Type: OrderTypeStopLoss, Side: side, Symbol: symbol, TraderID: traderID, Quantity: quantity, TIF: tif}
	err := validateCommon(o)
	if triggerPrice <= 0 {
		err = multierr.Append(err, &ValidationError{Field: "price", Reason: "trigger price must be positive"})
	} else {
		o.Price = &triggerPrice
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// NewStopLimitOrder builds a contingent order that becomes a resting limit
// order at limitPrice once the last traded price crosses triggerPrice.
func NewStopLimitOrder(id, symbol, traderID string, side OrderSide, triggerPrice, limitPrice, quantity float64, tif TimeInForce) (*Order, error) {
	o := &Order{ID: id, Type: OrderTypeStopLimit, Side: side, Symbol: symbol, TraderID: traderID, Quantity: quantity, TIF: tif}
	err := validateCommon(o)
	if triggerPrice <= 0 {
		err = multierr.Append(err, &ValidationError{Field: "price", Reason: "trigger price must be positive"})
	} else {
		o.Price = &triggerPrice
	}
	if limitPrice <= 0 {
		err = multierr.Append(err, &ValidationError{Field: "aux_price", Reason: "limit price must be positive"})
	} else {
		o.AuxPrice = &limitPrice
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// NewTrailingStopOrder builds a contingent order whose trigger price trails
// the last traded price by a fixed absolute offset.
func NewTrailingStopOrder(id, symbol, traderID string, side OrderSide, trailingOffset, quantity float64, tif TimeInForce) (*Order, error) {
	o := &Order{ID: id, Type: OrderTypeTrailingStop, Side: side, Symbol: symbol, TraderID: traderID, Quantity: quantity, TIF: tif}
	err := validateCommon(o)
	if trailingOffset <= 0 {
		err = multierr.Append(err, &ValidationError{Field: "trailing_offset", Reason: "must be positive"})
	} else {
		o.TrailingOffset = &trailingOffset
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// NewIcebergOrder builds a limit order that only ever shows displayQuantity
// of its total quantity to the book at a time.
func NewIcebergOrder(id, symbol, traderID string, side OrderSide, price, quantity, displayQuantity float64, tif TimeInForce) (*Order, error) {
	o := &Order{ID: id, Type: OrderTypeIceberg, Side: side, Symbol: symbol, TraderID: traderID, Quantity: quantity, TIF: tif}
	err := validateCommon(o)
	if price <= 0 {
		err = multierr.Append(err, &ValidationError{Field: "price", Reason: "must be positive for an iceberg order"})
	} else {
		o.Price = &price
	}
	if displayQuantity <= 0 || displayQuantity > quantity {
		err = multierr.Append(err, &ValidationError{Field: "display_quantity", Reason: "must be positive and no greater than quantity"})
	} else {
		o.DisplayQuantity = &displayQuantity
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// OrderFromMap ingests a loosely-typed dictionary (e.g. a decoded JSON
// request body) into an Order, dispatching to the matching constructor by
// its "type" field and aggregating every invalid field into one error
// instead of stopping at the first.
func OrderFromMap(m map[string]interface{}) (order *Order, buildErr error) {
	typ, _ := m["type"].(string)
	side, _ := m["side"].(string)
	id, _ := m["id"].(string)
	symbol, _ := m["symbol"].(string)
	traderID, _ := m["trader_id"].(string)
	tifStr, _ := m["tif"].(string)

	var err error
	tif, ok := ParseTimeInForce(tifStr)
	if !ok {
		err = multierr.Append(err, &ValidationError{Field: "tif", Reason: fmt.Sprintf("unrecognized time in force %q", tifStr)})
		tif = TimeInForceGTC
	}

	var orderSide OrderSide
	switch strings.ToUpper(side) {
	case string(OrderSideBuy):
		orderSide = OrderSideBuy
	case string(OrderSideSell):
		orderSide = OrderSideSell
	default:
		err = multierr.Append(err, &ValidationError{Field: "side", Reason: fmt.Sprintf("unrecognized side %q", side)})
	}

	quantity := floatField(m, "quantity")
	price := floatField(m, "price")

	// Side/tif errors found above are combined with whatever the type's
	// constructor reports, so every invalid field appears in one error.
	defer func() {
		if err != nil {
			order, buildErr = nil, multierr.Append(err, buildErr)
		}
	}()

	switch strings.ToUpper(typ) {
	case string(OrderTypeMarket):
		return NewMarketOrder(id, symbol, traderID, orderSide, quantity, tif)
	case string(OrderTypeLimit):
		return NewLimitOrder(id, symbol, traderID, orderSide, price, quantity, tif)
	case string(OrderTypeStopLoss):
		return NewStopLossOrder(id, symbol, traderID, orderSide, price, quantity, tif)
	case string(OrderTypeStopLimit):
		return NewStopLimitOrder(id, symbol, traderID, orderSide, price, floatField(m, "aux_price"), quantity, tif)
	case string(OrderTypeTrailingStop):
		return NewTrailingStopOrder(id, symbol, traderID, orderSide, floatField(m, "trailing_offset"), quantity, tif)
	case string(OrderTypeIceberg):
		return NewIcebergOrder(id, symbol, traderID, orderSide, price, quantity, floatField(m, "display_quantity"), tif)
	default:
		return nil, &ValidationError{Field: "type", Reason: fmt.Sprintf("unrecognized order type %q", typ)}
	}
}

func floatField(m map[string]interface{}, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}
