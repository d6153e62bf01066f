package types

import "errors"

// Sentinel errors returned by order construction, routing, and risk checks.
var (
	// ErrValidation is the base sentinel for any order-shape violation;
	// ValidationError wraps it with the offending field.
	ErrValidation = errors.New("invalid order")

	// ErrSymbolMismatch is returned when an order's symbol doesn't match the
	// book/engine it was routed to.
	ErrSymbolMismatch = errors.New("order symbol does not match book symbol")

	// ErrNotRoutable is returned by OrderBook.AddOrder when handed a
	// contingent order type (stop, stop-limit, etc.) directly; those must
	// be routed through the engine's contingent-order tracker instead of
	// resting on a book.
	ErrNotRoutable = errors.New("order type is not directly routable to a book")

	// ErrUnknownSymbol is returned when an operation references a symbol
	// the engine has no order book for.
	ErrUnknownSymbol = errors.New("unknown symbol")

	// ErrUnknownOrder names an unknown order id. Engine.CancelOrder and
	// OrderBook.GetOrder report an unknown id with a nil order instead of
	// returning this error.
	ErrUnknownOrder = errors.New("unknown order id")

	// ErrUnknownTrader is returned by the engine's reporting calls
	// (PnLReport, PositionReport) for a trader id that is not registered.
	// Fills for unregistered traders are not accounted and raise no error.
	ErrUnknownTrader = errors.New("unknown trader id")

	// ErrRiskViolation is the base sentinel for RiskViolation.
	ErrRiskViolation = errors.New("risk check failed")

	// ErrBalanceViolation is the base sentinel for BalanceViolation.
	ErrBalanceViolation = errors.New("balance violation")
)

// ValidationError reports a single invalid field on an order at construction
// or dictionary-ingestion time.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "order validation: " + e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// RiskKind classifies why an order was refused admission.
type RiskKind string

const (
	RiskNotionalExceeded     RiskKind = "NOTIONAL_EXCEEDED"
	RiskFractionExceeded     RiskKind = "RISK_FRACTION_EXCEEDED"
	RiskInsufficientBalance  RiskKind = "INSUFFICIENT_BALANCE"
	RiskExposureExceeded     RiskKind = "EXPOSURE_EXCEEDED"
)

// RiskViolation carries the detail behind an ErrRiskViolation.
type RiskViolation struct {
	Kind     RiskKind
	OrderID  string
	TraderID string
	Limit    float64
	Actual   float64
}

func (e *RiskViolation) Error() string {
	return "risk violation (" + string(e.Kind) + ") for order " + e.OrderID
}

func (e *RiskViolation) Unwrap() error { return ErrRiskViolation }

// BalanceViolation is returned by Trader.Deposit/Withdraw for a non-positive
// amount or an overdraft.
type BalanceViolation struct {
	TraderID string
	Reason   string
}

func (e *BalanceViolation) Error() string {
	return "balance violation for trader " + e.TraderID + ": " + e.Reason
}

func (e *BalanceViolation) Unwrap() error { return ErrBalanceViolation }
