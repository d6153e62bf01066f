// Package matching wires together a per-symbol registry of order books
// (pkg/matching), the trader registry (internal/risk), and the embedded
// event bus (internal/events) into the single MatchingEngine described by
// the component design: admission, routing, cross-matching, fee
// attribution, and contingent-order activation.
package matching

import (
	"math"
	"sync"
	"time"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/quantforge/simtrader/internal/events"
	"github.com/quantforge/simtrader/internal/risk"
	"github.com/quantforge/simtrader/internal/trading/types"
	pkgmatching "github.com/quantforge/simtrader/pkg/matching"
)

// Strategy selects how crosses are resolved at each symbol.
type Strategy string

const (
	StrategyFIFO    Strategy = "FIFO"
	StrategyProRata Strategy = "PRO_RATA"
)

// Option configures an Engine at construction.
type Option func(*Engine)

// WithStrategy selects the cross-matching strategy. Default FIFO.
func WithStrategy(s Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

// WithFees sets the maker/taker fee schedule. Default 5bps/10bps.
func WithFees(schedule pkgmatching.FeeSchedule) Option {
	return func(e *Engine) { e.fees = schedule }
}

// WithLogger attaches a structured logger. Default a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithBus attaches an event bus shared with every OrderBook this engine
// creates. Default a fresh bus private to the engine.
func WithBus(bus *events.Bus) Option {
	return func(e *Engine) { e.bus = bus }
}

// Engine is the MatchingEngine described by the component design: a
// symbol->OrderBook registry, the trade log, the trader registry, and the
// four contingent-order collections.
type Engine struct {
	mu sync.Mutex

	strategy Strategy
	fees     pkgmatching.FeeSchedule
	bus      *events.Bus
	logger   *zap.Logger

	books map[string]*pkgmatching.OrderBook
	traders map[string]*risk.Trader

	trades []pkgmatching.Trade

	lastPriceGlobal   float64
	lastPriceBySymbol map[string]float64

	stops       []*types.Order
	stopLimits  []*types.Order
	trailing    []*types.Order
	icebergs    map[string]*icebergState // parent id -> state
	childParent map[string]string        // child id -> parent id

	matching map[string]bool // re-entrancy guard per symbol
}

// icebergState tracks an iceberg parent's remaining quantity and the id of
// its currently-resting visible child.
type icebergState struct {
	parent     *types.Order
	remaining  float64
	childID    string
	childSeq   int
}

// NewEngine constructs an empty engine. Every symbol needs a book,
// registered with AddOrderBook or created with Book, before orders on it
// are submitted.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		strategy:          StrategyFIFO,
		fees:              pkgmatching.DefaultFeeSchedule(),
		books:             make(map[string]*pkgmatching.OrderBook),
		traders:           make(map[string]*risk.Trader),
		lastPriceBySymbol: make(map[string]float64),
		icebergs:          make(map[string]*icebergState),
		childParent:       make(map[string]string),
		matching:          make(map[string]bool),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.bus == nil {
		e.bus = events.New(e.logger)
	}
	return e
}

// AddOrderBook registers book under its own symbol. The engine does not
// subscribe to the book's events: SubmitOrder runs a match pass on the
// symbol itself after each add, so orders added to the book directly are
// not matched until the next submission or MatchOrders call.
func (e *Engine) AddOrderBook(book *pkgmatching.OrderBook) {
	e.mu.Lock()
	e.books[book.Symbol] = book
	e.mu.Unlock()
}

// Book returns the registered OrderBook for symbol, creating one (wired to
// this engine's bus) on first use.
func (e *Engine) Book(symbol string) *pkgmatching.OrderBook {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.books[symbol]
	if !ok {
		b = pkgmatching.NewOrderBook(symbol, e.bus, e.logger)
		e.books[symbol] = b
	}
	return b
}

// RegisterTrader adds trader to the engine's registry.
func (e *Engine) RegisterTrader(trader *risk.Trader) {
	e.mu.Lock()
	e.traders[trader.ID] = trader
	e.mu.Unlock()
}

// Trader returns the registered trader by id, or nil.
func (e *Engine) Trader(id string) *risk.Trader {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.traders[id]
}

// Subscribe exposes the engine's embedded bus to external collaborators,
// per §4.10/§6 (e.g. subscribe("trade_executed", handler)).
func (e *Engine) Subscribe(topic string, handler events.Handler) events.HandlerID {
	return e.bus.Subscribe(topic, handler)
}

// Unsubscribe removes a prior Subscribe registration.
func (e *Engine) Unsubscribe(topic string, id events.HandlerID) {
	e.bus.Unsubscribe(topic, id)
}

// Trades returns the append-only trade log.
func (e *Engine) Trades() []pkgmatching.Trade {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]pkgmatching.Trade, len(e.trades))
	copy(out, e.trades)
	return out
}

// PnLReport is the shape returned by pnl_report(trader_id).
type PnLReport struct {
	Realized   float64
	Unrealized float64
	Equity     float64
	Cash       float64
}

// PnLReport returns realized/unrealized/equity/cash for a registered
// trader, or (zero, ErrUnknownTrader) if id is unknown.
func (e *Engine) PnLReport(traderID string) (PnLReport, error) {
	t := e.Trader(traderID)
	if t == nil {
		return PnLReport{}, types.ErrUnknownTrader
	}
	return PnLReport{
		Realized:   t.RealizedPnL(),
		Unrealized: t.UnrealizedPnL(),
		Equity:     t.Equity(),
		Cash:       t.Balance,
	}, nil
}

// PositionReport returns symbol->quantity for a registered trader.
func (e *Engine) PositionReport(traderID string) (map[string]float64, error) {
	t := e.Trader(traderID)
	if t == nil {
		return nil, types.ErrUnknownTrader
	}
	out := make(map[string]float64)
	for _, sym := range e.symbolsWithBooks() {
		if qty := t.Position(sym); qty != 0 {
			out[sym] = qty
		}
	}
	return out, nil
}

func (e *Engine) symbolsWithBooks() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.books))
	for s := range e.books {
		out = append(out, s)
	}
	return out
}

// lastPrice resolves the last trade price for symbol, falling back to the
// engine's global last trade price.
func (e *Engine) lastPrice(symbol string) (float64, bool) {
	if p, ok := e.lastPriceBySymbol[symbol]; ok {
		return p, true
	}
	if e.lastPriceGlobal != 0 {
		return e.lastPriceGlobal, true
	}
	return 0, false
}

// SubmitOrder performs admission, routing, and dispatch per §4.3.
func (e *Engine) SubmitOrder(o *types.Order) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.submitLocked(o)
}

func (e *Engine) submitLocked(o *types.Order) error {
	symbol := o.Symbol

	book, ok := e.books[symbol]
	if !ok {
		return types.ErrUnknownSymbol
	}

	if trader, ok := e.traders[o.TraderID]; ok && o.TraderID != "" {
		notional, known := e.estimateNotional(o, book)
		if err := trader.CheckAdmission(o.ID, o.Side, symbol, o.Quantity, notional, known); err != nil {
			return err
		}
		trader.RecordOrder(o.ID)
	}

	switch o.Type {
	case types.OrderTypeStopLoss:
		e.stops = append(e.stops, o)
		return nil
	case types.OrderTypeStopLimit:
		e.stopLimits = append(e.stopLimits, o)
		return nil
	case types.OrderTypeTrailingStop:
		if o.Price == nil {
			if last, ok := e.lastPrice(symbol); ok {
				var p float64
				if o.Side == types.OrderSideSell {
					p = last - *o.TrailingOffset
				} else {
					p = last + *o.TrailingOffset
				}
				o.Price = &p
				o.AuxPrice = &last
			}
		}
		e.trailing = append(e.trailing, o)
		return nil
	case types.OrderTypeIceberg:
		e.openIceberg(o)
		return nil
	default: // MARKET, LIMIT
		if err := book.AddOrder(o); err != nil {
			return err
		}
		e.matchSymbolLocked(symbol)
		if o.TIF == types.TimeInForceIOC && o.Quantity > 0 {
			book.RemoveOrder(o.ID)
		}
		return nil
	}
}

// estimateNotional implements §4.4's notional estimation.
func (e *Engine) estimateNotional(o *types.Order, book *pkgmatching.OrderBook) (float64, bool) {
	if o.Type == types.OrderTypeMarket {
		if p, ok := e.lastPrice(o.Symbol); ok {
			return p * o.Quantity, true
		}
		if book != nil {
			var opp *types.Order
			if o.Side == types.OrderSideBuy {
				opp = book.BestAsk()
			} else {
				opp = book.BestBid()
			}
			if opp != nil && opp.Price != nil {
				return *opp.Price * o.Quantity, true
			}
		}
		return 0, false
	}
	if o.Price != nil {
		return *o.Price * o.Quantity, true
	}
	return 0, false
}

// CancelOrder removes id from symbol's book and returns the detached order,
// or nil if the id or the symbol is unknown. There is no default book: an
// empty symbol only matches a book registered under "".
func (e *Engine) CancelOrder(id, symbol string) *types.Order {
	e.mu.Lock()
	defer e.mu.Unlock()
	b, ok := e.books[symbol]
	if !ok {
		return nil
	}
	removed := b.RemoveOrder(id)
	if removed != nil {
		e.onChildRemoved(id)
	}
	return removed
}

// MatchOrders drives the matching loop for symbol to quiescence. Safe to
// call with no pending crosses (idempotent, per §8's round-trip property).
func (e *Engine) MatchOrders(symbol string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.matchSymbolLocked(symbol)
}

func (e *Engine) matchSymbolLocked(symbol string) {
	if e.matching[symbol] {
		return // re-entrant call from a contingent activation already in progress
	}
	e.matching[symbol] = true
	defer delete(e.matching, symbol)

	book, ok := e.books[symbol]
	if !ok {
		return
	}

	for {
		var traded bool
		if e.strategy == StrategyProRata && !topIsMarket(book) {
			traded = e.matchProRataPass(book)
		} else {
			traded = e.matchFIFOPass(book)
		}
		if !traded {
			return
		}
		e.runContingentActivators(symbol)
	}
}

func topIsMarket(book *pkgmatching.OrderBook) bool {
	bid, ask := book.BestBid(), book.BestAsk()
	return (bid != nil && bid.Price == nil) || (ask != nil && ask.Price == nil)
}

// matchFIFOPass executes at most one trade at strict price-time priority,
// returning whether a trade occurred.
func (e *Engine) matchFIFOPass(book *pkgmatching.OrderBook) bool {
	bid := book.BestBid()
	ask := book.BestAsk()
	if bid == nil || ask == nil {
		return false
	}
	if bid.EffectivePrice() < ask.EffectivePrice() {
		return false
	}

	price := executionPrice(bid, ask)
	qty := math.Min(bid.Quantity, ask.Quantity)

	e.executeTrade(book, bid, ask, price, qty)
	return true
}

// executionPrice is the maker-side price per §4.5 step 2.
func executionPrice(bid, ask *types.Order) float64 {
	if ask.Price != nil {
		return *ask.Price
	}
	if bid.Price != nil {
		return *bid.Price
	}
	return 0
}

// executeTrade applies one fill between buyOrder and sellOrder, mutating
// both orders' residual quantity, updating both traders, appending to the
// trade log, and firing trade_executed.
func (e *Engine) executeTrade(book *pkgmatching.OrderBook, bid, ask *types.Order, price, qty float64) {
	makerSide, takerSide := e.makerTaker(bid, ask)

	makerFee := e.fees.MakerRate * price * qty
	takerFee := e.fees.TakerRate * price * qty

	trade := pkgmatching.Trade{
		ID:            ksuid.New().String(),
		Symbol:        book.Symbol,
		BuyOrderID:    bid.ID,
		SellOrderID:   ask.ID,
		MakerOrderID:  idOf(makerSide),
		TakerOrderID:  idOf(takerSide),
		MakerTraderID: traderIDOf(makerSide),
		TakerTraderID: traderIDOf(takerSide),
		Price:         price,
		Quantity:      qty,
		TakerSide:     takerOrderSide(bid, ask),
		MakerFee:      makerFee,
		TakerFee:      takerFee,
		Timestamp:     time.Now().UTC(),
	}

	if buyer, ok := e.traders[bid.TraderID]; ok && bid.TraderID != "" {
		fee := takerFee
		if bid == makerSide {
			fee = makerFee
		}
		buyer.ApplyFill(book.Symbol, types.OrderSideBuy, price, qty, fee)
	}
	if seller, ok := e.traders[ask.TraderID]; ok && ask.TraderID != "" {
		fee := takerFee
		if ask == makerSide {
			fee = makerFee
		}
		seller.ApplyFill(book.Symbol, types.OrderSideSell, price, qty, fee)
	}

	bid.Quantity -= qty
	ask.Quantity -= qty
	book.Touch(bid)
	book.Touch(ask)
	if bid.Quantity <= 0 {
		e.onOrderDepleted(book, bid)
	}
	if ask.Quantity <= 0 {
		e.onOrderDepleted(book, ask)
	}

	e.trades = append(e.trades, trade)
	e.lastPriceGlobal = price
	e.lastPriceBySymbol[book.Symbol] = price

	e.bus.Publish(events.TopicTradeExecuted, &trade)
}

func idOf(o *types.Order) string {
	if o == nil {
		return ""
	}
	return o.ID
}

func traderIDOf(o *types.Order) string {
	if o == nil {
		return ""
	}
	return o.TraderID
}

// makerTaker tags the resting side as maker per §4.6: if exactly one side
// has no price (a market order), that side is taker; otherwise (both
// limits) the buyer is taker, the documented asymmetric heuristic.
func (e *Engine) makerTaker(bid, ask *types.Order) (maker, taker *types.Order) {
	bidIsMarket := bid.Price == nil
	askIsMarket := ask.Price == nil
	switch {
	case bidIsMarket && !askIsMarket:
		return ask, bid
	case askIsMarket && !bidIsMarket:
		return bid, ask
	default:
		return ask, bid // both limits: buyer (bid) is taker
	}
}

func takerOrderSide(bid, ask *types.Order) types.OrderSide {
	if bid.Price == nil {
		return types.OrderSideBuy
	}
	if ask.Price == nil {
		return types.OrderSideSell
	}
	return types.OrderSideBuy
}

// onOrderDepleted removes a fully-filled order from the book and, if it was
// an iceberg child, spawns the next slice.
func (e *Engine) onOrderDepleted(book *pkgmatching.OrderBook, o *types.Order) {
	book.RemoveOrder(o.ID)
	e.onChildRemoved(o.ID)
}
