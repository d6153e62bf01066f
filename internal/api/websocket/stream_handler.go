// Package websocket pushes executed trades to connected clients in real
// time, subscribed to the matching engine's embedded event bus.
package websocket

import (
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/quantforge/simtrader/internal/events"
	"github.com/quantforge/simtrader/internal/matching"
	pkgmatching "github.com/quantforge/simtrader/pkg/matching"
)

// StreamHandler fans out trade_executed events to every connected client,
// optionally filtered to a subscribed set of symbols.
type StreamHandler struct {
	logger  *zap.Logger
	engine  *matching.Engine
	mu      sync.RWMutex
	clients map[*websocket.Conn]map[string]bool // conn -> subscribed symbols (empty = all)
}

// NewStreamHandler creates a stream handler and subscribes it to the
// engine's trade_executed topic for the lifetime of the process.
func NewStreamHandler(engine *matching.Engine, logger *zap.Logger) *StreamHandler {
	h := &StreamHandler{
		logger:  logger,
		engine:  engine,
		clients: make(map[*websocket.Conn]map[string]bool),
	}
	engine.Subscribe(events.TopicTradeExecuted, h.onTrade)
	return h
}

// HandleConnection registers conn and services it until it disconnects.
func (h *StreamHandler) HandleConnection(conn *websocket.Conn) {
	h.mu.Lock()
	h.clients[conn] = make(map[string]bool)
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()

	for {
		var msg struct {
			Action  string   `json:"action"`
			Symbols []string `json:"symbols"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("websocket read error", zap.Error(err))
			}
			return
		}

		h.mu.Lock()
		switch msg.Action {
		case "subscribe":
			for _, s := range msg.Symbols {
				h.clients[conn][s] = true
			}
		case "unsubscribe":
			for _, s := range msg.Symbols {
				delete(h.clients[conn], s)
			}
		default:
			h.logger.Warn("unknown stream action", zap.String("action", msg.Action))
		}
		h.mu.Unlock()
	}
}

// onTrade is the engine bus handler; it runs in the publisher's goroutine
// (the Engine's mutating goroutine), so it must never block.
func (h *StreamHandler) onTrade(payload interface{}) {
	trade, ok := payload.(*pkgmatching.Trade)
	if !ok {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for conn, symbols := range h.clients {
		if len(symbols) > 0 && !symbols[trade.Symbol] {
			continue
		}
		if err := conn.WriteJSON(trade); err != nil {
			h.logger.Error("websocket write failed", zap.Error(err), zap.String("symbol", trade.Symbol))
		}
	}
}
