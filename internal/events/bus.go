// Package events provides the matching engine's embedded, in-process event
// bus. Unlike internal/eventbridge, nothing here ever touches the network:
// subscribers run synchronously, in the publisher's goroutine, in
// subscription order.
package events

import (
	"sync"

	"go.uber.org/zap"
)

// Topic names published by the matching engine and order book.
const (
	TopicOrderAdded    = "order_added"
	TopicOrderRemoved  = "order_removed"
	TopicTradeExecuted = "trade_executed"
)

// Handler receives a published payload. The concrete type behind payload is
// fixed per topic: *types.Order for TopicOrderAdded/TopicOrderRemoved,
// *matching.Trade for TopicTradeExecuted.
type Handler func(payload interface{})

// HandlerID identifies a single subscription so it can be removed without
// relying on func value comparison (Go func values are not comparable).
type HandlerID uint64

// subscription pairs a HandlerID with its Handler, kept in a slice per topic
// so fan-out order matches subscription order instead of Go's randomized
// map-iteration order.
type subscription struct {
	id      HandlerID
	handler Handler
}

// Bus is a minimal typed pub/sub bus. The zero value is not usable; use New.
type Bus struct {
	mu       sync.RWMutex
	logger   *zap.Logger
	nextID   HandlerID
	handlers map[string][]subscription
}

// New creates an empty Bus. logger may be nil, in which case a no-op logger
// is used.
func New(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{
		logger:   logger,
		handlers: make(map[string][]subscription),
	}
}

// Subscribe registers handler for topic and returns an id that Unsubscribe
// accepts. Handlers fire in the order they were subscribed.
func (b *Bus) Subscribe(topic string, handler Handler) HandlerID {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[topic] = append(b.handlers[topic], subscription{id: id, handler: handler})
	return id
}

// Unsubscribe removes a handler previously returned by Subscribe. It is a
// no-op if id is unknown or already removed.
func (b *Bus) Unsubscribe(topic string, id HandlerID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[topic]
	for i, s := range subs {
		if s.id == id {
			b.handlers[topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish invokes every handler currently subscribed to topic, in
// subscription order, synchronously on the calling goroutine. A handler
// that panics propagates the panic to the caller of Publish; the bus does
// not recover it.
func (b *Bus) Publish(topic string, payload interface{}) {
	b.mu.RLock()
	// Snapshot under the read lock so a handler that subscribes/unsubscribes
	// during dispatch can't deadlock or mutate the slice being ranged over.
	subs := make([]subscription, len(b.handlers[topic]))
	copy(subs, b.handlers[topic])
	b.mu.RUnlock()

	for _, s := range subs {
		s.handler(payload)
	}
}
