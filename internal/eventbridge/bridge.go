// Package eventbridge republishes the matching engine's trade_executed
// events onto an external message transport, so that systems outside this
// process (a risk desk, a market-data fan-out, a settlement pipeline) can
// observe fills without reaching into the engine directly.
//
// Unlike internal/events (synchronous, in-process, no serialization),
// everything here crosses a network boundary and is wrapped in a circuit
// breaker: a stalled or unreachable transport must not block the matching
// engine's own goroutine, since Publish runs synchronously from the
// engine's trade_executed dispatch.
package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	gomicrobroker "go-micro.dev/v4/broker"
	"go.uber.org/zap"

	"github.com/quantforge/simtrader/internal/architecture/fx/resilience"
	"github.com/quantforge/simtrader/internal/config"
	"github.com/quantforge/simtrader/internal/events"
	"github.com/quantforge/simtrader/internal/matching"
	pkgmatching "github.com/quantforge/simtrader/pkg/matching"
)

// breakerName is the circuit breaker the bridge shares with
// internal/architecture/fx/resilience/module.go's shutdown metrics log.
const breakerName = "event-bridge"

// Publisher is the minimal external-transport contract a driver must
// satisfy: publish a serialized trade under subject, and release any
// held connections on Close.
type Publisher interface {
	Publish(subject string, payload []byte) error
	Close() error
}

// Bridge subscribes to an engine's trade_executed topic and republishes
// every trade through a Publisher, guarded by a circuit breaker so a
// downed transport degrades to dropped (and logged) events rather than
// blocking the matching engine.
type Bridge struct {
	publisher Publisher
	subject   string
	breaker   breaker
	logger    *zap.Logger
	handlerID events.HandlerID
}

// breaker is the subset of *resilience.CircuitBreakerFactory the bridge
// depends on, narrowed so tests can substitute a no-op.
type breaker interface {
	ExecuteWithFallback(name string, fn func() (interface{}, error), fallback func(error) (interface{}, error)) resilience.CircuitBreakerResult
}

// New creates a Bridge over the given publisher and subscribes it to
// engine's trade_executed topic immediately.
func New(engine *matching.Engine, publisher Publisher, subject string, cb breaker, logger *zap.Logger) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{publisher: publisher, subject: subject, breaker: cb, logger: logger}
	b.handlerID = engine.Subscribe(events.TopicTradeExecuted, b.onTrade)
	return b
}

// Close unsubscribes from the engine and releases the underlying
// transport.
func (b *Bridge) Close(engine *matching.Engine) error {
	engine.Unsubscribe(events.TopicTradeExecuted, b.handlerID)
	return b.publisher.Close()
}

func (b *Bridge) onTrade(payload interface{}) {
	trade, ok := payload.(*pkgmatching.Trade)
	if !ok {
		return
	}
	data, err := json.Marshal(trade)
	if err != nil {
		b.logger.Error("marshalling trade for event bridge", zap.Error(err))
		return
	}

	b.breaker.ExecuteWithFallback(breakerName,
		func() (interface{}, error) {
			return nil, b.publisher.Publish(b.subject, data)
		},
		func(err error) (interface{}, error) {
			b.logger.Warn("event bridge publish failed or circuit open",
				zap.String("subject", b.subject), zap.Error(err))
			return nil, err
		},
	)
}

// goMicroPublisher adapts a go-micro broker.Broker to Publisher.
type goMicroPublisher struct {
	broker gomicrobroker.Broker
}

// NewGoMicroPublisher connects b and returns a Publisher backed by it.
func NewGoMicroPublisher(b gomicrobroker.Broker) (Publisher, error) {
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connecting go-micro broker: %w", err)
	}
	return &goMicroPublisher{broker: b}, nil
}

func (p *goMicroPublisher) Publish(subject string, payload []byte) error {
	return p.broker.Publish(subject, &gomicrobroker.Message{Body: payload})
}

func (p *goMicroPublisher) Close() error {
	return p.broker.Disconnect()
}

// breakerSettings tunes the event-bridge breaker tighter than
// resilience.DefaultSettings: this breaker guards a synchronous network
// call made from the engine's own trade_executed dispatch, so it should
// trip (and stop blocking the matching loop) well before the default
// 10-request/50%-failure threshold would.
func breakerSettings(logger *zap.Logger, metrics *resilience.CircuitBreakerMetrics) gobreaker.Settings {
	settings := resilience.DefaultSettings(breakerName, logger, metrics)
	settings.MaxRequests = 1
	settings.Interval = 10 * time.Second
	settings.Timeout = 5 * time.Second
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}
	return settings
}

// NewFromConfig builds a Bridge wired to the driver named in
// cfg.EventBridge (currently "gomicro"; "nats" is the watermill-backed
// driver in publisher_nats.go), or nil if the bridge is disabled.
func NewFromConfig(ctx context.Context, engine *matching.Engine, cfg *config.Config, cbf *resilience.CircuitBreakerFactory, logger *zap.Logger) (*Bridge, error) {
	if !cfg.EventBridge.Enabled {
		return nil, nil
	}

	var pub Publisher
	var err error
	switch cfg.EventBridge.Driver {
	case "nats":
		pub, err = NewNatsPublisher(cfg.EventBridge.NatsURL, logger)
	default:
		b := gomicrobroker.NewBroker(gomicrobroker.Addrs(cfg.EventBridge.NatsURL))
		pub, err = NewGoMicroPublisher(b)
	}
	if err != nil {
		return nil, err
	}

	cbf.GetCircuitBreakerWithSettings(breakerName, breakerSettings(logger, cbf.GetMetrics()))
	return New(engine, pub, cfg.EventBridge.Subject, cbf, logger), nil
}
