package eventbridge

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/quantforge/simtrader/internal/architecture/fx/resilience"
	"github.com/quantforge/simtrader/internal/config"
	"github.com/quantforge/simtrader/internal/matching"
)

// Module wires an optional Bridge into the fx app, reusing the shared
// CircuitBreakerFactory (provided by resilience.Module, which callers must
// include alongside this one) for the "event-bridge" breaker rather than
// every publisher owning its own gobreaker instance.
var Module = fx.Options(
	fx.Invoke(registerBridge),
)

func registerBridge(lc fx.Lifecycle, engine *matching.Engine, cfg *config.Config, cbf *resilience.CircuitBreakerFactory, logger *zap.Logger) error {
	if !cfg.EventBridge.Enabled {
		return nil
	}

	bridge, err := NewFromConfig(context.Background(), engine, cfg, cbf, logger)
	if err != nil {
		return err
	}
	if bridge == nil {
		return nil
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return bridge.Close(engine)
		},
	})
	return nil
}
