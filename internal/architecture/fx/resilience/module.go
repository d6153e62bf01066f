package resilience

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the resilience components: a shared CircuitBreakerFactory
// and a lifecycle hook that logs per-breaker stats on shutdown.
var Module = fx.Options(
	fx.Provide(NewCircuitBreakerFactory),
	fx.Invoke(registerHooks),
)

// watchedBreakers lists the circuit breaker names whose stats are logged
// on shutdown, if they were ever created.
var watchedBreakers = []string{"event-bridge"}

func registerHooks(lc fx.Lifecycle, logger *zap.Logger, factory *CircuitBreakerFactory) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("starting resilience components")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			metrics := factory.GetMetrics()
			for _, name := range watchedBreakers {
				if metrics.GetExecutionCount(name) == 0 {
					continue
				}
				logger.Info("circuit breaker stats",
					zap.String("name", name),
					zap.Stringer("state", factory.GetState(name)),
					zap.Int64("executions", metrics.GetExecutionCount(name)),
					zap.Int64("successes", metrics.GetSuccessCount(name)),
					zap.Int64("failures", metrics.GetFailureCount(name)),
					zap.Float64("success_rate", metrics.GetSuccessRate(name)),
					zap.Int64("fallbacks", metrics.GetFallbackCount(name)),
					zap.Float64("fallback_success_rate", metrics.GetFallbackSuccessRate(name)))
			}
			return nil
		},
	})
}
