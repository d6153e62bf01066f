// Command simtrader runs the matching engine process: the engine itself,
// its HTTP facade, and (if configured) the external event bridge.
package main

import (
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/quantforge/simtrader/internal/api"
	"github.com/quantforge/simtrader/internal/architecture/fx/resilience"
	"github.com/quantforge/simtrader/internal/config"
	"github.com/quantforge/simtrader/internal/eventbridge"
	"github.com/quantforge/simtrader/internal/matching"
	pkgmatching "github.com/quantforge/simtrader/pkg/matching"
)

func main() {
	app := fx.New(
		fx.Provide(
			newConfig,
			config.NewLogger,
			newEngine,
		),

		resilience.Module,
		eventbridge.Module,
		api.Module,
	)

	app.Run()
}

func newConfig() (*config.Config, error) {
	return config.Load(".", "./config", "/etc/simtrader")
}

func newEngine(cfg *config.Config, logger *zap.Logger) *matching.Engine {
	strategy := matching.StrategyFIFO
	if cfg.Engine.Strategy == string(matching.StrategyProRata) {
		strategy = matching.StrategyProRata
	}

	engine := matching.NewEngine(
		matching.WithStrategy(strategy),
		matching.WithFees(newFeeSchedule(cfg)),
		matching.WithLogger(logger),
	)
	for _, symbol := range cfg.Engine.Symbols {
		engine.Book(symbol)
	}
	return engine
}

func newFeeSchedule(cfg *config.Config) pkgmatching.FeeSchedule {
	if cfg.Engine.MakerFee == 0 && cfg.Engine.TakerFee == 0 {
		return pkgmatching.DefaultFeeSchedule()
	}
	return pkgmatching.FeeSchedule{MakerRate: cfg.Engine.MakerFee, TakerRate: cfg.Engine.TakerFee}
}
