package api

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/quantforge/simtrader/internal/config"
	"github.com/quantforge/simtrader/internal/matching"
)

// Module wires the HTTP facade into an fx app: it builds the gin router
// and starts/stops an *http.Server bound to cfg.Server.Host:Port alongside
// the rest of the process lifecycle.
var Module = fx.Options(
	fx.Invoke(registerServer),
)

func registerServer(lc fx.Lifecycle, cfg *config.Config, engine *matching.Engine, logger *zap.Logger) {
	router := NewRouter(cfg, engine, logger)
	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				logger.Info("starting HTTP facade", zap.String("addr", srv.Addr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("HTTP facade stopped unexpectedly", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
