package api

import (
	"net/http"

	"github.com/Masterminds/semver/v3"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/quantforge/simtrader/internal/api/handlers"
	"github.com/quantforge/simtrader/internal/api/middleware"
	apiws "github.com/quantforge/simtrader/internal/api/websocket"
	"github.com/quantforge/simtrader/internal/config"
	"github.com/quantforge/simtrader/internal/matching"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// minClientVersion is the oldest client engine-protocol version this
// facade still serves; callers that send an older "?client_version=" to
// /healthz are told to upgrade instead of getting a false "ok".
var minClientVersion = semver.MustParse("1.0.0")

// adminMux carries the two plain-http endpoints (health, metrics) behind
// gorilla/mux rather than gin's own router, mirroring the teacher's split
// between its public API router and a separate admin mux.
func newAdminMux(engineVersion string) *mux.Router {
	m := mux.NewRouter()
	m.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if raw := r.URL.Query().Get("client_version"); raw != "" {
			clientVersion, err := semver.NewVersion(raw)
			if err != nil || clientVersion.LessThan(minClientVersion) {
				w.WriteHeader(http.StatusUpgradeRequired)
				w.Write([]byte(`{"status":"upgrade_required","min_version":"` + minClientVersion.String() + `"}`))
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"` + engineVersion + `"}`))
	}).Methods(http.MethodGet)
	m.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return m
}

// NewRouter builds the gin engine for the read-mostly HTTP facade: order
// submission/cancellation, market depth/trade history, trader P&L and
// position reports, a websocket trade stream, Prometheus metrics, and
// (optionally) the Swagger explorer.
func NewRouter(cfg *config.Config, engine *matching.Engine, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
	}))

	security := middleware.NewSecurityMiddleware(cfg.Server.RateLimitPerMinute, logger)
	router.Use(security.RequestID(), security.SecurityHeaders(), security.RateLimiter())

	admin := gin.WrapH(newAdminMux(config.EngineVersion))
	router.GET("/healthz", admin)
	router.GET("/metrics", admin)

	if cfg.Server.EnableSwagger {
		RegisterSwaggerRoutes(router)
	}

	stream := apiws.NewStreamHandler(engine, logger)
	router.GET("/stream", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Error("websocket upgrade failed", zap.Error(err))
			return
		}
		stream.HandleConnection(conn)
	})

	v1 := router.Group("/api/v1")
	handlers.NewOrderHandler(engine, logger).RegisterRoutes(v1)
	handlers.NewAccountHandler(engine, logger).RegisterRoutes(v1)

	market := v1.Group("")
	market.Use(middleware.GzipResponses())
	handlers.NewMarketHandler(engine, logger).RegisterRoutes(market)

	return router
}
