package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quantforge/simtrader/internal/matching"
	pkgmatching "github.com/quantforge/simtrader/pkg/matching"
)

// MarketHandler exposes read-only order book depth and trade history.
type MarketHandler struct {
	engine *matching.Engine
	logger *zap.Logger
}

// NewMarketHandler creates a new market data handler.
func NewMarketHandler(engine *matching.Engine, logger *zap.Logger) *MarketHandler {
	return &MarketHandler{engine: engine, logger: logger}
}

// RegisterRoutes registers the market data routes under group.
func (h *MarketHandler) RegisterRoutes(group *gin.RouterGroup) {
	symbols := group.Group("/symbols/:symbol")
	{
		symbols.GET("/depth", h.GetDepth)
		symbols.GET("/trades", h.GetTrades)
		symbols.GET("/stats", h.GetStats)
	}
}

// GetDepth returns aggregated bid/ask levels for a symbol, truncated to
// the levels query parameter (default 10).
func (h *MarketHandler) GetDepth(c *gin.Context) {
	symbol := c.Param("symbol")
	levels := 10
	if raw := c.Query("levels"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			levels = n
		}
	}

	book := h.engine.Book(symbol)
	c.JSON(http.StatusOK, book.Depth(levels))
}

// GetTrades returns the most recent trades touching symbol, newest first,
// truncated to the limit query parameter (default 50).
func (h *MarketHandler) GetTrades(c *gin.Context) {
	symbol := c.Param("symbol")
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	matched := h.tradesForSymbol(symbol)
	if len(matched) > limit {
		matched = matched[len(matched)-limit:]
	}
	// newest first
	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}

	c.JSON(http.StatusOK, matched)
}

// GetStats returns the VWAP and sample standard deviation of symbol's
// full trade tape.
func (h *MarketHandler) GetStats(c *gin.Context) {
	symbol := c.Param("symbol")
	c.JSON(http.StatusOK, pkgmatching.ComputeTradeStats(h.tradesForSymbol(symbol)))
}

// tradesForSymbol returns engine trades touching symbol in execution order.
func (h *MarketHandler) tradesForSymbol(symbol string) []pkgmatching.Trade {
	var matched []pkgmatching.Trade
	for _, t := range h.engine.Trades() {
		if t.Symbol == symbol {
			matched = append(matched, t)
		}
	}
	return matched
}
