package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quantforge/simtrader/internal/matching"
	"github.com/quantforge/simtrader/internal/trading/types"
)

// AccountHandler exposes per-trader P&L and position reports.
type AccountHandler struct {
	engine *matching.Engine
	logger *zap.Logger
}

// NewAccountHandler creates a new account handler.
func NewAccountHandler(engine *matching.Engine, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{engine: engine, logger: logger}
}

// RegisterRoutes registers the trader account routes under group.
func (h *AccountHandler) RegisterRoutes(group *gin.RouterGroup) {
	traders := group.Group("/traders/:id")
	{
		traders.GET("/pnl", h.GetPnL)
		traders.GET("/positions", h.GetPositions)
	}
}

// GetPnL returns realized/unrealized P&L, equity, and cash for a trader.
func (h *AccountHandler) GetPnL(c *gin.Context) {
	id := c.Param("id")
	report, err := h.engine.PnLReport(id)
	if err != nil {
		h.writeTraderError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetPositions returns a trader's per-symbol report: quantity, average
// cost, last mark, unrealized and realized P&L, for every symbol the trader
// holds or has traded (flat symbols included, with quantity 0).
func (h *AccountHandler) GetPositions(c *gin.Context) {
	id := c.Param("id")
	trader := h.engine.Trader(id)
	if trader == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": types.ErrUnknownTrader.Error()})
		return
	}
	c.JSON(http.StatusOK, trader.PnLBySymbol())
}

func (h *AccountHandler) writeTraderError(c *gin.Context, err error) {
	if errors.Is(err, types.ErrUnknownTrader) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	h.logger.Error("trader report failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
