package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/quantforge/simtrader/internal/matching"
	"github.com/quantforge/simtrader/internal/trading/types"
)

// OrderHandler exposes order submission and cancellation over the engine.
type OrderHandler struct {
	engine *matching.Engine
	logger *zap.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(engine *matching.Engine, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{engine: engine, logger: logger}
}

// RegisterRoutes registers the order API routes under group.
func (h *OrderHandler) RegisterRoutes(group *gin.RouterGroup) {
	ordersGroup := group.Group("/orders")
	{
		ordersGroup.POST("", h.CreateOrder)
		ordersGroup.POST("/:id/cancel", h.CancelOrder)
	}
}

// OrderResponse is returned after a successful submission or cancellation.
type OrderResponse struct {
	OrderID           string  `json:"order_id"`
	Symbol            string  `json:"symbol"`
	Side              string  `json:"side"`
	RemainingQuantity float64 `json:"remaining_quantity"`
}

// CreateOrder submits a new order to the engine.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req map[string]interface{}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := types.OrderFromMap(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.engine.SubmitOrder(order); err != nil {
		h.logger.Warn("order rejected", zap.String("order_id", order.ID), zap.Error(err))
		status := http.StatusBadRequest
		var riskViolation *types.RiskViolation
		if errors.As(err, &riskViolation) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, OrderResponse{
		OrderID:           order.ID,
		Symbol:            order.Symbol,
		Side:              string(order.Side),
		RemainingQuantity: order.RemainingQuantity(),
	})
}

// CancelOrder cancels a resting order. The symbol is required because the
// engine indexes books by symbol.
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id := c.Param("id")
	symbol := c.Query("symbol")
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol query parameter is required"})
		return
	}

	removed := h.engine.CancelOrder(id, symbol)
	if removed == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
		return
	}

	c.JSON(http.StatusOK, OrderResponse{
		OrderID:           removed.ID,
		Symbol:            removed.Symbol,
		Side:              string(removed.Side),
		RemainingQuantity: removed.RemainingQuantity(),
	})
}
