package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	tabapp "github.com/roomtab/backend/internal/application/tab"
	"github.com/roomtab/backend/internal/infrastructure/logger"
	"github.com/roomtab/backend/internal/interfaces/http/router"
)

// OrderHandler handles order intake
type OrderHandler struct {
	BaseHandler
	intake OrderCreator
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(intake OrderCreator) *OrderHandler {
	return &OrderHandler{intake: intake}
}

// Routes returns the order route group
func (h *OrderHandler) Routes() *router.DomainGroup {
	return router.NewDomainGroup("orders", "/orders").
		POST("", h.Create)
}

// Create records a guest order on the room's open tab.
// POST /api/v1/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req tabapp.CreateOrderRequest
	if !h.BindStrictJSON(c, &req) {
		return
	}

	ctx := logger.WithRoom(c.Request.Context(), req.RoomID)
	result, err := h.intake.CreateOrder(ctx, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	logger.GetGinLogger(c).Info("Order accepted",
		zap.String("room_id", req.RoomID),
		zap.String("session_id", result.SessionID),
		zap.Bool("session_created", result.SessionCreated),
	)
	h.Created(c, result)
}
