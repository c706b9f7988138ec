package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	tabapp "github.com/roomtab/backend/internal/application/tab"
	"github.com/roomtab/backend/internal/domain/shared"
	"github.com/roomtab/backend/internal/infrastructure/logger"
	"github.com/roomtab/backend/internal/interfaces/http/dto"
	"github.com/roomtab/backend/internal/interfaces/http/router"
)

// SessionHandler handles session views, close and checkout
type SessionHandler struct {
	BaseHandler
	sessions SessionReader
	closer   SessionCloser
	checkout SessionCheckout
}

// NewSessionHandler creates a new SessionHandler
func NewSessionHandler(sessions SessionReader, closer SessionCloser, checkout SessionCheckout) *SessionHandler {
	return &SessionHandler{sessions: sessions, closer: closer, checkout: checkout}
}

// Routes returns the session and room-session route groups
func (h *SessionHandler) Routes() []router.RouteRegistrar {
	sessions := router.NewDomainGroup("sessions", "/sessions").
		GET("", h.ListActive).
		Any("/close", h.Close).
		GET("/:id", h.GetByID).
		POST("/:id/checkout", h.Checkout)
	rooms := router.NewDomainGroup("room-sessions", "/rooms").
		GET("/:room/session", h.GetByRoom)
	return []router.RouteRegistrar{sessions, rooms}
}

// ListActive lists every open session.
// GET /api/v1/sessions
func (h *SessionHandler) ListActive(c *gin.Context) {
	sessions, err := h.sessions.ListActiveSessions(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithTotal(c, sessions, int64(len(sessions)))
}

// GetByID returns a session with its orders and totals.
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetByID(c *gin.Context) {
	view, err := h.sessions.GetSessionView(c.Request.Context(), tabapp.SessionLookup{SessionID: c.Param("id")})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// GetByRoom returns the room's active session.
// GET /api/v1/rooms/:room/session
func (h *SessionHandler) GetByRoom(c *gin.Context) {
	view, err := h.sessions.GetSessionView(c.Request.Context(), tabapp.SessionLookup{RoomID: c.Param("room")})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Checkout charges the session's running subtotal through the POS.
// POST /api/v1/sessions/:id/checkout
func (h *SessionHandler) Checkout(c *gin.Context) {
	var req dto.CheckoutRequest
	if !h.BindOptionalJSON(c, &req) {
		return
	}
	sessionID := c.Param("id")
	ctx := logger.WithSession(c.Request.Context(), sessionID)
	result, err := h.checkout.CheckoutSession(ctx, sessionID, req.SourceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// Close closes a session and answers with the flat close envelope.
// Only POST is accepted; every other method gets 405.
// /api/v1/sessions/close
func (h *SessionHandler) Close(c *gin.Context) {
	if c.Request.Method != http.MethodPost {
		c.Header("Allow", http.MethodPost)
		h.closeError(c, http.StatusMethodNotAllowed, "", dto.ErrCodeMethodNotAllowed, "Method not allowed")
		return
	}

	var req tabapp.CloseRequest
	if err := decodeStrict(c.Request.Body, &req); err != nil && !isEmptyBody(err, c) {
		h.closeError(c, http.StatusBadRequest, "", dto.ErrCodeInvalidJSON, err.Error())
		return
	}

	result, err := h.closer.CloseSession(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		var domainErr *shared.DomainError
		if !errors.As(err, &domainErr) {
			logger.GetGinLogger(c).Error("Close failed", zap.Error(err))
			h.closeError(c, http.StatusInternalServerError, req.SessionID, dto.ErrCodeInternal, "An unexpected error occurred")
			return
		}
		code := dto.NormalizeErrorCode(domainErr.Code)
		status := dto.GetHTTPStatus(code)
		if status >= http.StatusInternalServerError {
			logger.GetGinLogger(c).Error("Close failed", zap.Error(err))
		}
		h.closeError(c, status, req.SessionID, code, domainErr.Message)
		return
	}

	logger.GetGinLogger(c).Info("Session closed",
		zap.String("session_id", result.SessionID),
		zap.String("room_id", result.RoomID),
		zap.String("status", result.Status.String()),
	)
	c.JSON(http.StatusOK, dto.CloseResponse{
		Success:   true,
		SessionID: result.SessionID,
		Status:    result.Status.String(),
		Message:   result.Message,
	})
}

// closeError echoes sessionID when the caller supplied one
func (h *SessionHandler) closeError(c *gin.Context, status int, sessionID, code, message string) {
	c.JSON(status, dto.CloseResponse{
		Success:   false,
		SessionID: strings.TrimSpace(sessionID),
		Message:   message,
		Code:      code,
	})
}

// isEmptyBody reports whether err only says the body was empty, which the
// close endpoint treats as a request with no identifiers.
func isEmptyBody(err error, c *gin.Context) bool {
	return errors.Is(err, errEmptyBody) && c.Request.ContentLength <= 0
}
