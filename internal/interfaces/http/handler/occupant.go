package handler

import (
	"github.com/gin-gonic/gin"

	tabapp "github.com/roomtab/backend/internal/application/tab"
	"github.com/roomtab/backend/internal/interfaces/http/router"
)

// OccupantHandler registers guest identities for rooms
type OccupantHandler struct {
	BaseHandler
	occupants OccupantRegistry
}

// NewOccupantHandler creates a new OccupantHandler
func NewOccupantHandler(occupants OccupantRegistry) *OccupantHandler {
	return &OccupantHandler{occupants: occupants}
}

// Routes returns the occupant route group
func (h *OccupantHandler) Routes() *router.DomainGroup {
	return router.NewDomainGroup("occupants", "/rooms").
		POST("/:room/occupants", h.Register).
		GET("/:room/occupants", h.List)
}

// Register activates a guest in the room.
// POST /api/v1/rooms/:room/occupants
func (h *OccupantHandler) Register(c *gin.Context) {
	var req tabapp.RegisterOccupantRequest
	if !h.BindStrictJSON(c, &req) {
		return
	}
	occupant, err := h.occupants.RegisterOccupant(c.Request.Context(), c.Param("room"), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, occupant)
}

// List returns the room's active occupants.
// GET /api/v1/rooms/:room/occupants
func (h *OccupantHandler) List(c *gin.Context) {
	occupants, err := h.occupants.ListOccupants(c.Request.Context(), c.Param("room"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithTotal(c, occupants, int64(len(occupants)))
}
