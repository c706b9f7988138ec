package tab

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roomtab/backend/internal/domain/tab"
)

// CreateOrderRequest is a guest order for a room
type CreateOrderRequest struct {
	RoomID        string               `json:"room_number" binding:"required,max=32"`
	Lines         []tab.OrderLineInput `json:"items" binding:"required,min=1,max=100"`
	GuestName     string               `json:"guest_name" binding:"max=100"`
	GuestIdentity string               `json:"guest_identity" binding:"max=128"`
	Note          string               `json:"note" binding:"max=500"`
}

// OrderLineResponse is one persisted order line
type OrderLineResponse struct {
	ID          uuid.UUID       `json:"id"`
	ProductID   *string         `json:"product_id,omitempty"`
	ProductName string          `json:"name"`
	UnitPrice   decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	Note        string          `json:"note,omitempty"`
}

// OrderResponse is a persisted order with its lines
type OrderResponse struct {
	ID          uuid.UUID           `json:"id"`
	SessionID   string              `json:"session_id"`
	RoomID      string              `json:"room_number"`
	GuestName   string              `json:"guest_name,omitempty"`
	Status      string              `json:"status"`
	TotalAmount decimal.Decimal     `json:"total_amount"`
	Note        string              `json:"note,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	Lines       []OrderLineResponse `json:"items"`
}

// OrderResult is returned by CreateOrder
type OrderResult struct {
	Order          OrderResponse `json:"order"`
	SessionID      string        `json:"session_id"`
	SessionCreated bool          `json:"session_created"`
	MirrorItemID   string        `json:"mirror_item_id"`
	OrderTotals    tab.Totals    `json:"order_totals"`
	SessionTotals  tab.Totals    `json:"session_totals"`
}

// SessionResponse is the public view of an order session
type SessionResponse struct {
	ID                string     `json:"id"`
	RoomID            string     `json:"room_number"`
	Active            bool       `json:"active"`
	Status            string     `json:"status"`
	MirrorItemID      string     `json:"mirror_item_id,omitempty"`
	MirrorVariationID string     `json:"mirror_variation_id,omitempty"`
	OpenedAt          time.Time  `json:"opened_at"`
	ClosedAt          *time.Time `json:"closed_at,omitempty"`
}

// SessionView is a session with all its orders and running totals
type SessionView struct {
	Session SessionResponse `json:"session"`
	Orders  []OrderResponse `json:"orders"`
	Totals  tab.Totals      `json:"totals"`
}

// SessionLookup identifies a session by id or by the room's active session
type SessionLookup struct {
	SessionID string
	RoomID    string
}

// CloseRequest asks to close a session
type CloseRequest struct {
	SessionID string `json:"session_id"`
	RoomID    string `json:"room_number"`
	Force     bool   `json:"force"`
}

// CloseResult describes a completed close
type CloseResult struct {
	SessionID       string            `json:"session_id"`
	RoomID          string            `json:"room_number"`
	Status          tab.SessionStatus `json:"status"`
	OrdersCompleted int64             `json:"orders_completed"`
	ShadowArchived  bool              `json:"shadow_archived"`
	Message         string            `json:"message"`
}

// CheckoutResult describes the POS charge of a session
type CheckoutResult struct {
	SessionID  string          `json:"session_id"`
	POSOrderID string          `json:"pos_order_id"`
	PaymentID  string          `json:"payment_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

// RegisterOccupantRequest registers a guest identity for a room
type RegisterOccupantRequest struct {
	GuestIdentity string `json:"guest_identity" binding:"required,max=128"`
	DisplayName   string `json:"display_name" binding:"max=100"`
}

// OccupantResponse is the public view of a room occupant
type OccupantResponse struct {
	ID            uuid.UUID `json:"id"`
	RoomID        string    `json:"room_number"`
	GuestIdentity string    `json:"guest_identity"`
	DisplayName   string    `json:"display_name,omitempty"`
	Active        bool      `json:"active"`
	SessionID     *string   `json:"session_id,omitempty"`
}

// ToSessionResponse converts a domain session
func ToSessionResponse(s *tab.OrderSession) SessionResponse {
	return SessionResponse{
		ID:                s.ID,
		RoomID:            s.RoomID,
		Active:            s.Active,
		Status:            s.Status.String(),
		MirrorItemID:      s.MirrorItemID,
		MirrorVariationID: s.MirrorVariationID,
		OpenedAt:          s.OpenedAt,
		ClosedAt:          s.ClosedAt,
	}
}

// ToOrderResponse converts a domain order
func ToOrderResponse(o *tab.Order) OrderResponse {
	lines := make([]OrderLineResponse, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderLineResponse{
			ID:          l.ID,
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal,
			Note:        l.Note,
		})
	}
	return OrderResponse{
		ID:          o.ID,
		SessionID:   o.SessionID,
		RoomID:      o.RoomID,
		GuestName:   o.GuestName,
		Status:      o.Status.String(),
		TotalAmount: o.TotalAmount,
		Note:        o.Note,
		CreatedAt:   o.CreatedAt,
		Lines:       lines,
	}
}

// ToOccupantResponse converts a domain occupant
func ToOccupantResponse(o *tab.RoomOccupant) OccupantResponse {
	return OccupantResponse{
		ID:            o.ID,
		RoomID:        o.RoomID,
		GuestIdentity: o.GuestIdentity,
		DisplayName:   o.DisplayName,
		Active:        o.Active,
		SessionID:     o.SessionID,
	}
}
