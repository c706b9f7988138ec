package tab

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionRepository persists order sessions
type SessionRepository interface {
	// FindActiveByRoom returns the room's active session or shared.ErrNotFound
	FindActiveByRoom(ctx context.Context, roomID string) (*OrderSession, error)
	// FindByID returns a session or shared.ErrNotFound
	FindByID(ctx context.Context, id string) (*OrderSession, error)
	// ListActive returns all active sessions, oldest first
	ListActive(ctx context.Context) ([]OrderSession, error)
	// Create inserts a new session; returns shared.ErrAlreadyExists when the
	// room already has an active session
	Create(ctx context.Context, session *OrderSession) error
	// UpdateMirror stores the POS shadow item identifiers
	UpdateMirror(ctx context.Context, sessionID, itemID, variationID string) error
	// BindOccupants attaches active occupants of the room that have no session
	BindOccupants(ctx context.Context, roomID, sessionID string) (int64, error)
	// Close persists a closed session, deactivates its occupants and completes
	// its open orders in one transaction. Returns the number of orders completed.
	Close(ctx context.Context, session *OrderSession) (int64, error)
}

// OrderRepository persists orders and their lines
type OrderRepository interface {
	// CreateWithLines inserts the order and all its lines atomically
	CreateWithLines(ctx context.Context, order *Order) error
	// SumLineSubtotals returns SUM(unit_price * quantity) over the session's lines
	SumLineSubtotals(ctx context.Context, sessionID string) (decimal.Decimal, error)
	// FindBySession returns the session's orders with lines, oldest first
	FindBySession(ctx context.Context, sessionID string) ([]Order, error)
}

// ProductRepository resolves catalog products
type ProductRepository interface {
	// FindByIDs returns the products found, keyed by id
	FindByIDs(ctx context.Context, ids []string) (map[string]Product, error)
}

// OccupantRepository persists room occupants
type OccupantRepository interface {
	// Upsert activates (or creates) the occupant identified by room and guest identity
	Upsert(ctx context.Context, occupant *RoomOccupant) error
	// FindActiveByRoom lists the active occupants of a room
	FindActiveByRoom(ctx context.Context, roomID string) ([]RoomOccupant, error)
}

// WebhookEventRepository persists the notification audit log
type WebhookEventRepository interface {
	Create(ctx context.Context, event *WebhookEvent) error
	MarkProcessed(ctx context.Context, eventID uuid.UUID, at time.Time) error
	SaveDeliveries(ctx context.Context, deliveries []WebhookDelivery) error
	FindBySession(ctx context.Context, sessionID string) ([]WebhookEvent, error)
	FindDeliveries(ctx context.Context, eventID uuid.UUID) ([]WebhookDelivery, error)
}
