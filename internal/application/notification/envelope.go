package notification

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roomtab/backend/internal/domain/tab"
)

// OrderCreatedEnvelope is the structured body of an order_created event
type OrderCreatedEnvelope struct {
	EventType tab.EventType    `json:"event_type"`
	Order     OrderPayload     `json:"order"`
	Items     []ItemPayload    `json:"items"`
	Session   SessionTotalsDTO `json:"session"`
	Text      string           `json:"text"`
}

// OrderPayload describes the order in an envelope
type OrderPayload struct {
	ID         uuid.UUID       `json:"id"`
	SessionID  string          `json:"session_id"`
	RoomNumber string          `json:"room_number"`
	GuestName  string          `json:"guest_name,omitempty"`
	Note       string          `json:"note,omitempty"`
	Subtotal   decimal.Decimal `json:"subtotal"`
	Tax        decimal.Decimal `json:"tax"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ItemPayload describes one order line in an envelope
type ItemPayload struct {
	ProductID *string         `json:"product_id,omitempty"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Note      string          `json:"note,omitempty"`
}

// SessionTotalsDTO carries the running session totals
type SessionTotalsDTO struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// SessionClosedEnvelope is the structured body of a session_closed event
type SessionClosedEnvelope struct {
	EventType  tab.EventType `json:"event_type"`
	SessionID  string        `json:"session_id"`
	RoomNumber string        `json:"room_number"`
	CloseType  string        `json:"close_type"`
	Text       string        `json:"text"`
}

// PriceMismatchEnvelope is the structured body of a price_mismatch alert
type PriceMismatchEnvelope struct {
	EventType  tab.EventType   `json:"event_type"`
	SessionID  string          `json:"session_id"`
	RoomNumber string          `json:"room_number"`
	Expected   decimal.Decimal `json:"expected"`
	Actual     decimal.Decimal `json:"actual"`
	Text       string          `json:"text"`
}

func newOrderCreatedEnvelope(order *tab.Order, orderTotals, sessionTotals tab.Totals, text string) OrderCreatedEnvelope {
	items := make([]ItemPayload, 0, len(order.Lines))
	for _, l := range order.Lines {
		items = append(items, ItemPayload{
			ProductID: l.ProductID,
			Name:      l.ProductName,
			Price:     l.UnitPrice,
			Quantity:  l.Quantity,
			Subtotal:  l.Subtotal,
			Note:      l.Note,
		})
	}
	return OrderCreatedEnvelope{
		EventType: tab.EventOrderCreated,
		Order: OrderPayload{
			ID:         order.ID,
			SessionID:  order.SessionID,
			RoomNumber: order.RoomID,
			GuestName:  order.GuestName,
			Note:       order.Note,
			Subtotal:   orderTotals.Subtotal,
			Tax:        orderTotals.Tax,
			Total:      orderTotals.Total,
			CreatedAt:  order.CreatedAt,
		},
		Items:   items,
		Session: SessionTotalsDTO(sessionTotals),
		Text:    text,
	}
}
