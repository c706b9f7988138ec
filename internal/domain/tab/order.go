package tab

import (
	"time"

	"github.com/google/uuid"
	"github.com/roomtab/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of a guest order
type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "OPEN"
	OrderStatusCompleted OrderStatus = "COMPLETED"
)

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// OrderLine is a single priced line of an order. Immutable once created.
type OrderLine struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	SessionID   string
	ProductID   *string
	ProductName string
	UnitPrice   decimal.Decimal
	Quantity    int
	Subtotal    decimal.Decimal // UnitPrice * Quantity
	Note        string
}

// Order is one guest order placed on a room's session
type Order struct {
	ID            uuid.UUID
	SessionID     string
	RoomID        string
	GuestName     string
	GuestIdentity *string
	Status        OrderStatus
	TotalAmount   decimal.Decimal // tax-exclusive
	Note          string
	CreatedAt     time.Time
	Lines         []OrderLine
}

// NewOrder creates an open order with its lines from normalized input
func NewOrder(sessionID, roomID, guestName string, guestIdentity *string, note string, lines []NormalizedLine, now time.Time) (*Order, error) {
	if sessionID == "" {
		return nil, shared.NewDomainError("INVALID_SESSION", "Session ID cannot be empty")
	}
	if roomID == "" {
		return nil, shared.NewDomainError("INVALID_ROOM", "Room number cannot be empty")
	}
	if len(lines) == 0 {
		return nil, shared.ErrNoValidLines
	}
	if guestIdentity != nil && *guestIdentity == "" {
		guestIdentity = nil
	}

	order := &Order{
		ID:            uuid.New(),
		SessionID:     sessionID,
		RoomID:        roomID,
		GuestName:     guestName,
		GuestIdentity: guestIdentity,
		Status:        OrderStatusOpen,
		Note:          note,
		CreatedAt:     now,
		Lines:         make([]OrderLine, 0, len(lines)),
	}
	for _, l := range lines {
		order.Lines = append(order.Lines, OrderLine{
			ID:          uuid.New(),
			OrderID:     order.ID,
			SessionID:   sessionID,
			ProductID:   l.ProductID,
			ProductName: l.Name,
			UnitPrice:   l.UnitPrice,
			Quantity:    l.Quantity,
			Subtotal:    l.Subtotal(),
			Note:        l.Note,
		})
	}
	order.TotalAmount = SumLines(order.Lines)
	return order, nil
}

// ItemCount returns the total quantity across lines
func (o *Order) ItemCount() int {
	n := 0
	for _, l := range o.Lines {
		n += l.Quantity
	}
	return n
}

// SumLines returns the tax-exclusive sum of line subtotals
func SumLines(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal)
	}
	return total
}

// Product is a catalog entry an order line may reference
type Product struct {
	ID     string
	Name   string
	Price  decimal.Decimal
	Active bool
}

// Totals is a tax-exclusive amount together with its display tax
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// DefaultTaxRate is the consumption tax applied for display purposes
var DefaultTaxRate = decimal.RequireFromString("0.10")

// ComputeTotals applies rate to subtotal. Tax is rounded down to whole currency
// units; it is never persisted nor mirrored to the POS.
func ComputeTotals(subtotal, rate decimal.Decimal) Totals {
	tax := subtotal.Mul(rate).Floor()
	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
