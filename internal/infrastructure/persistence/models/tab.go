package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roomtab/backend/internal/domain/tab"
)

// OrderSessionModel is the persistence model for the OrderSession entity.
// The partial unique index allows at most one active session per room.
type OrderSessionModel struct {
	ID                string            `gorm:"type:varchar(32);primaryKey"`
	RoomID            string            `gorm:"type:varchar(64);not null;index:idx_order_sessions_room;uniqueIndex:uq_order_sessions_active_room,where:active = true"`
	Active            bool              `gorm:"not null"`
	Status            tab.SessionStatus `gorm:"type:varchar(32);not null"`
	MirrorItemID      string            `gorm:"type:varchar(64)"`
	MirrorVariationID string            `gorm:"type:varchar(64)"`
	OpenedAt          time.Time         `gorm:"not null"`
	ClosedAt          *time.Time
	CreatedAt         time.Time `gorm:"not null"`
	UpdatedAt         time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderSessionModel) TableName() string {
	return "order_sessions"
}

// ToDomain converts the persistence model to a domain OrderSession
func (m *OrderSessionModel) ToDomain() *tab.OrderSession {
	return &tab.OrderSession{
		ID:                m.ID,
		RoomID:            m.RoomID,
		Active:            m.Active,
		Status:            m.Status,
		MirrorItemID:      m.MirrorItemID,
		MirrorVariationID: m.MirrorVariationID,
		OpenedAt:          m.OpenedAt,
		ClosedAt:          m.ClosedAt,
	}
}

// OrderSessionModelFromDomain creates a persistence model from a domain OrderSession
func OrderSessionModelFromDomain(s *tab.OrderSession) *OrderSessionModel {
	return &OrderSessionModel{
		ID:                s.ID,
		RoomID:            s.RoomID,
		Active:            s.Active,
		Status:            s.Status,
		MirrorItemID:      s.MirrorItemID,
		MirrorVariationID: s.MirrorVariationID,
		OpenedAt:          s.OpenedAt,
		ClosedAt:          s.ClosedAt,
		CreatedAt:         s.OpenedAt,
		UpdatedAt:         s.OpenedAt,
	}
}

// OrderModel is the persistence model for the Order aggregate root
type OrderModel struct {
	ID            uuid.UUID        `gorm:"type:uuid;primaryKey"`
	SessionID     string           `gorm:"type:varchar(32);not null;index:idx_orders_session"`
	RoomID        string           `gorm:"type:varchar(64);not null;index:idx_orders_room_status,priority:1"`
	GuestName     string           `gorm:"type:varchar(200)"`
	GuestIdentity *string          `gorm:"type:varchar(128)"`
	Status        tab.OrderStatus  `gorm:"type:varchar(20);not null;index:idx_orders_room_status,priority:2"`
	TotalAmount   decimal.Decimal  `gorm:"type:decimal(18,2);not null"`
	Note          string           `gorm:"type:text"`
	CreatedAt     time.Time        `gorm:"not null"`
	UpdatedAt     time.Time        `gorm:"not null"`
	Lines         []OrderLineModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *tab.Order {
	order := &tab.Order{
		ID:            m.ID,
		SessionID:     m.SessionID,
		RoomID:        m.RoomID,
		GuestName:     m.GuestName,
		GuestIdentity: m.GuestIdentity,
		Status:        m.Status,
		TotalAmount:   m.TotalAmount,
		Note:          m.Note,
		CreatedAt:     m.CreatedAt,
	}
	if len(m.Lines) > 0 {
		order.Lines = make([]tab.OrderLine, len(m.Lines))
		for i := range m.Lines {
			order.Lines[i] = *m.Lines[i].ToDomain()
		}
	}
	return order
}

// OrderModelFromDomain creates a persistence model (lines included) from a domain Order
func OrderModelFromDomain(o *tab.Order) *OrderModel {
	m := &OrderModel{
		ID:            o.ID,
		SessionID:     o.SessionID,
		RoomID:        o.RoomID,
		GuestName:     o.GuestName,
		GuestIdentity: o.GuestIdentity,
		Status:        o.Status,
		TotalAmount:   o.TotalAmount,
		Note:          o.Note,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.CreatedAt,
	}
	m.Lines = make([]OrderLineModel, len(o.Lines))
	for i := range o.Lines {
		m.Lines[i] = *OrderLineModelFromDomain(&o.Lines[i], o.CreatedAt)
	}
	return m
}

// OrderLineModel is the persistence model for an OrderLine. Lines are never updated.
type OrderLineModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index:idx_order_lines_order"`
	SessionID   string          `gorm:"type:varchar(32);not null;index:idx_order_lines_session"`
	ProductID   *string         `gorm:"type:varchar(64)"`
	ProductName string          `gorm:"type:varchar(200);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Quantity    int             `gorm:"not null"`
	Subtotal    decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Note        string          `gorm:"type:text"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the persistence model to a domain OrderLine
func (m *OrderLineModel) ToDomain() *tab.OrderLine {
	return &tab.OrderLine{
		ID:          m.ID,
		OrderID:     m.OrderID,
		SessionID:   m.SessionID,
		ProductID:   m.ProductID,
		ProductName: m.ProductName,
		UnitPrice:   m.UnitPrice,
		Quantity:    m.Quantity,
		Subtotal:    m.Subtotal,
		Note:        m.Note,
	}
}

// OrderLineModelFromDomain creates a persistence model from a domain OrderLine
func OrderLineModelFromDomain(l *tab.OrderLine, createdAt time.Time) *OrderLineModel {
	return &OrderLineModel{
		ID:          l.ID,
		OrderID:     l.OrderID,
		SessionID:   l.SessionID,
		ProductID:   l.ProductID,
		ProductName: l.ProductName,
		UnitPrice:   l.UnitPrice,
		Quantity:    l.Quantity,
		Subtotal:    l.Subtotal,
		Note:        l.Note,
		CreatedAt:   createdAt,
	}
}

// ProductModel is the read-only view of the product catalog
type ProductModel struct {
	ID        string          `gorm:"type:varchar(64);primaryKey"`
	Name      string          `gorm:"type:varchar(200);not null"`
	Price     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Active    bool            `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product
func (m *ProductModel) ToDomain() tab.Product {
	return tab.Product{
		ID:     m.ID,
		Name:   m.Name,
		Price:  m.Price,
		Active: m.Active,
	}
}

// RoomOccupantModel is the persistence model for a RoomOccupant
type RoomOccupantModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoomID        string    `gorm:"type:varchar(64);not null;uniqueIndex:uq_room_occupants_room_guest,priority:1"`
	GuestIdentity string    `gorm:"type:varchar(128);not null;uniqueIndex:uq_room_occupants_room_guest,priority:2"`
	DisplayName   string    `gorm:"type:varchar(200)"`
	Active        bool      `gorm:"not null"`
	SessionID     *string   `gorm:"type:varchar(32);index:idx_room_occupants_session"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RoomOccupantModel) TableName() string {
	return "room_occupants"
}

// ToDomain converts the persistence model to a domain RoomOccupant
func (m *RoomOccupantModel) ToDomain() *tab.RoomOccupant {
	return &tab.RoomOccupant{
		ID:            m.ID,
		RoomID:        m.RoomID,
		GuestIdentity: m.GuestIdentity,
		DisplayName:   m.DisplayName,
		Active:        m.Active,
		SessionID:     m.SessionID,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

// RoomOccupantModelFromDomain creates a persistence model from a domain RoomOccupant
func RoomOccupantModelFromDomain(o *tab.RoomOccupant) *RoomOccupantModel {
	return &RoomOccupantModel{
		ID:            o.ID,
		RoomID:        o.RoomID,
		GuestIdentity: o.GuestIdentity,
		DisplayName:   o.DisplayName,
		Active:        o.Active,
		SessionID:     o.SessionID,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}
