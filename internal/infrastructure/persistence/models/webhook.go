package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/roomtab/backend/internal/domain/tab"
)

// WebhookEventModel is the send-audit row for one attempted notification
type WebhookEventModel struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey"`
	SessionID   string        `gorm:"type:varchar(32);not null;index:idx_webhook_events_session"`
	EventType   tab.EventType `gorm:"type:varchar(32);not null"`
	ProcessedAt time.Time     `gorm:"not null"`
	CreatedAt   time.Time     `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WebhookEventModel) TableName() string {
	return "webhook_events"
}

// ToDomain converts the persistence model to a domain WebhookEvent
func (m *WebhookEventModel) ToDomain() *tab.WebhookEvent {
	return &tab.WebhookEvent{
		ID:          m.ID,
		SessionID:   m.SessionID,
		EventType:   m.EventType,
		ProcessedAt: m.ProcessedAt.UTC(),
		CreatedAt:   m.CreatedAt,
	}
}

// WebhookEventModelFromDomain creates a persistence model from a domain WebhookEvent
func WebhookEventModelFromDomain(e *tab.WebhookEvent) *WebhookEventModel {
	return &WebhookEventModel{
		ID:          e.ID,
		SessionID:   e.SessionID,
		EventType:   e.EventType,
		ProcessedAt: e.ProcessedAt,
		CreatedAt:   e.CreatedAt,
	}
}

// WebhookDeliveryModel records one destination attempt of a webhook event
type WebhookDeliveryModel struct {
	ID          uuid.UUID           `gorm:"type:uuid;primaryKey"`
	EventID     uuid.UUID           `gorm:"type:uuid;not null;index:idx_webhook_deliveries_event"`
	Destination string              `gorm:"type:varchar(100);not null"`
	Outcome     tab.DeliveryOutcome `gorm:"type:varchar(20);not null"`
	StatusCode  int
	Error       string    `gorm:"type:text"`
	DurationMs  int64     `gorm:"not null"`
	AttemptedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (WebhookDeliveryModel) TableName() string {
	return "webhook_deliveries"
}

// ToDomain converts the persistence model to a domain WebhookDelivery
func (m *WebhookDeliveryModel) ToDomain() *tab.WebhookDelivery {
	return &tab.WebhookDelivery{
		ID:          m.ID,
		EventID:     m.EventID,
		Destination: m.Destination,
		Outcome:     m.Outcome,
		StatusCode:  m.StatusCode,
		Error:       m.Error,
		Duration:    time.Duration(m.DurationMs) * time.Millisecond,
		AttemptedAt: m.AttemptedAt,
	}
}

// WebhookDeliveryModelFromDomain creates a persistence model from a domain WebhookDelivery
func WebhookDeliveryModelFromDomain(d *tab.WebhookDelivery) *WebhookDeliveryModel {
	return &WebhookDeliveryModel{
		ID:          d.ID,
		EventID:     d.EventID,
		Destination: d.Destination,
		Outcome:     d.Outcome,
		StatusCode:  d.StatusCode,
		Error:       d.Error,
		DurationMs:  d.Duration.Milliseconds(),
		AttemptedAt: d.AttemptedAt,
	}
}

// AllModels lists every model managed by this service, in dependency order
func AllModels() []any {
	return []any{
		&ProductModel{},
		&OrderSessionModel{},
		&OrderModel{},
		&OrderLineModel{},
		&RoomOccupantModel{},
		&WebhookEventModel{},
		&WebhookDeliveryModel{},
	}
}
