package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/roomtab/backend/internal/domain/shared"
	"github.com/roomtab/backend/internal/domain/tab"
	"github.com/roomtab/backend/internal/infrastructure/persistence/models"
)

// GormWebhookEventRepository implements tab.WebhookEventRepository using GORM
type GormWebhookEventRepository struct {
	db *gorm.DB
}

// NewGormWebhookEventRepository creates a new GormWebhookEventRepository
func NewGormWebhookEventRepository(db *gorm.DB) *GormWebhookEventRepository {
	return &GormWebhookEventRepository{db: db}
}

// Create inserts an audit row
func (r *GormWebhookEventRepository) Create(ctx context.Context, event *tab.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(models.WebhookEventModelFromDomain(event)).Error
}

// MarkProcessed stamps the event once its dispatch loop has completed
func (r *GormWebhookEventRepository) MarkProcessed(ctx context.Context, eventID uuid.UUID, at time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&models.WebhookEventModel{}).
		Where("id = ?", eventID).
		Update("processed_at", at)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SaveDeliveries inserts the per-destination outcomes of an event
func (r *GormWebhookEventRepository) SaveDeliveries(ctx context.Context, deliveries []tab.WebhookDelivery) error {
	if len(deliveries) == 0 {
		return nil
	}
	rows := make([]*models.WebhookDeliveryModel, len(deliveries))
	for i := range deliveries {
		rows[i] = models.WebhookDeliveryModelFromDomain(&deliveries[i])
	}
	return r.db.WithContext(ctx).CreateInBatches(rows, 100).Error
}

// FindBySession lists a session's audit rows, oldest first
func (r *GormWebhookEventRepository) FindBySession(ctx context.Context, sessionID string) ([]tab.WebhookEvent, error) {
	var rows []models.WebhookEventModel
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	events := make([]tab.WebhookEvent, len(rows))
	for i := range rows {
		events[i] = *rows[i].ToDomain()
	}
	return events, nil
}

// FindDeliveries lists the destination outcomes of one event
func (r *GormWebhookEventRepository) FindDeliveries(ctx context.Context, eventID uuid.UUID) ([]tab.WebhookDelivery, error) {
	var rows []models.WebhookDeliveryModel
	err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("destination ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	deliveries := make([]tab.WebhookDelivery, len(rows))
	for i := range rows {
		deliveries[i] = *rows[i].ToDomain()
	}
	return deliveries, nil
}

var _ tab.WebhookEventRepository = (*GormWebhookEventRepository)(nil)

