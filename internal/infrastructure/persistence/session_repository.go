package persistence

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/roomtab/backend/internal/domain/shared"
	"github.com/roomtab/backend/internal/domain/tab"
	"github.com/roomtab/backend/internal/infrastructure/persistence/models"
)

// GormSessionRepository implements tab.SessionRepository using GORM
type GormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a new GormSessionRepository
func NewGormSessionRepository(db *gorm.DB) *GormSessionRepository {
	return &GormSessionRepository{db: db}
}

// FindActiveByRoom returns the room's active session
func (r *GormSessionRepository) FindActiveByRoom(ctx context.Context, roomID string) (*tab.OrderSession, error) {
	var model models.OrderSessionModel
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND active = ?", roomID, true).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByID returns a session by id
func (r *GormSessionRepository) FindByID(ctx context.Context, id string) (*tab.OrderSession, error) {
	var model models.OrderSessionModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// ListActive returns all active sessions, oldest first
func (r *GormSessionRepository) ListActive(ctx context.Context) ([]tab.OrderSession, error) {
	var rows []models.OrderSessionModel
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("opened_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	sessions := make([]tab.OrderSession, len(rows))
	for i := range rows {
		sessions[i] = *rows[i].ToDomain()
	}
	return sessions, nil
}

// Create inserts a new session. A concurrent active session for the same
// room violates uq_order_sessions_active_room and yields ErrAlreadyExists.
func (r *GormSessionRepository) Create(ctx context.Context, session *tab.OrderSession) error {
	model := models.OrderSessionModelFromDomain(session)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	return nil
}

// UpdateMirror stores the POS shadow item identifiers on the session
func (r *GormSessionRepository) UpdateMirror(ctx context.Context, sessionID, itemID, variationID string) error {
	result := r.db.WithContext(ctx).
		Model(&models.OrderSessionModel{}).
		Where("id = ?", sessionID).
		Updates(map[string]any{
			"mirror_item_id":      itemID,
			"mirror_variation_id": variationID,
			"updated_at":          time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// BindOccupants attaches the room's active occupants that have no session yet
func (r *GormSessionRepository) BindOccupants(ctx context.Context, roomID, sessionID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.RoomOccupantModel{}).
		Where("room_id = ? AND active = ? AND session_id IS NULL", roomID, true).
		Updates(map[string]any{
			"session_id": sessionID,
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// Close persists the closed session, deactivates the room's occupants and
// completes the room's open orders in a single transaction.
func (r *GormSessionRepository) Close(ctx context.Context, session *tab.OrderSession) (int64, error) {
	var completed int64
	now := time.Now()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.OrderSessionModel{}).
			Where("id = ? AND active = ?", session.ID, true).
			Updates(map[string]any{
				"active":     false,
				"status":     session.Status,
				"closed_at":  session.ClosedAt,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrInvalidState
		}

		if err := tx.Model(&models.RoomOccupantModel{}).
			Where("active = ? AND (room_id = ? OR session_id = ?)", true, session.RoomID, session.ID).
			Updates(map[string]any{
				"active":     false,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}

		result = tx.Model(&models.OrderModel{}).
			Where("status = ? AND (session_id = ? OR room_id = ?)", tab.OrderStatusOpen, session.ID, session.RoomID).
			Updates(map[string]any{
				"status":     tab.OrderStatusCompleted,
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		completed = result.RowsAffected
		return nil
	})
	if err != nil {
		return 0, err
	}
	return completed, nil
}

var _ tab.SessionRepository = (*GormSessionRepository)(nil)
