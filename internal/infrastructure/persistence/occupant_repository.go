package persistence

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/roomtab/backend/internal/domain/tab"
	"github.com/roomtab/backend/internal/infrastructure/persistence/models"
)

// GormOccupantRepository implements tab.OccupantRepository using GORM
type GormOccupantRepository struct {
	db *gorm.DB
}

// NewGormOccupantRepository creates a new GormOccupantRepository
func NewGormOccupantRepository(db *gorm.DB) *GormOccupantRepository {
	return &GormOccupantRepository{db: db}
}

// Upsert inserts the occupant, or reactivates the existing row for the same
// room and guest identity.
func (r *GormOccupantRepository) Upsert(ctx context.Context, occupant *tab.RoomOccupant) error {
	model := models.RoomOccupantModelFromDomain(occupant)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "room_id"}, {Name: "guest_identity"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "active", "session_id", "updated_at"}),
		}).
		Create(model).Error
}

// FindActiveByRoom lists the active occupants of a room
func (r *GormOccupantRepository) FindActiveByRoom(ctx context.Context, roomID string) ([]tab.RoomOccupant, error) {
	var rows []models.RoomOccupantModel
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND active = ?", roomID, true).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	occupants := make([]tab.RoomOccupant, len(rows))
	for i := range rows {
		occupants[i] = *rows[i].ToDomain()
	}
	return occupants, nil
}

var _ tab.OccupantRepository = (*GormOccupantRepository)(nil)
