package persistence

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/roomtab/backend/internal/domain/tab"
	"github.com/roomtab/backend/internal/infrastructure/persistence/models"
)

// GormOrderRepository implements tab.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// CreateWithLines inserts the order and all of its lines in one transaction
func (r *GormOrderRepository) CreateWithLines(ctx context.Context, order *tab.Order) error {
	model := models.OrderModelFromDomain(order)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Lines").Create(model).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}
		if len(model.Lines) == 0 {
			return nil
		}
		if err := tx.Create(&model.Lines).Error; err != nil {
			return fmt.Errorf("insert order lines: %w", err)
		}
		return nil
	})
}

// SumLineSubtotals returns SUM(unit_price * quantity) over the session's lines, zero when none
func (r *GormOrderRepository) SumLineSubtotals(ctx context.Context, sessionID string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&models.OrderLineModel{}).
		Select("COALESCE(SUM(unit_price * quantity), 0)").
		Where("session_id = ?", sessionID).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

// FindBySession returns the session's orders with their lines, oldest first
func (r *GormOrderRepository) FindBySession(ctx context.Context, sessionID string) ([]tab.Order, error) {
	var rows []models.OrderModel
	err := r.db.WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	orders := make([]tab.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, nil
}

var _ tab.OrderRepository = (*GormOrderRepository)(nil)
