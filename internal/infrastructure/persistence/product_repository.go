package persistence

import (
	"context"

	"gorm.io/gorm"

	"github.com/roomtab/backend/internal/domain/tab"
	"github.com/roomtab/backend/internal/infrastructure/persistence/models"
)

// GormProductRepository implements tab.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByIDs returns the products found, keyed by id. Missing ids are absent from the map.
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []string) (map[string]tab.Product, error) {
	products := make(map[string]tab.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		products[rows[i].ID] = rows[i].ToDomain()
	}
	return products, nil
}

var _ tab.ProductRepository = (*GormProductRepository)(nil)
