package repository

import (
	"context"

	"shoply/internal/models"

	"gorm.io/gorm"
)

type ProductRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// ListLowStock returns products at or below their low-stock threshold but
// not yet sold out.
func (r *ProductRepository) ListLowStock(ctx context.Context) ([]models.Product, error) {
	var list []models.Product
	err := r.db.WithContext(ctx).
		Where("in_stock > 0 AND in_stock <= low_stock_at").
		Find(&list).Error
	return list, err
}

func (r *ProductRepository) ListOutOfStock(ctx context.Context) ([]models.Product, error) {
	var list []models.Product
	err := r.db.WithContext(ctx).
		Where("in_stock <= 0").
		Find(&list).Error
	return list, err
}

func (r *ProductRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var p models.Product
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}
