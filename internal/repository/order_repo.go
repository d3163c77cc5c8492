package repository

import (
	"context"
	"errors"

	"shoply/internal/models"

	"gorm.io/gorm"
)

var ErrOrderNotFound = errors.New("order not found")

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// GetByID loads an order with purchaser and line items; missing relations
// stay nil, payload builders tolerate that.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var o models.Order
	err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Items").
		Preload("Items.Product").
		First(&o, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateStatus writes the validated status change plus shipping columns.
func (r *OrderRepository) UpdateStatus(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Model(o).
		Select("status", "tracking_number", "carrier").
		Updates(map[string]any{
			"status":          o.Status,
			"tracking_number": o.TrackingNumber,
			"carrier":         o.Carrier,
		}).Error
}
