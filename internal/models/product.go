package models

import (
	"time"
)

// Product inventory is owned externally; the stock scan reads InStock
// against LowStockAt to raise system-wide alerts.
type Product struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Slug       string    `gorm:"uniqueIndex;size:255;not null" json:"slug"`
	InStock    int       `gorm:"not null;default:0" json:"in_stock"`
	LowStockAt int       `gorm:"not null;default:5" json:"low_stock_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}
