package models

import (
	"strings"
	"time"

	"shoply/internal/domain"
)

// Order is owned by the order-placement collaborator. This subsystem reads
// it to build notification payloads and writes only the status/shipping
// columns, after validating the transition.
type Order struct {
	ID             string             `gorm:"primaryKey;size:36" json:"id"`
	UserID         uint               `gorm:"not null;index" json:"user_id"`
	Status         domain.OrderStatus `gorm:"size:20;not null;index" json:"status"`
	TrackingNumber string             `gorm:"size:64" json:"tracking_number,omitempty"`
	Carrier        string             `gorm:"size:64" json:"carrier,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`

	User  *User       `gorm:"foreignKey:UserID" json:"-"`
	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// ShortID is the 8-char uppercase prefix shown to customers.
func (o *Order) ShortID() string {
	id := o.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

type OrderItem struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	OrderID   string `gorm:"size:36;not null;index" json:"order_id"`
	ProductID uint   `gorm:"not null;index" json:"product_id"`
	Quantity  int    `gorm:"not null;default:1" json:"quantity"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
