package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/dinein-api/internal/domain/enum"
	"gorm.io/gorm"
)

// Order is placed by a table session. ID is the numeric primary key;
// DocumentID is the stable public identifier handed to clients and to the
// payment processor.
type Order struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	DocumentID   string           `gorm:"size:36;uniqueIndex;not null" json:"document_id"`
	RestaurantID uuid.UUID        `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	TableID      uuid.UUID        `gorm:"type:uuid;not null;index" json:"table_id"`
	SessionID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"session_id"`
	Status       enum.OrderStatus `gorm:"default:0;index" json:"status"`
	Notes        string           `gorm:"type:text" json:"notes"`
	Total        int64            `gorm:"default:0" json:"-"` // Stored in cents, excluded from JSON
	PaymentID    string           `gorm:"size:64;index" json:"payment_id,omitempty"`
	PaidAt       *time.Time       `json:"paid_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

// MarshalJSON custom marshaler to convert cents to decimal for API responses
func (o Order) MarshalJSON() ([]byte, error) {
	type Alias Order
	return json.Marshal(&struct {
		Alias
		Total float64 `json:"total"`
	}{
		Alias: Alias(o),
		Total: float64(o.Total) / 100,
	})
}

// BeforeCreate assigns the document identifier before creating a new order
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.DocumentID == "" {
		o.DocumentID = uuid.New().String()
	}
	return nil
}

// TableName returns the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// OrderItem represents a line of an order
type OrderItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	UnitPrice int64     `gorm:"not null" json:"-"` // Stored in cents, excluded from JSON
	Notes     string    `gorm:"type:text" json:"notes"`
	CreatedAt time.Time `json:"created_at"`
}

// MarshalJSON custom marshaler to convert cents to decimal for API responses
func (oi OrderItem) MarshalJSON() ([]byte, error) {
	type Alias OrderItem
	return json.Marshal(&struct {
		Alias
		UnitPrice float64 `json:"unit_price"`
		Total     float64 `json:"total"`
	}{
		Alias:     Alias(oi),
		UnitPrice: float64(oi.UnitPrice) / 100,
		Total:     float64(oi.LineTotal()) / 100,
	})
}

// LineTotal returns quantity times unit price in cents
func (oi OrderItem) LineTotal() int64 {
	return oi.UnitPrice * int64(oi.Quantity)
}

// TableName returns the table name for the OrderItem model
func (OrderItem) TableName() string {
	return "order_items"
}
