package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Table is a physical table of a restaurant, addressed by a short identifier
// printed on its QR code (e.g. "T12").
type Table struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	RestaurantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_restaurant_table" json:"restaurant_id"`
	Identifier   string    `gorm:"size:64;not null;uniqueIndex:idx_restaurant_table" json:"identifier"`
	Seats        int       `gorm:"default:0" json:"seats"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	Restaurant Restaurant `gorm:"foreignKey:RestaurantID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new table
func (t *Table) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Table model
func (Table) TableName() string {
	return "tables"
}

// TableSession groups the orders placed at a table between opening and closing.
type TableSession struct {
	ID           uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	RestaurantID uuid.UUID  `gorm:"type:uuid;not null;index" json:"restaurant_id"`
	TableID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"table_id"`
	OpenedAt     time.Time  `gorm:"not null" json:"opened_at"`
	ClosedAt     *time.Time `json:"closed_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Table Table `gorm:"foreignKey:TableID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new session
func (s *TableSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.OpenedAt.IsZero() {
		s.OpenedAt = time.Now()
	}
	return nil
}

// TableName returns the table name for the TableSession model
func (TableSession) TableName() string {
	return "table_sessions"
}

// IsActive reports whether orders can still be placed in the session
func (s *TableSession) IsActive() bool {
	return s.ClosedAt == nil
}
