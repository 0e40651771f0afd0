package entity

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Restaurant is the tenant of the system. Storefront routes address it by slug.
type Restaurant struct {
	ID        uuid.UUID          `gorm:"type:uuid;primary_key" json:"id"`
	Name      string             `gorm:"size:255;not null" json:"name"`
	Slug      string             `gorm:"size:255;unique;not null" json:"slug"`
	Settings  RestaurantSettings `gorm:"type:jsonb;serializer:json" json:"settings"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
	DeletedAt gorm.DeletedAt     `gorm:"index" json:"-"`

	Tables []Table `gorm:"foreignKey:RestaurantID" json:"-"`
}

// BeforeCreate generates a UUID before creating a new restaurant
func (r *Restaurant) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// TableName returns the table name for the Restaurant model
func (Restaurant) TableName() string {
	return "restaurants"
}

// RestaurantSettings holds per-restaurant checkout configuration
type RestaurantSettings struct {
	Currency            string `json:"currency,omitempty"`
	Timezone            string `json:"timezone,omitempty"`
	StatementDescriptor string `json:"statement_descriptor,omitempty"`
}

// Scan implements the sql.Scanner interface for RestaurantSettings
func (rs *RestaurantSettings) Scan(value interface{}) error {
	if value == nil {
		*rs = RestaurantSettings{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan RestaurantSettings: unsupported type")
	}

	return json.Unmarshal(bytes, rs)
}

// Value implements the driver.Valuer interface for RestaurantSettings
func (rs RestaurantSettings) Value() (driver.Value, error) {
	return json.Marshal(rs)
}

// DefaultRestaurantSettings returns default settings for new restaurants
func DefaultRestaurantSettings() RestaurantSettings {
	return RestaurantSettings{
		Currency: "ARS",
		Timezone: "America/Argentina/Buenos_Aires",
	}
}
