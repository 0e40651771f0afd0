package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ctxKey string

const (
	// RestaurantIDKey is the context key for the restaurant (tenant) ID
	RestaurantIDKey ctxKey = "restaurant_id"
	// SkipRestaurantScopeKey is the context key for skipping the restaurant scope
	SkipRestaurantScopeKey ctxKey = "skip_restaurant_scope"
)

// RestaurantScope returns a GORM scope that filters by restaurant.
// Processes with no tenant of their own (payment webhooks) opt out with
// WithSkipRestaurantScope.
func RestaurantScope(ctx context.Context) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if skipScope, ok := ctx.Value(SkipRestaurantScopeKey).(bool); ok && skipScope {
			return db
		}

		restaurantID, ok := ctx.Value(RestaurantIDKey).(uuid.UUID)
		if !ok {
			// Fail-safe: return no results if tenant context missing
			return db.Where("1 = 0")
		}
		return db.Where("restaurant_id = ?", restaurantID)
	}
}

// WithSkipRestaurantScope adds the skip-scope flag to context
func WithSkipRestaurantScope(ctx context.Context, skip bool) context.Context {
	return context.WithValue(ctx, SkipRestaurantScopeKey, skip)
}

// WithRestaurant adds the restaurant ID to context
func WithRestaurant(ctx context.Context, restaurantID uuid.UUID) context.Context {
	return context.WithValue(ctx, RestaurantIDKey, restaurantID)
}

// GetRestaurantID extracts the restaurant ID from context
func GetRestaurantID(ctx context.Context) (uuid.UUID, bool) {
	restaurantID, ok := ctx.Value(RestaurantIDKey).(uuid.UUID)
	return restaurantID, ok
}
