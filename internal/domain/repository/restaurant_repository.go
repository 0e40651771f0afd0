package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/dinein-api/internal/domain/entity"
)

// RestaurantRepository defines the interface for restaurant data operations
type RestaurantRepository interface {
	Create(ctx context.Context, restaurant *entity.Restaurant) error
	GetByID(ctx context.Context, id uuid.UUID) (*entity.Restaurant, error)
	// GetBySlug retrieves a restaurant by its storefront slug
	GetBySlug(ctx context.Context, slug string) (*entity.Restaurant, error)
}

// TableRepository defines the interface for table and table session operations
type TableRepository interface {
	Create(ctx context.Context, table *entity.Table) error
	GetByIdentifier(ctx context.Context, restaurantID uuid.UUID, identifier string) (*entity.Table, error)
	CreateSession(ctx context.Context, session *entity.TableSession) error
	GetSession(ctx context.Context, id uuid.UUID) (*entity.TableSession, error)
	CloseSession(ctx context.Context, id uuid.UUID) error
}
