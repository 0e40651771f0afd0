package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/dinein-api/internal/domain/entity"
	domainRepo "github.com/sangkips/dinein-api/internal/domain/repository"
	"gorm.io/gorm"
)

type restaurantRepository struct {
	db *gorm.DB
}

// NewRestaurantRepository creates a new restaurant repository
func NewRestaurantRepository(db *gorm.DB) domainRepo.RestaurantRepository {
	return &restaurantRepository{db: db}
}

func (r *restaurantRepository) Create(ctx context.Context, restaurant *entity.Restaurant) error {
	return r.db.WithContext(ctx).Create(restaurant).Error
}

func (r *restaurantRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Restaurant, error) {
	var restaurant entity.Restaurant
	err := r.db.WithContext(ctx).First(&restaurant, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &restaurant, err
}

func (r *restaurantRepository) GetBySlug(ctx context.Context, slug string) (*entity.Restaurant, error) {
	var restaurant entity.Restaurant
	err := r.db.WithContext(ctx).First(&restaurant, "slug = ?", slug).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &restaurant, err
}

type tableRepository struct {
	db *gorm.DB
}

// NewTableRepository creates a new table repository
func NewTableRepository(db *gorm.DB) domainRepo.TableRepository {
	return &tableRepository{db: db}
}

func (r *tableRepository) Create(ctx context.Context, table *entity.Table) error {
	return r.db.WithContext(ctx).Create(table).Error
}

func (r *tableRepository) GetByIdentifier(ctx context.Context, restaurantID uuid.UUID, identifier string) (*entity.Table, error) {
	var table entity.Table
	err := r.db.WithContext(ctx).
		First(&table, "restaurant_id = ? AND identifier = ?", restaurantID, identifier).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &table, err
}

func (r *tableRepository) CreateSession(ctx context.Context, session *entity.TableSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *tableRepository) GetSession(ctx context.Context, id uuid.UUID) (*entity.TableSession, error) {
	var session entity.TableSession
	err := r.db.WithContext(ctx).
		Scopes(RestaurantScope(ctx)).
		First(&session, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &session, err
}

func (r *tableRepository) CloseSession(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&entity.TableSession{}).
		Scopes(RestaurantScope(ctx)).
		Where("id = ? AND closed_at IS NULL", id).
		Update("closed_at", time.Now()).Error
}
