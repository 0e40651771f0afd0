package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/dinein-api/internal/domain/entity"
	"github.com/sangkips/dinein-api/internal/domain/enum"
	domainRepo "github.com/sangkips/dinein-api/internal/domain/repository"
	"github.com/sangkips/dinein-api/pkg/pagination"
	"gorm.io/gorm"
)

type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *gorm.DB) domainRepo.OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts the order together with its items
func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepository) GetByID(ctx context.Context, id uint) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Scopes(RestaurantScope(ctx)).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &order, err
}

func (r *orderRepository) GetByDocumentID(ctx context.Context, documentID string) (*entity.Order, error) {
	var order entity.Order
	err := r.db.WithContext(ctx).
		Scopes(RestaurantScope(ctx)).
		Preload("Items").
		First(&order, "document_id = ?", documentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &order, err
}

func (r *orderRepository) ListBySession(ctx context.Context, sessionID uuid.UUID, params *pagination.PaginationParams) ([]entity.Order, int64, error) {
	var orders []entity.Order
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Order{}).
		Scopes(RestaurantScope(ctx)).
		Where("session_id = ?", sessionID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	params.Validate()
	err := query.Offset(params.Offset()).Limit(params.PerPage).
		Preload("Items").
		Order("created_at DESC, id DESC").
		Find(&orders).Error

	return orders, total, err
}

func (r *orderRepository) MarkPaid(ctx context.Context, id uint, paymentID string, paidAt time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&entity.Order{}).
		Where("id = ? AND status <> ?", id, enum.OrderStatusPaid).
		Updates(map[string]interface{}{
			"status":     enum.OrderStatusPaid,
			"payment_id": paymentID,
			"paid_at":    paidAt,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
