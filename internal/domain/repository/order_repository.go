package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/dinein-api/internal/domain/entity"
	"github.com/sangkips/dinein-api/pkg/pagination"
)

// OrderRepository defines the interface for order data operations
type OrderRepository interface {
	Create(ctx context.Context, order *entity.Order) error
	// GetByID returns nil, nil when no order has the numeric id
	GetByID(ctx context.Context, id uint) (*entity.Order, error)
	// GetByDocumentID returns nil, nil when no order has the document id
	GetByDocumentID(ctx context.Context, documentID string) (*entity.Order, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID, params *pagination.PaginationParams) ([]entity.Order, int64, error)
	// MarkPaid sets the order paid in a single conditional write. It reports
	// false when the order was already paid or does not exist.
	MarkPaid(ctx context.Context, id uint, paymentID string, paidAt time.Time) (bool, error)
}
