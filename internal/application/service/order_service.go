package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sangkips/dinein-api/internal/domain/entity"
	"github.com/sangkips/dinein-api/internal/domain/enum"
	"github.com/sangkips/dinein-api/internal/domain/repository"
	"github.com/sangkips/dinein-api/internal/infrastructure/payment"
	infraRepo "github.com/sangkips/dinein-api/internal/infrastructure/repository"
	"github.com/sangkips/dinein-api/pkg/apperror"
	"github.com/sangkips/dinein-api/pkg/pagination"
)

// PaymentGateway is the subset of the payment processor client used by services
type PaymentGateway interface {
	IsConfigured() bool
	GetPayment(ctx context.Context, id string) (*payment.Payment, error)
	CreatePreference(ctx context.Context, req payment.PreferenceRequest) (*payment.Preference, error)
}

// OrderService handles order-related operations
type OrderService struct {
	restaurantRepo repository.RestaurantRepository
	tableRepo      repository.TableRepository
	orderRepo      repository.OrderRepository
	gateway        PaymentGateway
}

// NewOrderService creates a new order service
func NewOrderService(
	restaurantRepo repository.RestaurantRepository,
	tableRepo repository.TableRepository,
	orderRepo repository.OrderRepository,
	gateway PaymentGateway,
) *OrderService {
	return &OrderService{
		restaurantRepo: restaurantRepo,
		tableRepo:      tableRepo,
		orderRepo:      orderRepo,
		gateway:        gateway,
	}
}

// OrderItemInput represents an item in an order
type OrderItemInput struct {
	Name      string
	Quantity  int
	UnitPrice float64
	Notes     string
}

// CreateOrderInput represents the create order input
type CreateOrderInput struct {
	Table     string
	SessionID string
	Notes     string
	Items     []OrderItemInput
}

// CheckoutResult is a created checkout for an order
type CheckoutResult struct {
	OrderID      uint   `json:"order_id"`
	DocumentID   string `json:"document_id"`
	PreferenceID string `json:"preference_id"`
	CheckoutURL  string `json:"checkout_url"`
}

// CreateOrder places an order in an active session of one of the
// restaurant's tables
func (s *OrderService) CreateOrder(ctx context.Context, input *CreateOrderInput) (*entity.Order, error) {
	restaurantID, ok := infraRepo.GetRestaurantID(ctx)
	if !ok {
		return nil, apperror.NewBadRequestError("Restaurant context required")
	}

	if err := validateOrderInput(input); err != nil {
		return nil, err
	}
	sessionID, err := uuid.Parse(input.SessionID)
	if err != nil {
		return nil, apperror.NewBadRequestError("session must be a valid id")
	}

	table, err := s.tableRepo.GetByIdentifier(ctx, restaurantID, input.Table)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, apperror.NewNotFoundError("Table")
	}

	session, err := s.tableRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil || session.TableID != table.ID {
		return nil, apperror.NewNotFoundError("Session")
	}
	if !session.IsActive() {
		return nil, apperror.ErrSessionClosed
	}

	var total int64
	items := make([]entity.OrderItem, 0, len(input.Items))
	for _, in := range input.Items {
		item := entity.OrderItem{
			Name:      strings.TrimSpace(in.Name),
			Quantity:  in.Quantity,
			UnitPrice: toCents(in.UnitPrice),
			Notes:     in.Notes,
		}
		total += item.LineTotal()
		items = append(items, item)
	}

	order := &entity.Order{
		RestaurantID: restaurantID,
		TableID:      table.ID,
		SessionID:    session.ID,
		Status:       enum.OrderStatusPending,
		Notes:        input.Notes,
		Total:        total,
		Items:        items,
	}

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	log.Info().
		Uint("order_id", order.ID).
		Str("document_id", order.DocumentID).
		Str("table", table.Identifier).
		Int64("total", total).
		Msg("order created")

	return s.orderRepo.GetByID(ctx, order.ID)
}

// GetOrder retrieves an order by numeric ID or document ID
func (s *OrderService) GetOrder(ctx context.Context, raw string) (*entity.Order, error) {
	ref, ok := entity.ParseOrderRef(raw)
	if !ok {
		return nil, apperror.NewRequiredFieldError("ref")
	}
	order, err := resolveOrder(ctx, s.orderRepo, ref)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}
	return order, nil
}

// ListSessionOrders lists the orders of a table session, newest first
func (s *OrderService) ListSessionOrders(ctx context.Context, sessionID uuid.UUID, params *pagination.PaginationParams) (*pagination.PaginatedResult[entity.Order], error) {
	session, err := s.tableRepo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.NewNotFoundError("Session")
	}

	params.Validate()
	orders, total, err := s.orderRepo.ListBySession(ctx, sessionID, params)
	if err != nil {
		return nil, err
	}

	pag := pagination.NewPagination(params.Page, params.PerPage, total)
	return pagination.NewPaginatedResult(orders, pag), nil
}

// Checkout creates a processor checkout for a pending order. The order ID is
// sent as the external reference so payment notifications can find it.
func (s *OrderService) Checkout(ctx context.Context, raw string) (*CheckoutResult, error) {
	order, err := s.GetOrder(ctx, raw)
	if err != nil {
		return nil, err
	}
	if order.Status != enum.OrderStatusPending {
		return nil, apperror.ErrOrderNotPayable
	}
	if !s.gateway.IsConfigured() {
		return nil, apperror.NewAppError(http.StatusServiceUnavailable, "Payments are not configured")
	}

	restaurant, err := s.restaurantRepo.GetByID(ctx, order.RestaurantID)
	if err != nil {
		return nil, err
	}
	settings := entity.DefaultRestaurantSettings()
	if restaurant != nil && restaurant.Settings.Currency != "" {
		settings = restaurant.Settings
	}

	req := payment.PreferenceRequest{
		ExternalReference:   strconv.FormatUint(uint64(order.ID), 10),
		StatementDescriptor: settings.StatementDescriptor,
		Items:               make([]payment.PreferenceItem, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		req.Items = append(req.Items, payment.PreferenceItem{
			Title:      item.Name,
			Quantity:   item.Quantity,
			UnitPrice:  float64(item.UnitPrice) / 100,
			CurrencyID: settings.Currency,
		})
	}

	pref, err := s.gateway.CreatePreference(ctx, req)
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			return nil, apperror.NewAppError(http.StatusServiceUnavailable, "Payments are not configured")
		}
		log.Error().Err(err).Uint("order_id", order.ID).Msg("failed to create checkout preference")
		return nil, apperror.NewAppError(http.StatusBadGateway, "Payment processor unavailable")
	}

	return &CheckoutResult{
		OrderID:      order.ID,
		DocumentID:   order.DocumentID,
		PreferenceID: pref.ID,
		CheckoutURL:  pref.InitPoint,
	}, nil
}

// resolveOrder looks a reference up by numeric ID first and falls back to
// the document ID when that finds nothing
func resolveOrder(ctx context.Context, orders repository.OrderRepository, ref entity.OrderRef) (*entity.Order, error) {
	if ref.Kind == entity.OrderRefNumeric {
		order, err := orders.GetByID(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		if order != nil {
			return order, nil
		}
	}
	return orders.GetByDocumentID(ctx, ref.Reference)
}

func validateOrderInput(input *CreateOrderInput) error {
	if strings.TrimSpace(input.Table) == "" {
		return apperror.NewRequiredFieldError("table")
	}
	if strings.TrimSpace(input.SessionID) == "" {
		return apperror.NewRequiredFieldError("session")
	}
	if len(input.Items) == 0 {
		return apperror.NewRequiredFieldError("items")
	}

	var fieldErrors []apperror.FieldError
	for i, item := range input.Items {
		if strings.TrimSpace(item.Name) == "" {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: fmt.Sprintf("items[%d].name", i), Message: "is required"})
		}
		if item.Quantity < 1 {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "must be at least 1"})
		}
		if item.UnitPrice < 0 || math.IsNaN(item.UnitPrice) || math.IsInf(item.UnitPrice, 0) {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: fmt.Sprintf("items[%d].unit_price", i), Message: "must not be negative"})
		}
	}
	if len(fieldErrors) > 0 {
		return apperror.NewValidationError(fieldErrors)
	}
	return nil
}

func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
