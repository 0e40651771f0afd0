package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/dinein-api/internal/domain/entity"
	"github.com/sangkips/dinein-api/internal/domain/enum"
	"github.com/sangkips/dinein-api/internal/infrastructure/payment"
	infraRepo "github.com/sangkips/dinein-api/internal/infrastructure/repository"
	"github.com/sangkips/dinein-api/pkg/apperror"
	"github.com/sangkips/dinein-api/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orderFixture struct {
	ctx         context.Context
	restaurant  *entity.Restaurant
	table       *entity.Table
	session     *entity.TableSession
	orders      *fakeOrderRepo
	tables      *fakeTableRepo
	restaurants *fakeRestaurantRepo
	gateway     *fakeGateway
	svc         *OrderService
}

func newOrderFixture(t *testing.T) *orderFixture {
	t.Helper()
	f := &orderFixture{
		restaurant: &entity.Restaurant{ID: uuid.New(), Name: "Demo", Slug: "demo", Settings: entity.RestaurantSettings{Currency: "ARS", StatementDescriptor: "DEMO"}},
		orders:     newFakeOrderRepo(),
		tables:     newFakeTableRepo(),
		gateway:    &fakeGateway{configured: true},
	}
	f.restaurants = &fakeRestaurantRepo{restaurants: map[uuid.UUID]*entity.Restaurant{f.restaurant.ID: f.restaurant}}
	f.ctx = infraRepo.WithRestaurant(context.Background(), f.restaurant.ID)

	f.table = &entity.Table{RestaurantID: f.restaurant.ID, Identifier: "T1"}
	require.NoError(t, f.tables.Create(f.ctx, f.table))
	f.session = &entity.TableSession{RestaurantID: f.restaurant.ID, TableID: f.table.ID}
	require.NoError(t, f.tables.CreateSession(f.ctx, f.session))

	f.svc = NewOrderService(f.restaurants, f.tables, f.orders, f.gateway)
	return f
}

func (f *orderFixture) input() *CreateOrderInput {
	return &CreateOrderInput{
		Table:     "T1",
		SessionID: f.session.ID.String(),
		Notes:     "window seat",
		Items: []OrderItemInput{
			{Name: "Milanesa", Quantity: 2, UnitPrice: 12.5},
			{Name: "Flan", Quantity: 1, UnitPrice: 4.1, Notes: "extra dulce"},
		},
	}
}

func TestCreateOrder(t *testing.T) {
	f := newOrderFixture(t)

	order, err := f.svc.CreateOrder(f.ctx, f.input())
	require.NoError(t, err)
	assert.Equal(t, enum.OrderStatusPending, order.Status)
	assert.Equal(t, f.session.ID, order.SessionID)
	assert.Equal(t, f.table.ID, order.TableID)
	assert.Equal(t, int64(2910), order.Total)
	require.Len(t, order.Items, 2)
	assert.Equal(t, int64(410), order.Items[1].UnitPrice)
}

func TestCreateOrderRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *orderFixture, in *CreateOrderInput)
		code   int
		msg    string
	}{
		{"missing table", func(_ *orderFixture, in *CreateOrderInput) { in.Table = "" }, http.StatusBadRequest, "table required"},
		{"missing session", func(_ *orderFixture, in *CreateOrderInput) { in.SessionID = "" }, http.StatusBadRequest, "session required"},
		{"missing items", func(_ *orderFixture, in *CreateOrderInput) { in.Items = nil }, http.StatusBadRequest, "items required"},
		{"bad quantity", func(_ *orderFixture, in *CreateOrderInput) { in.Items[0].Quantity = 0 }, http.StatusUnprocessableEntity, "Validation failed"},
		{"malformed session", func(_ *orderFixture, in *CreateOrderInput) { in.SessionID = "nope" }, http.StatusBadRequest, "session must be a valid id"},
		{"unknown table", func(_ *orderFixture, in *CreateOrderInput) { in.Table = "T9" }, http.StatusNotFound, "Table not found"},
		{"unknown session", func(_ *orderFixture, in *CreateOrderInput) { in.SessionID = uuid.NewString() }, http.StatusNotFound, "Session not found"},
		{"closed session", func(f *orderFixture, _ *CreateOrderInput) {
			now := time.Now()
			f.session.ClosedAt = &now
		}, http.StatusConflict, "Table session is closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newOrderFixture(t)
			in := f.input()
			tt.mutate(f, in)

			_, err := f.svc.CreateOrder(f.ctx, in)
			require.Error(t, err)
			appErr := apperror.GetAppError(err)
			assert.Equal(t, tt.code, appErr.Code)
			assert.Equal(t, tt.msg, appErr.Message)
			assert.Empty(t, f.orders.orders)
		})
	}
}

func TestCreateOrderRequiresRestaurant(t *testing.T) {
	f := newOrderFixture(t)
	_, err := f.svc.CreateOrder(context.Background(), f.input())
	assert.Equal(t, http.StatusBadRequest, apperror.GetAppError(err).Code)
}

func TestGetOrderByEitherReference(t *testing.T) {
	f := newOrderFixture(t)
	created, err := f.svc.CreateOrder(f.ctx, f.input())
	require.NoError(t, err)

	byID, err := f.svc.GetOrder(f.ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byID.ID)

	byDoc, err := f.svc.GetOrder(f.ctx, created.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, byDoc.ID)

	_, err = f.svc.GetOrder(f.ctx, "404")
	assert.Equal(t, http.StatusNotFound, apperror.GetAppError(err).Code)
}

func TestListSessionOrders(t *testing.T) {
	f := newOrderFixture(t)
	_, err := f.svc.CreateOrder(f.ctx, f.input())
	require.NoError(t, err)

	result, err := f.svc.ListSessionOrders(f.ctx, f.session.ID, &pagination.PaginationParams{})
	require.NoError(t, err)
	assert.Len(t, result.Items, 1)
	assert.Equal(t, int64(1), result.Pagination.Total)

	_, err = f.svc.ListSessionOrders(f.ctx, uuid.New(), &pagination.PaginationParams{})
	assert.Equal(t, http.StatusNotFound, apperror.GetAppError(err).Code)
}

func TestCheckout(t *testing.T) {
	f := newOrderFixture(t)
	order, err := f.svc.CreateOrder(f.ctx, f.input())
	require.NoError(t, err)

	var sent payment.PreferenceRequest
	f.gateway.createPreferenceFn = func(_ context.Context, req payment.PreferenceRequest) (*payment.Preference, error) {
		sent = req
		return &payment.Preference{ID: "pref-1", InitPoint: "https://pay.example/pref-1"}, nil
	}

	res, err := f.svc.Checkout(f.ctx, order.DocumentID)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/pref-1", res.CheckoutURL)
	assert.Equal(t, "1", sent.ExternalReference)
	assert.Equal(t, "DEMO", sent.StatementDescriptor)
	require.Len(t, sent.Items, 2)
	assert.Equal(t, 12.5, sent.Items[0].UnitPrice)
	assert.Equal(t, "ARS", sent.Items[0].CurrencyID)
}

func TestCheckoutRejections(t *testing.T) {
	t.Run("paid order", func(t *testing.T) {
		f := newOrderFixture(t)
		order, err := f.svc.CreateOrder(f.ctx, f.input())
		require.NoError(t, err)
		order.Status = enum.OrderStatusPaid

		_, err = f.svc.Checkout(f.ctx, "1")
		assert.ErrorIs(t, err, apperror.ErrOrderNotPayable)
	})

	t.Run("payments not configured", func(t *testing.T) {
		f := newOrderFixture(t)
		_, err := f.svc.CreateOrder(f.ctx, f.input())
		require.NoError(t, err)
		f.gateway.configured = false

		_, err = f.svc.Checkout(f.ctx, "1")
		assert.Equal(t, http.StatusServiceUnavailable, apperror.GetAppError(err).Code)
	})

	t.Run("processor failure", func(t *testing.T) {
		f := newOrderFixture(t)
		_, err := f.svc.CreateOrder(f.ctx, f.input())
		require.NoError(t, err)
		f.gateway.createPreferenceFn = func(context.Context, payment.PreferenceRequest) (*payment.Preference, error) {
			return nil, errors.New("boom")
		}

		_, err = f.svc.Checkout(f.ctx, "1")
		assert.Equal(t, http.StatusBadGateway, apperror.GetAppError(err).Code)
	})
}
