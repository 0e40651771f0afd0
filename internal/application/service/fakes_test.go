package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/dinein-api/internal/domain/entity"
	"github.com/sangkips/dinein-api/internal/domain/enum"
	"github.com/sangkips/dinein-api/internal/infrastructure/payment"
	"github.com/sangkips/dinein-api/pkg/pagination"
)

type fakeOrderRepo struct {
	orders    map[uint]*entity.Order
	nextID    uint
	markCalls int

	createFn func(ctx context.Context, order *entity.Order) error
}

func newFakeOrderRepo(orders ...*entity.Order) *fakeOrderRepo {
	r := &fakeOrderRepo{orders: map[uint]*entity.Order{}, nextID: 1}
	for _, o := range orders {
		r.orders[o.ID] = o
		if o.ID >= r.nextID {
			r.nextID = o.ID + 1
		}
	}
	return r
}

func (r *fakeOrderRepo) Create(ctx context.Context, order *entity.Order) error {
	if r.createFn != nil {
		return r.createFn(ctx, order)
	}
	order.ID = r.nextID
	order.DocumentID = uuid.NewString()
	r.nextID++
	r.orders[order.ID] = order
	return nil
}

func (r *fakeOrderRepo) GetByID(_ context.Context, id uint) (*entity.Order, error) {
	return r.orders[id], nil
}

func (r *fakeOrderRepo) GetByDocumentID(_ context.Context, documentID string) (*entity.Order, error) {
	for _, o := range r.orders {
		if o.DocumentID == documentID {
			return o, nil
		}
	}
	return nil, nil
}

func (r *fakeOrderRepo) ListBySession(_ context.Context, sessionID uuid.UUID, _ *pagination.PaginationParams) ([]entity.Order, int64, error) {
	var out []entity.Order
	for _, o := range r.orders {
		if o.SessionID == sessionID {
			out = append(out, *o)
		}
	}
	return out, int64(len(out)), nil
}

func (r *fakeOrderRepo) MarkPaid(_ context.Context, id uint, paymentID string, paidAt time.Time) (bool, error) {
	r.markCalls++
	o, ok := r.orders[id]
	if !ok || o.Status == enum.OrderStatusPaid {
		return false, nil
	}
	o.Status = enum.OrderStatusPaid
	o.PaymentID = paymentID
	o.PaidAt = &paidAt
	return true, nil
}

type fakeTableRepo struct {
	tables   []*entity.Table
	sessions map[uuid.UUID]*entity.TableSession
}

func newFakeTableRepo() *fakeTableRepo {
	return &fakeTableRepo{sessions: map[uuid.UUID]*entity.TableSession{}}
}

func (r *fakeTableRepo) Create(_ context.Context, table *entity.Table) error {
	if table.ID == uuid.Nil {
		table.ID = uuid.New()
	}
	r.tables = append(r.tables, table)
	return nil
}

func (r *fakeTableRepo) GetByIdentifier(_ context.Context, restaurantID uuid.UUID, identifier string) (*entity.Table, error) {
	for _, t := range r.tables {
		if t.RestaurantID == restaurantID && t.Identifier == identifier {
			return t, nil
		}
	}
	return nil, nil
}

func (r *fakeTableRepo) CreateSession(_ context.Context, session *entity.TableSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	r.sessions[session.ID] = session
	return nil
}

func (r *fakeTableRepo) GetSession(_ context.Context, id uuid.UUID) (*entity.TableSession, error) {
	return r.sessions[id], nil
}

func (r *fakeTableRepo) CloseSession(_ context.Context, id uuid.UUID) error {
	if s, ok := r.sessions[id]; ok && s.ClosedAt == nil {
		now := time.Now()
		s.ClosedAt = &now
	}
	return nil
}

type fakeRestaurantRepo struct {
	restaurants map[uuid.UUID]*entity.Restaurant
}

func (r *fakeRestaurantRepo) Create(_ context.Context, restaurant *entity.Restaurant) error {
	r.restaurants[restaurant.ID] = restaurant
	return nil
}

func (r *fakeRestaurantRepo) GetByID(_ context.Context, id uuid.UUID) (*entity.Restaurant, error) {
	return r.restaurants[id], nil
}

func (r *fakeRestaurantRepo) GetBySlug(_ context.Context, slug string) (*entity.Restaurant, error) {
	for _, rest := range r.restaurants {
		if rest.Slug == slug {
			return rest, nil
		}
	}
	return nil, nil
}

type fakeGateway struct {
	configured bool
	lookups    int

	getPaymentFn       func(ctx context.Context, id string) (*payment.Payment, error)
	createPreferenceFn func(ctx context.Context, req payment.PreferenceRequest) (*payment.Preference, error)
}

func (g *fakeGateway) IsConfigured() bool {
	return g.configured
}

func (g *fakeGateway) GetPayment(ctx context.Context, id string) (*payment.Payment, error) {
	g.lookups++
	return g.getPaymentFn(ctx, id)
}

func (g *fakeGateway) CreatePreference(ctx context.Context, req payment.PreferenceRequest) (*payment.Preference, error) {
	return g.createPreferenceFn(ctx, req)
}
