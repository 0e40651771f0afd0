package routes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sangkips/dinein-api/internal/application/service"
	"github.com/sangkips/dinein-api/internal/config"
	"github.com/sangkips/dinein-api/internal/infrastructure/cache"
	"github.com/sangkips/dinein-api/internal/infrastructure/database"
	"github.com/sangkips/dinein-api/internal/infrastructure/payment"
	"github.com/sangkips/dinein-api/internal/infrastructure/repository"
	"github.com/sangkips/dinein-api/internal/metrics"
	"github.com/sangkips/dinein-api/internal/presentation/http/handler"
	"github.com/sangkips/dinein-api/internal/presentation/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// processor fakes the payment processor API: preferences are accepted and
// every payment is approved for the order reference it was created with
type processor struct {
	*httptest.Server
	reference   atomic.Value
	lookups     int32
	preferences int32
}

func newProcessor(t *testing.T) *processor {
	p := &processor{}
	p.reference.Store("")
	mux := http.NewServeMux()
	mux.HandleFunc("/checkout/preferences", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&p.preferences, 1)
		var req payment.PreferenceRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		p.reference.Store(req.ExternalReference)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pref-1","init_point":"https://pay.example/checkout/pref-1"}`))
	})
	mux.HandleFunc("/v1/payments/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&p.lookups, 1)
		id := strings.TrimPrefix(r.URL.Path, "/v1/payments/")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":%s,"status":"approved","external_reference":%q}`, id, p.reference.Load().(string))
	})
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Close)
	return p
}

type app struct {
	router    *gin.Engine
	processor *processor
}

func newApp(t *testing.T, opts ...func(*config.Config)) *app {
	gin.SetMode(gin.TestMode)

	db, err := database.NewDB(&config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db))
	require.NoError(t, database.SeedDefaultData(db))

	proc := newProcessor(t)
	cfg := &config.Config{
		App:         config.AppConfig{Name: "dinein-api", Env: "test"},
		Idempotency: config.IdempotencyConfig{FailOpen: true},
		Payment:     config.PaymentConfig{AccessToken: "TEST-token", BaseURL: proc.URL, Timeout: 2 * time.Second},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	restaurantRepo := repository.NewRestaurantRepository(db)
	tableRepo := repository.NewTableRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	client := payment.NewClient(&cfg.Payment)
	m := metrics.Noop()

	handlers := &Handlers{
		Order:   handler.NewOrderHandler(service.NewOrderService(restaurantRepo, tableRepo, orderRepo, client)),
		Session: handler.NewSessionHandler(service.NewSessionService(tableRepo)),
		Payment: handler.NewPaymentHandler(service.NewPaymentService(orderRepo, client, m, time.Second)),
	}
	router := Setup(handlers, &Deps{
		Cfg:              cfg,
		RestaurantRepo:   restaurantRepo,
		IdempotencyStore: cache.NewMemoryStore(100, time.Minute),
		RateLimiter:      middleware.NewRateLimiter(middleware.RateLimiterConfig{Requests: 1000, Window: time.Minute, Metrics: m}),
		Metrics:          m,
	})
	return &app{router: router, processor: proc}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *app) do(t *testing.T, method, path, body string, header map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	_ = json.Unmarshal(w.Body.Bytes(), &env)
	return w, env
}

func (a *app) openSession(t *testing.T, table string) string {
	t.Helper()
	w, env := a.do(t, http.MethodPost, "/api/v1/restaurants/demo/tables/"+table+"/sessions", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var session struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &session))
	return session.ID
}

type orderView struct {
	ID         uint    `json:"id"`
	DocumentID string  `json:"document_id"`
	Status     string  `json:"status"`
	Total      float64 `json:"total"`
	PaymentID  string  `json:"payment_id"`
	Notes      string  `json:"notes"`
}

func TestHealth(t *testing.T) {
	a := newApp(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rate_limit"`)
}

func TestUnknownRestaurant(t *testing.T) {
	a := newApp(t)
	w, env := a.do(t, http.MethodPost, "/api/v1/restaurants/nowhere/tables/T1/sessions", "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Limit"))
}

func TestOrderFlowFromTableToPaid(t *testing.T) {
	a := newApp(t)
	sessionID := a.openSession(t, "T1")

	body := fmt.Sprintf(`{"table":"T1","session":%q,"notes":"<b>no onions</b>","items":[{"name":"Milanesa","quantity":2,"unit_price":9.5},{"name":"Flan","quantity":1,"unit_price":4.25}]}`, sessionID)
	retry := map[string]string{middleware.IdempotencyKeyHeader: "retry-1"}

	first, env := a.do(t, http.MethodPost, "/api/v1/restaurants/demo/orders", body, retry)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	var created orderView
	require.NoError(t, json.Unmarshal(env.Data, &created))
	assert.Equal(t, "pending", created.Status)
	assert.Equal(t, 23.25, created.Total)
	assert.Equal(t, "&lt;b&gt;no onions&lt;/b&gt;", created.Notes)

	// client retry after a lost response
	second, _ := a.do(t, http.MethodPost, "/api/v1/restaurants/demo/orders", body, retry)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get(middleware.IdempotencyReplayedHeader))

	w, env := a.do(t, http.MethodGet, "/api/v1/restaurants/demo/sessions/"+sessionID+"/orders", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Items      []orderView `json:"items"`
		Pagination struct {
			Total int64 `json:"total"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Equal(t, int64(1), list.Pagination.Total)

	w, env = a.do(t, http.MethodPost, "/api/v1/restaurants/demo/orders/"+created.DocumentID+"/checkout", "", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var checkout service.CheckoutResult
	require.NoError(t, json.Unmarshal(env.Data, &checkout))
	assert.Equal(t, "pref-1", checkout.PreferenceID)
	assert.Equal(t, created.ID, checkout.OrderID)

	webhook := `{"type":"payment","data":{"id":"424242"}}`
	w, _ = a.do(t, http.MethodPost, "/api/v1/webhooks/payments", webhook, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"status":"paid"}`, w.Body.String())

	// processor redelivery
	w, _ = a.do(t, http.MethodPost, "/api/v1/webhooks/payments", webhook, nil)
	assert.JSONEq(t, `{"ok":true,"status":"paid"}`, w.Body.String())

	w, env = a.do(t, http.MethodGet, fmt.Sprintf("/api/v1/restaurants/demo/orders/%d", created.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var paid orderView
	require.NoError(t, json.Unmarshal(env.Data, &paid))
	assert.Equal(t, "paid", paid.Status)
	assert.Equal(t, "424242", paid.PaymentID)

	w, _ = a.do(t, http.MethodPost, "/api/v1/restaurants/demo/orders/"+created.DocumentID+"/checkout", "", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&a.processor.preferences))
}

func TestClosedSessionRejectsOrders(t *testing.T) {
	a := newApp(t)
	sessionID := a.openSession(t, "T2")

	w, _ := a.do(t, http.MethodPost, "/api/v1/restaurants/demo/sessions/"+sessionID+"/close", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := fmt.Sprintf(`{"table":"T2","session":%q,"items":[{"name":"Agua","quantity":1,"unit_price":1}]}`, sessionID)
	w, _ = a.do(t, http.MethodPost, "/api/v1/restaurants/demo/orders", body, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestOrderLookupsRejectUnknownReferences(t *testing.T) {
	a := newApp(t)
	w, _ := a.do(t, http.MethodGet, "/api/v1/restaurants/demo/orders/999", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = a.do(t, http.MethodGet, "/api/v1/restaurants/demo/sessions/not-a-uuid/orders", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimitIgnoresForwardedForFromUntrustedPeer(t *testing.T) {
	a := newApp(t)

	var last *httptest.ResponseRecorder
	for i := 0; i < 20; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/restaurants/demo/tables/T1/sessions", nil)
		req.RemoteAddr = "203.0.113.9:52000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.9.%d.1", i))
		last = httptest.NewRecorder()
		a.router.ServeHTTP(last, req)
	}

	assert.Equal(t, "980", last.Header().Get("X-RateLimit-Remaining"))
}

func TestRateLimitHonorsForwardedForFromTrustedProxy(t *testing.T) {
	a := newApp(t, func(cfg *config.Config) {
		cfg.App.TrustedProxies = []string{"203.0.113.0/24"}
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/restaurants/demo/tables/T1/sessions", nil)
		req.RemoteAddr = "203.0.113.9:52000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i+1))
		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, req)
		assert.Equal(t, "999", w.Header().Get("X-RateLimit-Remaining"))
	}
}
