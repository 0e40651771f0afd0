package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sangkips/dinein-api/internal/domain/entity"
	"github.com/sangkips/dinein-api/internal/domain/repository"
	"github.com/sangkips/dinein-api/internal/infrastructure/payment"
	infraRepo "github.com/sangkips/dinein-api/internal/infrastructure/repository"
	"github.com/sangkips/dinein-api/internal/metrics"
	"github.com/sangkips/dinein-api/pkg/apperror"
)

// NotificationTypePayment is the only notification type acted upon
const NotificationTypePayment = "payment"

// ErrPaymentIDRequired is returned for payment notifications without data.id
var ErrPaymentIDRequired = apperror.NewRequiredFieldError("data.id")

// Outcome is how an acknowledged payment notification was handled
type Outcome int

const (
	OutcomeIgnored Outcome = iota
	OutcomeLookupFailed
	OutcomeNotApproved
	OutcomeNoReference
	OutcomeOrderNotFound
	OutcomePaid
	OutcomeAlreadyPaid
)

var outcomeNames = map[Outcome]string{
	OutcomeIgnored:       "ignored",
	OutcomeLookupFailed:  "lookup_failed",
	OutcomeNotApproved:   "not_approved",
	OutcomeNoReference:   "no_reference",
	OutcomeOrderNotFound: "order_not_found",
	OutcomePaid:          "paid",
	OutcomeAlreadyPaid:   "already_paid",
}

var outcomeMessages = map[Outcome]string{
	OutcomeIgnored:       "ignored",
	OutcomeLookupFailed:  "payment lookup failed",
	OutcomeNotApproved:   "not approved",
	OutcomeNoReference:   "no external reference",
	OutcomeOrderNotFound: "order not found",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// Message is the acknowledgement text for outcomes that did not pay an order
func (o Outcome) Message() string {
	return outcomeMessages[o]
}

// IsPaid reports whether the order referenced by the notification is paid
func (o Outcome) IsPaid() bool {
	return o == OutcomePaid || o == OutcomeAlreadyPaid
}

// PaymentNotification is an inbound processor notification
type PaymentNotification struct {
	Type      string
	PaymentID string
}

// ReconcileResult is the acknowledged result of a notification. Errors
// returned next to it are fatal and must not be acknowledged.
type ReconcileResult struct {
	Outcome   Outcome
	OrderID   uint
	PaymentID string
}

// PaymentService applies processor payment notifications to orders
type PaymentService struct {
	orderRepo repository.OrderRepository
	gateway   PaymentGateway
	metrics   *metrics.Metrics
	timeout   time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewPaymentService creates a new payment service. timeout bounds each
// processor lookup and each order store call.
func NewPaymentService(orderRepo repository.OrderRepository, gateway PaymentGateway, m *metrics.Metrics, timeout time.Duration) *PaymentService {
	if m == nil {
		m = metrics.Noop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PaymentService{
		orderRepo: orderRepo,
		gateway:   gateway,
		metrics:   m,
		timeout:   timeout,
		now:       func() time.Time { return time.Now().UTC() },
		logger:    log.With().Str("component", "payment_reconciler").Logger(),
	}
}

// HandleNotification resolves the payment behind a notification to an order
// and marks the order paid when the payment is approved.
func (s *PaymentService) HandleNotification(ctx context.Context, n PaymentNotification) (ReconcileResult, error) {
	res, err := s.handle(ctx, n)
	if err != nil {
		s.metrics.RecordPaymentNotification(ctx, "error")
		s.logger.Error().Err(err).Str("payment_id", n.PaymentID).Msg("payment notification failed")
		return res, err
	}
	s.metrics.RecordPaymentNotification(ctx, res.Outcome.String())
	return res, nil
}

func (s *PaymentService) handle(ctx context.Context, n PaymentNotification) (ReconcileResult, error) {
	if n.Type != NotificationTypePayment {
		return ReconcileResult{Outcome: OutcomeIgnored}, nil
	}

	paymentID := strings.TrimSpace(n.PaymentID)
	if paymentID == "" {
		return ReconcileResult{}, ErrPaymentIDRequired
	}
	res := ReconcileResult{PaymentID: paymentID}

	if !s.gateway.IsConfigured() {
		return res, payment.ErrNotConfigured
	}

	p, err := s.lookup(ctx, paymentID)
	if err != nil {
		if errors.Is(err, payment.ErrNotConfigured) {
			return res, err
		}
		// the processor redelivers; acknowledging avoids retry storms
		s.logger.Warn().Err(err).Str("payment_id", paymentID).Msg("payment lookup failed")
		res.Outcome = OutcomeLookupFailed
		return res, nil
	}

	if p.Status != payment.StatusApproved {
		s.logger.Debug().Str("payment_id", paymentID).Str("status", p.Status).Msg("payment not approved")
		res.Outcome = OutcomeNotApproved
		return res, nil
	}

	ref, ok := entity.ParseOrderRef(p.ExternalReference)
	if !ok {
		res.Outcome = OutcomeNoReference
		return res, nil
	}

	// notifications carry no tenant; the reference alone identifies the order
	storeCtx, cancel := context.WithTimeout(infraRepo.WithSkipRestaurantScope(ctx, true), s.timeout)
	defer cancel()

	order, err := resolveOrder(storeCtx, s.orderRepo, ref)
	if err != nil {
		return res, fmt.Errorf("resolve order %q: %w", ref, err)
	}
	if order == nil {
		s.logger.Warn().Str("payment_id", paymentID).Str("external_reference", ref.String()).Msg("payment references unknown order")
		res.Outcome = OutcomeOrderNotFound
		return res, nil
	}
	res.OrderID = order.ID

	updated, err := s.orderRepo.MarkPaid(storeCtx, order.ID, paymentID, s.now())
	if err != nil {
		return res, fmt.Errorf("mark order %d paid: %w", order.ID, err)
	}
	if !updated {
		res.Outcome = OutcomeAlreadyPaid
		return res, nil
	}

	s.logger.Info().Uint("order_id", order.ID).Str("payment_id", paymentID).Msg("order marked paid")
	res.Outcome = OutcomePaid
	return res, nil
}

func (s *PaymentService) lookup(ctx context.Context, paymentID string) (*payment.Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.gateway.GetPayment(ctx, paymentID)
}
