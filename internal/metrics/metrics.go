package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

type Metrics struct {
	idempotencyRequestsTotal  metric.Int64Counter
	rateLimitRejectionsTotal  metric.Int64Counter
	paymentNotificationsTotal metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.idempotencyRequestsTotal, err = meter.Int64Counter(
		"idempotency_requests_total",
		metric.WithDescription("Requests seen by the idempotency gate, by result"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create idempotency_requests_total counter: %w", err)
	}

	m.rateLimitRejectionsTotal, err = meter.Int64Counter(
		"rate_limit_rejections_total",
		metric.WithDescription("Requests rejected by the rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create rate_limit_rejections_total counter: %w", err)
	}

	m.paymentNotificationsTotal, err = meter.Int64Counter(
		"payment_notifications_total",
		metric.WithDescription("Payment notifications handled, by outcome"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_notifications_total counter: %w", err)
	}

	return m, nil
}

// Noop returns metrics backed by a no-op meter.
func Noop() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(""))
	return m
}

// RecordIdempotency records a gate decision: miss, replay, in_flight or bypass.
func (m *Metrics) RecordIdempotency(ctx context.Context, result string) {
	m.idempotencyRequestsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("result", result),
	))
}

func (m *Metrics) RecordRateLimitRejection(ctx context.Context, route string) {
	m.rateLimitRejectionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("route", route),
	))
}

func (m *Metrics) RecordPaymentNotification(ctx context.Context, outcome string) {
	m.paymentNotificationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}
