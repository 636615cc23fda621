package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

// OrderMetrics counts order lifecycle activity. A nil *OrderMetrics records nothing.
type OrderMetrics struct {
	created     metric.Int64Counter
	transitions metric.Int64Counter
	deleted     metric.Int64Counter
}

func NewOrderMetrics(meter metric.Meter) (*OrderMetrics, error) {
	created, err := meter.Int64Counter("storefront.orders.created",
		metric.WithDescription("Orders placed"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter("storefront.orders.transitions",
		metric.WithDescription("Order status transitions, by target status"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	deleted, err := meter.Int64Counter("storefront.orders.deleted",
		metric.WithDescription("Orders removed by an admin"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	return &OrderMetrics{
		created:     created,
		transitions: transitions,
		deleted:     deleted,
	}, nil
}

func (m *OrderMetrics) RecordCreated(ctx context.Context, method domain.PaymentMethod) {
	if m == nil {
		return
	}
	m.created.Add(ctx, 1, metric.WithAttributes(attribute.String("payment_method", string(method))))
}

func (m *OrderMetrics) RecordTransition(ctx context.Context, to domain.OrderStatus) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(to))))
}

func (m *OrderMetrics) RecordDeleted(ctx context.Context) {
	if m == nil {
		return
	}
	m.deleted.Add(ctx, 1)
}
