package orders

import (
	"context"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the checkout instruments. A nil *Metrics records nothing.
type Metrics struct {
	ordersPlaced      metric.Int64Counter
	placementFailures metric.Int64Counter
	notifications     metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	ordersPlaced, err := meter.Int64Counter("checkout.orders.placed",
		metric.WithDescription("Orders committed by the checkout unit of work"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders placed counter")
	}

	placementFailures, err := meter.Int64Counter("checkout.orders.failed",
		metric.WithDescription("Order placements rejected or rolled back, by reason"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "placement failures counter")
	}

	notifications, err := meter.Int64Counter("checkout.notifications",
		metric.WithDescription("Order confirmation notifications, by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "notifications counter")
	}

	return &Metrics{
		ordersPlaced:      ordersPlaced,
		placementFailures: placementFailures,
		notifications:     notifications,
	}, nil
}

func (m *Metrics) placed(ctx context.Context) {
	if m == nil {
		return
	}
	m.ordersPlaced.Add(ctx, 1)
}

func (m *Metrics) placementFailed(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.placementFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *Metrics) notification(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.notifications.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
