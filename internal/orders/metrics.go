package orders

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
)

// Metrics holds the order lifecycle counters. A nil *Metrics records nothing.
type Metrics struct {
	created     metric.Int64Counter
	transitions metric.Int64Counter
	rejections  metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	created, err := meter.Int64Counter("pos.orders.created",
		metric.WithDescription("Orders created"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	transitions, err := meter.Int64Counter("pos.orders.status_changes",
		metric.WithDescription("Applied order status transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	rejections, err := meter.Int64Counter("pos.orders.transition_rejections",
		metric.WithDescription("Status transitions refused by the policy"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{created: created, transitions: transitions, rejections: rejections}, nil
}

func (m *Metrics) orderCreated(ctx context.Context, ch domain.Channel) {
	if m == nil {
		return
	}
	m.created.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", string(ch))))
}

func (m *Metrics) statusChanged(ctx context.Context, ch domain.Channel, from, to domain.OrderStatus, override bool) {
	if m == nil {
		return
	}
	m.transitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", string(ch)),
		attribute.String("from", string(from)),
		attribute.String("to", string(to)),
		attribute.Bool("override", override),
	))
}

func (m *Metrics) transitionRejected(ctx context.Context, r *domain.PolicyRejection) {
	if m == nil {
		return
	}
	m.rejections.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", string(r.Channel)),
		attribute.String("reason", string(r.Reason)),
	))
}
