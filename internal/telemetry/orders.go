package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OrderMetrics records placed orders. The zero value is not usable; call
// NewOrderMetrics.
type OrderMetrics struct {
	placed metric.Int64Counter
	value  metric.Float64Histogram
}

// NewOrderMetrics builds the instruments on the global MeterProvider, which is
// a no-op until InitMeterProvider runs.
func NewOrderMetrics() (*OrderMetrics, error) {
	meter := otel.Meter("storefront/orders")

	placed, err := meter.Int64Counter("orders.placed",
		metric.WithDescription("Orders persisted"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, err
	}

	value, err := meter.Float64Histogram("orders.value",
		metric.WithDescription("Total price of persisted orders"),
		metric.WithUnit("{currency}"),
		metric.WithExplicitBucketBoundaries(10, 25, 50, 100, 250, 500, 1000, 5000),
	)
	if err != nil {
		return nil, err
	}

	return &OrderMetrics{placed: placed, value: value}, nil
}

func (m *OrderMetrics) RecordPlaced(ctx context.Context, lines int, total float64) {
	attrs := metric.WithAttributes(attribute.Int("order.lines", lines))
	m.placed.Add(ctx, 1, attrs)
	m.value.Record(ctx, total, attrs)
}
