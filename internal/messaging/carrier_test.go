package messaging

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

func TestMessageCarrierOverwritesExistingHeader(t *testing.T) {
	msg := &kafka.Message{Headers: []kafka.Header{{Key: "traceparent", Value: []byte("old")}}}
	carrier := NewMessageCarrier(msg)

	carrier.Set("traceparent", "new")
	carrier.Set("baggage", "k=v")

	assert.Equal(t, "new", carrier.Get("traceparent"))
	assert.Equal(t, "k=v", carrier.Get("baggage"))
	assert.Equal(t, "", carrier.Get("missing"))
	assert.ElementsMatch(t, []string{"traceparent", "baggage"}, carrier.Keys())
	assert.Len(t, msg.Headers, 2)
}

func TestMessageCarrierPropagatesTraceContext(t *testing.T) {
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	var msg kafka.Message
	propagator := propagation.TraceContext{}
	propagator.Inject(ctx, NewMessageCarrier(&msg))

	extracted := trace.SpanContextFromContext(propagator.Extract(context.Background(), NewMessageCarrier(&msg)))
	assert.Equal(t, traceID, extracted.TraceID())
	assert.Equal(t, spanID, extracted.SpanID())
}

func TestDecodeOrderPlaced(t *testing.T) {
	var got domain.OrderPlacedEvent
	handler := DecodeOrderPlaced(func(_ context.Context, event domain.OrderPlacedEvent) error {
		got = event
		return nil
	})

	err := handler(context.Background(), []byte(`{"order_id":"o-1","user_id":"u-1","total_price":25.5}`))
	require.NoError(t, err)
	assert.Equal(t, "o-1", got.OrderID)
	assert.Equal(t, "u-1", got.UserID)
	assert.InDelta(t, 25.5, got.TotalPrice, 1e-9)

	assert.Error(t, handler(context.Background(), []byte(`not json`)))
}
