package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/joao-fontenele/storefront-api/internal/domain"
)

const (
	TopicOrderPlaced = "order.placed"

	NotifierGroupID = "order-notifier"
)

// OrderPlacedPublisher sends order.placed events keyed by order id.
type OrderPlacedPublisher struct {
	producer *Producer
}

func NewOrderPlacedPublisher(brokers []string) *OrderPlacedPublisher {
	return &OrderPlacedPublisher{producer: NewProducer(brokers, TopicOrderPlaced)}
}

func (p *OrderPlacedPublisher) PublishOrderPlaced(ctx context.Context, event domain.OrderPlacedEvent) error {
	return p.producer.Publish(ctx, event.OrderID, event)
}

func (p *OrderPlacedPublisher) Close() error {
	return p.producer.Close()
}

// DecodeOrderPlaced adapts a typed handler to Consumer.Consume.
func DecodeOrderPlaced(handler func(ctx context.Context, event domain.OrderPlacedEvent) error) Handler {
	return func(ctx context.Context, payload []byte) error {
		var event domain.OrderPlacedEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("decode %s event: %w", TopicOrderPlaced, err)
		}
		return handler(ctx, event)
	}
}
