package producer

import (
	"context"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/mediaflow/engine"
	"github.com/kbukum/mediaflow/kafka"
)

// EventPublisher sends execution-finished events to a topic, keyed by
// execution id so all events of one execution land on one partition.
type EventPublisher struct {
	producer *Producer
	topic    string
}

var _ engine.Notifier = (*EventPublisher)(nil)

// NewEventPublisher publishes to topic through p.
func NewEventPublisher(p *Producer, topic string) *EventPublisher {
	return &EventPublisher{producer: p, topic: topic}
}

// Notify implements engine.Notifier.
func (p *EventPublisher) Notify(ctx context.Context, event engine.Event) error {
	return p.producer.SendJSON(ctx, p.topic, event.ExecutionID, event,
		kafkago.Header{Key: kafka.HeaderEventType, Value: []byte(event.Type)})
}
