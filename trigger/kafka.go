package trigger

import (
	"context"

	"github.com/kbukum/mediaflow/kafka"
)

// messageSource is satisfied by *consumer.Consumer.
type messageSource interface {
	Consume(ctx context.Context, handler kafka.Handler) error
	Close() error
	Topic() string
}

// KafkaSource feeds Object Created events from a topic into an Adapter.
type KafkaSource struct {
	source  messageSource
	adapter *Adapter
}

var _ kafka.Runner = (*KafkaSource)(nil)

// NewKafkaSource binds src to adapter.
func NewKafkaSource(src messageSource, adapter *Adapter) *KafkaSource {
	return &KafkaSource{source: src, adapter: adapter}
}

// Consume runs until ctx ends.
func (s *KafkaSource) Consume(ctx context.Context) error {
	return s.source.Consume(ctx, s.handle)
}

func (s *KafkaSource) handle(ctx context.Context, msg kafka.Message) error {
	_, err := s.adapter.HandleEvent(ctx, msg.Value)
	return err
}

// Close closes the underlying consumer.
func (s *KafkaSource) Close() error { return s.source.Close() }

// Topic returns the consumed topic.
func (s *KafkaSource) Topic() string { return s.source.Topic() }
