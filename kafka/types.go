package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Header names set on produced messages.
const (
	HeaderContentType = "content-type"
	HeaderEventType   = "event-type"
)

// Message is a consumed record.
type Message struct {
	Key       string
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Headers   map[string]string
}

// Handler processes one consumed message.
type Handler func(ctx context.Context, msg Message) error

// FromKafkaMessage converts a kafka-go message.
func FromKafkaMessage(msg kafka.Message) Message {
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	return Message{
		Key:       string(msg.Key),
		Value:     msg.Value,
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Headers:   headers,
	}
}

// Decode unmarshals the JSON value into v.
func (m Message) Decode(v any) error {
	return json.Unmarshal(m.Value, v)
}
