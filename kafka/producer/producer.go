// Package producer writes messages to Kafka.
package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/mediaflow/kafka"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/resilience"
)

// writer is the part of *kafkago.Writer the producer uses.
type writer interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Producer wraps a kafka-go Writer with retries and logging.
type Producer struct {
	writer writer
	retry  resilience.RetryConfig
	log    *logger.Logger

	mu     sync.RWMutex
	closed bool
}

// NewProducer creates a producer. The writer connects on first use.
func NewProducer(cfg kafka.Config, log *logger.Logger) (*Producer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka producer config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	transport, err := kafka.CreateTransport(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer transport: %w", err)
	}

	plog := log.WithComponent("kafka.producer")
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Transport:    transport,
		Balancer:     &kafkago.Hash{},
		BatchTimeout: cfg.BatchTimeout,
		RequiredAcks: kafkago.RequiredAcks(cfg.RequiredAcks),
		Compression:  kafka.ResolveCompression(cfg.Compression),
		WriteTimeout: cfg.WriteTimeout,
		// Retries are driven by WriteMessages.
		MaxAttempts: 1,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...any) {
			plog.Error("writer: " + fmt.Sprintf(msg, args...))
		}),
	}
	plog.Info("Kafka producer initialized", map[string]any{
		"brokers":     cfg.Brokers,
		"compression": cfg.Compression,
	})
	return newProducer(w, cfg.Retries, plog), nil
}

func newProducer(w writer, attempts int, log *logger.Logger) *Producer {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = max(attempts, 1)
	retry.RetryIf = kafka.IsRetryable
	retry.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.Warn("Retrying Kafka write", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldError, err.Error(),
			"wait_ms", wait.Milliseconds(),
		))
	}
	return &Producer{writer: w, retry: retry, log: log}
}

// WriteMessages sends msgs, retrying transient broker errors.
func (p *Producer) WriteMessages(ctx context.Context, msgs ...kafkago.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("producer is closed")
	}
	err := resilience.RetryFunc(ctx, p.retry, func() error {
		return p.writer.WriteMessages(ctx, msgs...)
	})
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// SendJSON marshals value and sends it to topic under key.
func (p *Producer) SendJSON(ctx context.Context, topic, key string, value any, headers ...kafkago.Header) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	return p.WriteMessages(ctx, kafkago.Message{
		Topic:   topic,
		Key:     []byte(key),
		Value:   data,
		Headers: append([]kafkago.Header{{Key: kafka.HeaderContentType, Value: []byte("application/json")}}, headers...),
	})
}

// Name implements provider.Provider.
func (p *Producer) Name() string { return "kafka.producer" }

// IsAvailable reports whether the producer is open.
func (p *Producer) IsAvailable(context.Context) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}

// Close flushes and shuts down the writer.
func (p *Producer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.log.Info("Kafka producer closing")
	return p.writer.Close()
}
