// Package consumer reads a Kafka topic as part of a consumer group.
package consumer

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/kbukum/mediaflow/errors"
	"github.com/kbukum/mediaflow/kafka"
	"github.com/kbukum/mediaflow/logger"
	"github.com/kbukum/mediaflow/provider"
	"github.com/kbukum/mediaflow/resilience"
)

// reader is the part of *kafkago.Reader the consumer uses.
type reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Consumer reads one topic with at-least-once delivery: an offset is
// committed after its handler returns, whether it succeeded or not.
type Consumer struct {
	reader  reader
	topic   string
	groupID string
	log     *logger.Logger
	backoff resilience.Backoff
	retry   resilience.RetryConfig
}

var _ provider.Provider = (*Consumer)(nil)

// NewConsumer creates a consumer for topic.
func NewConsumer(cfg kafka.Config, topic string, log *logger.Logger) (*Consumer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kafka consumer config: %w", err)
	}
	if !cfg.Enabled {
		return nil, fmt.Errorf("kafka is disabled")
	}
	dialer, err := kafka.CreateDialer(&cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer dialer: %w", err)
	}

	clog := log.WithComponent("kafka.consumer").WithFields(map[string]any{"topic": topic, "group_id": cfg.GroupID})
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:           cfg.Brokers,
		Topic:             topic,
		GroupID:           cfg.GroupID,
		Dialer:            dialer,
		StartOffset:       kafkago.FirstOffset,
		MinBytes:          1,
		MaxBytes:          10e6,
		SessionTimeout:    cfg.SessionTimeout,
		HeartbeatInterval: cfg.HeartbeatInterval,
		RebalanceTimeout:  cfg.RebalanceTimeout,
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...any) {
			clog.Error("reader: " + fmt.Sprintf(msg, args...))
		}),
	})
	clog.Info("Kafka consumer initialized", map[string]any{"brokers": cfg.Brokers})
	return newConsumer(r, topic, cfg.GroupID, cfg.HandlerAttempts, clog), nil
}

func newConsumer(r reader, topic, groupID string, attempts int, log *logger.Logger) *Consumer {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = max(attempts, 1)
	retry.RetryIf = errors.IsRetryable
	return &Consumer{
		reader:  r,
		topic:   topic,
		groupID: groupID,
		log:     log,
		backoff: resilience.Backoff{Initial: time.Second, Max: 30 * time.Second, Factor: 2, Jitter: 0.1},
		retry:   retry,
	}
}

// Consume reads messages until ctx is cancelled. Handler errors marked
// retryable are retried a few times; after that the message is logged and
// skipped so one bad record cannot stall its partition.
func (c *Consumer) Consume(ctx context.Context, handler kafka.Handler) error {
	c.log.Info("Starting consume loop")
	failures := 0
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			if err := c.wait(ctx, failures, err); err != nil {
				return err
			}
			continue
		}
		failures = 0

		m := kafka.FromKafkaMessage(msg)
		err = resilience.RetryFunc(ctx, c.retry, func() error { return handler(ctx, m) })
		if err != nil && !stderrors.Is(err, context.Canceled) {
			c.log.Error("Message processing failed", logger.Fields(
				"partition", msg.Partition,
				"offset", msg.Offset,
				logger.FieldError, err.Error(),
			))
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.log.Warn("Commit failed", logger.ErrorFields("commit", err))
		}
	}
}

func (c *Consumer) wait(ctx context.Context, failures int, err error) error {
	if failures <= 3 {
		c.log.Error("Kafka read error", logger.Fields(logger.FieldError, err.Error(), "failures", failures))
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(c.backoff.Delay(failures)):
		return nil
	}
}

// Name implements provider.Provider.
func (c *Consumer) Name() string { return c.groupID + ":" + c.topic }

// IsAvailable implements provider.Provider.
func (c *Consumer) IsAvailable(context.Context) bool { return c.reader != nil }

// Topic returns the consumed topic.
func (c *Consumer) Topic() string { return c.topic }

// Close shuts down the reader.
func (c *Consumer) Close() error {
	c.log.Info("Kafka consumer closing")
	return c.reader.Close()
}
