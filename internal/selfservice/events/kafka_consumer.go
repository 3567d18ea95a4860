package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type KafkaReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer hands every event of a topic to a handler. A message is committed
// once the handler accepted it.
type Consumer struct {
	reader  KafkaReader
	logger  *zap.Logger
	handler func(context.Context, Event) error
	// retry paces handler retries. Nil means a single attempt.
	retry func() backoff.BackOff
}

// handlerRetryWindow bounds how long one message is retried before Run gives up.
const handlerRetryWindow = 2 * time.Minute

func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
			Dialer:  kafka.DefaultDialer,
		}),
		logger: logger.Named("kafka_consumer"),
		retry: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.MaxElapsedTime = handlerRetryWindow
			return b
		},
	}
}

func (c *Consumer) RegisterHandler(fn func(context.Context, Event) error) {
	c.handler = fn
}

// Run consumes until ctx is cancelled. A message whose handler keeps failing
// is left uncommitted and Run returns, so the group offset never moves past it
// and the message is fetched again on the next start.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Error("Failed to fetch message", zap.Error(err))
			continue
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.logger.Error("Failed to parse event",
				zap.Error(err),
				zap.ByteString("value", msg.Value),
			)
			// Poison messages are skipped for good.
			c.commit(ctx, msg, "")
			continue
		}

		if err := c.handle(ctx, event); err != nil {
			c.logger.Error("Failed to handle event",
				zap.Error(err),
				zap.String("event_type", string(event.Type)),
				zap.Int64("offset", msg.Offset),
			)
			return fmt.Errorf("handle %s event at offset %d: %w", event.Type, msg.Offset, err)
		}
		c.commit(ctx, msg, event.Type)
	}
}

func (c *Consumer) handle(ctx context.Context, event Event) error {
	if c.handler == nil {
		return nil
	}
	var b backoff.BackOff = &backoff.StopBackOff{}
	if c.retry != nil {
		b = c.retry()
	}
	return backoff.RetryNotify(
		func() error { return c.handler(ctx, event) },
		backoff.WithContext(b, ctx),
		func(err error, wait time.Duration) {
			c.logger.Warn("Retrying event handler",
				zap.Error(err),
				zap.String("event_type", string(event.Type)),
				zap.Duration("wait", wait),
			)
		},
	)
}

func (c *Consumer) commit(ctx context.Context, msg kafka.Message, eventType EventType) {
	if err := c.reader.CommitMessages(ctx, msg); err != nil {
		c.logger.Error("Failed to commit message",
			zap.Error(err),
			zap.String("event_type", string(eventType)),
		)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("Failed to close Kafka reader", zap.Error(err))
	}
}
