package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/evanlinks/shortlink/internal/app/model"
	"github.com/evanlinks/shortlink/internal/app/repository"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// ClickConsumer drains click events from JetStream into the daily counter.
type ClickConsumer struct {
	js      nats.JetStreamContext
	logger  *zap.Logger
	counter repository.ClickCounter
}

// NewClickConsumer creates a new click event consumer.
func NewClickConsumer(js nats.JetStreamContext, logger *zap.Logger, counter repository.ClickCounter) *ClickConsumer {
	return &ClickConsumer{js: js, logger: logger, counter: counter}
}

// Start ensures the stream and durable consumer exist, then begins
// consuming in the background.
func (c *ClickConsumer) Start() error {
	_, err := c.js.StreamInfo(model.ClickStreamName)
	if err != nil {
		_, err = c.js.AddStream(&nats.StreamConfig{
			Name:     model.ClickStreamName,
			Subjects: []string{model.ClickStreamSubject},
			MaxBytes: model.ClickStreamMaxBytes,
		})
		if err != nil {
			return fmt.Errorf("create stream: %w", err)
		}
	}

	_, err = c.js.ConsumerInfo(model.ClickStreamName, model.ClickConsumerName)
	if err != nil {
		_, err = c.js.AddConsumer(model.ClickStreamName, &nats.ConsumerConfig{
			Durable:   model.ClickConsumerName,
			AckPolicy: nats.AckExplicitPolicy,
		})
		if err != nil {
			return fmt.Errorf("create consumer: %w", err)
		}
	}

	sub, err := c.js.PullSubscribe(model.ClickStreamSubject, model.ClickConsumerName)
	if err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	go c.consume(sub)
	return nil
}

func (c *ClickConsumer) consume(sub *nats.Subscription) {
	ctx := context.Background()
	for {
		msgs, err := sub.Fetch(10, nats.MaxWait(5*time.Second))
		if err != nil && err != nats.ErrTimeout {
			c.logger.Error("failed to fetch click events", zap.Error(err))
			continue
		}

		for _, msg := range msgs {
			var event model.ClickEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				c.logger.Error("failed to unmarshal click event", zap.Error(err))
				msg.Nak()
				continue
			}

			if err := c.counter.Increment(ctx, event.Timestamp); err != nil {
				c.logger.Error("failed to count click event",
					zap.String("id", event.ID),
					zap.String("code", event.ShortCode),
					zap.Error(err))
				msg.Nak()
				continue
			}

			c.logger.Debug("click event counted",
				zap.String("id", event.ID),
				zap.String("code", event.ShortCode),
				zap.Time("timestamp", event.Timestamp),
			)

			msg.Ack()
		}
	}
}
