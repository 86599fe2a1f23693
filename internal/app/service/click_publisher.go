package service

import (
	"encoding/json"
	"time"

	"github.com/evanlinks/shortlink/internal/app/model"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// ClickPublisher publishes resolved-redirect events to NATS JetStream.
type ClickPublisher struct {
	js nats.JetStreamContext
}

// NewClickPublisher creates a new click event publisher.
func NewClickPublisher(js nats.JetStreamContext) *ClickPublisher {
	return &ClickPublisher{js: js}
}

// Publish emits one click event for the given short code.
func (p *ClickPublisher) Publish(shortCode, ip, userAgent string) error {
	event := model.ClickEvent{
		ID:        uuid.New().String(),
		ShortCode: shortCode,
		IP:        ip,
		UserAgent: userAgent,
		Timestamp: time.Now().UTC(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	_, err = p.js.Publish(model.ClickStreamSubject, data)
	return err
}
