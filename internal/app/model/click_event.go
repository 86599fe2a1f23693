package model

import "time"

// ClickEvent records a single resolved redirect for the counting pipeline.
type ClickEvent struct {
	ID        string    `json:"id"`
	ShortCode string    `json:"short_code"`
	IP        string    `json:"ip"`
	UserAgent string    `json:"user_agent"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	ClickStreamName     = "CLICKS"
	ClickStreamSubject  = "clicks.events"
	ClickConsumerName   = "click-counter"
	ClickStreamMaxBytes = 1024 * 1024 * 100 // 100MB
)
