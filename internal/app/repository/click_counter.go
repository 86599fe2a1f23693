package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dailyClicksPrefix = "clicks:daily:"

// ClickCounter accumulates resolved-redirect counts per calendar day. It is
// fed by the click-event consumer and read by the stats endpoint.
type ClickCounter interface {
	Increment(ctx context.Context, day time.Time) error
	Count(ctx context.Context, day time.Time) (int64, error)
}

type redisClickCounter struct {
	client *redis.Client
}

// NewClickCounter returns a Redis-backed ClickCounter.
func NewClickCounter(client *redis.Client) ClickCounter {
	return &redisClickCounter{client: client}
}

func dailyKey(day time.Time) string {
	return dailyClicksPrefix + day.UTC().Format("2006-01-02")
}

func (c *redisClickCounter) Increment(ctx context.Context, day time.Time) error {
	if err := c.client.Incr(ctx, dailyKey(day)).Err(); err != nil {
		return fmt.Errorf("increment daily clicks: %w", err)
	}
	return nil
}

func (c *redisClickCounter) Count(ctx context.Context, day time.Time) (int64, error) {
	val, err := c.client.Get(ctx, dailyKey(day)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read daily clicks: %w", err)
	}
	return val, nil
}
