package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"referral-ledger/internal/events"

	"github.com/go-redis/redis/v8"
)

type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisPublisher publishes every event as JSON on a pub/sub channel so other
// services (the bot front-end, dashboards) can react without polling.
type RedisPublisher struct {
	client  publisher
	channel string
}

func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel}
}

func (p *RedisPublisher) Name() string { return "redis" }

// Notify implements events.Notifier.
func (p *RedisPublisher) Notify(ctx context.Context, e events.Event) error {
	// Challenge codes only travel over the direct user channel
	e.Code = ""

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", p.channel, err)
	}
	return nil
}
