// redis.go implements the "inapp" channel: alerts are published to Redis
// pub/sub, one message per recipient on "<channel>:<user_id>", where the
// admin UI's websocket gateway subscribes and pushes them to logged-in
// sessions. Pub/sub is deliberately not durable — a recipient who is offline
// misses the push and finds the alert in the findings list instead.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/order-sentinel/order-sentinel/internal/config"
)

// redisPublisher is the slice of redis.Client the channel needs; satisfied by
// *redis.Client and faked in tests.
type redisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// inAppMessage is the JSON document published for each recipient.
type inAppMessage struct {
	Subject   string            `json:"subject"`
	Message   string            `json:"message"`
	Severity  string            `json:"severity"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// InAppChannel delivers alerts over Redis pub/sub.
type InAppChannel struct {
	client redisPublisher
	prefix string
}

// NewInAppChannel creates the in-app channel and its Redis client.
func NewInAppChannel(cfg config.RedisConfig) *InAppChannel {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	prefix := cfg.Channel
	if prefix == "" {
		prefix = "sentinel.alerts"
	}
	return &InAppChannel{client: client, prefix: prefix}
}

func (c *InAppChannel) Name() string { return "inapp" }

// Deliver publishes the alert once per recipient. A publish with zero
// subscribers is still a success — the recipient is simply not online.
func (c *InAppChannel) Deliver(ctx context.Context, recipientIDs []string, p Payload) error {
	data, err := json.Marshal(inAppMessage{
		Subject:   p.Subject,
		Message:   p.Message,
		Severity:  p.Severity,
		Metadata:  p.Metadata,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal in-app alert: %w", err)
	}

	published := 0
	var lastErr error
	for _, id := range recipientIDs {
		channel := fmt.Sprintf("%s:%s", c.prefix, id)
		if err := c.client.Publish(ctx, channel, data).Err(); err != nil {
			lastErr = fmt.Errorf("publish to %s: %w", channel, err)
			continue
		}
		published++
	}

	if published == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}
