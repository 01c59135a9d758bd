package reporting

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/go-redis/redis/v8"
)

// Notifier is the delivery boundary. The engine only decides what goes to
// which channel type; actual email/Slack/Teams delivery lives behind this
// interface.
type Notifier interface {
	Send(ctx context.Context, channelType string, subject string, payload interface{}) error
}

const notifyChannelPrefix = "notify:"

// RedisNotifier publishes notification payloads to per-channel pub/sub
// topics (notify:email, notify:slack, ...) for downstream delivery workers.
type RedisNotifier struct {
	redis *redis.Client
}

func NewRedisNotifier(redisClient *redis.Client) *RedisNotifier {
	return &RedisNotifier{redis: redisClient}
}

func (n *RedisNotifier) Send(ctx context.Context, channelType string, subject string, payload interface{}) error {
	message, err := json.Marshal(map[string]interface{}{
		"subject": subject,
		"payload": payload,
	})
	if err != nil {
		return fmt.Errorf("failed to encode notification: %w", err)
	}
	return n.redis.Publish(ctx, notifyChannelPrefix+channelType, message).Err()
}

// LogNotifier writes notifications to the process log; used when no redis
// client is wired (and as the test default).
type LogNotifier struct{}

func (LogNotifier) Send(ctx context.Context, channelType string, subject string, payload interface{}) error {
	log.Printf("notify [%s]: %s", channelType, subject)
	return nil
}
