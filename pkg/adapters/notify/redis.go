package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/aretw0/openstars/internal/logging"
	"github.com/aretw0/openstars/pkg/domain"
)

// DefaultLeadsKey is the Redis list leads are pushed onto.
const DefaultLeadsKey = "openstars:leads"

// RedisNotifier pushes lead records as JSON onto a Redis list for a
// downstream consumer.
type RedisNotifier struct {
	client *redis.Client
	key    string
	logger *slog.Logger
}

// NewRedisNotifier creates a notifier pushing onto key.
func NewRedisNotifier(client *redis.Client, key string, logger *slog.Logger) *RedisNotifier {
	if key == "" {
		key = DefaultLeadsKey
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &RedisNotifier{client: client, key: key, logger: logger}
}

// Notify implements ports.Notifier.
func (r *RedisNotifier) Notify(ctx context.Context, rec domain.LeadRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("notify: encode lead: %w", err)
	}
	n, err := r.client.LPush(ctx, r.key, data).Result()
	if err != nil {
		return fmt.Errorf("notify: redis lpush: %w", err)
	}
	r.logger.Info("Lead queued", "provider", "redis", "session_id", rec.SessionID, "key", r.key, "depth", n)
	return nil
}

// Close closes the underlying client.
func (r *RedisNotifier) Close() error {
	return r.client.Close()
}
