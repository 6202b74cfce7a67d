package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// WebhookDedupeStore reserves webhook event keys so a redelivered event is
// acknowledged without being processed twice.
type WebhookDedupeStore struct {
	client *redis.Client
}

// NewWebhookDedupeStore creates a new WebhookDedupeStore instance
func NewWebhookDedupeStore(client *redis.Client) *WebhookDedupeStore {
	return &WebhookDedupeStore{client: client}
}

// Reserve sets key if absent. It returns false when the key is already held.
func (s *WebhookDedupeStore) Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	acquired, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to reserve dedupe key: %w", err)
	}
	return acquired, nil
}

// Release drops a reservation so the gateway's next delivery is processed.
func (s *WebhookDedupeStore) Release(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to release dedupe key: %w", err)
	}
	return nil
}
