package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// alertKeyPrefix is the prefix for all alert deduplication keys
	alertKeyPrefix = "ops_alert:"
	// DefaultAlertCooldown applies when no cooldown is configured
	DefaultAlertCooldown = 30 * time.Minute
)

// AlertDeduplicator suppresses repeated operator alerts for the same subject
// across every process sharing the Redis instance.
type AlertDeduplicator struct {
	client *redis.Client
}

// NewAlertDeduplicator creates a new AlertDeduplicator instance
func NewAlertDeduplicator(client *redis.Client) *AlertDeduplicator {
	return &AlertDeduplicator{client: client}
}

// Format: ops_alert:{type}:{subject}
func (d *AlertDeduplicator) buildKey(alertType, subject string) string {
	return fmt.Sprintf("%s%s:%s", alertKeyPrefix, alertType, subject)
}

// TryAcquireAlertLock returns true when no alert for the subject was sent
// within ttl, and starts a new cooldown.
func (d *AlertDeduplicator) TryAcquireAlertLock(ctx context.Context, alertType, subject string, ttl time.Duration) (bool, error) {
	acquired, err := d.client.SetNX(ctx, d.buildKey(alertType, subject), "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire alert lock: %w", err)
	}
	return acquired, nil
}

// ClearAlert ends the cooldown early, e.g. when sending failed.
func (d *AlertDeduplicator) ClearAlert(ctx context.Context, alertType, subject string) error {
	if err := d.client.Del(ctx, d.buildKey(alertType, subject)).Err(); err != nil {
		return fmt.Errorf("failed to clear alert: %w", err)
	}
	return nil
}

// GetRemainingCooldown returns 0 when the subject is not in cooldown.
func (d *AlertDeduplicator) GetRemainingCooldown(ctx context.Context, alertType, subject string) (time.Duration, error) {
	ttl, err := d.client.TTL(ctx, d.buildKey(alertType, subject)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get cooldown: %w", err)
	}
	// -2 missing key, -1 no expiry
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}
