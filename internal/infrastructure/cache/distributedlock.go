package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/orris-inc/payrecon/internal/application/payment/usecases"
)

const lockKeyPrefix = "lock:"

// ErrLockNotHeld is returned when releasing a lock whose token no longer matches.
var ErrLockNotHeld = errors.New("lock not held")

// releaseScript deletes the key only while it still carries our token, so an
// expired holder cannot release a lock taken over by another instance.
var releaseScript = redis.NewScript(`
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`)

// DistributedLocker hands out Redis backed locks with a bounded lifetime.
type DistributedLocker struct {
	client *redis.Client
}

var _ usecases.Locker = (*DistributedLocker)(nil)

func NewDistributedLocker(client *redis.Client) *DistributedLocker {
	return &DistributedLocker{client: client}
}

// TryLock acquires key for ttl without waiting. It returns false when
// another holder has it.
func (l *DistributedLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (usecases.Lock, bool, error) {
	token := uuid.NewString()
	fullKey := lockKeyPrefix + key

	acquired, err := l.client.SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !acquired {
		return nil, false, nil
	}
	return &redisLock{client: l.client, key: fullKey, token: token}, true, nil
}

type redisLock struct {
	client *redis.Client
	key    string
	token  string
}

func (l *redisLock) Release(ctx context.Context) error {
	deleted, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	if deleted == 0 {
		return ErrLockNotHeld
	}
	return nil
}
