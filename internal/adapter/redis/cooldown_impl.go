package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cooldownPrefix = "cooldown:"

// CooldownRepoImpl provides a concrete implementation for the
// CooldownRepository interface using Redis. The key's TTL is the cooldown
// window itself, so an elapsed window disappears without cleanup.
type CooldownRepoImpl struct {
	client *redis.Client
}

// NewCooldownRepo creates a new instance of CooldownRepoImpl.
func NewCooldownRepo(client *redis.Client) *CooldownRepoImpl {
	return &CooldownRepoImpl{client: client}
}

// Ping reports store reachability for health checks.
func (r *CooldownRepoImpl) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *CooldownRepoImpl) key(username string) string {
	return fmt.Sprintf("%s%s", cooldownPrefix, username)
}

// Acquire starts a new window atomically with SET NX EX. When a window is
// already active the remaining TTL is reported instead; a concurrent session
// racing on the same operator loses here rather than double-triggering.
func (r *CooldownRepoImpl) Acquire(ctx context.Context, username string, window time.Duration) (bool, time.Duration, error) {
	key := r.key(username)

	ok, err := r.client.SetNX(ctx, key, time.Now().Unix(), window).Result()
	if err != nil {
		return false, 0, err
	}
	if ok {
		return true, 0, nil
	}

	remaining, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, err
	}
	if remaining < 0 {
		// Key vanished between SETNX and TTL; the window just elapsed.
		remaining = 0
	}
	return false, remaining, nil
}

// Remaining reports the time left on the active window, zero when open.
func (r *CooldownRepoImpl) Remaining(ctx context.Context, username string) (time.Duration, error) {
	remaining, err := r.client.TTL(ctx, r.key(username)).Result()
	if err != nil {
		return 0, err
	}
	if remaining < 0 {
		return 0, nil
	}
	return remaining, nil
}
