// Package lock provides the Redis-backed mutual exclusion used to guarantee
// that at most one worker instance evaluates alerts at a time cluster-wide.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// releaseScript deletes the key only when the stored owner token matches,
// so an instance can never release a lock it no longer holds (for example
// after its TTL expired and another instance reacquired the key).
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// RedisLock implements the engine's Locker port with SET NX PX semantics.
type RedisLock struct {
	client redis.UniversalClient
}

// NewRedisLock wraps an existing Redis client.
func NewRedisLock(client redis.UniversalClient) *RedisLock {
	return &RedisLock{client: client}
}

// TryAcquire attempts to take key for ownerToken with the given TTL.
// It returns false with a nil error when another holder owns the key;
// that is expected contention, not a failure.
func (l *RedisLock) TryAcquire(ctx context.Context, key, ownerToken string, ttl time.Duration) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, ownerToken, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx %s: %w", key, err)
	}
	return ok, nil
}

// Release drops the lock if and only if ownerToken still holds it.
// Releasing a key held by someone else (or nobody) is a silent no-op.
func (l *RedisLock) Release(ctx context.Context, key, ownerToken string) error {
	if err := releaseScript.Run(ctx, l.client, []string{key}, ownerToken).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}
