// Package state offers a Redis-backed price tracker for deployments where
// crossing detection must survive worker failover. The in-memory tracker in
// the alerts package stays the default; this variant trades a network round
// trip per lookup for durable cross-tick history shared by all instances.
package state

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/sawpanic/pricewatch/internal/alerts"
)

const keyPrefix = "prices:"

// RedisTracker stores the last observed midpoint per (user, symbol) pair
// under an expiring key, so stale pairs age out without an explicit sweep.
type RedisTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisTracker wraps a v9 client. ttl bounds how long an observation is
// considered a valid "previous" price; it should comfortably exceed the
// poll interval.
func NewRedisTracker(client *redis.Client, ttl time.Duration) *RedisTracker {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisTracker{client: client, ttl: ttl}
}

// Get returns the stored midpoint for the pair. Redis errors degrade to
// "no observation": a missed crossing beats a failed cycle.
func (t *RedisTracker) Get(ctx context.Context, userID, symbol string) (decimal.Decimal, bool) {
	val, err := t.client.Get(ctx, keyPrefix+alerts.PairKey(userID, symbol)).Result()
	if err == redis.Nil {
		return decimal.Decimal{}, false
	}
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Str("symbol", symbol).
			Msg("price tracker read failed, treating as no prior observation")
		return decimal.Decimal{}, false
	}
	price, err := decimal.NewFromString(val)
	if err != nil {
		log.Warn().Err(err).Str("value", val).Msg("corrupt price tracker entry ignored")
		return decimal.Decimal{}, false
	}
	return price, true
}

// Set records the midpoint, refreshing the entry's TTL.
func (t *RedisTracker) Set(ctx context.Context, userID, symbol string, price decimal.Decimal) {
	key := keyPrefix + alerts.PairKey(userID, symbol)
	if err := t.client.Set(ctx, key, price.String(), t.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("price tracker write failed")
	}
}

// Prune is a no-op: key expiry bounds growth for the Redis tracker.
func (t *RedisTracker) Prune(ctx context.Context, active map[string]struct{}) {}
