package dedupe

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces dedupe keys within a shared Redis instance.
const keyPrefix = "penpal:seen:"

// RedisStore keeps seen ids in Redis with a TTL, closing the restart-replay
// gap of the in-memory store: a restarted process still refuses ids marked
// by its previous incarnation until the TTL lapses.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds a Redis-backed idempotency store.
func NewRedisStore(addr string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    ttl,
	}
}

// TestAndMark implements Store via SET NX, which is atomic on the server.
func (r *RedisStore) TestAndMark(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	first, err := r.client.SetNX(ctx, keyPrefix+id, "1", r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedupe: mark %s: %w", id, err)
	}
	return first, nil
}

// Close releases the underlying Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
