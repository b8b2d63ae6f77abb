package inflight

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds this replica's token.
const releaseScript = `if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisClient is the subset of *redis.Client the guard needs.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// Redis shares the in-flight set between API replicas. Keys expire after ttl
// so a crashed replica cannot pin a request forever. Each hold stores a random
// token, and Release only removes a key still carrying it.
type Redis struct {
	client RedisClient
	prefix string
	ttl    time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

func NewRedis(client RedisClient, ttl time.Duration) *Redis {
	return &Redis{client: client, prefix: "lunysse:inflight:", ttl: ttl, tokens: make(map[string]string)}
}

func (r *Redis) Acquire(ctx context.Context, key string) (bool, error) {
	token := uuid.NewString()
	ok, err := r.client.SetNX(ctx, r.prefix+key, token, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	if ok {
		r.mu.Lock()
		r.tokens[key] = token
		r.mu.Unlock()
	}
	return ok, nil
}

func (r *Redis) Release(ctx context.Context, key string) error {
	r.mu.Lock()
	token, ok := r.tokens[key]
	delete(r.tokens, key)
	r.mu.Unlock()
	if !ok {
		return nil
	}

	if err := r.client.Eval(ctx, releaseScript, []string{r.prefix + key}, token).Err(); err != nil {
		return fmt.Errorf("redis release: %w", err)
	}
	return nil
}
