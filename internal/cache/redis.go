package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/sells-group/platform-resolver/internal/model"
)

// DefaultKeyPrefix namespaces cache keys in a shared Redis.
const DefaultKeyPrefix = "platforms:cache:"

const scanBatch = 200

// RedisBackend keeps entries in Redis with a native TTL matching ExpiresAt.
type RedisBackend struct {
	client redis.UniversalClient
	prefix string
}

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(b *RedisBackend) {
		if prefix != "" {
			b.prefix = prefix
		}
	}
}

// NewRedisBackend wraps client.
func NewRedisBackend(client redis.UniversalClient, opts ...RedisOption) *RedisBackend {
	b := &RedisBackend{client: client, prefix: DefaultKeyPrefix}
	for _, o := range opts {
		o(b)
	}
	return b
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, eris.Wrap(err, "redis: parse url")
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "redis: ping")
	}
	return client, nil
}

func (b *RedisBackend) Name() string { return "redis" }

func (b *RedisBackend) key(fingerprint string) string {
	return b.prefix + fingerprint
}

func (b *RedisBackend) Get(ctx context.Context, fingerprint string) (*model.CacheEntry, error) {
	data, err := b.client.Get(ctx, b.key(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "redis: get")
	}
	var e model.CacheEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, eris.Wrap(err, "redis: unmarshal entry")
	}
	return &e, nil
}

func (b *RedisBackend) Put(ctx context.Context, entry *model.CacheEntry) error {
	ttl := entry.ExpiresAt.Sub(entry.CreatedAt)
	if ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return eris.Wrap(err, "redis: marshal entry")
	}
	return eris.Wrap(b.client.Set(ctx, b.key(entry.Fingerprint), data, ttl).Err(), "redis: set")
}

// Clear deletes every key under the prefix with SCAN + DEL so other data in
// the same database is untouched.
func (b *RedisBackend) Clear(ctx context.Context) (int64, error) {
	var total int64
	err := b.scan(ctx, func(keys []string) error {
		n, err := b.client.Del(ctx, keys...).Result()
		total += n
		return err
	})
	if err != nil {
		return total, eris.Wrap(err, "redis: clear")
	}
	return total, nil
}

func (b *RedisBackend) Count(ctx context.Context) (int64, error) {
	var total int64
	err := b.scan(ctx, func(keys []string) error {
		total += int64(len(keys))
		return nil
	})
	return total, eris.Wrap(err, "redis: count")
}

func (b *RedisBackend) scan(ctx context.Context, fn func(keys []string) error) error {
	var cursor uint64
	for {
		keys, next, err := b.client.Scan(ctx, cursor, b.prefix+"*", scanBatch).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := fn(keys); err != nil {
				return err
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
